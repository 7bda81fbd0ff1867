//go:build windows

package exec

import (
	osexec "os/exec"
	"syscall"
)

// setProcAttr creates the child in a new process group, the closest Windows
// analog to the Unix Setpgid behavior relied on for group-wide termination.
func setProcAttr(cmd *osexec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
