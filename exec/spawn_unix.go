//go:build unix

package exec

import (
	osexec "os/exec"
	"syscall"
)

// setProcAttr places the child in its own process group so expiration and
// interrupt handling can signal the whole tree, not just the direct child.
func setProcAttr(cmd *osexec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
