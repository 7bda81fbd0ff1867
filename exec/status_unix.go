//go:build unix

package exec

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// statusFromState decodes a reaped process state, preserving a terminating
// signal when there is one.
func statusFromState(state *os.ProcessState) exitStatus {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return killedBy(int(ws.Signal()))
	}
	return exited(state.ExitCode())
}

// killProcessGroup sends SIGKILL to the child's whole process group.
// ESRCH at either step means the group is already gone, which is benign:
// the child may have exited between the race resolving and the kill.
func killProcessGroup(pid int) error {
	pgid, err := unix.Getpgid(pid)
	if err != nil {
		if errors.Is(err, unix.ESRCH) {
			return nil
		}
		return err
	}
	if err := unix.Kill(-pgid, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}
