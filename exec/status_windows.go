//go:build windows

package exec

import "os"

// statusFromState decodes a reaped process state. Windows has no terminating
// signal concept; only the exit code is meaningful.
func statusFromState(state *os.ProcessState) exitStatus {
	return exited(state.ExitCode())
}

// killProcessGroup is a no-op on Windows: group-wide termination on the
// sandboxed path is handled by the capture helper, and the unsandboxed path
// falls back to killing the direct child handle only.
func killProcessGroup(int) error {
	return nil
}
