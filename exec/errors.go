package exec

import "fmt"

// InvalidInputError reports a request that was rejected before any process
// was spawned.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid exec request: " + e.Reason
}

// SpawnError reports that the child process could not be started.
type SpawnError struct {
	Program string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %q: %v", e.Program, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// TimeoutError reports that the invocation was terminated by its expiration.
// Output carries the full captured output for diagnosis.
type TimeoutError struct {
	Output *Output
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("exec timed out after %s", e.Output.Duration)
}

// SandboxDeniedError reports that the command most likely failed because the
// sandbox rejected it. The classification is a heuristic, not a certainty.
type SandboxDeniedError struct {
	Output *Output
}

func (e *SandboxDeniedError) Error() string {
	return fmt.Sprintf("sandbox denied exec, exit code: %d, stdout: %s, stderr: %s",
		e.Output.ExitCode, e.Output.Stdout, e.Output.Stderr)
}

// SignalError reports that the command was killed by a real OS signal,
// distinct from both timeout and sandbox denial.
type SignalError struct {
	Signal int
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("exec killed by signal %d", e.Signal)
}

// IOError reports a pipe or read-layer failure.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("exec %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
