package exec

import (
	"errors"
	"os"

	"github.com/isdmx/execbox/sandbox"
)

// Capture is the unit result of the out-of-process Windows sandbox run:
// full stdout and stderr, exit code, and whether the helper hit the timeout.
// Live delta streaming is not available on this path.
type Capture struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	TimedOut bool
}

// CaptureFunc runs one command inside the Windows restricted-token sandbox
// and blocks until it completes. The policy is passed as serialized text.
type CaptureFunc func(policyText, sandboxCwd, home string, command []string, cwd string, env map[string]string, timeoutMS int64, hasTimeout bool) (Capture, error)

// runWindowsCapture routes an invocation through the synchronous capture
// helper on its own goroutine, keeping the blocking native call off the
// caller. The aggregate is reconstructed best-effort as stdout-then-stderr
// since the helper reports the streams separately, not interleaved.
func (e *Engine) runWindowsCapture(env sandbox.Env, expiration Expiration, policy sandbox.Policy, sandboxCwd string) (rawOutput, error) {
	if e.windowsCapture == nil {
		return rawOutput{}, &IOError{Op: "windows sandbox", Err: errors.New("capture helper not configured")}
	}

	policyText, err := policy.Serialize()
	if err != nil {
		return rawOutput{}, &IOError{Op: "windows sandbox", Err: err}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return rawOutput{}, &IOError{Op: "windows sandbox: resolve home", Err: err}
	}

	// TODO: the capture helper only honors duration-based expiration; route
	// cancellation tokens through it once the helper exposes an abort handle.
	timeoutMS, hasTimeout := expiration.TimeoutMS()
	command := append([]string{env.Program}, env.Args...)

	type captureResult struct {
		capture Capture
		err     error
	}
	resultCh := make(chan captureResult, 1)
	go func() {
		capture, captureErr := e.windowsCapture(policyText, sandboxCwd, home, command, env.Cwd, env.Env, timeoutMS, hasTimeout)
		resultCh <- captureResult{capture: capture, err: captureErr}
	}()
	res := <-resultCh
	if res.err != nil {
		return rawOutput{}, &IOError{Op: "windows sandbox", Err: res.err}
	}

	capture := res.capture
	aggregated := make([]byte, 0, len(capture.Stdout)+len(capture.Stderr))
	aggregated = append(aggregated, capture.Stdout...)
	aggregated = append(aggregated, capture.Stderr...)

	return rawOutput{
		status:     exited(capture.ExitCode),
		stdout:     StreamOutput{Bytes: capture.Stdout},
		stderr:     StreamOutput{Bytes: capture.Stderr},
		aggregated: StreamOutput{Bytes: aggregated},
		timedOut:   capture.TimedOut,
	}, nil
}
