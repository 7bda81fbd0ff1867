package exec

import (
	"time"

	"go.uber.org/zap"

	"github.com/isdmx/execbox/sandbox"
)

// Engine executes commands under the platform sandbox. One Engine serves any
// number of invocations; each invocation owns its own child process, pipes,
// and channels exclusively.
type Engine struct {
	logger          *zap.Logger
	transformer     sandbox.Transformer
	linuxHelperPath string
	windowsCapture  CaptureFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithLinuxSandboxHelper sets the helper executable that enforces the seccomp
// sandbox on Linux.
func WithLinuxSandboxHelper(path string) Option {
	return func(e *Engine) {
		e.linuxHelperPath = path
	}
}

// WithWindowsCapture sets the out-of-process capture API used by the Windows
// restricted-token path.
func WithWindowsCapture(fn CaptureFunc) Option {
	return func(e *Engine) {
		e.windowsCapture = fn
	}
}

// New creates an Engine.
func New(logger *zap.Logger, transformer sandbox.Transformer, opts ...Option) *Engine {
	e := &Engine{
		logger:      logger,
		transformer: transformer,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one command under the policy and classifies the outcome.
// sandboxCwd anchors policy paths (writable roots) and may differ from the
// command's own working directory. When stream is non-nil, output chunks are
// forwarded to it live, capped at MaxOutputDeltasPerCall per invocation.
func (e *Engine) Execute(req Request, policy sandbox.Policy, sandboxCwd string, stream *StdoutStream) (*Output, error) {
	sandboxType := sandbox.SelectType(policy)
	e.logger.Debug("sandbox type selected", zap.Stringer("sandbox_type", sandboxType))

	if len(req.Command) == 0 {
		return nil, &InvalidInputError{Reason: "command args are empty"}
	}

	spec := sandbox.Spec{
		Program:       req.Command[0],
		Args:          req.Command[1:],
		Arg0:          req.Arg0,
		Cwd:           req.Cwd,
		Env:           req.Env,
		Permissions:   req.Permissions,
		Justification: req.Justification,
	}
	env, err := e.transformer.Transform(spec, policy, sandboxType, sandboxCwd, e.linuxHelperPath)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	raw, runErr := e.run(env, req.Expiration, policy, sandboxCwd, stream)
	return e.finalize(raw, runErr, sandboxType, time.Since(start))
}

func (e *Engine) run(env sandbox.Env, expiration Expiration, policy sandbox.Policy, sandboxCwd string, stream *StdoutStream) (rawOutput, error) {
	if env.Sandbox == sandbox.TypeWindowsRestrictedToken && !policy.FullAccess() {
		return e.runWindowsCapture(env, expiration, policy, sandboxCwd)
	}
	p, err := spawnChild(env)
	if err != nil {
		return rawOutput{}, err
	}
	return consumeOutput(p, expiration, stream)
}

// finalize normalizes the raw capture into the public result, in a fixed
// order: reconcile the timeout pseudo-signal, surface real signals, force the
// conventional timeout exit code, then run the denial heuristic.
func (e *Engine) finalize(raw rawOutput, runErr error, sandboxType sandbox.Type, duration time.Duration) (*Output, error) {
	if runErr != nil {
		e.logger.Error("exec error", zap.Error(runErr))
		return nil, runErr
	}

	timedOut := raw.timedOut
	if sig := raw.status.signal; sig != 0 {
		if sig == timeoutSignal {
			timedOut = true
		} else {
			return nil, &SignalError{Signal: sig}
		}
	}

	exitCode := raw.status.code
	if timedOut {
		exitCode = timeoutExitCode
	}

	out := &Output{
		ExitCode:   exitCode,
		Stdout:     decodeBytesSmart(raw.stdout.Bytes),
		Stderr:     decodeBytesSmart(raw.stderr.Bytes),
		Aggregated: decodeBytesSmart(raw.aggregated.Bytes),
		Duration:   duration,
		TimedOut:   timedOut,
	}

	if timedOut {
		return nil, &TimeoutError{Output: out}
	}
	if likelySandboxDenied(sandboxType, out) {
		return nil, &SandboxDeniedError{Output: out}
	}
	return out, nil
}
