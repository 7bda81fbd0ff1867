package exec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/execbox/sandbox"
)

func rawFor(status exitStatus, timedOut bool) rawOutput {
	return rawOutput{
		status:     status,
		stdout:     StreamOutput{Bytes: []byte("out")},
		stderr:     StreamOutput{Bytes: []byte("err")},
		aggregated: StreamOutput{Bytes: []byte("outerr")},
		timedOut:   timedOut,
	}
}

func TestFinalize(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("NormalExit", func(t *testing.T) {
		out, err := engine.finalize(rawFor(exited(0), false), nil, sandbox.TypeNone, 10*time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 0, out.ExitCode)
		assert.Equal(t, "out", out.Stdout)
		assert.Equal(t, "err", out.Stderr)
		assert.Equal(t, "outerr", out.Aggregated)
		assert.Equal(t, 10*time.Millisecond, out.Duration)
		assert.False(t, out.TimedOut)
	})

	t.Run("TimeoutPseudoSignalForcesTimedOut", func(t *testing.T) {
		// Raw flag and signal path disagree; the pseudo-signal wins.
		_, err := engine.finalize(rawFor(killedBy(timeoutSignal), false), nil, sandbox.TypeNone, time.Second)
		var timeoutErr *TimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		assert.Equal(t, timeoutExitCode, timeoutErr.Output.ExitCode)
		assert.True(t, timeoutErr.Output.TimedOut)
	})

	t.Run("TimeoutForcesExitCode", func(t *testing.T) {
		_, err := engine.finalize(rawFor(exited(1), true), nil, sandbox.TypeNone, time.Second)
		var timeoutErr *TimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		assert.Equal(t, timeoutExitCode, timeoutErr.Output.ExitCode)
		assert.Equal(t, "outerr", timeoutErr.Output.Aggregated)
	})

	t.Run("RealSignalSurfacedDistinctly", func(t *testing.T) {
		_, err := engine.finalize(rawFor(killedBy(sigkillCode), false), nil, sandbox.TypeNone, time.Second)
		var signalErr *SignalError
		require.ErrorAs(t, err, &signalErr)
		assert.Equal(t, sigkillCode, signalErr.Signal)
	})

	t.Run("DeniedUnderActiveSandbox", func(t *testing.T) {
		raw := rawOutput{
			status: exited(1),
			stderr: StreamOutput{Bytes: []byte("mkdir: Operation not permitted")},
		}
		_, err := engine.finalize(raw, nil, sandbox.TypeMacosSeatbelt, time.Second)
		var deniedErr *SandboxDeniedError
		require.ErrorAs(t, err, &deniedErr)
		assert.Equal(t, 1, deniedErr.Output.ExitCode)
	})

	t.Run("RunErrorPropagates", func(t *testing.T) {
		spawnErr := &SpawnError{Program: "x"}
		_, err := engine.finalize(rawOutput{}, spawnErr, sandbox.TypeNone, time.Second)
		assert.Equal(t, spawnErr, err)
	})
}

func TestWindowsCapturePath(t *testing.T) {
	logger := zaptest.NewLogger(t)
	var gotPolicy string
	var gotCommand []string
	engine := New(logger, sandbox.NewManager(logger), WithWindowsCapture(
		func(policyText, _, _ string, command []string, _ string, _ map[string]string, timeoutMS int64, hasTimeout bool) (Capture, error) {
			gotPolicy = policyText
			gotCommand = command
			assert.True(t, hasTimeout)
			assert.Equal(t, DefaultCommandTimeout.Milliseconds(), timeoutMS)
			return Capture{
				Stdout:   []byte("so"),
				Stderr:   []byte("se"),
				ExitCode: 0,
			}, nil
		},
	))

	env := sandbox.Env{
		Spec:    sandbox.Spec{Program: "cmd.exe", Args: []string{"/c", "echo hi"}},
		Sandbox: sandbox.TypeWindowsRestrictedToken,
	}
	raw, err := engine.runWindowsCapture(env, DefaultExpiration(), sandbox.ReadOnly(), t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []string{"cmd.exe", "/c", "echo hi"}, gotCommand)
	assert.Contains(t, gotPolicy, "read-only")
	assert.Equal(t, []byte("so"), raw.stdout.Bytes)
	assert.Equal(t, []byte("se"), raw.stderr.Bytes)
	// The capture path cannot interleave; the aggregate is stdout then stderr.
	assert.Equal(t, []byte("sose"), raw.aggregated.Bytes)
	assert.False(t, raw.timedOut)
}

func TestWindowsCaptureRequiresHelper(t *testing.T) {
	engine := newTestEngine(t)
	env := sandbox.Env{
		Spec:    sandbox.Spec{Program: "cmd.exe"},
		Sandbox: sandbox.TypeWindowsRestrictedToken,
	}
	_, err := engine.runWindowsCapture(env, DefaultExpiration(), sandbox.ReadOnly(), t.TempDir())
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
}
