package exec

import "time"

// Engine-wide numeric conventions. The timeout pseudo-signal is synthesized
// by the engine itself and is distinct from every real signal number.
const (
	readChunkSize            = 8192
	aggregateInitialCapacity = 8 * 1024

	sigkillCode        = 9
	timeoutSignal      = 64
	exitCodeSignalBase = 128 // conventional shell: 128 + signal
	timeoutExitCode    = 124 // conventional timeout exit code
)

// MaxOutputDeltasPerCall caps the number of live OutputDelta events emitted
// per invocation. Aggregation still collects full output; only the live event
// stream is capped.
const MaxOutputDeltasPerCall = 10_000

// StreamOutput is a captured byte buffer for one stream. The truncation
// marker is reserved for future truncation policies; current aggregation is
// never capped.
type StreamOutput struct {
	Bytes               []byte
	TruncatedAfterLines *int
}

// exitStatus is the platform-independent view of how a process ended.
// signal is zero unless the process was terminated by a signal, real or
// synthesized.
type exitStatus struct {
	code   int
	signal int
}

// killedBy synthesizes the status of a process the engine terminated itself.
func killedBy(signal int) exitStatus {
	return exitStatus{code: -1, signal: signal}
}

// exited synthesizes a plain exit status, used by capture paths that only
// report a numeric code.
func exited(code int) exitStatus {
	return exitStatus{code: code}
}

// rawOutput is the engine-internal capture of one invocation. It is never
// exposed; the classifier transforms it into an Output or a typed error.
type rawOutput struct {
	status     exitStatus
	stdout     StreamOutput
	stderr     StreamOutput
	aggregated StreamOutput
	timedOut   bool
}

// Output is the public result of one invocation. Text fields are decoded
// lossily, with smart re-encoding for non-UTF-8 bytes.
type Output struct {
	ExitCode   int
	Stdout     string
	Stderr     string
	Aggregated string
	Duration   time.Duration
	TimedOut   bool
}
