package exec

// Stream tags which pipe a delta came from.
type Stream int

// Stream identities.
const (
	StreamStdout Stream = iota
	StreamStderr
)

func (s Stream) String() string {
	if s == StreamStderr {
		return "stderr"
	}
	return "stdout"
}

// Delta is one incremental chunk of live output.
type Delta struct {
	SessionID string
	CallID    string
	Stream    Stream
	Chunk     []byte
}

// EventSink receives live output deltas during execution. Implementations
// must be safe for concurrent use: stdout and stderr are collected by
// independent goroutines.
type EventSink interface {
	OutputDelta(delta Delta)
}

// StdoutStream attaches an event sink to one invocation, identifying the
// session and call the deltas belong to.
type StdoutStream struct {
	SessionID string
	CallID    string
	Sink      EventSink
}
