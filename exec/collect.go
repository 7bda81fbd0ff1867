package exec

import (
	"errors"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"
)

// drainTimeout bounds how long the engine waits for a collector to flush
// after the termination race resolves. If the child spawned grandchildren
// that inherited its pipe file descriptors, the pipes can stay open after the
// group kill and a collector would otherwise block on read forever.
const drainTimeout = 2 * time.Second

type streamResult struct {
	out StreamOutput
	err error
}

// consumeOutput drains both stdio pipes while racing natural exit against
// the expiration and an external interrupt, then finalizes the buffers under
// the drain guard. It always consumes the process handle.
func consumeOutput(p *process, expiration Expiration, stream *StdoutStream) (rawOutput, error) {
	defer p.stdout.Close()
	defer p.stderr.Close()

	aggCh := make(chan []byte, 64)
	var wg sync.WaitGroup
	var deltasEmitted atomic.Int64

	collect := func(pipe *os.File, id Stream, results chan<- streamResult) {
		defer wg.Done()
		buf, err := readCapped(pipe, stream, id, aggCh, &deltasEmitted)
		results <- streamResult{out: StreamOutput{Bytes: buf}, err: err}
	}
	stdoutCh := make(chan streamResult, 1)
	stderrCh := make(chan streamResult, 1)
	wg.Add(2)
	go collect(p.stdout, StreamStdout, stdoutCh)
	go collect(p.stderr, StreamStderr, stderrCh)
	go func() {
		wg.Wait()
		close(aggCh)
	}()

	merged := newAggregator()
	go merged.run(aggCh)

	waitCh := make(chan error, 1)
	go func() { waitCh <- p.cmd.Wait() }()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)

	expired, release := expiration.start()
	defer release()

	var status exitStatus
	var timedOut bool
	select {
	case err := <-waitCh:
		st, werr := waitStatus(p.cmd, err)
		if werr != nil {
			return rawOutput{}, werr
		}
		status = st
	case <-expired:
		if err := p.killGroup(); err != nil {
			return rawOutput{}, &IOError{Op: "kill process group", Err: err}
		}
		status = killedBy(timeoutSignal)
		timedOut = true
	case <-interrupt:
		if err := p.killGroup(); err != nil {
			return rawOutput{}, &IOError{Op: "kill process group", Err: err}
		}
		status = killedBy(sigkillCode)
	}

	stdout, err := awaitCollector(stdoutCh, p.stdout, drainTimeout)
	if err != nil {
		return rawOutput{}, err
	}
	stderr, err := awaitCollector(stderrCh, p.stderr, drainTimeout)
	if err != nil {
		return rawOutput{}, err
	}

	// Both collectors have returned (or been unblocked by the guard), so the
	// aggregation channel closes and the merge goroutine terminates.
	<-merged.done

	return rawOutput{
		status:     status,
		stdout:     stdout,
		stderr:     stderr,
		aggregated: StreamOutput{Bytes: merged.buf},
		timedOut:   timedOut,
	}, nil
}

// awaitCollector waits for one collector to finish, bounded by the drain
// guard. On expiry the pipe's read end is closed to unblock the collector and
// empty output is substituted: a correct, timely result beats a complete but
// possibly never-arriving one.
func awaitCollector(results <-chan streamResult, pipe *os.File, timeout time.Duration) (StreamOutput, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-results:
		if res.err != nil {
			return StreamOutput{}, &IOError{Op: "read output", Err: res.err}
		}
		return res.out, nil
	case <-timer.C:
		pipe.Close()
		return StreamOutput{Bytes: []byte{}}, nil
	}
}

// readCapped reads fixed-size chunks until EOF. Every chunk is appended to
// the stream's full buffer and forwarded to the aggregation channel; live
// delta emission stops once the per-invocation cap is reached.
func readCapped(r io.Reader, stream *StdoutStream, id Stream, aggCh chan<- []byte, deltasEmitted *atomic.Int64) ([]byte, error) {
	buf := make([]byte, 0, aggregateInitialCapacity)
	tmp := make([]byte, readChunkSize)
	for {
		n, err := r.Read(tmp)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, tmp[:n])

			if stream != nil && deltasEmitted.Add(1) <= MaxOutputDeltasPerCall {
				stream.Sink.OutputDelta(Delta{
					SessionID: stream.SessionID,
					CallID:    stream.CallID,
					Stream:    id,
					Chunk:     chunk,
				})
			}

			aggCh <- chunk
			buf = append(buf, chunk...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return buf, nil
			}
			return buf, err
		}
	}
}

type aggregator struct {
	buf  []byte
	done chan struct{}
}

func newAggregator() *aggregator {
	return &aggregator{done: make(chan struct{})}
}

// run merges chunks from both collectors strictly in arrival order.
// Cross-stream ordering is therefore best-effort; within one stream chunk
// order is preserved.
func (a *aggregator) run(ch <-chan []byte) {
	defer close(a.done)
	a.buf = make([]byte, 0, aggregateInitialCapacity)
	for chunk := range ch {
		a.buf = append(a.buf, chunk...)
	}
}
