package exec

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dribbleReader yields one byte per read so every byte becomes its own chunk.
type dribbleReader struct {
	remaining int
	fill      byte
}

func (r *dribbleReader) Read(p []byte) (int, error) {
	if r.remaining == 0 {
		return 0, io.EOF
	}
	r.remaining--
	p[0] = r.fill
	return 1, nil
}

type countingSink struct {
	mu     sync.Mutex
	count  int
	chunks int
}

func (c *countingSink) OutputDelta(d Delta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	c.chunks += len(d.Chunk)
}

func drainAggregate(t *testing.T) (chan []byte, *aggregator) {
	t.Helper()
	aggCh := make(chan []byte, 64)
	merged := newAggregator()
	go merged.run(aggCh)
	return aggCh, merged
}

func TestReadCappedStopsEmittingAtDeltaCap(t *testing.T) {
	aggCh, merged := drainAggregate(t)
	sink := &countingSink{}
	stream := &StdoutStream{SessionID: "s", CallID: "c", Sink: sink}

	var deltas atomic.Int64
	total := MaxOutputDeltasPerCall + 500
	buf, err := readCapped(&dribbleReader{remaining: total, fill: 'x'}, stream, StreamStdout, aggCh, &deltas)
	require.NoError(t, err)
	close(aggCh)
	<-merged.done

	// The live stream is capped; aggregation never is.
	assert.Equal(t, MaxOutputDeltasPerCall, sink.count)
	assert.Len(t, buf, total)
	assert.Len(t, merged.buf, total)
}

func TestDeltaCapIsSharedAcrossStreams(t *testing.T) {
	aggCh, merged := drainAggregate(t)
	sink := &countingSink{}
	stream := &StdoutStream{SessionID: "s", CallID: "c", Sink: sink}

	var deltas atomic.Int64
	perStream := MaxOutputDeltasPerCall/2 + 1000

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := readCapped(&dribbleReader{remaining: perStream, fill: 'o'}, stream, StreamStdout, aggCh, &deltas)
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := readCapped(&dribbleReader{remaining: perStream, fill: 'e'}, stream, StreamStderr, aggCh, &deltas)
		assert.NoError(t, err)
	}()
	wg.Wait()
	close(aggCh)
	<-merged.done

	assert.Equal(t, MaxOutputDeltasPerCall, sink.count)
	assert.Len(t, merged.buf, 2*perStream)
}

func TestReadCappedWithoutSink(t *testing.T) {
	aggCh, merged := drainAggregate(t)

	var deltas atomic.Int64
	buf, err := readCapped(&dribbleReader{remaining: 100, fill: 'x'}, nil, StreamStdout, aggCh, &deltas)
	require.NoError(t, err)
	close(aggCh)
	<-merged.done

	assert.Len(t, buf, 100)
	assert.Zero(t, deltas.Load())
}

func TestAwaitCollectorSubstitutesEmptyOutputOnExpiry(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()

	// A grandchild holding the write end keeps the collector blocked in Read
	// forever; the guard must not wait for it.
	readerDone := make(chan error, 1)
	go func() {
		_, readErr := r.Read(make([]byte, 1))
		readerDone <- readErr
	}()

	results := make(chan streamResult)
	out, err := awaitCollector(results, r, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, out.Bytes)

	// Closing the read end unblocks the stuck reader.
	select {
	case readErr := <-readerDone:
		assert.Error(t, readErr)
	case <-time.After(time.Second):
		t.Fatal("reader still blocked after the drain guard closed the pipe")
	}
}

func TestAwaitCollectorDeliversBeforeExpiry(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	results := make(chan streamResult, 1)
	results <- streamResult{out: StreamOutput{Bytes: []byte("flushed")}}

	out, err := awaitCollector(results, r, 20*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []byte("flushed"), out.Bytes)
}

func TestAwaitCollectorSurfacesReadFailure(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	results := make(chan streamResult, 1)
	results <- streamResult{err: io.ErrClosedPipe}

	_, err = awaitCollector(results, r, time.Second)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
}

func TestAggregatorPreservesArrivalOrder(t *testing.T) {
	aggCh, merged := drainAggregate(t)
	aggCh <- []byte("first ")
	aggCh <- []byte("second ")
	aggCh <- []byte("third")
	close(aggCh)
	<-merged.done

	assert.Equal(t, []byte("first second third"), merged.buf)
}
