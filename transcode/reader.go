package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/streambridge/frame"
)

// ErrClosed is returned by Read after the reader has been closed.
var ErrClosed = errors.New("transcode: reader closed")

// Reader exposes a Sequencer as an io.ReadCloser. Each pull on an empty
// internal buffer advances the sequencer by exactly one frame and hands out
// its wire bytes; smaller destination buffers drain the frame across calls
// without advancing further. Reads are serialized: a concurrent second pull
// queues behind the first, never interleaves.
//
// Close propagates cancellation into the upstream subscription immediately,
// even while a pull is blocked waiting for the next upstream event, and is
// safe to call multiple times.
type Reader struct {
	seq    *Sequencer
	ctx    context.Context
	cancel context.CancelFunc
	onDone func()

	readMu sync.Mutex // serializes pulls; guards buf and err
	buf    []byte
	err    error

	frames    atomic.Int64
	closed    atomic.Bool
	closeOnce sync.Once
	doneOnce  sync.Once
}

// NewReader builds the pull adapter for one turn. ctx governs the turn's
// lifetime and cancel must release the upstream subscription; onDone, when
// non-nil, fires exactly once as soon as the stream reaches a terminal state
// (drained, failed, or closed).
func NewReader(ctx context.Context, seq *Sequencer, cancel context.CancelFunc, onDone func()) *Reader {
	return &Reader{seq: seq, ctx: ctx, cancel: cancel, onDone: onDone}
}

// TurnID returns the identifier of the turn this reader serves.
func (r *Reader) TurnID() string { return r.seq.TurnID() }

// Frames reports how many frames have been pulled so far.
func (r *Reader) Frames() int64 { return r.frames.Load() }

// Read implements io.Reader. It returns io.EOF after the final frame has been
// drained and the sequencer reports completion; any other error means the
// turn ended abruptly and the received output is incomplete.
func (r *Reader) Read(p []byte) (int, error) {
	r.readMu.Lock()
	defer r.readMu.Unlock()

	if len(r.buf) > 0 {
		n := copy(p, r.buf)
		r.buf = r.buf[n:]
		return n, nil
	}
	if r.err != nil {
		// Once closed the sticky termination surfaces as ErrClosed; only a
		// fully drained stream keeps reporting io.EOF.
		if r.err != io.EOF && r.closed.Load() {
			return 0, ErrClosed
		}
		return 0, r.err
	}
	if r.closed.Load() {
		return 0, r.terminate(ErrClosed)
	}
	if len(p) == 0 {
		return 0, nil
	}

	f, err := r.seq.Next(r.ctx)
	if err != nil {
		return 0, r.terminate(err)
	}
	r.frames.Add(1)
	line, err := frame.Encode(f)
	if err != nil {
		return 0, r.terminate(fmt.Errorf("encode frame: %w", err))
	}
	n := copy(p, line)
	r.buf = line[n:]
	return n, nil
}

// Close implements io.Closer. It cancels the upstream subscription, releases
// the turn, and makes further reads fail with ErrClosed (a stream already
// drained to io.EOF keeps reporting io.EOF). Close never blocks on an
// in-flight read; the cancellation unblocks it instead, and that read
// reports the cancellation itself.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		r.closed.Store(true)
		r.cancel()
		r.fireDone()
	})
	return nil
}

// terminate records the sticky terminal error, releases upstream resources,
// and fires the completion callback. Caller must hold readMu.
func (r *Reader) terminate(err error) error {
	r.err = err
	r.cancel()
	r.fireDone()
	return err
}

func (r *Reader) fireDone() {
	r.doneOnce.Do(func() {
		if r.onDone != nil {
			r.onDone()
		}
	})
}
