// Package streambridge provides a high-level façade over the transcoding
// pipeline and service abstractions (sources, sessions & logging) enabling
// rapid construction of streaming chat backends. Most applications interact
// with this package by:
//  1. Creating a StreamBridge via New() around a core.Source (LangGraph,
//     OpenAI, Anthropic or a custom implementation)
//  2. Starting turns with Stream(), which hands back a demand-driven frame
//     reader speaking the downstream wire protocol
//  3. Serving the reader over HTTP (see the server package) or draining it
//     directly via StreamSync
//
// The façade delegates frame production to the transcode package while
// keeping setup and usage ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply a tuned
// inclusion set, a concurrency limit and a structured logger.
package streambridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hupe1980/streambridge/core"
	"github.com/hupe1980/streambridge/logging"
	"github.com/hupe1980/streambridge/transcode"
)

var (
	// ErrTurnNotFound is returned by Cancel for unknown turn ids.
	ErrTurnNotFound = errors.New("streambridge: turn not found")
	// ErrTooManyStreams is returned by Stream once the concurrent turn limit
	// is reached.
	ErrTooManyStreams = errors.New("streambridge: too many concurrent streams")
)

// DefaultIncludeNodes surfaces the conventional final-answer producer tag.
var DefaultIncludeNodes = []string{"generate_message"}

// Options configures the StreamBridge instance.
type Options struct {
	// IncludeNodes selects which producer tags surface as text downstream.
	// Events from other producers are dropped silently.
	IncludeNodes []string

	// MaxConcurrentStreams limits the number of turns that can stream
	// simultaneously. This prevents resource exhaustion and provides
	// backpressure. Set to 0 for unlimited (not recommended).
	MaxConcurrentStreams int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Request describes one turn to stream.
type Request struct {
	// SessionID names the conversation; empty generates a fresh one.
	SessionID string
	// Messages is the conversation input for this turn.
	Messages []core.Message
	// IncludeNodes overrides the bridge-level inclusion set for this turn
	// when non-nil.
	IncludeNodes []string
}

// Turn is a started stream: its identifier plus the frame reader. The reader
// yields exactly one protocol frame per pull and must be closed by the
// consumer; closing early cancels the upstream run.
type Turn struct {
	ID     string
	Stream io.ReadCloser
}

// StreamBridge is the high-level façade aggregating the upstream source,
// projection configuration and live turn tracking.
type StreamBridge struct {
	source  core.Source
	limiter *core.StreamLimiter
	logger  logging.Logger

	mu           sync.RWMutex
	includeNodes []string
	activeTurns  map[string]context.CancelFunc
}

// New creates a new StreamBridge around the given source with optional
// overrides.
func New(source core.Source, optFns ...func(o *Options)) *StreamBridge {
	opts := Options{
		IncludeNodes: DefaultIncludeNodes,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &StreamBridge{
		source:       source,
		limiter:      core.NewStreamLimiter(opts.MaxConcurrentStreams),
		logger:       opts.Logger,
		includeNodes: append([]string(nil), opts.IncludeNodes...),
		activeTurns:  make(map[string]context.CancelFunc),
	}
}

// Stream starts an asynchronous turn returning its reader.
//
// The upstream subscription begins immediately; frames are produced one per
// pull on the reader. ctx bounds the whole turn: canceling it, closing the
// reader, or calling Cancel with the turn id all terminate the upstream run
// promptly. A reader that ends with an error other than io.EOF delivered an
// incomplete stream.
func (b *StreamBridge) Stream(ctx context.Context, req Request) (*Turn, error) {
	if req.SessionID == "" {
		req.SessionID = core.NewID()
	}

	if !b.limiter.TryAcquire() {
		return nil, ErrTooManyStreams
	}

	turnID := core.NewID()
	turnCtx, cancel := context.WithCancel(ctx)

	events, errs, err := b.source.Stream(turnCtx, req.SessionID, req.Messages)
	if err != nil {
		cancel()
		b.limiter.Release()
		return nil, fmt.Errorf("start upstream stream: %w", err)
	}

	proj := transcode.NewProjector(b.resolveIncludeNodes(req.IncludeNodes))
	seq := transcode.NewSequencer(turnID, proj, events, errs)

	b.mu.Lock()
	b.activeTurns[turnID] = cancel
	b.mu.Unlock()

	start := time.Now()
	var reader *transcode.Reader
	finish := func() {
		b.mu.Lock()
		delete(b.activeTurns, turnID)
		b.mu.Unlock()
		b.limiter.Release()
		b.logger.Info("Turn finished",
			"turn_id", turnID,
			"session_id", req.SessionID,
			"frames", reader.Frames(),
			"duration", time.Since(start),
		)
	}
	reader = transcode.NewReader(turnCtx, seq, cancel, finish)

	b.logger.Debug("Turn started", "turn_id", turnID, "session_id", req.SessionID)
	return &Turn{ID: turnID, Stream: reader}, nil
}

// StreamSync is a synchronous helper that drains the turn's reader and
// returns the turn id plus the full wire output. On an abrupt end the bytes
// produced so far are returned together with the terminal error.
func (b *StreamBridge) StreamSync(ctx context.Context, req Request) (string, []byte, error) {
	turn, err := b.Stream(ctx, req)
	if err != nil {
		return "", nil, err
	}
	defer turn.Stream.Close()

	out, err := io.ReadAll(turn.Stream)
	if err != nil {
		return turn.ID, out, err
	}
	return turn.ID, out, nil
}

// Cancel terminates a running turn by its ID.
//
// The turn's context is canceled, interrupting the upstream run immediately;
// the consumer's next pull observes the termination. The reader still owns
// cleanup, so consumers must close it as usual.
func (b *StreamBridge) Cancel(turnID string) error {
	b.mu.RLock()
	cancel, exists := b.activeTurns[turnID]
	b.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrTurnNotFound, turnID)
	}

	cancel()
	b.logger.Info("Turn canceled", "turn_id", turnID)
	return nil
}

// ActiveTurns returns the ids of turns currently streaming.
func (b *StreamBridge) ActiveTurns() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.activeTurns))
	for id := range b.activeTurns {
		ids = append(ids, id)
	}
	return ids
}

// SetIncludeNodes replaces the bridge-level inclusion set. Turns already
// streaming keep the set they started with.
func (b *StreamBridge) SetIncludeNodes(nodes []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.includeNodes = append([]string(nil), nodes...)
}

// IncludeNodes returns a copy of the bridge-level inclusion set.
func (b *StreamBridge) IncludeNodes() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.includeNodes...)
}

func (b *StreamBridge) resolveIncludeNodes(override []string) []string {
	if override != nil {
		return override
	}
	return b.IncludeNodes()
}
