package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/streambridge/core"
)

// StubCall records one Stream invocation.
type StubCall struct {
	SessionID string
	Messages  []core.Message
}

// StubSource replays a scripted event sequence as a core.Source. It records
// every Stream invocation and signals observed cancellation through
// Terminated, letting tests assert that a consumer tore the subscription
// down.
type StubSource struct {
	script   []core.Event
	failWith error
	refuse   error
	block    bool

	mu    sync.Mutex
	calls []StubCall

	terminated chan struct{}
	termOnce   sync.Once
}

// NewStubSource builds a source that replays events and then ends cleanly.
func NewStubSource(events ...core.Event) *StubSource {
	return &StubSource{script: events, terminated: make(chan struct{})}
}

// FailWith arranges a terminal error after the scripted events (chainable).
func (s *StubSource) FailWith(err error) *StubSource { s.failWith = err; return s }

// RefuseWith makes Stream fail synchronously before any event flows (chainable).
func (s *StubSource) RefuseWith(err error) *StubSource { s.refuse = err; return s }

// Block keeps the stream open after the scripted events until the context
// ends (chainable).
func (s *StubSource) Block() *StubSource { s.block = true; return s }

// Stream implements core.Source.
func (s *StubSource) Stream(ctx context.Context, sessionID string, messages []core.Message) (<-chan core.Event, <-chan error, error) {
	s.mu.Lock()
	s.calls = append(s.calls, StubCall{SessionID: sessionID, Messages: messages})
	s.mu.Unlock()

	if s.refuse != nil {
		return nil, nil, s.refuse
	}

	events := make(chan core.Event, len(s.script))
	errCh := make(chan error, 1)
	go func() {
		defer close(events)
		defer close(errCh)
		for _, ev := range s.script {
			select {
			case events <- ev:
			case <-ctx.Done():
				s.signalTerminated()
				return
			}
		}
		if s.failWith != nil {
			errCh <- s.failWith
			return
		}
		if s.block {
			<-ctx.Done()
			s.signalTerminated()
		}
	}()
	return events, errCh, nil
}

// Terminated closes once a streaming goroutine observed cancellation.
func (s *StubSource) Terminated() <-chan struct{} { return s.terminated }

// Calls returns the recorded Stream invocations.
func (s *StubSource) Calls() []StubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StubCall(nil), s.calls...)
}

func (s *StubSource) signalTerminated() {
	s.termOnce.Do(func() { close(s.terminated) })
}

var _ core.Source = (*StubSource)(nil)
