package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/streambridge/core"
	"github.com/hupe1980/streambridge/frame"
)

// ErrUpstream marks a turn that ended because the upstream execution failed
// mid-stream. Match with errors.Is.
var ErrUpstream = errors.New("transcode: upstream failure")

type state int

const (
	stateNotStarted state = iota
	stateStreaming
	stateStepDone
	stateMessageDone
	stateFailed
)

// Sequencer wraps a projected event stream with the fixed protocol envelope:
// exactly one Start before anything else, one Text per included delta, then
// one StepFinish and one MessageFinish, in that order, exactly once. After
// MessageFinish every pull yields io.EOF.
//
// Usage accounting accumulates from upstream usage metadata when present;
// without it the finish frames carry the zero placeholder rather than
// failing.
//
// A Sequencer is single-pass and not safe for concurrent use; the Reader
// serializes access.
type Sequencer struct {
	turnID string
	proj   *Projector
	events <-chan core.Event
	errs   <-chan error
	state  state
	usage  frame.Usage
	err    error
}

// NewSequencer binds a turn id and projector to one upstream event sequence.
// The channel pair follows the core.Source contract.
func NewSequencer(turnID string, proj *Projector, events <-chan core.Event, errs <-chan error) *Sequencer {
	return &Sequencer{turnID: turnID, proj: proj, events: events, errs: errs}
}

// TurnID returns the identifier announced by the Start frame.
func (s *Sequencer) TurnID() string { return s.turnID }

// Next advances the envelope by exactly one frame, blocking while the next
// upstream event is awaited. It returns io.EOF once the envelope is complete.
// An upstream failure (remote error event, source error, cancellation) is
// returned as-is and ends the sequence without the finish tail; the error is
// sticky across further calls.
func (s *Sequencer) Next(ctx context.Context) (frame.Frame, error) {
	switch s.state {
	case stateNotStarted:
		s.state = stateStreaming
		return frame.Start{TurnID: s.turnID}, nil

	case stateStreaming:
		for {
			// Cancellation wins over a ready event: the select below picks
			// among ready cases at random, and a pull issued after cancel
			// must never surface another frame.
			if err := ctx.Err(); err != nil {
				return nil, s.fail(err)
			}
			select {
			case <-ctx.Done():
				return nil, s.fail(ctx.Err())
			case ev, ok := <-s.events:
				if !ok {
					// A closed channel races with cancellation; a canceled
					// turn must end abruptly, never with the finish tail.
					if err := ctx.Err(); err != nil {
						return nil, s.fail(err)
					}
					if err := s.drainErr(); err != nil {
						return nil, s.fail(err)
					}
					s.state = stateStepDone
					return frame.StepFinish{Reason: frame.ReasonStop, Usage: s.usage, Continued: false}, nil
				}
				if ev.Kind == core.KindError {
					return nil, s.fail(upstreamError(ev))
				}
				if u, ok := ExtractUsage(ev); ok {
					s.usage.PromptTokens += u.PromptTokens
					s.usage.CompletionTokens += u.CompletionTokens
				}
				if delta, ok := s.proj.Project(ev); ok {
					return frame.Text{Content: delta.Text}, nil
				}
				// Filtered out; keep waiting within this pull.
			}
		}

	case stateStepDone:
		s.state = stateMessageDone
		return frame.MessageFinish{Reason: frame.ReasonStop, Usage: s.usage}, nil

	case stateMessageDone:
		return nil, io.EOF

	default:
		return nil, s.err
	}
}

func (s *Sequencer) fail(err error) error {
	s.state = stateFailed
	s.err = err
	return err
}

// drainErr picks up the terminal error the source left behind, if any. The
// source contract guarantees the error is buffered before the events channel
// closes, so a non-blocking receive suffices.
func (s *Sequencer) drainErr() error {
	if s.errs == nil {
		return nil
	}
	select {
	case err := <-s.errs:
		return err
	default:
		return nil
	}
}

func upstreamError(ev core.Event) error {
	msg := gjson.GetBytes(ev.Data, "message").String()
	if msg == "" {
		msg = "remote execution failed"
	}
	return fmt.Errorf("%w: %s", ErrUpstream, msg)
}
