package transcode

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/streambridge/core"
	"github.com/hupe1980/streambridge/frame"
)

// feed builds a closed source channel pair carrying the given events, the way
// a source that completed normally leaves them behind.
func feed(events ...core.Event) (<-chan core.Event, <-chan error) {
	evCh := make(chan core.Event, len(events))
	errCh := make(chan error, 1)
	for _, ev := range events {
		evCh <- ev
	}
	close(errCh)
	close(evCh)
	return evCh, errCh
}

// feedFailed is feed with a terminal source error buffered before close.
func feedFailed(err error, events ...core.Event) (<-chan core.Event, <-chan error) {
	evCh := make(chan core.Event, len(events))
	errCh := make(chan error, 1)
	for _, ev := range events {
		evCh <- ev
	}
	errCh <- err
	close(errCh)
	close(evCh)
	return evCh, errCh
}

func TestSequencer_Envelope(t *testing.T) {
	ctx := context.Background()
	events, errs := feed(core.NewMessageEvent("generate_message", "Hi"))
	seq := NewSequencer("turn-1", NewProjector([]string{"generate_message"}), events, errs)

	f, err := seq.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, frame.Start{TurnID: "turn-1"}, f)

	f, err = seq.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, frame.Text{Content: "Hi"}, f)

	f, err = seq.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, frame.StepFinish{Reason: frame.ReasonStop}, f)

	f, err = seq.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, frame.MessageFinish{Reason: frame.ReasonStop}, f)

	_, err = seq.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)

	// Completion is stable across further pulls.
	_, err = seq.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSequencer_EmptyRun(t *testing.T) {
	ctx := context.Background()
	events, errs := feed()
	seq := NewSequencer("turn-1", NewProjector([]string{"generate_message"}), events, errs)

	var frames []frame.Frame
	for {
		f, err := seq.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		frames = append(frames, f)
	}

	require.Len(t, frames, 3)
	assert.Equal(t, frame.Start{TurnID: "turn-1"}, frames[0])
	assert.Equal(t, frame.StepFinish{Reason: frame.ReasonStop}, frames[1])
	assert.Equal(t, frame.MessageFinish{Reason: frame.ReasonStop}, frames[2])
}

func TestSequencer_ExcludedEventsYieldNoText(t *testing.T) {
	ctx := context.Background()
	events, errs := feed(
		core.NewMessageEvent("plan", "thinking..."),
		core.NewMessageEvent("generate_message", "Hi"),
		core.NewMessageEvent("plan", "more thinking"),
	)
	seq := NewSequencer("turn-1", NewProjector([]string{"generate_message"}), events, errs)

	var texts []string
	for {
		f, err := seq.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if txt, ok := f.(frame.Text); ok {
			texts = append(texts, txt.Content)
		}
	}

	assert.Equal(t, []string{"Hi"}, texts)
}

func TestSequencer_UsageAccumulates(t *testing.T) {
	ctx := context.Background()
	events, errs := feed(
		core.NewMessageEventWithUsage("generate_message", "Hel", 12, 7),
		core.NewMessageEvent("generate_message", "lo"),
		core.NewMessageEventWithUsage("summarize_conversation", "", 43, 13),
	)
	seq := NewSequencer("turn-1", NewProjector([]string{"generate_message"}), events, errs)

	var stepFinish frame.StepFinish
	var messageFinish frame.MessageFinish
	for {
		f, err := seq.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		switch fr := f.(type) {
		case frame.StepFinish:
			stepFinish = fr
		case frame.MessageFinish:
			messageFinish = fr
		}
	}

	want := frame.Usage{PromptTokens: 55, CompletionTokens: 20}
	assert.Equal(t, want, stepFinish.Usage)
	assert.Equal(t, want, messageFinish.Usage)
}

func TestSequencer_PlaceholderUsageWhenAbsent(t *testing.T) {
	ctx := context.Background()
	events, errs := feed(core.NewMessageEvent("generate_message", "Hi"))
	seq := NewSequencer("turn-1", NewProjector([]string{"generate_message"}), events, errs)

	for {
		f, err := seq.Next(ctx)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if fr, ok := f.(frame.StepFinish); ok {
			assert.Equal(t, frame.Usage{}, fr.Usage)
		}
	}
}

func TestSequencer_UpstreamErrorEventEndsAbruptly(t *testing.T) {
	ctx := context.Background()
	events, errs := feed(
		core.NewMessageEvent("generate_message", "par"),
		core.NewErrorEvent("graph exploded"),
		core.NewMessageEvent("generate_message", "tial"),
	)
	seq := NewSequencer("turn-1", NewProjector([]string{"generate_message"}), events, errs)

	f, err := seq.Next(ctx)
	require.NoError(t, err)
	assert.IsType(t, frame.Start{}, f)

	f, err = seq.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, frame.Text{Content: "par"}, f)

	_, err = seq.Next(ctx)
	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "graph exploded")

	// The failure is sticky; no finish tail follows.
	_, err = seq.Next(ctx)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestSequencer_SourceErrorEndsAbruptly(t *testing.T) {
	ctx := context.Background()
	srcErr := context.DeadlineExceeded
	events, errs := feedFailed(srcErr, core.NewMessageEvent("generate_message", "Hi"))
	seq := NewSequencer("turn-1", NewProjector([]string{"generate_message"}), events, errs)

	_, err := seq.Next(ctx)
	require.NoError(t, err)
	_, err = seq.Next(ctx)
	require.NoError(t, err)

	_, err = seq.Next(ctx)
	assert.ErrorIs(t, err, srcErr)
}

func TestSequencer_PullAfterCancelEmitsNoFrame(t *testing.T) {
	// A pull issued after cancellation must fail even when an includable
	// event is already buffered, regardless of which select branch is ready
	// first. Repeated fresh sequencers make a regression to select
	// nondeterminism overwhelmingly likely to show.
	for i := 0; i < 100; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		events := make(chan core.Event, 1)
		events <- core.NewMessageEvent("generate_message", "late")
		errs := make(chan error, 1)
		seq := NewSequencer("turn-1", NewProjector([]string{"generate_message"}), events, errs)

		f, err := seq.Next(ctx)
		require.NoError(t, err)
		require.IsType(t, frame.Start{}, f)

		cancel()

		f, err = seq.Next(ctx)
		require.ErrorIs(t, err, context.Canceled)
		require.Nil(t, f)
	}
}

func TestSequencer_ContextCancelAbortsPull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan core.Event) // never fed, never closed
	errs := make(chan error, 1)
	seq := NewSequencer("turn-1", NewProjector([]string{"generate_message"}), events, errs)

	_, err := seq.Next(ctx)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := seq.Next(ctx)
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("pull did not observe cancellation")
	}

	_, err = seq.Next(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
}
