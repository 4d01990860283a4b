// Package anthropic provides a core.Source backed by the Anthropic Messages
// API, synthesizing the upstream event protocol around the SDK stream.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/streambridge/core"
)

// DefaultNode is the producer tag attached to emitted events.
const DefaultNode = "generate_message"

// Options configure the Anthropic source (model id, producer tag,
// temperature, max tokens, API key). Extend via functional options to
// preserve stability.
type Options struct {
	Model       anthropic.Model
	Node        string
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Source streams Claude messages as upstream events.
type Source struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic source using the official client
func New(optFns ...func(o *Options)) *Source {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Source{
		client: &client,
		opts:   opts,
	}
}

// NewFromClient creates a new Anthropic source from an existing client
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Source {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Source{
		client: client,
		opts:   opts,
	}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Node:        DefaultNode,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// Stream implements core.Source. The backend holds no conversation state, so
// sessionID is accepted for interface symmetry only and history travels in
// messages.
func (s *Source) Stream(ctx context.Context, sessionID string, messages []core.Message) (<-chan core.Event, <-chan error, error) {
	_ = sessionID
	events := make(chan core.Event, 32)
	errCh := make(chan error, 1)
	go func() {
		defer close(events)
		defer close(errCh)
		if err := s.stream(ctx, messages, events); err != nil {
			errCh <- err
		}
	}()
	return events, errCh, nil
}

func (s *Source) stream(ctx context.Context, messages []core.Message, events chan<- core.Event) error {
	params := anthropic.MessageNewParams{
		Model:       s.opts.Model,
		Messages:    s.buildMessages(messages),
		MaxTokens:   s.opts.MaxTokens,
		Temperature: anthropic.Float(s.opts.Temperature),
	}
	if systemBlocks := extractSystemBlocks(messages); len(systemBlocks) > 0 {
		params.System = systemBlocks
	}

	// Usage arrives split across the stream: input tokens on message_start,
	// output tokens on the final message_delta. Report both on one event once
	// the output count is known.
	var inputTokens int64

	stream := s.client.Messages.NewStreaming(ctx, params)
	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.MessageStartEvent:
			inputTokens = ev.Message.Usage.InputTokens
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text == "" {
					continue
				}
				if !emit(ctx, events, core.NewMessageEvent(s.opts.Node, delta.Text)) {
					return nil
				}
			}
		case anthropic.MessageDeltaEvent:
			if !emit(ctx, events, core.NewMessageEventWithUsage(s.opts.Node, "", int(inputTokens), int(ev.Usage.OutputTokens))) {
				return nil
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic streaming error: %w", err)
	}
	emit(ctx, events, core.NewEndEvent())
	return nil
}

// buildMessages converts conversation history into Anthropic message params.
// System entries are handled separately via extractSystemBlocks.
func (s *Source) buildMessages(messages []core.Message) []anthropic.MessageParam {
	var converted []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			continue
		case core.RoleAssistant:
			converted = append(converted, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return converted
}

func extractSystemBlocks(messages []core.Message) []anthropic.TextBlockParam {
	var systemBlocks []anthropic.TextBlockParam
	for _, m := range messages {
		if m.Role == core.RoleSystem && m.Content != "" {
			systemBlocks = append(systemBlocks, anthropic.TextBlockParam{Text: m.Content})
		}
	}
	return systemBlocks
}

func emit(ctx context.Context, events chan<- core.Event, ev core.Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

var _ core.Source = (*Source)(nil)
