// Package openai provides a core.Source backed by the OpenAI Chat Completions
// API. It synthesizes the upstream event protocol around the SDK stream so
// the bridge treats direct model backends and remote graph runtimes
// identically: every text delta becomes a message event tagged with the
// configured producer node, and the final usage report rides on a closing
// event the same way graph runtimes attach usage metadata.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/streambridge/core"
)

// DefaultNode is the producer tag attached to emitted events.
const DefaultNode = "generate_message"

// Options configure the OpenAI source.
// Fields mirror a subset of Chat Completion parameters intentionally kept
// minimal; extend via functional options without breaking callers.
type Options struct {
	Model               string
	Node                string
	Temperature         float64
	MaxCompletionTokens int64
}

// Source streams chat completions as upstream events.
type Source struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI source using the official client
func New(optFns ...func(o *Options)) *Source {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI source from an existing client
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Source {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Node:                DefaultNode,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Source{client: client, opts: opts}
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
	stream := s.client.Chat.Completions.NewStreaming(ctx, s.buildParams(messages))
	for stream.Next() {
		ck := stream.Current()
		if ck.Usage.TotalTokens > 0 {
			// The usage chunk arrives last with no choices.
			if !emit(ctx, events, core.NewMessageEventWithUsage(s.opts.Node, "", int(ck.Usage.PromptTokens), int(ck.Usage.CompletionTokens))) {
				return nil
			}
			continue
		}
		for _, ch := range ck.Choices {
			if ch.Delta.Content == "" {
				continue
			}
			if !emit(ctx, events, core.NewMessageEvent(s.opts.Node, ch.Delta.Content)) {
				return nil
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("openai streaming error: %w", err)
	}
	emit(ctx, events, core.NewEndEvent())
	return nil
}

// buildParams assembles the request with streaming usage reporting enabled.
func (s *Source) buildParams(messages []core.Message) openai.ChatCompletionNewParams {
	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			converted = append(converted, openai.SystemMessage(m.Content))
		case core.RoleAssistant:
			converted = append(converted, openai.AssistantMessage(m.Content))
		default:
			converted = append(converted, openai.UserMessage(m.Content))
		}
	}
	return openai.ChatCompletionNewParams{
		Messages:            converted,
		Model:               s.opts.Model,
		Temperature:         openai.Float(s.opts.Temperature),
		MaxCompletionTokens: openai.Int(s.opts.MaxCompletionTokens),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}
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
