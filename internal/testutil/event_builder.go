package testutil

import (
	"encoding/json"

	"github.com/hupe1980/streambridge/core"
)

// EventBuilder provides a fluent helper for constructing upstream event
// sequences in tests.
// Example:
//
//	events := NewEventBuilder().Text("Hi").Usage(55, 20).End().Build()
//
// Chain only the parts you need; sensible defaults are applied.
type EventBuilder struct {
	node   string
	events []core.Event
}

// NewEventBuilder creates a builder with default producer tag "generate_message".
func NewEventBuilder() *EventBuilder { return &EventBuilder{node: "generate_message"} }

// Node sets the producer tag for subsequent events (chainable).
func (b *EventBuilder) Node(n string) *EventBuilder { b.node = n; return b }

// Text appends a message event carrying content from the current node (chainable).
func (b *EventBuilder) Text(content string) *EventBuilder {
	b.events = append(b.events, core.NewMessageEvent(b.node, content))
	return b
}

// TextFrom appends a message event from an explicit node without changing the
// current one (chainable).
func (b *EventBuilder) TextFrom(node, content string) *EventBuilder {
	b.events = append(b.events, core.NewMessageEvent(node, content))
	return b
}

// Usage appends a contentless message event carrying token accounting (chainable).
func (b *EventBuilder) Usage(promptTokens, completionTokens int) *EventBuilder {
	b.events = append(b.events, core.NewMessageEventWithUsage(b.node, "", promptTokens, completionTokens))
	return b
}

// Metadata appends a run metadata event (chainable).
func (b *EventBuilder) Metadata(runID string) *EventBuilder {
	data, _ := json.Marshal(map[string]string{"run_id": runID})
	b.events = append(b.events, core.Event{Kind: core.KindMetadata, Data: data})
	return b
}

// Error appends a remote failure event (chainable).
func (b *EventBuilder) Error(message string) *EventBuilder {
	b.events = append(b.events, core.NewErrorEvent(message))
	return b
}

// End appends the regular end-of-run marker (chainable).
func (b *EventBuilder) End() *EventBuilder {
	b.events = append(b.events, core.NewEndEvent())
	return b
}

// Raw appends an event with an arbitrary kind and payload (chainable). Use for
// malformed shapes the builder would otherwise refuse to produce.
func (b *EventBuilder) Raw(kind core.EventKind, data string) *EventBuilder {
	b.events = append(b.events, core.Event{Kind: kind, Data: json.RawMessage(data)})
	return b
}

// Build returns the accumulated sequence.
func (b *EventBuilder) Build() []core.Event { return b.events }
