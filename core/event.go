package core

import (
	"encoding/json"

	"github.com/google/uuid"
)

// EventKind identifies the wire-level category of an upstream event. The set
// is closed: dispatch on kinds via the typed constants below rather than raw
// string comparison so new kinds surface at every switch site.
type EventKind string

const (
	// KindMessages carries a [message, metadata] pair emitted while a node
	// produces conversational output. The only kind that can yield text.
	KindMessages EventKind = "messages"
	// KindMetadata announces run-level metadata (run id, attempt) at stream start.
	KindMetadata EventKind = "metadata"
	// KindError reports a remote execution failure; its payload describes the cause.
	KindError EventKind = "error"
	// KindEnd marks the regular end of the upstream run.
	KindEnd EventKind = "end"
)

// Event is one tick of the upstream execution stream. After emission it is
// immutable. Events carry no identity beyond arrival order; ordering is
// significant and must be preserved by every consumer.
//
// Data holds the raw payload exactly as received. For KindMessages it is a
// two-element array [messageLike, metadata] where metadata carries the
// producer tag under "langgraph_node" and messageLike carries "content" when
// the event represents emitted text. Consumers must tolerate any shape here:
// an unparseable or unexpected payload makes the event filterable, never a
// hard failure.
type Event struct {
	Kind EventKind       `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewMessageEvent builds a message-emission event in the upstream wire shape:
// the payload is the [message, metadata] pair with the producer tag under
// langgraph_node. Used by sources that synthesize the upstream protocol and
// by tests.
func NewMessageEvent(node, text string) Event {
	return newMessageEvent(node, text, nil)
}

// NewMessageEventWithUsage is NewMessageEvent with token accounting attached
// to the message chunk (usage_metadata), the way upstream runtimes report it.
func NewMessageEventWithUsage(node, text string, promptTokens, completionTokens int) Event {
	return newMessageEvent(node, text, map[string]int{
		"input_tokens":  promptTokens,
		"output_tokens": completionTokens,
		"total_tokens":  promptTokens + completionTokens,
	})
}

func newMessageEvent(node, text string, usage map[string]int) Event {
	message := map[string]any{
		"type":    "AIMessageChunk",
		"content": text,
	}
	if usage != nil {
		message["usage_metadata"] = usage
	}
	pair := [2]any{message, map[string]any{"langgraph_node": node}}
	data, err := json.Marshal(pair)
	if err != nil {
		// Maps of marshalable primitives cannot fail; keep the constructor total.
		data = nil
	}
	return Event{Kind: KindMessages, Data: data}
}

// NewErrorEvent builds an error event with the given description, mirroring
// the shape remote runtimes use to report mid-stream failure.
func NewErrorEvent(message string) Event {
	data, _ := json.Marshal(map[string]string{"error": "StreamError", "message": message})
	return Event{Kind: KindError, Data: data}
}

// NewEndEvent builds the regular end-of-run marker.
func NewEndEvent() Event { return Event{Kind: KindEnd} }

// NewID generates a new unique identifier for turns and sessions.
//
// Returns a string representation of a new UUID.
func NewID() string { return uuid.NewString() }

// TextDelta is one unit of incremental output content extracted from an
// included message-emission event. Deltas are plain UTF-8 text in upstream
// arrival order.
type TextDelta struct {
	Text string
}
