package transcode

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/streambridge/core"
	"github.com/hupe1980/streambridge/frame"
)

func TestProjector_IncludedNode(t *testing.T) {
	proj := NewProjector([]string{"generate_message"})

	delta, ok := proj.Project(core.NewMessageEvent("generate_message", "Hi"))
	require.True(t, ok)
	assert.Equal(t, "Hi", delta.Text)
}

func TestProjector_ExcludedNode(t *testing.T) {
	proj := NewProjector([]string{"other_node"})

	_, ok := proj.Project(core.NewMessageEvent("generate_message", "Hi"))
	assert.False(t, ok)
}

func TestProjector_Includes(t *testing.T) {
	proj := NewProjector([]string{"a", "b"})

	assert.True(t, proj.Includes("a"))
	assert.True(t, proj.Includes("b"))
	assert.False(t, proj.Includes("c"))
}

func TestProjector_DropsMalformed(t *testing.T) {
	proj := NewProjector([]string{"generate_message"})

	tests := []struct {
		name string
		ev   core.Event
	}{
		{
			name: "wrong kind",
			ev:   core.Event{Kind: core.KindMetadata, Data: json.RawMessage(`{"run_id":"r1"}`)},
		},
		{
			name: "payload not an array",
			ev:   core.Event{Kind: core.KindMessages, Data: json.RawMessage(`{"content":"Hi"}`)},
		},
		{
			name: "payload missing metadata element",
			ev:   core.Event{Kind: core.KindMessages, Data: json.RawMessage(`[{"content":"Hi"}]`)},
		},
		{
			name: "metadata missing producer tag",
			ev:   core.Event{Kind: core.KindMessages, Data: json.RawMessage(`[{"content":"Hi"},{}]`)},
		},
		{
			name: "empty content",
			ev:   core.NewMessageEvent("generate_message", ""),
		},
		{
			name: "content wrong type",
			ev:   core.Event{Kind: core.KindMessages, Data: json.RawMessage(`[{"content":42},{"langgraph_node":"generate_message"}]`)},
		},
		{
			name: "unparseable payload",
			ev:   core.Event{Kind: core.KindMessages, Data: json.RawMessage(`not json`)},
		},
		{
			name: "empty payload",
			ev:   core.Event{Kind: core.KindMessages},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := proj.Project(tt.ev)
			assert.False(t, ok)
		})
	}
}

func TestProjector_BlockContent(t *testing.T) {
	proj := NewProjector([]string{"generate_message"})

	data := json.RawMessage(`[
		{"content":[{"type":"text","text":"Hello"},{"type":"tool_use","id":"t1"},{"type":"text","text":" world"}]},
		{"langgraph_node":"generate_message"}
	]`)
	delta, ok := proj.Project(core.Event{Kind: core.KindMessages, Data: data})
	require.True(t, ok)
	assert.Equal(t, "Hello world", delta.Text)
}

func TestExtractUsage(t *testing.T) {
	usage, ok := ExtractUsage(core.NewMessageEventWithUsage("generate_message", "Hi", 12, 7))
	require.True(t, ok)
	assert.Equal(t, frame.Usage{PromptTokens: 12, CompletionTokens: 7}, usage)

	_, ok = ExtractUsage(core.NewMessageEvent("generate_message", "Hi"))
	assert.False(t, ok)

	_, ok = ExtractUsage(core.NewEndEvent())
	assert.False(t, ok)
}

func TestExtractUsage_AnyNode(t *testing.T) {
	// Usage arrives on chunks from nodes outside the inclusion set too.
	usage, ok := ExtractUsage(core.NewMessageEventWithUsage("summarize_conversation", "", 40, 13))
	require.True(t, ok)
	assert.Equal(t, frame.Usage{PromptTokens: 40, CompletionTokens: 13}, usage)
}
