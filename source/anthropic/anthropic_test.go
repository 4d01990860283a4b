package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/hupe1980/streambridge/core"
)

func newStubSource(t *testing.T, handler http.HandlerFunc, optFns ...func(o *Options)) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := anthropic.NewClient(option.WithBaseURL(srv.URL), option.WithAPIKey("test-key"))
	return NewFromClient(&client, optFns...)
}

func writeMessageStream(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	fmt.Fprint(w, "event: message_start\n")
	fmt.Fprint(w, `data: {"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-3-5-sonnet-20241022","stop_reason":null,"usage":{"input_tokens":55,"output_tokens":1}}}`+"\n\n")
	fmt.Fprint(w, "event: content_block_start\n")
	fmt.Fprint(w, `data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`+"\n\n")
	fmt.Fprint(w, "event: content_block_delta\n")
	fmt.Fprint(w, `data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`+"\n\n")
	fmt.Fprint(w, "event: content_block_stop\n")
	fmt.Fprint(w, `data: {"type":"content_block_stop","index":0}`+"\n\n")
	fmt.Fprint(w, "event: message_delta\n")
	fmt.Fprint(w, `data: {"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":20}}`+"\n\n")
	fmt.Fprint(w, "event: message_stop\n")
	fmt.Fprint(w, `data: {"type":"message_stop"}`+"\n\n")
}

func TestSource_StreamEmitsTaggedEvents(t *testing.T) {
	src := newStubSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		writeMessageStream(w)
	})

	messages := []core.Message{
		{Role: core.RoleSystem, Content: "Be terse."},
		{Role: core.RoleUser, Content: "Hello"},
	}
	events, errs, err := src.Stream(context.Background(), "conv-1", messages)
	require.NoError(t, err)

	var collected []core.Event
	for ev := range events {
		collected = append(collected, ev)
	}
	require.NoError(t, <-errs)

	require.Len(t, collected, 3)
	assert.Equal(t, "Hello", gjson.GetBytes(collected[0].Data, "0.content").String())
	assert.Equal(t, DefaultNode, gjson.GetBytes(collected[0].Data, "1.langgraph_node").String())

	// Input tokens from message_start, output tokens from the final delta.
	assert.Equal(t, int64(55), gjson.GetBytes(collected[1].Data, "0.usage_metadata.input_tokens").Int())
	assert.Equal(t, int64(20), gjson.GetBytes(collected[1].Data, "0.usage_metadata.output_tokens").Int())

	assert.Equal(t, core.KindEnd, collected[2].Kind)
}

func TestSource_APIErrorReachesErrorChannel(t *testing.T) {
	src := newStubSource(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`, http.StatusServiceUnavailable)
	})

	events, errs, err := src.Stream(context.Background(), "conv-1", nil)
	require.NoError(t, err)

	for range events {
	}
	err = <-errs
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic streaming error")
}
