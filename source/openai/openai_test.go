package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/hupe1980/streambridge/core"
)

func newStubSource(t *testing.T, handler http.HandlerFunc, optFns ...func(o *Options)) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := openai.NewClient(option.WithBaseURL(srv.URL), option.WithAPIKey("test-key"))
	return NewFromClient(&client, optFns...)
}

func completionChunk(content string) string {
	return fmt.Sprintf(`{"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`, content)
}

func TestSource_StreamEmitsTaggedEvents(t *testing.T) {
	src := newStubSource(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		assert.True(t, gjson.GetBytes(body, "stream").Bool())
		assert.True(t, gjson.GetBytes(body, "stream_options.include_usage").Bool())
		assert.Equal(t, "Hello", gjson.GetBytes(body, "messages.0.content").String())

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", completionChunk("Hel"))
		fmt.Fprintf(w, "data: %s\n\n", completionChunk("lo"))
		fmt.Fprint(w, `data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`+"\n\n")
		fmt.Fprint(w, `data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-4o-mini","choices":[],"usage":{"prompt_tokens":55,"completion_tokens":20,"total_tokens":75}}`+"\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	messages := []core.Message{{Role: core.RoleUser, Content: "Hello"}}
	events, errs, err := src.Stream(context.Background(), "conv-1", messages)
	require.NoError(t, err)

	var collected []core.Event
	for ev := range events {
		collected = append(collected, ev)
	}
	require.NoError(t, <-errs)

	require.Len(t, collected, 4)
	assert.Equal(t, "Hel", gjson.GetBytes(collected[0].Data, "0.content").String())
	assert.Equal(t, DefaultNode, gjson.GetBytes(collected[0].Data, "1.langgraph_node").String())
	assert.Equal(t, "lo", gjson.GetBytes(collected[1].Data, "0.content").String())

	assert.Equal(t, int64(55), gjson.GetBytes(collected[2].Data, "0.usage_metadata.input_tokens").Int())
	assert.Equal(t, int64(20), gjson.GetBytes(collected[2].Data, "0.usage_metadata.output_tokens").Int())

	assert.Equal(t, core.KindEnd, collected[3].Kind)
}

func TestSource_CustomNodeTag(t *testing.T) {
	src := newStubSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", completionChunk("Hi"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}, func(o *Options) {
		o.Node = "final_answer"
	})

	events, errs, err := src.Stream(context.Background(), "conv-1", nil)
	require.NoError(t, err)

	ev := <-events
	assert.Equal(t, "final_answer", gjson.GetBytes(ev.Data, "1.langgraph_node").String())
	for range events {
	}
	require.NoError(t, <-errs)
}

func TestSource_APIErrorReachesErrorChannel(t *testing.T) {
	src := newStubSource(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	})

	events, errs, err := src.Stream(context.Background(), "conv-1", nil)
	require.NoError(t, err)

	for range events {
	}
	err = <-errs
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai streaming error")
}
