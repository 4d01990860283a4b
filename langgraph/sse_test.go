package langgraph

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEScanner_Dispatch(t *testing.T) {
	input := strings.Join([]string{
		"event: metadata",
		`data: {"run_id":"r1"}`,
		"",
		": keep-alive",
		"",
		"event: messages",
		`data: [{"content":"Hi"},{"langgraph_node":"generate_message"}]`,
		"",
		"event: end",
		"data: null",
		"",
		"",
	}, "\n")
	sc := newSSEScanner(strings.NewReader(input))

	ev, err := sc.Next()
	require.NoError(t, err)
	assert.Equal(t, "metadata", ev.name)
	assert.JSONEq(t, `{"run_id":"r1"}`, string(ev.data))

	ev, err = sc.Next()
	require.NoError(t, err)
	assert.Equal(t, "messages", ev.name)

	ev, err = sc.Next()
	require.NoError(t, err)
	assert.Equal(t, "end", ev.name)

	_, err = sc.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSSEScanner_MultiLineData(t *testing.T) {
	sc := newSSEScanner(strings.NewReader("event: messages\ndata: line1\ndata: line2\n\n"))

	ev, err := sc.Next()
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2", string(ev.data))
}

func TestSSEScanner_NoSpaceAfterColon(t *testing.T) {
	sc := newSSEScanner(strings.NewReader("event:messages\ndata:{}\n\n"))

	ev, err := sc.Next()
	require.NoError(t, err)
	assert.Equal(t, "messages", ev.name)
	assert.Equal(t, "{}", string(ev.data))
}

func TestSSEScanner_DropsPartialEventAtStreamEnd(t *testing.T) {
	sc := newSSEScanner(strings.NewReader("event: messages\ndata: {\"partial\":true}"))

	_, err := sc.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSSEScanner_IgnoresUnknownFields(t *testing.T) {
	sc := newSSEScanner(strings.NewReader("id: 7\nretry: 1000\nevent: end\ndata: null\n\n"))

	ev, err := sc.Next()
	require.NoError(t, err)
	assert.Equal(t, "end", ev.name)
}
