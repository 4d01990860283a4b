package transcode

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/streambridge/core"
	"github.com/hupe1980/streambridge/frame"
)

// Projector decides, one upstream event at a time, whether any text content
// surfaces downstream. An event passes only when its kind is the
// message-emission kind, its producer tag is a member of the inclusion set,
// and its payload carries non-empty text. Everything else (unknown kinds,
// wrong payload arity, missing metadata, empty content, unparseable JSON)
// is dropped without error.
//
// A Projector is immutable after construction and safe for concurrent use.
type Projector struct {
	include map[string]struct{}
}

// NewProjector builds a projector surfacing only events produced by the given
// node tags.
func NewProjector(includeNodes []string) *Projector {
	include := make(map[string]struct{}, len(includeNodes))
	for _, n := range includeNodes {
		include[n] = struct{}{}
	}
	return &Projector{include: include}
}

// Includes reports whether the given producer tag is in the inclusion set.
func (p *Projector) Includes(node string) bool {
	_, ok := p.include[node]
	return ok
}

// Project extracts the text delta from ev. The boolean reports whether the
// event passed the filter; false means dropped, which is never an error.
func (p *Projector) Project(ev core.Event) (core.TextDelta, bool) {
	if ev.Kind != core.KindMessages {
		return core.TextDelta{}, false
	}
	payload := gjson.ParseBytes(ev.Data)
	if !payload.IsArray() {
		return core.TextDelta{}, false
	}
	pair := payload.Array()
	if len(pair) < 2 {
		return core.TextDelta{}, false
	}
	node := pair[1].Get("langgraph_node").String()
	if node == "" || !p.Includes(node) {
		return core.TextDelta{}, false
	}
	text := textContent(pair[0].Get("content"))
	if text == "" {
		return core.TextDelta{}, false
	}
	return core.TextDelta{Text: text}, true
}

// textContent flattens the content field of a message chunk. Upstream
// runtimes emit either a plain string or a list of typed blocks.
func textContent(content gjson.Result) string {
	switch {
	case content.Type == gjson.String:
		return content.String()
	case content.IsArray():
		var b strings.Builder
		for _, block := range content.Array() {
			if block.Get("type").String() == "text" {
				b.WriteString(block.Get("text").String())
			}
		}
		return b.String()
	default:
		return ""
	}
}

// ExtractUsage reads token accounting attached to a message chunk
// (usage_metadata). It works regardless of inclusion since usage may ride on
// chunks from any node. ok is false when the event carries none.
func ExtractUsage(ev core.Event) (frame.Usage, bool) {
	if ev.Kind != core.KindMessages {
		return frame.Usage{}, false
	}
	payload := gjson.ParseBytes(ev.Data)
	if !payload.IsArray() {
		return frame.Usage{}, false
	}
	pair := payload.Array()
	if len(pair) == 0 {
		return frame.Usage{}, false
	}
	um := pair[0].Get("usage_metadata")
	if !um.Exists() {
		return frame.Usage{}, false
	}
	return frame.Usage{
		PromptTokens:     int(um.Get("input_tokens").Int()),
		CompletionTokens: int(um.Get("output_tokens").Int()),
	}, true
}
