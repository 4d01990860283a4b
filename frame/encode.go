package frame

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion identifies the framing scheme in use; servers attach it as
// the value of the X-Vercel-AI-Data-Stream response header.
const ProtocolVersion = "v1"

// Wire prefixes, one per frame kind.
const (
	prefixStart         = "f:"
	prefixText          = "0:"
	prefixStepFinish    = "e:"
	prefixMessageFinish = "d:"
)

type startBody struct {
	MessageID string `json:"messageId"`
}

type stepFinishBody struct {
	FinishReason FinishReason `json:"finishReason"`
	Usage        Usage        `json:"usage"`
	IsContinued  bool         `json:"isContinued"`
}

type messageFinishBody struct {
	FinishReason FinishReason `json:"finishReason"`
	Usage        Usage        `json:"usage"`
}

// Encode serializes a frame to its wire form: the kind prefix, the
// JSON-encoded body, and a terminating newline. The same frame value always
// yields byte-identical output.
func Encode(f Frame) ([]byte, error) {
	switch fr := f.(type) {
	case Start:
		return encodeLine(prefixStart, startBody{MessageID: fr.TurnID})
	case Text:
		// The body of a text frame is the bare JSON string.
		return encodeLine(prefixText, fr.Content)
	case StepFinish:
		return encodeLine(prefixStepFinish, stepFinishBody{FinishReason: fr.Reason, Usage: fr.Usage, IsContinued: fr.Continued})
	case MessageFinish:
		return encodeLine(prefixMessageFinish, messageFinishBody{FinishReason: fr.Reason, Usage: fr.Usage})
	default:
		return nil, fmt.Errorf("unknown frame type %T", f)
	}
}

func encodeLine(prefix string, body any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode frame body: %w", err)
	}
	out := make([]byte, 0, len(prefix)+len(b)+1)
	out = append(out, prefix...)
	out = append(out, b...)
	out = append(out, '\n')
	return out, nil
}
