// Package frame defines the downstream wire protocol: a closed set of frame
// types and their serialized line format. Each frame becomes exactly one line
// of output, self-describing its kind through a one-character prefix and
// carrying a JSON-encoded body. Encoding is pure and stateless.
package frame

// FinishReason explains why generation stopped.
type FinishReason string

const (
	// ReasonStop is the regular end of generation.
	ReasonStop FinishReason = "stop"
	// ReasonLength marks truncation at a token limit.
	ReasonLength FinishReason = "length"
	// ReasonError marks an aborted generation.
	ReasonError FinishReason = "error"
)

// Usage carries the token accounting reported in finish frames.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// Frame represents one self-contained unit of the downstream wire protocol.
// Concrete frame types implement the unexported isFrame marker enabling a
// closed set.
type Frame interface{ isFrame() }

// Start opens a turn and announces its identifier. Exactly one Start precedes
// all other frames of a turn.
type Start struct {
	TurnID string
}

// isFrame implements the Frame interface for Start.
func (Start) isFrame() {}

// Text carries one increment of generated output content.
type Text struct {
	Content string
}

// isFrame implements the Frame interface for Text.
func (Text) isFrame() {}

// StepFinish closes the generation step of a turn, reporting why it stopped,
// the token usage, and whether another step follows.
type StepFinish struct {
	Reason    FinishReason
	Usage     Usage
	Continued bool
}

// isFrame implements the Frame interface for StepFinish.
func (StepFinish) isFrame() {}

// MessageFinish closes the turn. Nothing may follow it.
type MessageFinish struct {
	Reason FinishReason
	Usage  Usage
}

// isFrame implements the Frame interface for MessageFinish.
func (MessageFinish) isFrame() {}

var (
	_ Frame = Start{}
	_ Frame = Text{}
	_ Frame = StepFinish{}
	_ Frame = MessageFinish{}
)
