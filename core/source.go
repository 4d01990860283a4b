package core

import "context"

// Source defines the minimal contract for producers of upstream event
// sequences. A source starts one remote (or local) execution per call and
// exposes its progress as a live event stream.
//
// Semantics & Guarantees:
//   - Event Ordering: Events for a single call are delivered in the order
//     produced by the underlying execution.
//   - Channel Lifecycle: The returned events channel is closed after the
//     execution completes (success, error, or cancellation). The error channel
//     carries at most one terminal error then closes (buffered size 1); it is
//     drained after the events channel closes.
//   - Cancellation: Cancelling ctx stops further event emission, releases any
//     network subscription, and closes both channels promptly.
//   - Filtering: Sources emit everything they see; deciding which events
//     surface downstream is the consumer's concern.
type Source interface {
	// Stream starts an execution bound to sessionID using messages as the
	// conversational input. It returns:
	//   eventsCh - ordered stream of upstream events (closed on completion)
	//   errorsCh - terminal error channel (size 1, closed after send/none)
	// The immediate error return covers startup failures (e.g. bootstrap or
	// connection establishment); once channels are returned, failures travel
	// through errorsCh.
	Stream(ctx context.Context, sessionID string, messages []Message) (<-chan Event, <-chan error, error)
}
