// Package transcode converts the push-driven upstream event stream into the
// pull-driven downstream frame protocol. It is assembled from three parts:
//
//   - Projector: filters upstream events by producer tag and extracts text
//     deltas; everything malformed or excluded is silently dropped
//   - Sequencer: wraps the projected deltas with the fixed protocol envelope
//     (Start, Text..., StepFinish, MessageFinish) advancing one frame per pull
//   - Reader: exposes the sequencer as an io.ReadCloser with backpressure;
//     closing it propagates cancellation into the upstream subscription
//
// One pipeline instance serves exactly one turn: single pass, no replay, no
// sharing between consumers. An upstream failure ends the pull chain abruptly
// without the finish tail; the consumer must treat such a turn as incomplete.
package transcode
