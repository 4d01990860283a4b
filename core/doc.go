// Package core provides the foundational domain types and interfaces used by
// StreamBridge. It defines the core abstractions for:
//
//   - Events (the upstream execution-progress records, one per tick)
//   - Messages (conversational input forwarded to the upstream run)
//   - Sources (pluggable producers of upstream event sequences)
//   - Sessions (the conversation -> upstream thread binding)
//   - Limiting (bounding concurrent live turns)
//
// The package intentionally keeps implementation concerns (transports,
// protocol framing, concrete sources) out of scope, exposing small interfaces
// to enable custom backends and extensions.
package core
