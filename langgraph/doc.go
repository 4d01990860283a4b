// Package langgraph provides a client for the LangGraph Platform REST API
// and a core.Source backed by it.
//
// The client covers the minimal control plane a bridge needs (assistant
// lookup, thread creation) plus the streaming run endpoint, decoding the
// server-sent event stream into core events without interpreting payloads.
// Control plane calls retry transiently; the event stream itself is pulled
// exactly once and never replayed.
//
// Source layers conversation semantics on top: it resolves the assistant for
// a configured graph once, binds each session to an upstream thread through a
// core.SessionStore, and forwards streamed runs unchanged.
package langgraph
