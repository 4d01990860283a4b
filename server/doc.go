// Package server exposes a StreamBridge over HTTP.
//
// POST /api/chat starts a turn and streams its protocol frames as they are
// pulled, one line per frame, flushing after each write. DELETE
// /api/turns/{id} cancels a running turn. GET /healthz reports liveness and
// the number of active turns.
//
// Streaming responses carry the protocol version marker header and a 200
// status; failures before the stream starts map to conventional statuses
// (400 malformed request, 401 unauthorized, 429 over the concurrency limit,
// 502 upstream refusal). Once streaming has begun the status is fixed; an
// upstream failure simply ends the body early.
//
// Authentication is optional: configuring a JWT secret protects the API
// routes with bearer tokens while health stays public.
package server
