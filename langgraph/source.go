package langgraph

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/streambridge/core"
	"github.com/hupe1980/streambridge/logging"
)

// DefaultGraphID is the graph resolved when none is configured.
const DefaultGraphID = "agent"

// SourceOptions configure the LangGraph-backed source.
type SourceOptions struct {
	// GraphID names the graph whose assistant serves the runs.
	GraphID string
	// AssistantID pins the assistant directly, skipping graph resolution.
	AssistantID string
	// Logger receives source diagnostics.
	Logger logging.Logger
}

// Source streams LangGraph runs as a core.Source. The assistant for the
// configured graph is resolved once and cached; each session is bound to a
// server-side thread through the session store so repeated turns share
// conversation state upstream.
type Source struct {
	client  *Client
	store   core.SessionStore
	graphID string
	logger  logging.Logger

	mu          sync.Mutex
	assistantID string
}

// NewSource builds a source streaming runs of the configured graph.
func NewSource(client *Client, store core.SessionStore, optFns ...func(o *SourceOptions)) *Source {
	opts := SourceOptions{
		GraphID: DefaultGraphID,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Source{
		client:      client,
		store:       store,
		graphID:     opts.GraphID,
		assistantID: opts.AssistantID,
		logger:      opts.Logger,
	}
}

// Stream implements core.Source.
func (s *Source) Stream(ctx context.Context, sessionID string, messages []core.Message) (<-chan core.Event, <-chan error, error) {
	assistantID, err := s.resolveAssistant(ctx)
	if err != nil {
		return nil, nil, err
	}
	threadID, err := s.resolveThread(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	return s.client.StreamRun(ctx, threadID, assistantID, messages)
}

// resolveAssistant looks up the assistant serving the configured graph once
// and caches it for the source lifetime.
func (s *Source) resolveAssistant(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assistantID != "" {
		return s.assistantID, nil
	}
	assistants, err := s.client.SearchAssistants(ctx, s.graphID, 1)
	if err != nil {
		return "", fmt.Errorf("resolve assistant for graph %q: %w", s.graphID, err)
	}
	if len(assistants) == 0 {
		return "", fmt.Errorf("no assistant registered for graph %q", s.graphID)
	}
	s.assistantID = assistants[0].AssistantID
	s.logger.Info("Resolved assistant", "graph_id", s.graphID, "assistant_id", s.assistantID)
	return s.assistantID, nil
}

// resolveThread returns the session's bound thread, creating and binding one
// on first use.
func (s *Source) resolveThread(ctx context.Context, sessionID string) (string, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return "", fmt.Errorf("load session %q: %w", sessionID, err)
	}
	if threadID := sess.Thread(); threadID != "" {
		return threadID, nil
	}
	thread, err := s.client.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	if err := s.store.BindThread(sessionID, thread.ThreadID); err != nil {
		return "", fmt.Errorf("bind thread: %w", err)
	}
	s.logger.Info("Bound session to thread", "session_id", sessionID, "thread_id", thread.ThreadID)
	return thread.ThreadID, nil
}

var _ core.Source = (*Source)(nil)
