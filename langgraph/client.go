package langgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/hupe1980/streambridge/core"
	"github.com/hupe1980/streambridge/logging"
)

const (
	// DefaultAPIURL targets a local `langgraph dev` server.
	DefaultAPIURL = "http://localhost:2024"

	envAPIURL = "LANGGRAPH_API_URL"
	envAPIKey = "LANGGRAPH_API_KEY"

	headerAPIKey = "X-Api-Key"
)

// Options configure the LangGraph client.
type Options struct {
	// APIURL is the base URL of the LangGraph server.
	APIURL string
	// APIKey authenticates requests; empty sends no auth header.
	APIKey string
	// HTTPClient overrides the transport used for all calls. The default
	// carries no global timeout so streaming bodies stay open until the
	// request context ends.
	HTTPClient *http.Client
	// MaxRetries bounds attempts for control plane calls; 0 removes the bound.
	MaxRetries uint
	// Logger receives client diagnostics.
	Logger logging.Logger
}

// Client talks to one LangGraph server. It is safe for concurrent use.
type Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	maxRetries uint
	logger     logging.Logger
}

// New creates a LangGraph client.
func New(optFns ...func(o *Options)) *Client {
	opts := Options{
		APIURL:     DefaultAPIURL,
		HTTPClient: &http.Client{},
		MaxRetries: 3,
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: opts.HTTPClient,
		maxRetries: opts.MaxRetries,
		logger:     opts.Logger,
	}
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// Default returns a process-wide client configured from the environment
// (LANGGRAPH_API_URL, LANGGRAPH_API_KEY).
func Default() *Client {
	defaultOnce.Do(func() {
		defaultClient = New(func(o *Options) {
			if url := os.Getenv(envAPIURL); url != "" {
				o.APIURL = url
			}
			o.APIKey = os.Getenv(envAPIKey)
		})
	})
	return defaultClient
}

// Assistant is a deployed graph registration on the server.
type Assistant struct {
	AssistantID string `json:"assistant_id"`
	GraphID     string `json:"graph_id"`
	Name        string `json:"name"`
}

// Thread is a server-side conversation state container.
type Thread struct {
	ThreadID string `json:"thread_id"`
}

// SearchAssistants lists assistants serving the given graph. Transient
// failures retry with exponential backoff; client errors other than 429 fail
// immediately.
func (c *Client) SearchAssistants(ctx context.Context, graphID string, limit int) ([]Assistant, error) {
	body := []byte(`{}`)
	var err error
	if body, err = sjson.SetBytes(body, "graph_id", graphID); err != nil {
		return nil, fmt.Errorf("build search payload: %w", err)
	}
	if body, err = sjson.SetBytes(body, "limit", limit); err != nil {
		return nil, fmt.Errorf("build search payload: %w", err)
	}

	raw, err := c.postJSON(ctx, "/assistants/search", body)
	if err != nil {
		return nil, err
	}
	var assistants []Assistant
	if err := json.Unmarshal(raw, &assistants); err != nil {
		return nil, fmt.Errorf("decode assistants: %w", err)
	}
	return assistants, nil
}

// CreateThread allocates a fresh thread holding conversation state server
// side. Retries like SearchAssistants.
func (c *Client) CreateThread(ctx context.Context) (*Thread, error) {
	raw, err := c.postJSON(ctx, "/threads", []byte(`{}`))
	if err != nil {
		return nil, err
	}
	threadID := gjson.GetBytes(raw, "thread_id").String()
	if threadID == "" {
		return nil, fmt.Errorf("langgraph: thread response missing thread_id")
	}
	return &Thread{ThreadID: threadID}, nil
}

// StreamRun starts a run of assistantID on the thread and streams its events.
// The returned channels follow the core.Source contract: events arrive in
// order, a terminal error is buffered before the event channel closes, and
// canceling ctx tears the connection down. The stream itself is never
// replayed or retried.
func (c *Client) StreamRun(ctx context.Context, threadID, assistantID string, messages []core.Message) (<-chan core.Event, <-chan error, error) {
	body := []byte(`{}`)
	var err error
	if body, err = sjson.SetBytes(body, "assistant_id", assistantID); err != nil {
		return nil, nil, fmt.Errorf("build run payload: %w", err)
	}
	if body, err = sjson.SetBytes(body, "input.messages", messages); err != nil {
		return nil, nil, fmt.Errorf("build run payload: %w", err)
	}
	if body, err = sjson.SetBytes(body, "stream_mode", []string{"messages"}); err != nil {
		return nil, nil, fmt.Errorf("build run payload: %w", err)
	}

	resp, err := c.doPost(ctx, "/threads/"+threadID+"/runs/stream", body, "text/event-stream")
	if err != nil {
		return nil, nil, fmt.Errorf("start run: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, nil, fmt.Errorf("langgraph: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	events := make(chan core.Event, 32)
	errCh := make(chan error, 1)
	go func() {
		defer close(events)
		defer close(errCh)
		defer resp.Body.Close()
		if err := c.readRun(ctx, resp.Body, events); err != nil {
			c.logger.Warn("Run stream ended abnormally", "thread_id", threadID, "error", err)
			errCh <- err
		}
	}()
	return events, errCh, nil
}

// readRun forwards decoded SSE events until stream end. Payloads pass through
// verbatim; interpreting them is the consumer's concern. A read failure
// caused by ctx counts as regular termination.
func (c *Client) readRun(ctx context.Context, r io.Reader, events chan<- core.Event) error {
	sc := newSSEScanner(r)
	for {
		ev, err := sc.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read run stream: %w", err)
		}
		select {
		case events <- core.Event{Kind: core.EventKind(ev.name), Data: ev.data}:
		case <-ctx.Done():
			return nil
		}
	}
}

// postJSON executes a JSON POST with retry on transient failures and returns
// the response body.
func (c *Client) postJSON(ctx context.Context, path string, body []byte) ([]byte, error) {
	operation := func() ([]byte, error) {
		resp, err := c.doPost(ctx, path, body, "application/json")
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if err := statusError(resp.StatusCode, payload); err != nil {
			return nil, err
		}
		return payload, nil
	}
	raw, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(c.maxRetries),
	)
	if err != nil {
		c.logger.Warn("Control plane call failed", "path", path, "error", err)
		return nil, err
	}
	return raw, nil
}

func (c *Client) doPost(ctx context.Context, path string, body []byte, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}
	return c.httpClient.Do(req)
}

// statusError classifies a response status. Client errors other than 429 are
// permanent and stop the retry loop.
func statusError(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	err := fmt.Errorf("langgraph: HTTP %d: %s", status, strings.TrimSpace(string(body)))
	if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}
