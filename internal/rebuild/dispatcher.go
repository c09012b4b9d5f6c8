package rebuild

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ryanbastic/go-rebuilder/internal/content"
	"github.com/ryanbastic/go-rebuilder/internal/metrics"
)

// Transport names reported in logs and metrics.
const (
	TransportDeployHook = "deploy_hook"
	TransportGitHub     = "github_dispatch"
	TransportDisabled   = "disabled"
)

const (
	defaultGitHubAPIURL = "https://api.github.com"
	defaultEventType    = "deploy-frontend"
	maxResponseBody     = 64 << 10
	timestampLayout     = "2006-01-02T15:04:05.000Z07:00"
)

// Request describes one content change that should rebuild the frontend.
type Request struct {
	Source      string
	Operation   content.Operation
	EntityID    string
	RequestedAt time.Time
}

// DispatcherConfig selects and configures the trigger transport. HookURL
// wins over GitHubToken; with neither set the dispatcher is disabled.
type DispatcherConfig struct {
	HookURL   string
	HookToken string

	GitHubToken  string
	GitHubRepo   string
	GitHubAPIURL string
	EventType    string

	// Timeout bounds a single trigger call. Zero means no deadline.
	Timeout time.Duration
}

// transport turns a Request into an outbound HTTP request.
type transport interface {
	name() string
	endpoint() string
	build(ctx context.Context, req Request) (*http.Request, error)
}

// Dispatcher sends a single rebuild trigger per call. It never returns an
// error: every failure is logged and swallowed so the write that caused
// the change is unaffected.
type Dispatcher struct {
	transport  transport
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// DispatcherOption customizes a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) DispatcherOption {
	return func(d *Dispatcher) { d.httpClient = c }
}

// NewDispatcher creates a Dispatcher from cfg.
func NewDispatcher(cfg DispatcherConfig, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		transport:  selectTransport(cfg),
		httpClient: &http.Client{},
		timeout:    cfg.Timeout,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func selectTransport(cfg DispatcherConfig) transport {
	switch {
	case cfg.HookURL != "":
		return &hookTransport{url: cfg.HookURL, token: cfg.HookToken}
	case cfg.GitHubToken != "" && cfg.GitHubRepo != "":
		apiURL := cfg.GitHubAPIURL
		if apiURL == "" {
			apiURL = defaultGitHubAPIURL
		}
		eventType := cfg.EventType
		if eventType == "" {
			eventType = defaultEventType
		}
		return &githubTransport{
			apiURL:    strings.TrimRight(apiURL, "/"),
			repo:      cfg.GitHubRepo,
			token:     cfg.GitHubToken,
			eventType: eventType,
		}
	}
	return nil
}

// Enabled reports whether a trigger transport is configured.
func (d *Dispatcher) Enabled() bool {
	return d.transport != nil
}

// Transport returns the configured transport name.
func (d *Dispatcher) Transport() string {
	if d.transport == nil {
		return TransportDisabled
	}
	return d.transport.name()
}

// Dispatch issues one trigger call and waits for the response. The call is
// detached from ctx cancellation so a caller that goes away cannot abort a
// trigger that is already in flight; it is bounded by the configured timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) {
	logger := d.logger.With(
		"transport", d.Transport(),
		"source", req.Source,
		"operation", req.Operation,
		"entity_id", req.EntityID,
	)

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordDispatch(d.Transport(), metrics.OutcomeError)
			logger.Error("rebuild dispatch panicked", "error", r)
		}
	}()

	if d.transport == nil {
		metrics.RecordDispatch(TransportDisabled, metrics.OutcomeDisabled)
		logger.Warn("rebuild trigger not configured, skipping rebuild")
		return
	}

	ctx = context.WithoutCancel(ctx)
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	httpReq, err := d.transport.build(ctx, req)
	if err != nil {
		metrics.RecordDispatch(d.transport.name(), metrics.OutcomeError)
		logger.Error("failed to build rebuild request", "endpoint", d.transport.endpoint(), "error", redactURLError(err, d.transport.endpoint()))
		return
	}

	start := time.Now()
	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordDispatch(d.transport.name(), metrics.OutcomeError)
		logger.Error("rebuild trigger failed",
			"endpoint", d.transport.endpoint(),
			"duration", time.Since(start),
			"error", redactURLError(err, d.transport.endpoint()),
		)
		return
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordDispatch(d.transport.name(), metrics.OutcomeRejected)
		logger.Error("rebuild trigger rejected",
			"endpoint", d.transport.endpoint(),
			"status", resp.StatusCode,
			"response", string(body),
			"duration", time.Since(start),
		)
		return
	}

	metrics.RecordDispatch(d.transport.name(), metrics.OutcomeSuccess)
	attrs := []any{"status", resp.StatusCode, "duration", time.Since(start)}
	if readErr == nil {
		if id := deploymentID(body); id != "" {
			attrs = append(attrs, "deployment_id", id)
		}
	}
	logger.Info("rebuild triggered", attrs...)
}

// deploymentID extracts an id from deploy-hook style replies:
// {"id": ...} or {"result": {"id": ...}}. Anything else yields "".
func deploymentID(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var reply struct {
		ID     string `json:"id"`
		Result *struct {
			ID string `json:"id"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return ""
	}
	if reply.Result != nil && reply.Result.ID != "" {
		return reply.Result.ID
	}
	return reply.ID
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// --- Deploy hook ---

// HookPayload is the body posted to a deploy hook.
type HookPayload struct {
	Source    string `json:"source"`
	Operation string `json:"operation"`
	EntityID  string `json:"entityId"`
	Timestamp string `json:"timestamp"`
}

type hookTransport struct {
	url   string
	token string
}

func (t *hookTransport) name() string { return TransportDeployHook }

// endpoint omits the path and query: deploy hook URLs carry their secret
// there.
func (t *hookTransport) endpoint() string { return redactURL(t.url) }

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "[redacted]"
	}
	return u.Scheme + "://" + u.Host
}

// redactURLError replaces the request URL that net/http embeds in
// transport errors.
func redactURLError(err error, endpoint string) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return &url.Error{Op: ue.Op, URL: endpoint, Err: ue.Err}
	}
	return err
}

func (t *hookTransport) build(ctx context.Context, req Request) (*http.Request, error) {
	data, err := json.Marshal(HookPayload{
		Source:    req.Source,
		Operation: string(req.Operation),
		EntityID:  req.EntityID,
		Timestamp: formatTimestamp(req.RequestedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal hook payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.token)
	}
	return httpReq, nil
}

// --- GitHub repository_dispatch ---

// DispatchEvent is the repository_dispatch request body.
type DispatchEvent struct {
	EventType     string        `json:"event_type"`
	ClientPayload ClientPayload `json:"client_payload"`
}

// ClientPayload is forwarded to the workflow as github.event.client_payload.
type ClientPayload struct {
	Collection string `json:"collection"`
	Operation  string `json:"operation"`
	DocID      string `json:"docId"`
	Timestamp  string `json:"timestamp"`
}

type githubTransport struct {
	apiURL    string
	repo      string
	token     string
	eventType string
}

func (t *githubTransport) name() string { return TransportGitHub }

func (t *githubTransport) endpoint() string {
	return t.apiURL + "/repos/" + t.repo + "/dispatches"
}

func (t *githubTransport) build(ctx context.Context, req Request) (*http.Request, error) {
	data, err := json.Marshal(DispatchEvent{
		EventType: t.eventType,
		ClientPayload: ClientPayload{
			Collection: req.Source,
			Operation:  string(req.Operation),
			DocID:      req.EntityID,
			Timestamp:  formatTimestamp(req.RequestedAt),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal dispatch event: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint(), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+t.token)
	httpReq.Header.Set("Accept", "application/vnd.github.v3+json")
	httpReq.Header.Set("Content-Type", "application/json")
	return httpReq, nil
}
