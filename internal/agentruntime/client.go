package agentruntime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fionalabs/outreach-orchestrator/internal/circuitbreaker"
	"github.com/fionalabs/outreach-orchestrator/internal/metrics"
	"github.com/fionalabs/outreach-orchestrator/internal/ratecontrol"
	"github.com/fionalabs/outreach-orchestrator/internal/tracing"
)

// TransientError marks a runtime failure worth retrying at the pipeline
// level: the HTTP retry budget was exhausted on retriable statuses or the
// transport itself failed. Callers match on the type, never on message text.
type TransientError struct {
	Status   int
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agent runtime transient failure after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("agent runtime transient failure after %d attempts: status %d", e.Attempts, e.Status)
}

func (e *TransientError) Unwrap() error { return e.Err }

// RetryPolicy is the HTTP-level retry schedule for runtime calls.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	ExpBase      float64
	Statuses     []int
}

// DefaultRetryPolicy matches the runtime's documented contract: up to 5
// attempts, exponential backoff base 7 starting at 1s, jittered, gated on
// 429/500/503/504.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     5,
		InitialDelay: time.Second,
		ExpBase:      7,
		Statuses:     []int{429, 500, 503, 504},
	}
}

func (p RetryPolicy) retriable(status int) bool {
	for _, s := range p.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// delay returns the jittered backoff before the given attempt (1-based).
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.ExpBase, float64(attempt-1))
	// Up to 50% jitter so parallel leads don't synchronize their retries.
	return time.Duration(d * (1 + 0.5*rand.Float64()))
}

// RunRequest describes one agent invocation.
type RunRequest struct {
	Prompt    string   `json:"prompt"`
	SessionID string   `json:"session_id,omitempty"`
	Model     string   `json:"model,omitempty"`
	Tools     []string `json:"tools,omitempty"`
}

type runResponse struct {
	Events []Event `json:"events"`
}

// Caller is the minimal surface workflow activities need; tests substitute
// fakes.
type Caller interface {
	Run(ctx context.Context, req RunRequest) ([]Event, error)
}

// Client talks JSON over HTTP to the agent runtime service.
type Client struct {
	baseURL string
	model   string
	http    *circuitbreaker.HTTPWrapper
	policy  RetryPolicy
	logger  *zap.Logger
}

const defaultRequestTimeout = 120 * time.Second

// NewClient builds a runtime client. The model name selects the shared rate
// limiter from models.yaml. A non-positive timeout falls back to the default.
func NewClient(baseURL, model string, requestTimeout time.Duration, logger *zap.Logger) *Client {
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	httpClient := &http.Client{Timeout: requestTimeout}
	return &Client{
		baseURL: baseURL,
		model:   model,
		http:    circuitbreaker.NewHTTPWrapper(httpClient, "agent-runtime", "agent-runtime", logger),
		policy:  DefaultRetryPolicy(),
		logger:  logger,
	}
}

// WithRetryPolicy overrides the HTTP retry schedule; used by tests.
func (c *Client) WithRetryPolicy(p RetryPolicy) *Client {
	c.policy = p
	return c
}

// Run submits the prompt and returns the runtime's ordered event sequence.
func (c *Client) Run(ctx context.Context, req RunRequest) ([]Event, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal run request: %w", err)
	}

	var lastStatus int
	var lastErr error

	for attempt := 1; attempt <= c.policy.Attempts; attempt++ {
		if err := ratecontrol.Limiter(req.Model).Wait(ctx); err != nil {
			return nil, err
		}

		events, status, err := c.post(ctx, payload)
		if err == nil && status == http.StatusOK {
			metrics.AgentRuntimeCalls.WithLabelValues(req.Model, "ok").Inc()
			return events, nil
		}

		lastStatus, lastErr = status, err

		if err == nil && !c.policy.retriable(status) {
			metrics.AgentRuntimeCalls.WithLabelValues(req.Model, "error").Inc()
			return nil, fmt.Errorf("agent runtime returned status %d", status)
		}

		if attempt < c.policy.Attempts {
			d := c.policy.delay(attempt)
			c.logger.Warn("Agent runtime call failed, backing off",
				zap.Int("attempt", attempt),
				zap.Int("status", status),
				zap.Duration("delay", d),
				zap.Error(err),
			)
			metrics.AgentRuntimeRetries.WithLabelValues(req.Model).Inc()
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	metrics.AgentRuntimeCalls.WithLabelValues(req.Model, "transient").Inc()
	return nil, &TransientError{Status: lastStatus, Attempts: c.policy.Attempts, Err: lastErr}
}

func (c *Client) post(ctx context.Context, payload []byte) ([]Event, int, error) {
	url := c.baseURL + "/agent/run"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	tracing.InjectTraceparent(ctx, httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, nil
	}

	var decoded runResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode run response: %w", err)
	}
	return decoded.Events, resp.StatusCode, nil
}
