package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/meditermin/booking-api/internal/config"
	"github.com/meditermin/booking-api/pkg/circuitbreaker"
	apperrors "github.com/meditermin/booking-api/pkg/errors"
	"github.com/meditermin/booking-api/pkg/metrics"
)

// Client talks to the hospital backend. All booking reference data,
// slot availability, authentication and appointment confirmation live
// there; this service is a pass-through with no cache of its own.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewClient(cfg config.UpstreamConfig, m *metrics.Metrics, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "hospital-backend",
			MaxFailures: cfg.BreakerMaxFail,
			Timeout:     cfg.BreakerTimeout,
		}),
		metrics: m,
		logger:  logger.With().Str("component", "upstream").Logger(),
	}
}

// errorPayload is the backend's error body shape.
type errorPayload struct {
	Message string `json:"message"`
}

func (c *Client) get(ctx context.Context, operation, path string, out interface{}) error {
	return c.do(ctx, operation, http.MethodGet, path, "", nil, out)
}

func (c *Client) post(ctx context.Context, operation, path, token string, body, out interface{}) error {
	return c.do(ctx, operation, http.MethodPost, path, token, body, out)
}

func (c *Client) do(ctx context.Context, operation, method, path, token string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.Internal(fmt.Errorf("failed to marshal request body: %w", err))
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	var resp *http.Response
	err = c.breaker.Execute(func() error {
		var execErr error
		resp, execErr = c.http.Do(req)
		if execErr != nil {
			return execErr
		}
		// Server-side failures count against the breaker, client-side
		// rejections do not.
		if resp.StatusCode >= 500 {
			return fmt.Errorf("upstream returned %d", resp.StatusCode)
		}
		return nil
	})
	c.observe(operation, start, resp, err)

	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		c.logger.Warn().Err(err).Str("operation", operation).Str("path", path).Msg("upstream request failed")
		return apperrors.Unavailable(fmt.Sprintf("%s is currently unavailable", operation), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.mapError(operation, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Unavailable(fmt.Sprintf("%s returned an unreadable response", operation),
			fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func (c *Client) mapError(operation string, resp *http.Response) error {
	var payload errorPayload
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	// The backend sometimes answers with plain text instead of JSON.
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Message == "" {
		payload.Message = strings.TrimSpace(string(raw))
	}
	if payload.Message == "" {
		payload.Message = fmt.Sprintf("%s failed with status %d", operation, resp.StatusCode)
	}

	cause := fmt.Errorf("upstream status %d", resp.StatusCode)
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperrors.Unauthorized(payload.Message, cause)
	case http.StatusNotFound:
		return apperrors.NotFound(operation, cause)
	case http.StatusConflict:
		return apperrors.Conflict(payload.Message, cause)
	default:
		return apperrors.BadRequest(payload.Message, cause)
	}
}

func (c *Client) observe(operation string, start time.Time, resp *http.Response, err error) {
	if c.metrics == nil {
		return
	}
	status := "error"
	if err == nil && resp != nil {
		status = fmt.Sprintf("%d", resp.StatusCode)
	}
	c.metrics.UpstreamRequests.WithLabelValues(operation, status).Inc()
	c.metrics.UpstreamLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
