// Package upstream is the HTTP client of the shop REST API: the server-side cart
// mirror, order creation and payment initialisation.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/junaidrashid-git/floreria-api/metrics"
)

// ErrUnavailable is returned once every attempt failed with a transport error or
// a gateway status.
var ErrUnavailable = errors.New("shop API unavailable")

// APIError is a rejection from the shop API. Message and Details are the server
// payload, unmodified.
type APIError struct {
	Status  int             `json:"-"`
	Message string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shop API returned %d: %s", e.Status, e.Message)
}

type Config struct {
	BaseURL  string
	Timeout  time.Duration
	Attempts int
	Backoff  time.Duration
}

// Client calls the shop API with a fixed number of attempts and a linear backoff
// (attempt × Backoff) between them.
type Client struct {
	http     *retryablehttp.Client
	baseURL  string
	attempts int
	logger   *zap.Logger
}

type endpointKey struct{}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	rc.RetryMax = cfg.Attempts - 1
	rc.RetryWaitMin = cfg.Backoff
	rc.RetryWaitMax = time.Duration(cfg.Attempts) * cfg.Backoff
	rc.Backoff = linearBackoff
	rc.CheckRetry = retryPolicy
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{logger.Named("http").Sugar()}
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt == 0 {
			return
		}
		endpoint, _ := req.Context().Value(endpointKey{}).(string)
		metrics.UpstreamRequests.WithLabelValues(endpoint, "retry").Inc()
		logger.Debug("retrying shop API call", zap.String("endpoint", endpoint), zap.Int("attempt", attempt+1))
	}

	return &Client{
		http:     rc,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		attempts: cfg.Attempts,
		logger:   logger,
	}
}

// linearBackoff waits (n+1) × step after the n-th failed attempt, counting from 0.
func linearBackoff(step, _ time.Duration, attemptNum int, _ *http.Response) time.Duration {
	return time.Duration(attemptNum+1) * step
}

// retryPolicy retries transport errors and gateway statuses until ctx is done.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	if err != nil {
		return true, nil
	}
	return retryable(resp.StatusCode), nil
}

func retryable(status int) bool {
	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// leveledLogger routes retryablehttp logs to zap. Failed attempts are logged as
// warnings; the outcome of the call is logged by Client.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Warnw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }

type request struct {
	endpoint       string
	method         string
	path           string
	cartID         string
	idempotencyKey string
	body           interface{}
}

func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	var body interface{}
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("error encoding %s request: %w", r.endpoint, err)
		}
		body = payload
	}

	req, err := retryablehttp.NewRequestWithContext(context.WithValue(ctx, endpointKey{}, r.endpoint), r.method, c.baseURL+r.path, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.cartID != "" {
		req.Header.Set("X-Carrito-ID", r.cartID)
	}
	if r.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", r.idempotencyKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamLatency.WithLabelValues(r.endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return c.unavailable(r.endpoint, fmt.Errorf("error calling %s: %w", r.endpoint, err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.unavailable(r.endpoint, fmt.Errorf("error reading response: %w", err))
	}
	if retryable(resp.StatusCode) {
		return c.unavailable(r.endpoint, fmt.Errorf("%s returned status %d", r.endpoint, resp.StatusCode))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		metrics.UpstreamRequests.WithLabelValues(r.endpoint, "rejected").Inc()
		return decodeAPIError(resp.StatusCode, data)
	}

	metrics.UpstreamRequests.WithLabelValues(r.endpoint, "ok").Inc()
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("error decoding %s response: %w", r.endpoint, err)
	}
	return nil
}

func (c *Client) unavailable(endpoint string, err error) error {
	metrics.UpstreamRequests.WithLabelValues(endpoint, "unavailable").Inc()
	c.logger.Warn("shop API unavailable",
		zap.String("endpoint", endpoint), zap.Int("attempts", c.attempts), zap.Error(err))
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, endpoint, err)
}

func decodeAPIError(status int, data []byte) *APIError {
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(data, apiErr); err == nil && apiErr.Message != "" {
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(data))
	if apiErr.Message == "" || len(apiErr.Message) > 200 {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
