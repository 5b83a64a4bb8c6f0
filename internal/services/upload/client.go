package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/phambaophuc/meal-analyzer/internal/metrics"
	"github.com/phambaophuc/meal-analyzer/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultDeadline = 30 * time.Second
	maxErrorBody    = 64 << 10
	maxRawBody      = 4 << 10
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RawResponse is a successful upstream answer, decoded but not yet normalized.
type RawResponse struct {
	Status int
	Body   []byte
	Value  any
}

// Client sends one photo per call to the analysis endpoint. It never retries.
type Client struct {
	httpClient HTTPClient
	logger     *zap.Logger
	deadline   time.Duration
}

func NewClient(httpClient HTTPClient, logger *zap.Logger, deadline time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	return &Client{httpClient: httpClient, logger: logger, deadline: deadline}
}

// Send issues exactly one POST. The deadline is enforced by cancelling the
// request context, which aborts the in-flight call; the timer is released on
// every return path. Errors are always *UploadError.
func (c *Client) Send(ctx context.Context, req models.UploadRequest) (*RawResponse, error) {
	deadline := req.Deadline
	if deadline <= 0 {
		deadline = c.deadline
	}

	payload, contentType, err := buildMultipart(req.Asset)
	if err != nil {
		return nil, c.fail(&UploadError{Kind: KindNetwork, Message: err.Error(), Err: err})
	}

	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, req.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, c.fail(&UploadError{Kind: KindNetwork, Message: err.Error(), Err: err})
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	defer func() { metrics.UploadDuration.Observe(time.Since(start).Seconds()) }()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.fail(classifyTransport(ctx, callCtx, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, c.fail(&UploadError{
			Kind:   KindHTTP,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(classifyTransport(ctx, callCtx, err))
	}

	value, err := decodeJSON(body)
	if err != nil {
		return nil, c.fail(&UploadError{Kind: KindMalformedResponse, RawBody: truncate(body, maxRawBody), Err: err})
	}

	metrics.UploadOutcomes.WithLabelValues("success").Inc()
	c.logger.Info("Analysis response received",
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		zap.Duration("latency", time.Since(start)),
	)

	return &RawResponse{Status: resp.StatusCode, Body: body, Value: value}, nil
}

func (c *Client) fail(err *UploadError) *UploadError {
	metrics.UploadOutcomes.WithLabelValues(string(err.Kind)).Inc()
	c.logger.Warn("Analysis upload failed",
		zap.String("kind", string(err.Kind)),
		zap.Int("status", err.Status),
		zap.Error(err),
	)
	return err
}

// classifyTransport tells the deadline firing apart from the caller aborting
// and from plain transport failures.
func classifyTransport(parent, call context.Context, err error) *UploadError {
	if errors.Is(call.Err(), context.DeadlineExceeded) {
		return &UploadError{Kind: KindTimeout, Err: err}
	}
	if parent.Err() != nil {
		return &UploadError{Kind: KindNetwork, Message: "request aborted", Err: err}
	}
	return &UploadError{Kind: KindNetwork, Message: err.Error(), Err: err}
}

func decodeJSON(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty body")
	}
	if !json.Valid(body) {
		return nil, errors.New("body is not valid JSON")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}

func truncate(body []byte, limit int) string {
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}
