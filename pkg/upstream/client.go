// Package upstream implements the HTTP client used to fetch inspection
// records and attachments from the operator's records service.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ingestkit/tipline/internal/logger"
	"github.com/ingestkit/tipline/internal/telemetry"
	"github.com/ingestkit/tipline/pkg/ingesterr"
)

const maxErrorBodyChars = 500

// Config controls connection and retry behaviour.
type Config struct {
	// Namespace is sent as a request header identifying the pipeline to
	// the upstream service.
	Namespace string
	// BearerToken is sent as the Authorization header.
	BearerToken string
	// RequestTimeout bounds a single JSON request.
	RequestTimeout time.Duration
	// AttachmentTimeout bounds a single attachment download, typically
	// longer than RequestTimeout since attachments can be large.
	AttachmentTimeout time.Duration
	// MaxRetries bounds the connection/timeout retry loop.
	MaxRetries int
	// BackoffFactor seeds both the exponential formula
	// (min(factor^attempt*factor, MaxBackoff)) used for connection and
	// timeout failures, and the flat delay used for other transport
	// errors.
	BackoffFactor float64
	// MaxBackoff caps the exponential backoff delay.
	MaxBackoff time.Duration
}

// ApplyDefaults fills unset fields with their production defaults.
func (c *Config) ApplyDefaults() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.AttachmentTimeout == 0 {
		c.AttachmentTimeout = 60 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.BackoffFactor == 0 {
		c.BackoffFactor = 2
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = 60 * time.Second
	}
}

// Client fetches JSON records and attachment bodies from the upstream
// records service, retrying connection and timeout failures with
// exponential backoff.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// New creates a Client. httpClient defaults to a plain *http.Client if nil.
func New(cfg Config, httpClient *http.Client) *Client {
	cfg.ApplyDefaults()
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Response wraps a successful HTTP response body along with the number of
// attempts it took, so the caller can attribute latency.
type Response struct {
	StatusCode int
	Body       []byte
	Attempts   int
}

// Get fetches url, retrying connection and timeout failures up to
// MaxRetries. HTTP status codes are not retried here; classification of
// 4xx/5xx is the caller's concern via Classify.
func (c *Client) Get(ctx context.Context, url, tip string) (*Response, error) {
	return c.get(ctx, url, tip, c.cfg.RequestTimeout)
}

// GetAttachment fetches url using the longer attachment timeout.
func (c *Client) GetAttachment(ctx context.Context, url, tip string) (*Response, error) {
	return c.get(ctx, url, tip, c.cfg.AttachmentTimeout)
}

func (c *Client) get(ctx context.Context, reqURL, tip string, timeout time.Duration) (*Response, error) {
	ctx, span := telemetry.StartUpstreamSpan(ctx, reqURL, telemetry.TIP(tip))
	defer span.End()

	policy := &retryPolicy{cfg: c.cfg}
	// backoff.WithMaxRetries permits N retries after the first attempt
	// (total attempts = N+1), so pass MaxRetries-1 to cap total attempts
	// at MaxRetries, matching base_processor.py's `for attempt in
	// range(self.max_retries)`.
	additionalAttempts := c.cfg.MaxRetries - 1
	if additionalAttempts < 0 {
		additionalAttempts = 0
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(additionalAttempts)), ctx)

	var resp *Response
	var lastErr error
	attempt := 0

	err := backoff.Retry(func() error {
		attempt++
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		r, err := c.doOnce(reqCtx, reqURL)
		if err != nil {
			lastErr = err
			policy.kind = classifyTransportError(err)
			logger.WarnCtx(ctx, "upstream request failed, retrying",
				logger.Endpoint(reqURL), logger.TIP(tip), logger.Attempt(attempt), logger.Err(err))
			return err
		}
		resp = r
		return nil
	}, bo)

	if err != nil {
		telemetry.RecordError(ctx, lastErr)
		return nil, &ingesterr.UpstreamTransientError{URL: reqURL, Err: fmt.Errorf("all %d attempts failed: %w", attempt, lastErr)}
	}

	resp.Attempts = attempt
	span.SetAttributes(telemetry.HTTPStatus(resp.StatusCode), telemetry.RetryCount(resp.Attempts))
	return resp, nil
}

// transportErrorKind distinguishes connection/timeout failures (which
// retry with exponential backoff) from other request errors (which retry
// with a flat delay).
type transportErrorKind int

const (
	transportErrorOther transportErrorKind = iota
	transportErrorConnOrTimeout
)

// retryPolicy implements backoff.BackOff, computing delays per the
// original client's asymmetric rule: exponential for connection/timeout
// failures, flat for everything else. kind is set by the caller before
// each NextBackOff call based on the error just observed.
type retryPolicy struct {
	cfg     Config
	attempt int
	kind    transportErrorKind
}

func (p *retryPolicy) NextBackOff() time.Duration {
	defer func() { p.attempt++ }()
	if p.kind == transportErrorConnOrTimeout {
		secs := math.Min(math.Pow(p.cfg.BackoffFactor, float64(p.attempt))*p.cfg.BackoffFactor, p.cfg.MaxBackoff.Seconds())
		return time.Duration(secs * float64(time.Second))
	}
	return time.Duration(p.cfg.BackoffFactor * float64(time.Second))
}

func (p *retryPolicy) Reset() { p.attempt = 0 }

func classifyTransportError(err error) transportErrorKind {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return transportErrorConnOrTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return transportErrorConnOrTimeout
	}
	return transportErrorOther
}

func (c *Client) doOnce(ctx context.Context, reqURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	if c.cfg.Namespace != "" {
		req.Header.Set("Namespace", c.cfg.Namespace)
	}
	if c.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return nil, urlErr.Err
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// Classify maps an HTTP status code and response body into the taxonomy of
// ingesterr errors the caller should act on. statusCode must not be 200.
func Classify(reqURL string, statusCode int, body []byte) error {
	truncated := body
	if len(truncated) > maxErrorBodyChars {
		truncated = truncated[:maxErrorBodyChars]
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &ingesterr.UpstreamAuthError{URL: reqURL, StatusCode: statusCode, Body: string(truncated)}
	case statusCode == http.StatusNotFound:
		return &ingesterr.UpstreamNotFoundError{URL: reqURL}
	case statusCode == http.StatusTooManyRequests:
		return &ingesterr.UpstreamRateLimitedError{URL: reqURL, CooldownSecs: 30}
	case statusCode >= 500:
		return &ingesterr.UpstreamTransientError{URL: reqURL, StatusCode: statusCode, Err: fmt.Errorf("server error: %s", truncated)}
	case statusCode >= 400:
		return &ingesterr.UpstreamTransientError{URL: reqURL, StatusCode: statusCode, Err: fmt.Errorf("client error: %s", truncated)}
	default:
		return &ingesterr.UpstreamTransientError{URL: reqURL, StatusCode: statusCode, Err: fmt.Errorf("unexpected status: %s", truncated)}
	}
}
