package dart

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/dartlens/backend/pkg/config"
	"github.com/wonny/dartlens/backend/pkg/httputil"
	"github.com/wonny/dartlens/backend/pkg/logger"
)

// Status codes returned in the OpenDART envelope
const (
	StatusOK          = "000"
	StatusNoData      = "013" // 조회된 데이타가 없습니다
	StatusRateLimited = "020" // 요청 제한 초과
	StatusMaintenance = "800" // 시스템 점검
	StatusUndefined   = "900" // 정의되지 않은 오류
)

// APIError is a non-success, non-empty OpenDART status
type APIError struct {
	Endpoint string
	Status   string
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s - %s (%s)", e.Status, e.Message, e.Endpoint)
}

// Retryable reports whether the same call may succeed later
func (e *APIError) Retryable() bool {
	switch e.Status {
	case StatusRateLimited, StatusMaintenance, StatusUndefined:
		return true
	default:
		return false
	}
}

// Client handles communication with DART (Data Analysis, Retrieval and Transfer System) API
// ⭐ SSOT: DART API 호출은 이 클라이언트에서만
type Client struct {
	http    *httputil.Client
	gate    *httputil.Gate
	logger  *logger.Logger
	apiKey  string
	baseURL string

	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewClient creates a new DART API client.
// The client owns the process-wide call gate; share one Client per process.
// DART API requires legacy TLS configuration (RSA key exchange)
func NewClient(cfg config.DARTConfig, log *logger.Logger) *Client {
	gate := httputil.NewGate(cfg.MinInterval)
	log = log.WithModule("dart")

	return &Client{
		http: httputil.New(log, cfg.Timeout).
			WithTransport(newLegacyCompatibleTransport()).
			WithGate(gate).
			DisableRetry(),
		gate:           gate,
		logger:         log,
		apiKey:         cfg.APIKey,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries:     cfg.MaxRetries,
		initialBackoff: 500 * time.Millisecond,
		maxBackoff:     5 * time.Second,
	}
}

// Gate exposes the shared call gate
func (c *Client) Gate() *httputil.Gate {
	return c.gate
}

// newLegacyCompatibleTransport creates a transport compatible with legacy TLS servers
// DART server requires RSA key exchange cipher suites which Go 1.22+ no longer offers by default
func newLegacyCompatibleTransport() *http.Transport {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,

		// ECDHE first, RSA KEX kept for DART
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,

			tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_RSA_WITH_AES_256_CBC_SHA,
		},
	}

	return &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		ForceAttemptHTTP2: false, // Disable HTTP/2 for legacy server compatibility

		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,

		TLSHandshakeTimeout:   10 * time.Second,
		TLSClientConfig:       tlsCfg,
		MaxIdleConns:          20,
		MaxConnsPerHost:       5,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// envelope is the common OpenDART response shape
type envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	List    []T    `json:"list"`
}

// fetch calls one endpoint with retry. A no-data status returns an empty
// envelope with Status 013 and no error.
func fetch[T any](ctx context.Context, c *Client, endpoint string, params url.Values) (*envelope[T], error) {
	return withRetry(ctx, c, endpoint, func() (*envelope[T], error) {
		return fetchOnce[T](ctx, c, endpoint, params)
	})
}

// withRetry repeats call with exponential backoff while the error is retryable
func withRetry[R any](ctx context.Context, c *Client, endpoint string, call func() (R, error)) (R, error) {
	var (
		zero    R
		lastErr error
	)
	backoff := c.initialBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := call()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return zero, err
		}

		// Last attempt failed - don't retry
		if attempt == c.maxRetries {
			break
		}

		c.logger.WithError(err).WithFields(map[string]interface{}{
			"attempt":  attempt + 1,
			"max":      c.maxRetries,
			"endpoint": endpoint,
			"backoff":  backoff,
		}).Debug("Retrying DART API call")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return zero, ctx.Err()
		}

		backoff *= 2
		if backoff > c.maxBackoff {
			backoff = c.maxBackoff
		}
	}

	return zero, fmt.Errorf("max retries exceeded for %s: %w", endpoint, lastErr)
}

// endpointURL builds the request URL with the API key attached
func (c *Client) endpointURL(endpoint string, params url.Values) string {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("crtfc_key", c.apiKey)
	return fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, q.Encode())
}

func fetchOnce[T any](ctx context.Context, c *Client, endpoint string, params url.Values) (*envelope[T], error) {
	resp, err := c.http.Get(ctx, c.endpointURL(endpoint, params))
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{code: resp.StatusCode}
	}

	var result envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// Status codes:
	// 000 = success
	// 013 = no data (ok)
	// others = error
	switch result.Status {
	case StatusOK:
		return &result, nil
	case StatusNoData:
		return &envelope[T]{Status: StatusNoData, Message: result.Message}, nil
	default:
		return nil, &APIError{Endpoint: endpoint, Status: result.Status, Message: result.Message}
	}
}

type httpStatusError struct {
	code int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.code)
}

// isRetryableError checks if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return httputil.IsRetryableError(statusErr.code)
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	errStr := strings.ToLower(err.Error())

	// Network-related errors that are retryable
	retryablePatterns := []string{
		"connection reset by peer",
		"eof",
		"connection refused",
		"network unreachable",
		"timeout",
		"deadline exceeded",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
