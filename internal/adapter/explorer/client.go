package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// maxResponseBytes bounds how much of a successful explorer response is decoded.
const maxResponseBytes = 4 << 20

// ErrTransactionNotFound indicates the explorer does not know the transaction yet.
var ErrTransactionNotFound = errors.New("transaction not found")

// TooManyRequestsError represents rate limiting signal from an explorer.
type TooManyRequestsError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e TooManyRequestsError) Error() string {
	return fmt.Sprintf("%s explorer: too many requests, retry after %s", e.Provider, e.RetryAfter)
}

// apiClient is the shared HTTP plumbing of every explorer backend.
type apiClient struct {
	name       string
	baseURL    *url.URL
	httpClient *http.Client
	limiter    *rate.Limiter
	header     http.Header
	maxBody    int64
	logger     *slog.Logger
}

func newAPIClient(name, baseURL string, timeout time.Duration, rps float64, logger *slog.Logger) (*apiClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse %s explorer url: %w", name, err)
	}
	if !parsed.IsAbs() {
		return nil, fmt.Errorf("%s explorer url must be absolute", name)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &apiClient{
		name:       name,
		baseURL:    parsed,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		header:     make(http.Header),
		maxBody:    maxResponseBytes,
		logger:     logger,
	}, nil
}

// getJSON performs GET on the joined path and decodes the body into dest.
func (c *apiClient) getJSON(ctx context.Context, p string, query url.Values, dest any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, p)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.header {
		req.Header[k] = v
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxBody)).Decode(dest); err != nil {
			return fmt.Errorf("decode %s response: %w", c.name, err)
		}
		return nil
	case http.StatusNotFound:
		return ErrTransactionNotFound
	case http.StatusTooManyRequests:
		return TooManyRequestsError{Provider: c.name, RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"))}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		c.logger.Error("explorer request failed",
			slog.String("provider", c.name),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return fmt.Errorf("%s explorer error: %s", c.name, resp.Status)
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 5 * time.Second
}
