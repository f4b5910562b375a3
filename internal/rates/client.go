package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot holds the three reference dollar rates. A snapshot is
// immutable once fetched; the controller replaces it wholesale.
type Snapshot struct {
	Blue decimal.Decimal `json:"blue"`
	Mep  decimal.Decimal `json:"mep"`
	Ccl  decimal.Decimal `json:"ccl"`
}

// IsZero reports whether no snapshot has been fetched yet
func (s Snapshot) IsZero() bool {
	return s.Blue.IsZero() && s.Mep.IsZero() && s.Ccl.IsZero()
}

// Client fetches the reference dollar rates. Rate fetches are
// fire-once per popup session; failures are reported to the caller,
// which decides to keep whatever snapshot it already displays.
type Client struct {
	url        string
	httpClient *http.Client
	maxRetries int
}

// Option configures the client
type Option func(*Client)

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries sets the maximum number of retries. Failures are
// invisible to the user, so a small bounded retry is acceptable here.
func WithMaxRetries(maxRetries int) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
	}
}

// NewClient creates a new rates client for the given endpoint
func NewClient(url string, opts ...Option) *Client {
	client := &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		maxRetries: 2,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Fetch retrieves the current rate snapshot
func (c *Client) Fetch(ctx context.Context) (Snapshot, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			case <-ctx.Done():
				return Snapshot{}, ctx.Err()
			}
		}

		snapshot, err := c.fetchOnce(ctx)
		if err == nil {
			return snapshot, nil
		}
		if ctx.Err() != nil {
			return Snapshot{}, ctx.Err()
		}
		lastErr = err
	}

	return Snapshot{}, lastErr
}

func (c *Client) fetchOnce(ctx context.Context) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Snapshot{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Snapshot{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Snapshot{}, fmt.Errorf("rates HTTP %d", resp.StatusCode)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("failed to parse rates response: %w", err)
	}

	return snapshot, nil
}
