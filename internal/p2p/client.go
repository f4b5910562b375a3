package p2p

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"p2pquotes/internal/filters"
)

const (
	searchPath  = "/bapi/c2c/v2/friendly/c2c/adv/search"
	defaultFiat = "ARS"
	defaultRows = 10
)

// Client is a REST client for the marketplace's C2C advert search.
// A search carries no credentials; cancellation rides on the request
// context.
type Client struct {
	baseURL     string
	tradeURL    string
	fiat        string
	rows        int
	httpClient  *http.Client
	rateLimiter *RateLimiter
	maxRetries  int
}

// Option configures the client
type Option func(*Client)

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries sets the maximum number of transport-level retries.
// Offer searches default to zero: a failed search surfaces as an error
// and the next filter change is the recovery path.
func WithMaxRetries(maxRetries int) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
	}
}

// WithRateLimit sets rate limiting
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(requestsPerSecond, burst)
	}
}

// WithFiat overrides the fiat currency adverts are quoted in
func WithFiat(fiat string) Option {
	return func(c *Client) {
		c.fiat = fiat
	}
}

// WithRows sets how many adverts a search requests
func WithRows(rows int) Option {
	return func(c *Client) {
		c.rows = rows
	}
}

// WithTradeURL overrides the base URL used for deep links
func WithTradeURL(tradeURL string) Option {
	return func(c *Client) {
		c.tradeURL = tradeURL
	}
}

// NewClient creates a new marketplace search client
func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:  baseURL,
		tradeURL: "https://p2p.binance.com",
		fiat:     defaultFiat,
		rows:     defaultRows,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		rateLimiter: NewRateLimiter(5, 2),
		maxRetries:  0,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BaseURL returns the base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Timeout returns the HTTP timeout
func (c *Client) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// MaxRetries returns the maximum number of retries
func (c *Client) MaxRetries() int {
	return c.maxRetries
}

// Search fetches the adverts matching the given filter selection.
// If ctx is cancelled before the call settles it returns ctx's error
// and never partial data.
func (c *Client) Search(ctx context.Context, f filters.State) (*OfferPage, error) {
	if !f.Selected() {
		return nil, fmt.Errorf("asset is required")
	}
	f = f.Normalized()

	req := searchRequest{
		Page:      1,
		Rows:      c.rows,
		Asset:     string(f.Asset),
		Fiat:      c.fiat,
		TradeType: strings.ToUpper(string(f.Side)),
	}
	if f.PaymentMethod != filters.PaymentAll {
		req.PayTypes = []string{string(f.PaymentMethod)}
	}
	if f.VerifiedOnly {
		merchant := "merchant"
		req.PublisherType = &merchant
	}

	body, err := c.doRequest(ctx, http.MethodPost, searchPath, req)
	if err != nil {
		return nil, ErrorWithContext(err, "Search")
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, ErrorWithContext(err, "Search")
	}
	if !resp.Success {
		return nil, ErrorWithContext(&APIError{
			Code:       resp.Code,
			Message:    resp.Message,
			HTTPStatus: http.StatusOK,
		}, "Search")
	}

	page := &OfferPage{
		Offers:    make([]Offer, 0, len(resp.Data)),
		SourceURL: c.TradeURL(f),
		Total:     resp.Total,
	}
	for _, row := range resp.Data {
		page.Offers = append(page.Offers, mapOffer(row))
	}

	return page, nil
}

// TradeURL builds the deep link to the equivalent marketplace view
func (c *Client) TradeURL(f filters.State) string {
	f = f.Normalized()

	var b strings.Builder
	b.WriteString(c.tradeURL)
	b.WriteString("/en/trade/")
	if f.Side == filters.SideSell {
		b.WriteString("sell/")
	}
	if f.PaymentMethod != filters.PaymentAll {
		b.WriteString(string(f.PaymentMethod))
		b.WriteString("/")
	}
	b.WriteString(string(f.Asset))
	b.WriteString("?fiat=")
	b.WriteString(c.fiat)
	return b.String()
}

// mapOffer flattens an upstream search row into an Offer
func mapOffer(row searchRow) Offer {
	price, _ := decimal.NewFromString(row.Adv.Price)
	minAmount, _ := decimal.NewFromString(row.Adv.MinSingleTransAmount)
	maxAmount, _ := decimal.NewFromString(row.Adv.MaxSingleTransAmount)
	finishRate, _ := decimal.NewFromString(row.Advertiser.MonthFinishRate)

	methods := make([]string, 0, len(row.Adv.TradeMethods))
	for _, m := range row.Adv.TradeMethods {
		methods = append(methods, m.Identifier)
	}

	return Offer{
		AdvertID:       row.Adv.AdvNo,
		Price:          price,
		Fiat:           row.Adv.FiatUnit,
		Asset:          row.Adv.Asset,
		MinAmount:      minAmount,
		MaxAmount:      maxAmount,
		Advertiser:     row.Advertiser.NickName,
		Verified:       row.Advertiser.UserType == "merchant",
		OrdersMonth:    row.Advertiser.MonthOrderCount,
		FinishRate:     finishRate,
		PaymentMethods: methods,
	}
}

// doRequest handles request execution with rate limiting and optional retries
func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.rateLimiter != nil {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		var body io.Reader
		if payload != nil {
			raw, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("failed to encode request: %w", err)
			}
			body = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries && IsRetryableError(err) {
				c.waitForRetry(attempt)
				continue
			}
			return nil, err
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries {
				c.waitForRetry(attempt)
				continue
			}
			return nil, err
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		resp.Body = io.NopCloser(bytes.NewReader(respBody))
		apiErr := ParseAPIError(resp)
		lastErr = apiErr

		if attempt < c.maxRetries && IsRetryableError(apiErr) {
			c.waitForRetry(attempt)
			continue
		}

		return nil, apiErr
	}

	return nil, lastErr
}

// waitForRetry implements exponential backoff with jitter
func (c *Client) waitForRetry(attempt int) {
	baseDelay := 100 * time.Millisecond
	maxDelay := 2 * time.Second

	delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt)))
	if delay > maxDelay {
		delay = maxDelay
	}

	jitterFactor := float64(time.Now().UnixNano()%100) / 100.0
	delay += time.Duration(float64(delay) * 0.2 * (2*jitterFactor - 1))

	time.Sleep(delay)
}
