package p2p

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError represents an error response from the marketplace API
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("marketplace API error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("marketplace HTTP %d: %s", e.HTTPStatus, e.Message)
}

// IsRateLimitError checks if the upstream throttled the request
func (e *APIError) IsRateLimitError() bool {
	return e.HTTPStatus == http.StatusTooManyRequests
}

// ParseAPIError extracts a marketplace error from a non-2xx HTTP response
func ParseAPIError(resp *http.Response) error {
	if resp == nil {
		return fmt.Errorf("nil response")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	var apiErr APIError
	jsonErr := json.Unmarshal(body, &apiErr)
	if jsonErr == nil && apiErr.Code != "" {
		apiErr.HTTPStatus = resp.StatusCode
		return &apiErr
	}

	bodyStr := strings.TrimSpace(string(body))
	if jsonErr != nil && (strings.HasPrefix(bodyStr, "{") || strings.HasPrefix(bodyStr, "[")) {
		return fmt.Errorf("failed to parse error response: %w", jsonErr)
	}

	if bodyStr == "" {
		bodyStr = "empty response"
	}

	return &APIError{HTTPStatus: resp.StatusCode, Message: bodyStr}
}

// IsRetryableError determines if an error should trigger a retry.
// Context cancellation is never retryable: a superseded search must
// settle as cancelled, not be reissued in the background.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatus {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	return false
}

// ErrorWithContext wraps errors with operation context for better debugging
func ErrorWithContext(err error, operation string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", operation, err)
}
