package p2p

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError(t *testing.T) {
	t.Run("implements error interface", func(t *testing.T) {
		err := &APIError{
			Code:    "000002",
			Message: "illegal parameter",
		}

		assert.Implements(t, (*error)(nil), err)
		assert.Equal(t, "marketplace API error 000002: illegal parameter", err.Error())
	})

	t.Run("formats codeless errors with HTTP status", func(t *testing.T) {
		err := &APIError{HTTPStatus: 502, Message: "bad gateway"}
		assert.Equal(t, "marketplace HTTP 502: bad gateway", err.Error())
	})

	t.Run("detects rate limiting", func(t *testing.T) {
		assert.True(t, (&APIError{HTTPStatus: 429}).IsRateLimitError())
		assert.False(t, (&APIError{HTTPStatus: 500}).IsRateLimitError())
	})
}

func TestParseAPIError(t *testing.T) {
	makeResponse := func(status int, body string) *http.Response {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(strings.NewReader(body)),
		}
	}

	t.Run("parses a marketplace error envelope", func(t *testing.T) {
		resp := makeResponse(400, `{"code":"000002","message":"illegal parameter"}`)
		err := ParseAPIError(resp)

		var apiErr *APIError
		assert.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "000002", apiErr.Code)
		assert.Equal(t, 400, apiErr.HTTPStatus)
	})

	t.Run("handles non-JSON bodies", func(t *testing.T) {
		resp := makeResponse(503, "upstream offline")
		err := ParseAPIError(resp)

		var apiErr *APIError
		assert.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 503, apiErr.HTTPStatus)
		assert.Contains(t, err.Error(), "upstream offline")
	})

	t.Run("handles empty bodies", func(t *testing.T) {
		resp := makeResponse(500, "")
		err := ParseAPIError(resp)
		assert.Contains(t, err.Error(), "empty response")
	})

	t.Run("reports malformed JSON", func(t *testing.T) {
		resp := makeResponse(400, `{"code":`)
		err := ParseAPIError(resp)
		assert.Contains(t, err.Error(), "failed to parse")
	})

	t.Run("handles nil response", func(t *testing.T) {
		assert.Error(t, ParseAPIError(nil))
	})
}

func TestIsRetryableError(t *testing.T) {
	t.Run("context errors are never retryable", func(t *testing.T) {
		assert.False(t, IsRetryableError(context.Canceled))
		assert.False(t, IsRetryableError(context.DeadlineExceeded))
		assert.False(t, IsRetryableError(fmt.Errorf("search: %w", context.Canceled)))
	})

	t.Run("server-side statuses are retryable", func(t *testing.T) {
		for _, status := range []int{429, 500, 502, 503, 504} {
			assert.True(t, IsRetryableError(&APIError{HTTPStatus: status}), "status %d", status)
		}
	})

	t.Run("client-side statuses are not retryable", func(t *testing.T) {
		assert.False(t, IsRetryableError(&APIError{HTTPStatus: 400}))
		assert.False(t, IsRetryableError(&APIError{HTTPStatus: 404}))
	})

	t.Run("unknown errors are not retryable", func(t *testing.T) {
		assert.False(t, IsRetryableError(errors.New("something odd")))
		assert.False(t, IsRetryableError(nil))
	})
}

func TestErrorWithContext(t *testing.T) {
	t.Run("wraps with operation name", func(t *testing.T) {
		err := ErrorWithContext(errors.New("boom"), "Search")
		assert.Equal(t, "Search: boom", err.Error())
	})

	t.Run("preserves the wrapped error", func(t *testing.T) {
		base := &APIError{Code: "000002"}
		err := ErrorWithContext(base, "Search")

		var apiErr *APIError
		assert.ErrorAs(t, err, &apiErr)
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, ErrorWithContext(nil, "Search"))
	})
}
