package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openai/openai-go/v3"
)

// sdkError builds an SDK error with the request and response its Error method dereferences.
func sdkError(status int, code string) *openai.Error {
	req := httptest.NewRequest(http.MethodPost, "https://api.openai.com/v1/chat/completions", nil)
	return &openai.Error{
		StatusCode: status,
		Code:       code,
		Request:    req,
		Response:   &http.Response{StatusCode: status, Header: http.Header{}, Request: req},
	}
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	rateLimited := fmt.Errorf("wrapped: %w", sdkError(http.StatusTooManyRequests, "rate_limit_exceeded"))
	quota := sdkError(http.StatusTooManyRequests, "insufficient_quota")
	serverErr := sdkError(http.StatusInternalServerError, "")

	tests := []struct {
		name      string
		err       error
		rateLimit bool
		quota     bool
		timeout   bool
	}{
		{name: "nil", err: nil},
		{name: "rate limit", err: rateLimited, rateLimit: true},
		{name: "quota", err: quota, quota: true},
		{name: "server error", err: serverErr},
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), timeout: true},
		{name: "plain text rate limit", err: errors.New("Too Many Requests"), rateLimit: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsRateLimitError(tt.err); got != tt.rateLimit {
				t.Errorf("IsRateLimitError() = %v, want %v", got, tt.rateLimit)
			}
			if got := IsQuotaError(tt.err); got != tt.quota {
				t.Errorf("IsQuotaError() = %v, want %v", got, tt.quota)
			}
			if got := IsTimeout(tt.err); got != tt.timeout {
				t.Errorf("IsTimeout() = %v, want %v", got, tt.timeout)
			}
		})
	}
}

func TestGetRetryDelay(t *testing.T) {
	t.Parallel()

	rateLimited := sdkError(http.StatusTooManyRequests, "")
	quota := sdkError(http.StatusTooManyRequests, "insufficient_quota")
	generic := errors.New("parse failure")

	tests := []struct {
		name    string
		err     error
		attempt int
		want    time.Duration
	}{
		{name: "generic first attempt", err: generic, attempt: 0, want: 5 * time.Second},
		{name: "generic backoff", err: generic, attempt: 2, want: 20 * time.Second},
		{name: "generic capped", err: generic, attempt: 30, want: 5 * time.Minute},
		{name: "negative attempt", err: generic, attempt: -3, want: 5 * time.Second},
		{name: "rate limit", err: rateLimited, attempt: 0, want: 60 * time.Second},
		{name: "rate limit capped", err: rateLimited, attempt: 8, want: 15 * time.Minute},
		{name: "quota", err: quota, attempt: 0, want: time.Hour},
		{name: "quota capped", err: quota, attempt: 9, want: 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetRetryDelay(tt.err, tt.attempt); got != tt.want {
				t.Errorf("GetRetryDelay(%v, %d) = %v, want %v", tt.err, tt.attempt, got, tt.want)
			}
		})
	}
}

func TestExtractAPIError(t *testing.T) {
	t.Parallel()

	if ExtractAPIError(errors.New("boom")) != nil {
		t.Error("plain errors should not produce an APIError")
	}

	apiErr := ExtractAPIError(sdkError(http.StatusTooManyRequests, "insufficient_quota"))
	if apiErr == nil || !apiErr.IsPermanent || apiErr.RetryAfter == nil || *apiErr.RetryAfter != time.Hour {
		t.Errorf("unexpected quota APIError: %+v", apiErr)
	}

	direct := &APIError{StatusCode: 503, Message: "down"}
	if got := ExtractAPIError(fmt.Errorf("x: %w", direct)); got != direct {
		t.Error("existing APIError should be returned as-is")
	}
}
