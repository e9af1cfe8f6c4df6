package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
)

// APIError represents an error from the AI provider API
type APIError struct {
	Message     string
	Type        string
	Code        string
	StatusCode  int
	RetryAfter  *time.Duration
	IsPermanent bool // true for quota errors, false for rate limits
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

// ExtractAPIError converts an SDK error into an APIError, or returns nil when err did not come
// from the provider API.
func ExtractAPIError(err error) *APIError {
	if err == nil {
		return nil
	}

	var existing *APIError
	if errors.As(err, &existing) {
		return existing
	}

	var sdkErr *openai.Error
	if !errors.As(err, &sdkErr) {
		return nil
	}

	apiErr := &APIError{
		Message:    sdkErr.Message,
		Type:       sdkErr.Type,
		Code:       sdkErr.Code,
		StatusCode: sdkErr.StatusCode,
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(sdkErr.StatusCode)
	}

	if apiErr.StatusCode == http.StatusTooManyRequests {
		if apiErr.Code == "insufficient_quota" {
			apiErr.IsPermanent = true
			retry := time.Hour
			apiErr.RetryAfter = &retry
		} else {
			retry := 60 * time.Second
			if sdkErr.Response != nil {
				if secs, perr := strconv.Atoi(sdkErr.Response.Header.Get("Retry-After")); perr == nil && secs > 0 {
					retry = time.Duration(secs) * time.Second
				}
			}
			apiErr.RetryAfter = &retry
		}
	}
	return apiErr
}

// IsRateLimitError checks if an error is a transient rate limit error
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if apiErr := ExtractAPIError(err); apiErr != nil {
		return apiErr.StatusCode == http.StatusTooManyRequests && !apiErr.IsPermanent
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "too many requests")
}

// IsQuotaError checks if an error is a quota exhaustion error
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	if apiErr := ExtractAPIError(err); apiErr != nil {
		return apiErr.IsPermanent || apiErr.Code == "insufficient_quota"
	}
	return strings.Contains(err.Error(), "insufficient_quota")
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// GetRetryDelay calculates the delay before retrying based on error type
func GetRetryDelay(err error, attempt int) time.Duration {
	shift := uint(0)
	switch {
	case attempt > 10:
		shift = 10
	case attempt > 0:
		shift = uint(attempt)
	}
	factor := time.Duration(1 << shift)

	if IsQuotaError(err) {
		return capDelay(time.Hour*factor, 24*time.Hour)
	}

	if IsRateLimitError(err) {
		delay := capDelay(60*time.Second*factor, 15*time.Minute)
		if apiErr := ExtractAPIError(err); apiErr != nil && apiErr.RetryAfter != nil && *apiErr.RetryAfter > delay {
			delay = *apiErr.RetryAfter
		}
		return delay
	}

	return capDelay(5*time.Second*factor, 5*time.Minute)
}

func capDelay(d, ceiling time.Duration) time.Duration {
	if d > ceiling {
		return ceiling
	}
	return d
}
