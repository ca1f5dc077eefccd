package github

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	reset := time.Now().Add(time.Hour)

	testCases := []struct {
		name         string
		err          error
		expectedKind ErrorKind
		canRetry     bool
	}{
		{
			name: "rate limit exhausted",
			err: &APIError{
				StatusCode:   http.StatusForbidden,
				RateLimit:    RateLimit{Limit: 60, Remaining: 0, Reset: reset},
				HasRateLimit: true,
			},
			expectedKind: KindRateLimit,
			canRetry:     false,
		},
		{
			name: "forbidden with quota left is not a rate limit",
			err: &APIError{
				StatusCode:   http.StatusForbidden,
				RateLimit:    RateLimit{Limit: 60, Remaining: 12},
				HasRateLimit: true,
			},
			expectedKind: KindUnauthorized,
			canRetry:     false,
		},
		{
			name:         "forbidden without rate headers is not a rate limit",
			err:          &APIError{StatusCode: http.StatusForbidden},
			expectedKind: KindUnauthorized,
			canRetry:     false,
		},
		{
			name:         "not found",
			err:          &APIError{StatusCode: http.StatusNotFound},
			expectedKind: KindNotFound,
			canRetry:     false,
		},
		{
			name:         "unauthorized",
			err:          &APIError{StatusCode: http.StatusUnauthorized},
			expectedKind: KindUnauthorized,
			canRetry:     false,
		},
		{
			name:         "server error",
			err:          &APIError{StatusCode: http.StatusBadGateway},
			expectedKind: KindServerError,
			canRetry:     true,
		},
		{
			name:         "unexpected status",
			err:          &APIError{StatusCode: http.StatusTeapot},
			expectedKind: KindUnknown,
			canRetry:     true,
		},
		{
			name:         "wrapped api error",
			err:          fmt.Errorf("fetch failed: %w", &APIError{StatusCode: http.StatusNotFound}),
			expectedKind: KindNotFound,
			canRetry:     false,
		},
		{
			name:         "transport failure",
			err:          fmt.Errorf("request failed: dial tcp: connection refused"),
			expectedKind: KindNetwork,
			canRetry:     true,
		},
		{
			name:         "owner not configured",
			err:          fmt.Errorf("%w: owner %q", ErrOwnerNotConfigured, ""),
			expectedKind: KindNotFound,
			canRetry:     false,
		},
		{
			name:         "nil error",
			err:          nil,
			expectedKind: KindUnknown,
			canRetry:     true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			info := Classify(tc.err)
			assert.Equal(t, tc.expectedKind, info.Kind)
			assert.Equal(t, tc.canRetry, info.CanRetry)
			assert.NotEmpty(t, info.UserMessage)
			assert.NotEmpty(t, info.SuggestedAction)
		})
	}
}

func TestClassify_RateLimitResetTime(t *testing.T) {
	reset := time.Date(2026, 3, 14, 15, 9, 26, 0, time.Local)
	info := Classify(&APIError{
		StatusCode:   http.StatusForbidden,
		RateLimit:    RateLimit{Remaining: 0, Reset: reset},
		HasRateLimit: true,
	})

	assert.Equal(t, KindRateLimit, info.Kind)
	assert.Contains(t, info.SuggestedAction, "15:09:26")
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, ShouldRetry(KindNetwork))
	assert.True(t, ShouldRetry(KindServerError))
	assert.True(t, ShouldRetry(KindUnknown))

	assert.False(t, ShouldRetry(KindRateLimit))
	assert.False(t, ShouldRetry(KindNotFound))
	assert.False(t, ShouldRetry(KindUnauthorized))
}

func TestRetryDelay(t *testing.T) {
	base := time.Second

	// Exponential in the attempt number.
	assert.Equal(t, time.Second, RetryDelay(KindUnknown, 0, base))
	assert.Equal(t, 2*time.Second, RetryDelay(KindUnknown, 1, base))
	assert.Equal(t, 4*time.Second, RetryDelay(KindUnknown, 2, base))

	// Per-kind multipliers.
	assert.Equal(t, 2*time.Second, RetryDelay(KindNetwork, 0, base))
	assert.Equal(t, 3*time.Second, RetryDelay(KindServerError, 0, base))
	assert.Equal(t, 12*time.Second, RetryDelay(KindServerError, 2, base))
}

func TestFormatMessage(t *testing.T) {
	assert.Equal(t,
		"GitHub API rate limit reached. Please wait a few minutes before refreshing",
		FormatMessage(ErrorInfo{
			UserMessage:     "GitHub API rate limit reached",
			SuggestedAction: "Please wait a few minutes before refreshing",
		}))

	assert.Equal(t, "Network connection error",
		FormatMessage(ErrorInfo{UserMessage: "Network connection error"}))
}
