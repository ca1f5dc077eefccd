package github

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// ErrorKind is the closed set of failure classifications.
type ErrorKind string

const (
	KindRateLimit    ErrorKind = "RATE_LIMIT"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindNetwork      ErrorKind = "NETWORK"
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	KindServerError  ErrorKind = "SERVER_ERROR"
	KindUnknown      ErrorKind = "UNKNOWN"
)

// APIError carries the structured outcome of a failed GitHub API call so the
// classifier never has to re-derive the status from message text.
type APIError struct {
	StatusCode int
	Status     string
	URL        string
	RateLimit  RateLimit
	// HasRateLimit records whether the rate-limit headers were present, so a
	// missing header is not mistaken for an exhausted quota.
	HasRateLimit bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API error: %d %s (%s)", e.StatusCode, e.Status, e.URL)
}

func newAPIError(resp *http.Response, reqURL string) *APIError {
	return &APIError{
		StatusCode:   resp.StatusCode,
		Status:       http.StatusText(resp.StatusCode),
		URL:          reqURL,
		RateLimit:    parseRateLimit(resp),
		HasRateLimit: resp.Header.Get("X-RateLimit-Remaining") != "",
	}
}

// ErrorInfo is the classified view of a failure, carrying everything the
// presentation layer needs to render it.
type ErrorInfo struct {
	Kind            ErrorKind
	Message         string
	UserMessage     string
	SuggestedAction string
	CanRetry        bool
}

// Classify maps a failure into an ErrorKind. Structured APIErrors are
// classified by status code; a 403 counts as rate-limited only when the
// remaining-quota header says zero. Anything else falls back to inspecting
// the error for transport-level signatures.
func Classify(err error) ErrorInfo {
	info := ErrorInfo{
		Kind:            KindUnknown,
		Message:         "An unexpected error occurred",
		UserMessage:     "Something went wrong while fetching projects",
		SuggestedAction: "Please try again later",
		CanRetry:        true,
	}
	if err == nil {
		return info
	}
	info.Message = err.Error()

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusForbidden && apiErr.HasRateLimit && apiErr.RateLimit.Remaining == 0:
			info.Kind = KindRateLimit
			info.UserMessage = "GitHub API rate limit reached"
			info.CanRetry = false
			info.SuggestedAction = "Please wait a few minutes before refreshing"
			if !apiErr.RateLimit.Reset.IsZero() && apiErr.RateLimit.Reset.Unix() > 0 {
				info.SuggestedAction = fmt.Sprintf("Rate limit resets at %s", apiErr.RateLimit.Reset.Format("15:04:05"))
			}
		case apiErr.StatusCode == http.StatusNotFound:
			info.Kind = KindNotFound
			info.UserMessage = "GitHub user not found or repositories are private"
			info.CanRetry = false
			info.SuggestedAction = "Please check the GitHub username configuration"
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			info.Kind = KindUnauthorized
			info.UserMessage = "GitHub API authentication failed"
			info.CanRetry = false
			info.SuggestedAction = "Please check your GitHub token configuration"
		case apiErr.StatusCode >= http.StatusInternalServerError:
			info.Kind = KindServerError
			info.UserMessage = "GitHub servers are experiencing issues"
			info.SuggestedAction = "GitHub is temporarily unavailable, please try again later"
		}
		return info
	}

	if errors.Is(err, ErrOwnerNotConfigured) {
		info.Kind = KindNotFound
		info.UserMessage = "GitHub username not configured"
		info.CanRetry = false
		info.SuggestedAction = "Please set the GitHub username configuration"
		return info
	}

	var netErr net.Error
	msg := strings.ToLower(err.Error())
	if errors.As(err, &netErr) ||
		strings.Contains(msg, "connection") ||
		strings.Contains(msg, "network") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "timeout") {
		info.Kind = KindNetwork
		info.UserMessage = "Network connection error"
		info.SuggestedAction = "Please check your internet connection and try again"
	}

	return info
}

// ShouldRetry reports whether a failure of the given kind is transient.
func ShouldRetry(kind ErrorKind) bool {
	switch kind {
	case KindNetwork, KindServerError, KindUnknown:
		return true
	default:
		return false
	}
}

// RetryDelay returns the backoff before retry number attempt (0-based):
// exponential in the base delay, scaled per kind.
func RetryDelay(kind ErrorKind, attempt int, base time.Duration) time.Duration {
	delay := base << attempt
	switch kind {
	case KindNetwork:
		return delay * 2
	case KindServerError:
		return delay * 3
	default:
		return delay
	}
}

// FormatMessage renders an ErrorInfo for display to users.
func FormatMessage(info ErrorInfo) string {
	if info.SuggestedAction == "" {
		return info.UserMessage
	}
	return fmt.Sprintf("%s. %s", info.UserMessage, info.SuggestedAction)
}
