package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPublisherID is returned when a caller-supplied identifier is malformed.
	ErrInvalidPublisherID = errors.New("invalid publisher ID format")

	// ErrInvalidURL is returned when the URL to analyze cannot be parsed.
	ErrInvalidURL = errors.New("invalid URL format")

	// ErrProviderUnavailable is returned when the search provider is not configured.
	ErrProviderUnavailable = errors.New("search provider unavailable")

	// ErrFetchFailed is returned when a remote resource could not be retrieved.
	ErrFetchFailed = errors.New("failed to fetch resource")

	// ErrNotFound is returned when a remote resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrRateLimited is returned when a remote service or the local limiter refuses the call.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// FetchErrorKind classifies a failed outbound request.
type FetchErrorKind string

const (
	FetchTimeout     FetchErrorKind = "timeout"
	FetchNetwork     FetchErrorKind = "network"
	FetchRateLimited FetchErrorKind = "rate_limited"
	FetchNotFound    FetchErrorKind = "not_found"
	FetchHTTPStatus  FetchErrorKind = "http_status"
	FetchTooLarge    FetchErrorKind = "too_large"
)

// FetchError describes a failed outbound request.
type FetchError struct {
	Kind   FetchErrorKind
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the fetch sentinels by kind.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrFetchFailed:
		return true
	case ErrNotFound:
		return e.Kind == FetchNotFound
	case ErrRateLimited:
		return e.Kind == FetchRateLimited
	}
	return false
}

// Retryable reports whether another attempt may succeed.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case FetchTimeout, FetchNetwork, FetchRateLimited:
		return true
	case FetchHTTPStatus:
		return e.Status >= 500
	}
	return false
}

// NewStatusError builds a FetchError for a non-2xx response.
func NewStatusError(url string, status int) *FetchError {
	kind := FetchHTTPStatus
	switch {
	case status == 404 || status == 410:
		kind = FetchNotFound
	case status == 429:
		kind = FetchRateLimited
	}
	return &FetchError{Kind: kind, URL: url, Status: status}
}
