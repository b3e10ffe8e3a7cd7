package twitterapi

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrMalformedResponse is returned when the body decodes but carries no tweets array.
var ErrMalformedResponse = errors.New("twitterapi: malformed response")

// AuthError is returned for 401 and 403 responses. Retrying will not help.
type AuthError struct {
	StatusCode int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("twitterapi: authentication failed (status %d), check the API key", e.StatusCode)
}

// RateLimitError is returned for 429 responses.
type RateLimitError struct {
	RetryAfter string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter != "" {
		return "twitterapi: rate limited, retry after " + e.RetryAfter
	}
	return "twitterapi: rate limited"
}

// StatusError is any other non-2xx response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("twitterapi: status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the provider failed on its side.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500
}

func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

func IsRateLimitError(err error) bool {
	var re *RateLimitError
	return errors.As(err, &re)
}

// Kind classifies err for logs and metrics: auth, rate_limit, server, status, malformed, timeout or network.
func Kind(err error) string {
	var se *StatusError
	switch {
	case IsAuthError(err):
		return "auth"
	case IsRateLimitError(err):
		return "rate_limit"
	case errors.As(err, &se):
		if se.Temporary() {
			return "server"
		}
		return "status"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, context.DeadlineExceeded), isNetTimeout(err):
		return "timeout"
	default:
		return "network"
	}
}

func isNetTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
