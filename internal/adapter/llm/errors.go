package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies a failed completion call for logging.
type ErrorKind string

const (
	KindTimeout           ErrorKind = "timeout"
	KindMalformedRequest  ErrorKind = "malformed_request"
	KindInvalidCredential ErrorKind = "invalid_credential"
	KindRateLimited       ErrorKind = "rate_limited"
	KindEmptyResponse     ErrorKind = "empty_response"
	KindAPI               ErrorKind = "api_error"
)

// APIError wraps a completion API failure with its HTTP status, if any.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion api %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion api %s: %v", e.Kind, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind of err, or KindAPI for unclassified errors.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindAPI
}

// classify maps a transport error and the last observed HTTP status to an
// APIError.
func classify(err error, status int) *APIError {
	kind := KindAPI
	switch {
	case isTimeout(err):
		kind = KindTimeout
	case status == http.StatusBadRequest:
		kind = KindMalformedRequest
	case status == http.StatusUnauthorized:
		kind = KindInvalidCredential
	case status == http.StatusTooManyRequests:
		kind = KindRateLimited
	}
	return &APIError{Kind: kind, StatusCode: status, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
