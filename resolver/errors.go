// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrRemoteUnavailable matches every RemoteError. It is recovered by falling
// back to the local codec and only reaches callers through a Notice.
var ErrRemoteUnavailable = errors.New("remote codec unavailable")

// ErrorType classifies remote failures.
type ErrorType int

const (
	// ErrorTypeUnknown unclassified failure.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeRateLimit the service throttled the request.
	ErrorTypeRateLimit
	// ErrorTypeQuotaExceeded quota exhausted or access denied.
	ErrorTypeQuotaExceeded
	// ErrorTypeTimeout the call outlived its deadline.
	ErrorTypeTimeout
	// ErrorTypeNotFound the endpoint does not exist.
	ErrorTypeNotFound
	// ErrorTypeInvalidRequest the service rejected the request.
	ErrorTypeInvalidRequest
	// ErrorTypeNetworkError connection failure or 5xx gateway errors.
	ErrorTypeNetworkError
	// ErrorTypeMalformedPayload the response could not be understood.
	ErrorTypeMalformedPayload
	// ErrorTypeOffline the remote was known unavailable and never called.
	ErrorTypeOffline
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeUnknown:          "unknown",
	ErrorTypeRateLimit:        "rate_limit",
	ErrorTypeQuotaExceeded:    "quota_exceeded",
	ErrorTypeTimeout:          "timeout",
	ErrorTypeNotFound:         "not_found",
	ErrorTypeInvalidRequest:   "invalid_request",
	ErrorTypeNetworkError:     "network",
	ErrorTypeMalformedPayload: "malformed_payload",
	ErrorTypeOffline:          "offline",
}

func (t ErrorType) String() string {
	if s, ok := errorTypeNames[t]; ok {
		return s
	}

	return fmt.Sprintf("ErrorType(%d)", int(t))
}

// RemoteError describes why a remote call could not be used.
type RemoteError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is makes every RemoteError match ErrRemoteUnavailable.
func (e *RemoteError) Is(target error) bool {
	return target == ErrRemoteUnavailable
}

func errorTypeOf(err error) (ErrorType, bool) {
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Type, true
	}

	return ErrorTypeUnknown, false
}

// IsRateLimitError reports whether the remote throttled the call.
func IsRateLimitError(err error) bool {
	if t, ok := errorTypeOf(err); ok {
		return t == ErrorTypeRateLimit
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429")
}

// IsTimeoutError reports whether the remote call timed out.
func IsTimeoutError(err error) bool {
	if t, ok := errorTypeOf(err); ok {
		return t == ErrorTypeTimeout
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// IsMalformedPayloadError reports whether the remote answered with something
// that isn't a valid code or coordinate.
func IsMalformedPayloadError(err error) bool {
	t, ok := errorTypeOf(err)

	return ok && t == ErrorTypeMalformedPayload
}

// ClassifyHTTPError maps a non success HTTP status to a RemoteError.
func ClassifyHTTPError(statusCode int, body string) *RemoteError {
	e := &RemoteError{StatusCode: statusCode}

	switch statusCode {
	case http.StatusTooManyRequests:
		e.Type, e.Message = ErrorTypeRateLimit, "rate limit reached"
	case http.StatusForbidden, http.StatusUnauthorized:
		e.Type, e.Message = ErrorTypeQuotaExceeded, "quota exceeded or access denied"
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		e.Type, e.Message = ErrorTypeInvalidRequest, "invalid request"
	case http.StatusNotFound:
		e.Type, e.Message = ErrorTypeNotFound, "endpoint not found"
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		e.Type, e.Message = ErrorTypeNetworkError, fmt.Sprintf("service unavailable (status %d)", statusCode)
	default:
		e.Type, e.Message = ErrorTypeUnknown, fmt.Sprintf("HTTP error %d", statusCode)
	}

	if body = strings.TrimSpace(body); body != "" {
		e.Err = errors.New(body)
	}

	return e
}

// ClassifyTransportError wraps an error returned by the HTTP client.
func ClassifyTransportError(err error) *RemoteError {
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return &RemoteError{Type: ErrorTypeTimeout, Message: "remote call timed out", Err: err}
	case errors.Is(err, context.Canceled):
		return &RemoteError{Type: ErrorTypeNetworkError, Message: "remote call canceled", Err: err}
	default:
		return &RemoteError{Type: ErrorTypeNetworkError, Message: "remote call failed", Err: err}
	}
}

func malformed(format string, args ...any) *RemoteError {
	return &RemoteError{Type: ErrorTypeMalformedPayload, Message: fmt.Sprintf(format, args...)}
}
