package hrisapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed backend call.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindServer     Kind = "server"
	KindAuth       Kind = "auth"
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindRejected   Kind = "rejected"
	KindDecode     Kind = "decode"
)

// APIError is returned for every failed call. StatusCode is 0 when no
// response was received.
type APIError struct {
	Kind       Kind
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode > 0 && e.Code != "":
		return fmt.Sprintf("hrisapi %s (%d %s): %s", e.Kind, e.StatusCode, e.Code, e.Message)
	case e.StatusCode > 0:
		return fmt.Sprintf("hrisapi %s (%d): %s", e.Kind, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("hrisapi %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("hrisapi %s: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the call may succeed when repeated unchanged.
// A per-attempt timeout counts as a network failure.
func (e *APIError) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindServer
}

// IsKind reports whether err is an *APIError of kind k.
func IsKind(err error, k Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

func kindForStatus(status int) Kind {
	switch {
	case status >= 500, status == http.StatusTooManyRequests:
		return KindServer
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity, status == http.StatusConflict:
		return KindValidation
	}
	return KindRejected
}

// tokenError marks failures of the bearer token source so they are
// classified as auth errors instead of network errors.
type tokenError struct {
	err error
}

func (e *tokenError) Error() string { return "token source: " + e.err.Error() }
func (e *tokenError) Unwrap() error { return e.err }
