package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthorized means the server rejected the bearer credential.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the requested resource does not exist.
	ErrNotFound = errors.New("not found")
)

// StatusError is a non-2xx response. Detail carries the server's "detail"
// message when it sent one.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap maps well-known codes to sentinel errors for errors.Is.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}

// RequestError is a failure to reach the server or read its response.
type RequestError struct {
	Method string
	Path   string
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// IncompatibleServerError means the server's version is outside the
// supported range.
type IncompatibleServerError struct {
	Version string
	Minimum string
}

func (e *IncompatibleServerError) Error() string {
	return fmt.Sprintf("server version %s is not supported (need %s or newer within the same major version)", e.Version, e.Minimum)
}

// parseDetail extracts the "detail" field of an error body. Validation errors
// carry a list instead of a string; those are returned compacted.
func parseDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return string(bytes.TrimSpace(body))
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		return s
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, envelope.Detail); err != nil {
		return string(envelope.Detail)
	}
	return buf.String()
}
