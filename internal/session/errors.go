package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTask means the server has no current task for the profession.
	// No stream is opened.
	ErrNoTask = errors.New("no current task")

	// ErrEmptyAnswer is returned before any request when the answer is blank.
	ErrEmptyAnswer = errors.New("answer is empty")

	// ErrSessionUsed is returned when Run is called on a finished session.
	ErrSessionUsed = errors.New("session already run")

	// ErrStreamIncomplete means the stream ended without a terminal event.
	ErrStreamIncomplete = errors.New("stream ended without a terminal event")
)

// ProtocolError is an error event sent by the server inside the stream.
type ProtocolError struct {
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("server error: %s", e.Message)
}

// TransportError is a failure to open or read the stream.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stream transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
