package stream

import "fmt"

// DecodeError reports a single frame whose payload could not be turned into
// an event. It never ends a stream; the frame is skipped.
type DecodeError struct {
	Frame string
	Kind  Kind // empty when the kind itself could not be read
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("decode %s frame: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("decode frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
