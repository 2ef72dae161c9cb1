package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Kind discriminates a StreamEvent.
type Kind string

const (
	KindMetadata    Kind = "metadata"
	KindToken       Kind = "token"
	KindReportToken Kind = "report_token"
	KindDone        Kind = "done"
	KindCompleted   Kind = "completed"
	KindError       Kind = "error"
)

// Terminal reports whether events of this kind end a session.
func (k Kind) Terminal() bool {
	return k == KindDone || k == KindCompleted || k == KindError
}

// Metadata announces the identity and limits of the task whose text follows.
// On submission streams Completed is set: false when a next task is coming,
// true when a final report is being generated.
type Metadata struct {
	ID               int    `json:"id"`
	Order            int    `json:"order"`
	TaskType         string `json:"task_type"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
	Completed        *bool  `json:"completed,omitempty"`
	GeneratingReport bool   `json:"generating_report,omitempty"`
}

// Done carries the authoritative text of a generated question. On submission
// streams it may instead carry only a Message.
type Done struct {
	FullText  string `json:"full_text"`
	TaskID    int    `json:"task_id"`
	Completed *bool  `json:"completed,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Completed carries the authoritative final report.
type Completed struct {
	FinalReport string `json:"final_report"`
}

// ErrorPayload is the body of an error event.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Event is one decoded StreamEvent. Exactly one payload field matching Kind is
// set; events of unknown kinds carry only Kind and Raw.
type Event struct {
	Kind      Kind
	Metadata  *Metadata
	Token     string
	Done      *Done
	Completed *Completed
	Error     *ErrorPayload

	// Raw is the kind-specific payload as received.
	Raw json.RawMessage
}

type tokenPayload struct {
	Token string `json:"token"`
}

// ParseEvent decodes one frame payload. Both the flat envelope
// {"kind":"token","token":"A"} and the wrapped envelope
// {"type":"token","data":{"token":"A"}} are accepted.
func ParseEvent(frame string) (Event, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(frame), &envelope); err != nil {
		return Event{}, &DecodeError{Frame: frame, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	kind, err := envelopeKind(envelope)
	if err != nil {
		return Event{}, &DecodeError{Frame: frame, Err: err}
	}

	payload := []byte(frame)
	if data, ok := envelope["data"]; ok && isObject(data) {
		payload = data
	}

	ev := Event{Kind: kind, Raw: json.RawMessage(payload)}
	if err := validatePayload(kind, payload); err != nil {
		return Event{}, &DecodeError{Frame: frame, Kind: kind, Err: err}
	}

	switch kind {
	case KindMetadata:
		ev.Metadata = &Metadata{}
		err = json.Unmarshal(payload, ev.Metadata)
	case KindToken, KindReportToken:
		var tp tokenPayload
		err = json.Unmarshal(payload, &tp)
		ev.Token = tp.Token
	case KindDone:
		ev.Done = &Done{}
		err = json.Unmarshal(payload, ev.Done)
	case KindCompleted:
		ev.Completed = &Completed{}
		err = json.Unmarshal(payload, ev.Completed)
	case KindError:
		ev.Error = &ErrorPayload{}
		err = json.Unmarshal(payload, ev.Error)
	}
	if err != nil {
		return Event{}, &DecodeError{Frame: frame, Kind: kind, Err: err}
	}
	return ev, nil
}

func envelopeKind(envelope map[string]json.RawMessage) (Kind, error) {
	for _, key := range []string{"kind", "type"} {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%q is not a string", key)
		}
		if s == "" {
			return "", fmt.Errorf("empty %q", key)
		}
		return Kind(s), nil
	}
	return "", errors.New("missing event kind")
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
