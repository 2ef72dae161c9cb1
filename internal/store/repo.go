package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match ("" = any)
}

// Stream session purposes.
const (
	PurposeTaskGen = "task-gen"
	PurposeSubmit  = "submit"
)

// Stream session modes.
const (
	ModeStream = "stream"
	ModePlain  = "plain"
)

// StreamSessionData captures the summary of one finished generation or
// submission run. Event payloads are never stored.
type StreamSessionData struct {
	SessionID    string
	Purpose      string
	Mode         string
	ProfessionID int
	TaskID       int
	Frames       int
	DecodeErrors int
	TerminalKind string
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// StreamSessionRecord is a persisted StreamSessionData.
type StreamSessionRecord struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	StreamSessionData
}

// PurposeUsage aggregates stream sessions per purpose.
type PurposeUsage struct {
	Purpose      string
	Sessions     int
	Succeeded    int
	Frames       int
	DecodeErrors int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to domain events.
type EventRepo interface {
	// AppendStreamSession records a finished stream session.
	AppendStreamSession(ctx context.Context, data StreamSessionData) error

	// QueryStreamSessions returns stream sessions, newest first.
	QueryStreamSessions(ctx context.Context, opts QueryOpts) ([]StreamSessionRecord, error)

	// GetStreamSession returns one stream session by ID, or nil if absent.
	GetStreamSession(ctx context.Context, id int) (*StreamSessionRecord, error)

	// UsageByPurpose aggregates all stream sessions per purpose.
	UsageByPurpose(ctx context.Context) ([]PurposeUsage, error)
}

// Credential is a stored bearer token.
type Credential struct {
	Token   string
	SavedAt time.Time
}

// CredentialRepo persists bearer tokens in named slots.
type CredentialRepo interface {
	// Save replaces the credential in slot.
	Save(ctx context.Context, slot string, cred Credential) error

	// Load returns the credential in slot, or nil if the slot is empty.
	Load(ctx context.Context, slot string) (*Credential, error)

	// Delete empties slot. Deleting an empty slot is not an error.
	Delete(ctx context.Context, slot string) error
}
