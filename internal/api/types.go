package api

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Profession is a simulated profession offered by the server.
type Profession struct {
	ID            int        `json:"id"`
	Name          string     `json:"name"`
	NameEn        string     `json:"name_en,omitempty"`
	Description   string     `json:"description,omitempty"`
	DescriptionEn string     `json:"description_en,omitempty"`
	Language      string     `json:"language,omitempty"`
	Category      string     `json:"category,omitempty"`
	Price         float64    `json:"price"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     *Timestamp `json:"created_at,omitempty"`
}

// Tags splits the comma-delimited category, dropping blanks.
func (p Profession) Tags() []string {
	var tags []string
	for _, t := range strings.Split(p.Category, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Status is the lifecycle state of one attempt.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ProgressAttempt is one pass through a profession's task sequence.
type ProgressAttempt struct {
	ProfessionID     int        `json:"profession_id"`
	AttemptNumber    int        `json:"attempt_number"`
	Status           Status     `json:"status"`
	CurrentTaskOrder int        `json:"current_task_order"`
	FinalReport      string     `json:"final_report,omitempty"`
	StartedAt        *Timestamp `json:"started_at,omitempty"`
	CompletedAt      *Timestamp `json:"completed_at,omitempty"`
}

// AttemptHistory lists every attempt of one profession.
type AttemptHistory struct {
	ProfessionID  int               `json:"profession_id"`
	TotalAttempts int               `json:"total_attempts"`
	Attempts      []ProgressAttempt `json:"attempts"`
}

// Attempt returns attempt number n.
func (h AttemptHistory) Attempt(n int) (ProgressAttempt, bool) {
	for _, a := range h.Attempts {
		if a.AttemptNumber == n {
			return a, true
		}
	}
	return ProgressAttempt{}, false
}

// Latest returns the highest-numbered attempt.
func (h AttemptHistory) Latest() (ProgressAttempt, bool) {
	var latest ProgressAttempt
	found := false
	for _, a := range h.Attempts {
		if !found || a.AttemptNumber > latest.AttemptNumber {
			latest, found = a, true
		}
	}
	return latest, found
}

// Task is a generated task delivered whole, as in plain mode.
type Task struct {
	ID               int    `json:"id"`
	Order            int    `json:"order"`
	Type             string `json:"type"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
	Question         string `json:"question"`
}

// SubmitResult is the plain-mode answer to a submission.
type SubmitResult struct {
	Completed   bool   `json:"completed"`
	NextTask    *Task  `json:"next_task,omitempty"`
	FinalReport string `json:"final_report,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Report is the latest final report of a profession.
type Report struct {
	FinalReport string     `json:"final_report"`
	CompletedAt *Timestamp `json:"completed_at,omitempty"`
}

// ServerInfo is the body of GET /.
type ServerInfo struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// Health is the body of GET /health.
type Health struct {
	Status string `json:"status"`
}

// User is an account as returned by registration.
type User struct {
	ID         int        `json:"id"`
	Email      string     `json:"email"`
	IsActive   bool       `json:"is_active"`
	IsVerified bool       `json:"is_verified"`
	CreatedAt  *Timestamp `json:"created_at,omitempty"`
}

// TokenResponse is the body of a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Timestamp decodes the server's datetimes, which may lack a zone designator.
// Zoneless values are read as UTC.
type Timestamp struct {
	time.Time
}

var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range zonelessLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(time.RFC3339Nano) + `"`), nil
}
