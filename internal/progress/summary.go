package progress

import (
	"fmt"

	"github.com/profsim/profsim/internal/api"
)

// Action is what the dashboard offers for a profession.
type Action int

const (
	ActionStart Action = iota
	ActionContinue
	ActionViewReport
)

func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "Continue"
	case ActionViewReport:
		return "View report"
	}
	return "Start"
}

// Entry is one dashboard row.
type Entry struct {
	Profession api.Profession
	Status     api.Status
	Attempt    int
	Action     Action
}

// AttemptLabel renders the attempt as "n of 3", or "" before the first.
func (e Entry) AttemptLabel() string {
	if e.Attempt == 0 {
		return ""
	}
	return fmt.Sprintf("%d of %d", e.Attempt, MaxAttempts)
}

// StatusText is the human label of a status.
func StatusText(s api.Status) string {
	switch s {
	case api.StatusInProgress:
		return "In progress"
	case api.StatusCompleted:
		return "Completed"
	}
	return "Not started"
}

// Summary builds one dashboard row per profession, in the given order.
func Summary(professions []api.Profession, attempts []api.ProgressAttempt) []Entry {
	entries := make([]Entry, 0, len(professions))
	for _, p := range professions {
		e := Entry{
			Profession: p,
			Status:     Status(attempts, p.ID),
			Attempt:    AttemptNumber(attempts, p.ID),
		}
		switch e.Status {
		case api.StatusInProgress:
			e.Action = ActionContinue
		case api.StatusCompleted:
			e.Action = ActionViewReport
		default:
			e.Action = ActionStart
		}
		entries = append(entries, e)
	}
	return entries
}
