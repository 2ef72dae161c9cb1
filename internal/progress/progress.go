// Package progress derives attempt state from the server's progress records
// and enforces the attempt limit.
package progress

import (
	"errors"

	"github.com/profsim/profsim/internal/api"
)

// MaxAttempts is the number of attempts allowed per profession.
const MaxAttempts = 3

var (
	// ErrAttemptLimit means every allowed attempt has been used.
	ErrAttemptLimit = errors.New("attempt limit reached")

	// ErrNotCompleted means the latest attempt is still open.
	ErrNotCompleted = errors.New("latest attempt is not completed")
)

// latestFor returns the highest-numbered attempt of professionID.
func latestFor(attempts []api.ProgressAttempt, professionID int) (api.ProgressAttempt, bool) {
	var latest api.ProgressAttempt
	found := false
	for _, a := range attempts {
		if a.ProfessionID != professionID {
			continue
		}
		if !found || a.AttemptNumber > latest.AttemptNumber {
			latest, found = a, true
		}
	}
	return latest, found
}

// Status returns the status of the highest-numbered attempt of professionID,
// or not_started when there is none.
func Status(attempts []api.ProgressAttempt, professionID int) api.Status {
	latest, ok := latestFor(attempts, professionID)
	if !ok || latest.Status == "" {
		return api.StatusNotStarted
	}
	return latest.Status
}

// AttemptNumber returns the highest attempt number of professionID, or 0.
func AttemptNumber(attempts []api.ProgressAttempt, professionID int) int {
	latest, ok := latestFor(attempts, professionID)
	if !ok {
		return 0
	}
	return latest.AttemptNumber
}

// ActiveAttempt returns the highest-numbered attempt that is not completed,
// or the highest-numbered attempt overall when all are completed. attempts
// must belong to one profession.
func ActiveAttempt(attempts []api.ProgressAttempt) (api.ProgressAttempt, bool) {
	var open, any api.ProgressAttempt
	var haveOpen, haveAny bool
	for _, a := range attempts {
		if !haveAny || a.AttemptNumber > any.AttemptNumber {
			any, haveAny = a, true
		}
		if a.Status != api.StatusCompleted && (!haveOpen || a.AttemptNumber > open.AttemptNumber) {
			open, haveOpen = a, true
		}
	}
	if haveOpen {
		return open, true
	}
	return any, haveAny
}

// CanRestart reports whether another attempt may be started.
func CanRestart(h api.AttemptHistory) bool {
	return h.TotalAttempts < MaxAttempts
}
