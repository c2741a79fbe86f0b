package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Business errors surfaced by the attempt lifecycle. Handlers match on these
// with errors.Is/errors.As and map them to response codes; nothing in the
// calling layer inspects error message text.
var (
	ErrExamNotFound     = errors.New("exam not found")
	ErrExamNotAvailable = errors.New("exam is not published")
	ErrExamNotStarted   = errors.New("exam has not started")
	ErrExamEnded        = errors.New("exam access window has closed")

	ErrMaxAttemptsReached = errors.New("max attempts reached")

	ErrAttemptNotFound     = errors.New("attempt not found")
	ErrInvalidAttempt      = errors.New("attempt does not belong to caller")
	ErrWrongUser           = errors.New("resume token belongs to another user")
	ErrAlreadyCompleted    = errors.New("attempt already completed")
	ErrAttemptNotCompleted = errors.New("attempt has not been submitted yet")

	ErrLateCodeRequired  = errors.New("late access code required")
	ErrLateCodeInvalid   = errors.New("late code not valid for this exam")
	ErrLateCodeInactive  = errors.New("late code deactivated")
	ErrLateCodeExpired   = errors.New("late code expired")
	ErrLateCodeExhausted = errors.New("late code has no remaining usages")
	ErrLateCodeAssigned  = errors.New("late code assigned to another user")
	ErrLateCodeReplayed  = errors.New("late code already used by this user")
)

// MustWaitError signals the cooldown between attempts has not elapsed.
type MustWaitError struct {
	RetryAt time.Time
}

func (e *MustWaitError) Error() string {
	return fmt.Sprintf("must wait until %s before next attempt", e.RetryAt.Format(time.RFC3339))
}

// SubmissionError carries the full list of validator violations. The caller
// rejects the whole submission; nothing is partially applied.
type SubmissionError struct {
	Reasons []string
}

func (e *SubmissionError) Error() string {
	return "invalid submission: " + strings.Join(e.Reasons, "; ")
}

// ResultsLockedError signals the visibility gate is still closed.
type ResultsLockedError struct {
	UnlocksAt time.Time
}

func (e *ResultsLockedError) Error() string {
	return fmt.Sprintf("results locked until %s", e.UnlocksAt.Format(time.RFC3339))
}
