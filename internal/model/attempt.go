package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states.
type AttemptStatus string

const (
	AttemptStatusStarted   AttemptStatus = "STARTED"
	AttemptStatusCompleted AttemptStatus = "COMPLETED"
)

// Attempt is one user's timed instance of taking an exam. At most one attempt
// per (exam, user) may be STARTED at a time; score fields are written only by
// the scoring engine, and a COMPLETED attempt is immutable except for the
// asynchronous anti-cheat annotation.
type Attempt struct {
	ID          uuid.UUID     `json:"id"`
	ExamID      uuid.UUID     `json:"exam_id"`
	UserID      int           `json:"user_id"`
	Status      AttemptStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
	SubmittedAt *time.Time    `json:"submitted_at,omitempty"`
	ResumeToken string        `json:"resume_token,omitempty"`

	Score      *float64 `json:"score,omitempty"`
	MaxScore   *float64 `json:"max_score,omitempty"`
	Percentage *int     `json:"percentage,omitempty"`
	Passed     *bool    `json:"passed,omitempty"`

	// TabSwitchCount is client-reported and advisory only; it feeds the
	// anti-cheat heuristics but never the score.
	TabSwitchCount int `json:"tab_switch_count"`
	// SuspiciousActivityDetected is server-set by the anti-cheat detector.
	SuspiciousActivityDetected bool     `json:"suspicious_activity_detected"`
	SuspicionReasons           []string `json:"suspicion_reasons,omitempty"`
}

// Expired reports whether the attempt window has passed at the given instant.
func (a *Attempt) Expired(now time.Time) bool {
	return now.After(a.ExpiresAt)
}

// AttemptCompletion carries the fields written in the single atomic
// STARTED→COMPLETED transition.
type AttemptCompletion struct {
	SubmittedAt    time.Time
	Score          float64
	MaxScore       float64
	Percentage     int
	Passed         bool
	TabSwitchCount int
}

// StartAttemptRequest is the payload for starting (or late-starting) an
// attempt. The late code is required only when the normal window has closed.
type StartAttemptRequest struct {
	LateCode string `json:"late_code" binding:"omitempty,min=4,max=32"`
}

// SubmittedResponse is one answer inside a submission payload.
type SubmittedResponse struct {
	QuestionID        uuid.UUID   `json:"question_id" binding:"required"`
	SelectedOptionIDs []uuid.UUID `json:"selected_option_ids" binding:"omitempty"`
	AnswerText        string      `json:"answer_text" binding:"omitempty,max=10000"`
	AnsweredAt        time.Time   `json:"answered_at" binding:"omitempty"`
}

// SubmitAttemptRequest is the payload for completing an attempt. Any
// correctness or score fields a client might echo back are simply absent from
// this shape; the server recomputes everything.
type SubmitAttemptRequest struct {
	Responses      []SubmittedResponse `json:"responses" binding:"required,dive"`
	TabSwitchCount int                 `json:"tab_switch_count" binding:"omitempty,min=0"`
}
