package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusPublished ExamStatus = "PUBLISHED"
	ExamStatusArchived  ExamStatus = "ARCHIVED"
)

// ExamConfig groups the admission and grading policy knobs of an exam.
type ExamConfig struct {
	// MaxAttempts caps the number of COMPLETED attempts per user.
	// Zero means unlimited.
	MaxAttempts int `json:"max_attempts"`
	// CooldownMinutes is the wait time between a completed attempt and the
	// next admission.
	CooldownMinutes int `json:"cooldown_minutes"`
	// LateDurationMinutes extends the access window past EndTime for holders
	// of a valid late code.
	LateDurationMinutes int `json:"late_duration_minutes"`
	// DelayResultsUntilLateEnd keeps results locked until the late window
	// closes, not just until EndTime.
	DelayResultsUntilLateEnd bool `json:"delay_results_until_late_end"`
	// PassingScore is the percentage threshold for a passing attempt.
	PassingScore int `json:"passing_score"`
	// EnableImmediateFeedback requests feedback generation right after submit.
	EnableImmediateFeedback bool `json:"enable_immediate_feedback"`
}

// Exam is the read-only exam reference this service consumes. Content
// authoring lives elsewhere; attempts hold a non-owning reference to it.
type Exam struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	OwnerID         int             `json:"owner_id"`
	Status          ExamStatus      `json:"status"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
	DurationMinutes int             `json:"duration_minutes"`
	Config          ExamConfig      `json:"config"`
	CheatRules      json.RawMessage `json:"cheat_rules,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// LateWindowEnd returns the last instant at which the exam is accessible,
// including the late window.
func (e *Exam) LateWindowEnd() time.Time {
	return e.EndTime.Add(time.Duration(e.Config.LateDurationMinutes) * time.Minute)
}

// Duration returns the per-attempt time budget.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}
