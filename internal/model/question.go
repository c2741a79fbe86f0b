package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates supported question kinds.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultiChoice  QuestionType = "MULTI_CHOICE"
	QuestionTypeOpen         QuestionType = "OPEN"
)

// GradingMode selects how a submitted answer is matched against the key.
type GradingMode string

const (
	// GradingExact awards full points only when the selection equals the key.
	GradingExact GradingMode = "EXACT"
	// GradingPartial awards fractional credit on multi-select questions.
	GradingPartial GradingMode = "PARTIAL"
	// GradingKeyword awards fractional credit per matched keyword on open
	// questions.
	GradingKeyword GradingMode = "KEYWORD"
	// GradingDelegated hands the answer to an external semantic grader.
	GradingDelegated GradingMode = "DELEGATED"
)

// Option is a selectable answer choice. IsCorrect is the authoritative answer
// key and must never leave the server in student-facing payloads.
type Option struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	IsCorrect bool      `json:"is_correct"`
}

// Question carries both the prompt shown to students and the answer key used
// by the scoring engine.
type Question struct {
	ID          uuid.UUID    `json:"id"`
	ExamID      uuid.UUID    `json:"exam_id"`
	Text        string       `json:"text"`
	Type        QuestionType `json:"type"`
	GradingMode GradingMode  `json:"grading_mode"`
	Points      float64      `json:"points"`
	Options     []Option     `json:"options,omitempty"`
	// Keywords drive GradingKeyword matching on open questions.
	Keywords []string `json:"keywords,omitempty"`
	// MinLength/MaxLength bound free-text answers. Zero means unbounded.
	MinLength int `json:"min_length,omitempty"`
	MaxLength int `json:"max_length,omitempty"`
	OrderNum  int `json:"order_num"`
}

// EffectivePoints returns the question's point value, defaulting to 1 when
// unset.
func (q *Question) EffectivePoints() float64 {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// CorrectOptionIDs returns the set of option IDs flagged correct.
func (q *Question) CorrectOptionIDs() map[uuid.UUID]bool {
	key := make(map[uuid.UUID]bool)
	for _, o := range q.Options {
		if o.IsCorrect {
			key[o.ID] = true
		}
	}
	return key
}

// HasOption reports whether id belongs to this question's option set.
func (q *Question) HasOption(id uuid.UUID) bool {
	for _, o := range q.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// QuestionForStudent is a question without the answer key, safe to send to
// exam takers.
type QuestionForStudent struct {
	ID        uuid.UUID       `json:"id"`
	Text      string          `json:"text"`
	Type      QuestionType    `json:"type"`
	Points    float64         `json:"points"`
	Options   []StudentOption `json:"options,omitempty"`
	MinLength int             `json:"min_length,omitempty"`
	MaxLength int             `json:"max_length,omitempty"`
	OrderNum  int             `json:"order_num"`
}

// StudentOption is an option stripped of the IsCorrect flag.
type StudentOption struct {
	ID   uuid.UUID `json:"id"`
	Text string    `json:"text"`
}

// ForStudent strips the answer key from a question.
func (q *Question) ForStudent() QuestionForStudent {
	opts := make([]StudentOption, 0, len(q.Options))
	for _, o := range q.Options {
		opts = append(opts, StudentOption{ID: o.ID, Text: o.Text})
	}
	return QuestionForStudent{
		ID:        q.ID,
		Text:      q.Text,
		Type:      q.Type,
		Points:    q.EffectivePoints(),
		Options:   opts,
		MinLength: q.MinLength,
		MaxLength: q.MaxLength,
		OrderNum:  q.OrderNum,
	}
}
