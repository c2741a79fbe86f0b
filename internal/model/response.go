package model

import (
	"time"

	"github.com/google/uuid"
)

// Response is a persisted answer, owned exclusively by its attempt. Responses
// are written once at submission and read-only afterward; they remain the
// source of truth from which the score can be re-derived at any time.
type Response struct {
	ID                uuid.UUID   `json:"id"`
	AttemptID         uuid.UUID   `json:"attempt_id"`
	QuestionID        uuid.UUID   `json:"question_id"`
	SelectedOptionIDs []uuid.UUID `json:"selected_option_ids,omitempty"`
	AnswerText        string      `json:"answer_text,omitempty"`
	AnsweredAt        time.Time   `json:"answered_at"`
}
