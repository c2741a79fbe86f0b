package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/studyrail/attempt-backend/internal/model"
)

// ValidateSubmission checks that a submission is structurally and temporally
// legitimate for the given attempt. It returns the full list of violations;
// an empty list means the submission may be scored. A single violation
// rejects the whole submission — nothing is partially applied.
//
// Ownership of the attempt is the caller's responsibility; this function
// assumes attempt.UserID has already been checked.
func ValidateSubmission(attempt *model.Attempt, responses []model.SubmittedResponse, questions []model.Question, now time.Time, grace time.Duration) []string {
	var reasons []string

	if attempt.Status != model.AttemptStatusStarted {
		reasons = append(reasons, "attempt is not in STARTED state")
	}

	if now.After(attempt.ExpiresAt.Add(grace)) {
		reasons = append(reasons, fmt.Sprintf("late submission: %s past expiry", now.Sub(attempt.ExpiresAt).Round(time.Second)))
	}

	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	seen := make(map[uuid.UUID]bool, len(responses))
	for i := range responses {
		resp := &responses[i]

		q, ok := byID[resp.QuestionID]
		if !ok {
			reasons = append(reasons, fmt.Sprintf("question %s does not belong to this exam", resp.QuestionID))
			continue
		}

		if seen[resp.QuestionID] {
			reasons = append(reasons, fmt.Sprintf("duplicate response for question %s", resp.QuestionID))
			continue
		}
		seen[resp.QuestionID] = true

		reasons = append(reasons, checkShape(q, resp)...)
	}

	return reasons
}

// checkShape verifies a response payload matches its question type.
func checkShape(q *model.Question, resp *model.SubmittedResponse) []string {
	var reasons []string

	switch q.Type {
	case model.QuestionTypeSingleChoice:
		if resp.AnswerText != "" {
			reasons = append(reasons, fmt.Sprintf("question %s: free text not allowed on a choice question", q.ID))
		}
		if len(resp.SelectedOptionIDs) != 1 {
			reasons = append(reasons, fmt.Sprintf("question %s: exactly one option must be selected", q.ID))
			break
		}
		reasons = append(reasons, checkOptionIDs(q, resp.SelectedOptionIDs)...)

	case model.QuestionTypeMultiChoice:
		if resp.AnswerText != "" {
			reasons = append(reasons, fmt.Sprintf("question %s: free text not allowed on a choice question", q.ID))
		}
		if len(resp.SelectedOptionIDs) == 0 {
			reasons = append(reasons, fmt.Sprintf("question %s: at least one option must be selected", q.ID))
			break
		}
		reasons = append(reasons, checkOptionIDs(q, resp.SelectedOptionIDs)...)

	case model.QuestionTypeOpen:
		if len(resp.SelectedOptionIDs) > 0 {
			reasons = append(reasons, fmt.Sprintf("question %s: option selection not allowed on an open question", q.ID))
		}
		n := len(resp.AnswerText)
		if q.MinLength > 0 && n < q.MinLength {
			reasons = append(reasons, fmt.Sprintf("question %s: answer shorter than %d characters", q.ID, q.MinLength))
		}
		if q.MaxLength > 0 && n > q.MaxLength {
			reasons = append(reasons, fmt.Sprintf("question %s: answer longer than %d characters", q.ID, q.MaxLength))
		}

	default:
		reasons = append(reasons, fmt.Sprintf("question %s: unknown question type %q", q.ID, q.Type))
	}

	return reasons
}

// checkOptionIDs rejects selections referencing options outside the
// question's own option set, and duplicate picks.
func checkOptionIDs(q *model.Question, selected []uuid.UUID) []string {
	var reasons []string
	seen := make(map[uuid.UUID]bool, len(selected))
	for _, id := range selected {
		if seen[id] {
			reasons = append(reasons, fmt.Sprintf("question %s: option %s selected twice", q.ID, id))
			continue
		}
		seen[id] = true
		if !q.HasOption(id) {
			reasons = append(reasons, fmt.Sprintf("question %s: option %s does not belong to it", q.ID, id))
		}
	}
	return reasons
}
