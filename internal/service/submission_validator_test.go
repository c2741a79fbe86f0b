package service

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/studyrail/attempt-backend/internal/model"
)

func validatorFixture() (*model.Attempt, []model.Question, time.Time) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	attempt := &model.Attempt{
		ID:        uuid.New(),
		Status:    model.AttemptStatusStarted,
		StartedAt: now.Add(-20 * time.Minute),
		ExpiresAt: now.Add(40 * time.Minute),
	}
	single := choiceQuestion(model.QuestionTypeSingleChoice, model.GradingExact, 1, 1, 2)
	multi := choiceQuestion(model.QuestionTypeMultiChoice, model.GradingPartial, 2, 2, 2)
	open := model.Question{
		ID:        uuid.New(),
		Type:      model.QuestionTypeOpen,
		MinLength: 10,
		MaxLength: 100,
	}
	return attempt, []model.Question{single, multi, open}, now
}

func hasReason(reasons []string, fragment string) bool {
	for _, r := range reasons {
		if strings.Contains(r, fragment) {
			return true
		}
	}
	return false
}

func TestValidateSubmissionAccepts(t *testing.T) {
	attempt, questions, now := validatorFixture()
	responses := []model.SubmittedResponse{
		{QuestionID: questions[0].ID, SelectedOptionIDs: pickOptions(questions[0], 1, 0)},
		{QuestionID: questions[1].ID, SelectedOptionIDs: pickOptions(questions[1], 2, 0)},
		{QuestionID: questions[2].ID, AnswerText: "a sufficiently long answer"},
	}

	if reasons := ValidateSubmission(attempt, responses, questions, now, 30*time.Second); len(reasons) != 0 {
		t.Errorf("expected clean submission, got %v", reasons)
	}
}

func TestValidateSubmissionPartialAnswersAllowed(t *testing.T) {
	attempt, questions, now := validatorFixture()
	// Answering only some questions is fine; unanswered ones just score zero.
	responses := []model.SubmittedResponse{
		{QuestionID: questions[0].ID, SelectedOptionIDs: pickOptions(questions[0], 1, 0)},
	}
	if reasons := ValidateSubmission(attempt, responses, questions, now, 0); len(reasons) != 0 {
		t.Errorf("expected partial submission to pass, got %v", reasons)
	}
}

func TestValidateSubmissionRejections(t *testing.T) {
	attempt, questions, now := validatorFixture()
	single, multi, open := questions[0], questions[1], questions[2]
	foreignOption := []uuid.UUID{uuid.New()}

	tests := []struct {
		name      string
		responses []model.SubmittedResponse
		fragment  string
	}{
		{
			"foreign question",
			[]model.SubmittedResponse{{QuestionID: uuid.New()}},
			"does not belong to this exam",
		},
		{
			"duplicate response",
			[]model.SubmittedResponse{
				{QuestionID: single.ID, SelectedOptionIDs: pickOptions(single, 1, 0)},
				{QuestionID: single.ID, SelectedOptionIDs: pickOptions(single, 1, 0)},
			},
			"duplicate response",
		},
		{
			"single choice with two picks",
			[]model.SubmittedResponse{{QuestionID: single.ID, SelectedOptionIDs: pickOptions(single, 1, 1)}},
			"exactly one option",
		},
		{
			"single choice with text",
			[]model.SubmittedResponse{{QuestionID: single.ID, SelectedOptionIDs: pickOptions(single, 1, 0), AnswerText: "hi"}},
			"free text not allowed",
		},
		{
			"multi choice with no picks",
			[]model.SubmittedResponse{{QuestionID: multi.ID}},
			"at least one option",
		},
		{
			"foreign option id",
			[]model.SubmittedResponse{{QuestionID: single.ID, SelectedOptionIDs: foreignOption}},
			"does not belong to it",
		},
		{
			"option selected twice",
			[]model.SubmittedResponse{{QuestionID: multi.ID, SelectedOptionIDs: append(pickOptions(multi, 1, 0), pickOptions(multi, 1, 0)...)}},
			"selected twice",
		},
		{
			"open question too short",
			[]model.SubmittedResponse{{QuestionID: open.ID, AnswerText: "short"}},
			"shorter than",
		},
		{
			"open question too long",
			[]model.SubmittedResponse{{QuestionID: open.ID, AnswerText: strings.Repeat("x", 200)}},
			"longer than",
		},
		{
			"open question with options",
			[]model.SubmittedResponse{{QuestionID: open.ID, AnswerText: "a sufficiently long answer", SelectedOptionIDs: foreignOption}},
			"option selection not allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reasons := ValidateSubmission(attempt, tt.responses, questions, now, 0)
			if !hasReason(reasons, tt.fragment) {
				t.Errorf("want reason containing %q, got %v", tt.fragment, reasons)
			}
		})
	}
}

func TestValidateSubmissionLate(t *testing.T) {
	attempt, questions, _ := validatorFixture()
	grace := 30 * time.Second

	within := attempt.ExpiresAt.Add(grace)
	if reasons := ValidateSubmission(attempt, nil, questions, within, grace); hasReason(reasons, "late submission") {
		t.Errorf("submission at expiry+grace should be accepted, got %v", reasons)
	}

	past := attempt.ExpiresAt.Add(grace + time.Second)
	if reasons := ValidateSubmission(attempt, nil, questions, past, grace); !hasReason(reasons, "late submission") {
		t.Errorf("submission past grace should be rejected, got %v", reasons)
	}
}

func TestValidateSubmissionCompletedAttempt(t *testing.T) {
	attempt, questions, now := validatorFixture()
	attempt.Status = model.AttemptStatusCompleted

	if reasons := ValidateSubmission(attempt, nil, questions, now, 0); !hasReason(reasons, "not in STARTED state") {
		t.Errorf("completed attempt should be rejected, got %v", reasons)
	}
}

func TestValidateSubmissionCollectsAllViolations(t *testing.T) {
	attempt, questions, now := validatorFixture()
	responses := []model.SubmittedResponse{
		{QuestionID: uuid.New()},
		{QuestionID: questions[2].ID, AnswerText: "short"},
	}

	reasons := ValidateSubmission(attempt, responses, questions, now, 0)
	if len(reasons) < 2 {
		t.Errorf("expected every violation reported, got %v", reasons)
	}
}
