package service

import (
	"context"
	"fmt"

	"github.com/studyrail/attempt-backend/internal/model"
)

// FeedbackGenerator is the external collaborator producing post-exam feedback
// text. It is invoked only after scoring; a failure here never rolls back the
// completed attempt.
type FeedbackGenerator interface {
	GenerateExamFeedback(ctx context.Context, exam *model.Exam, summary *ScoreSummary) (string, error)
}

// SummaryFeedback is the built-in generator: a plain score recap. Richer
// generation (semantic, per-question prose) is delegated to an external
// implementation of FeedbackGenerator.
type SummaryFeedback struct{}

func NewSummaryFeedback() *SummaryFeedback {
	return &SummaryFeedback{}
}

func (SummaryFeedback) GenerateExamFeedback(_ context.Context, exam *model.Exam, summary *ScoreSummary) (string, error) {
	correct := 0
	for _, q := range summary.Questions {
		if q.Correct {
			correct++
		}
	}
	outcome := "did not reach"
	if summary.Passed {
		outcome = "reached"
	}
	return fmt.Sprintf(
		"You scored %.1f of %.1f points (%d%%) on %q, answering %d of %d questions correctly. You %s the passing score of %d%%.",
		summary.Score, summary.MaxScore, summary.Percentage, exam.Title,
		correct, len(summary.Questions), outcome, exam.Config.PassingScore,
	), nil
}
