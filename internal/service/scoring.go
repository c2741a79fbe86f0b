package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/studyrail/attempt-backend/internal/model"
)

// SemanticGrader grades a free-text answer against a question, returning the
// credit fraction in [0, 1]. Implementations live outside this service; the
// engine only aggregates their output.
type SemanticGrader interface {
	Grade(ctx context.Context, question *model.Question, answer string) (float64, error)
}

// QuestionResult is the per-question outcome of a scoring pass.
type QuestionResult struct {
	QuestionID uuid.UUID `json:"question_id"`
	Points     float64   `json:"points"`
	Earned     float64   `json:"earned"`
	Correct    bool      `json:"correct"`
	Answered   bool      `json:"answered"`
}

// ScoreSummary is the authoritative result of scoring one attempt.
type ScoreSummary struct {
	Score      float64          `json:"score"`
	MaxScore   float64          `json:"max_score"`
	Percentage int              `json:"percentage"`
	Passed     bool             `json:"passed"`
	Questions  []QuestionResult `json:"questions"`
}

// ScoringEngine recomputes scores from raw responses and the answer key held
// in the question data. It never reads any correctness claim from the client;
// scoring the same (responses, questions) pair twice yields the same result.
type ScoringEngine struct {
	grader SemanticGrader // nil disables delegated grading
}

// NewScoringEngine creates a ScoringEngine. grader may be nil, in which case
// delegated questions earn no credit.
func NewScoringEngine(grader SemanticGrader) *ScoringEngine {
	return &ScoringEngine{grader: grader}
}

// Score grades responses against questions. passingScore is the exam's
// percentage threshold. Responses for unknown questions must have been
// rejected by the validator beforehand; encountering one here is a defect and
// returns an error.
func (e *ScoringEngine) Score(ctx context.Context, responses []model.Response, questions []model.Question, passingScore int) (*ScoreSummary, error) {
	byQuestion := make(map[uuid.UUID]*model.Response, len(responses))
	for i := range responses {
		byQuestion[responses[i].QuestionID] = &responses[i]
	}

	summary := &ScoreSummary{Questions: make([]QuestionResult, 0, len(questions))}

	for i := range questions {
		q := &questions[i]
		points := q.EffectivePoints()
		summary.MaxScore += points

		result := QuestionResult{QuestionID: q.ID, Points: points}

		if resp, ok := byQuestion[q.ID]; ok {
			result.Answered = true
			frac, err := e.gradeOne(ctx, q, resp)
			if err != nil {
				return nil, fmt.Errorf("grade question %s: %w", q.ID, err)
			}
			result.Earned = frac * points
			result.Correct = frac >= 1
		}

		summary.Score += result.Earned
		summary.Questions = append(summary.Questions, result)
	}

	if summary.MaxScore > 0 {
		summary.Percentage = int(math.Round(summary.Score / summary.MaxScore * 100))
	}
	summary.Passed = summary.Percentage >= passingScore

	return summary, nil
}

// gradeOne returns the credit fraction for a single response.
func (e *ScoringEngine) gradeOne(ctx context.Context, q *model.Question, resp *model.Response) (float64, error) {
	switch q.Type {
	case model.QuestionTypeSingleChoice:
		return gradeExact(q, resp.SelectedOptionIDs), nil

	case model.QuestionTypeMultiChoice:
		if q.GradingMode == model.GradingExact {
			return gradeExact(q, resp.SelectedOptionIDs), nil
		}
		return gradePartial(q, resp.SelectedOptionIDs), nil

	case model.QuestionTypeOpen:
		switch q.GradingMode {
		case model.GradingDelegated:
			if e.grader == nil {
				return 0, nil
			}
			frac, err := e.grader.Grade(ctx, q, resp.AnswerText)
			if err != nil {
				return 0, fmt.Errorf("semantic grader: %w", err)
			}
			return clampFraction(frac), nil
		default:
			return gradeKeywords(q, resp.AnswerText), nil
		}

	default:
		return 0, fmt.Errorf("unknown question type %q", q.Type)
	}
}

// gradeExact awards full credit only when the selection equals the answer key.
func gradeExact(q *model.Question, selected []uuid.UUID) float64 {
	key := q.CorrectOptionIDs()
	if len(selected) != len(key) {
		return 0
	}
	for _, id := range selected {
		if !key[id] {
			return 0
		}
	}
	return 1
}

// gradePartial awards (correct picks − wrong picks) / |key|, floored at zero.
func gradePartial(q *model.Question, selected []uuid.UUID) float64 {
	key := q.CorrectOptionIDs()
	if len(key) == 0 {
		return 0
	}
	correct, wrong := 0, 0
	for _, id := range selected {
		if key[id] {
			correct++
		} else {
			wrong++
		}
	}
	frac := float64(correct-wrong) / float64(len(key))
	if frac < 0 {
		return 0
	}
	return frac
}

// gradeKeywords awards the matched fraction of the question's keyword list.
// Matching is case-insensitive substring containment.
func gradeKeywords(q *model.Question, answer string) float64 {
	if len(q.Keywords) == 0 {
		return 0
	}
	haystack := strings.ToLower(answer)
	matched := 0
	for _, kw := range q.Keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(kw)) {
			matched++
		}
	}
	return float64(matched) / float64(len(q.Keywords))
}

func clampFraction(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
