package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studyrail/attempt-backend/internal/model"
)

// ExamRepository is the read-only exam/question provider. Exam authoring is
// owned by another service; this one only consumes config and answer keys.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetExam retrieves an exam with its config. Returns nil when absent.
func (r *ExamRepository) GetExam(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, owner_id, status, start_time, end_time, duration_minutes,
		        max_attempts, cooldown_minutes, late_duration_minutes,
		        delay_results_until_late_end, passing_score, enable_immediate_feedback,
		        cheat_rules, created_at, updated_at
		 FROM exams
		 WHERE id = $1`, id,
	).Scan(
		&e.ID, &e.Title, &e.OwnerID, &e.Status, &e.StartTime, &e.EndTime, &e.DurationMinutes,
		&e.Config.MaxAttempts, &e.Config.CooldownMinutes, &e.Config.LateDurationMinutes,
		&e.Config.DelayResultsUntilLateEnd, &e.Config.PassingScore, &e.Config.EnableImmediateFeedback,
		&e.CheatRules, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// GetQuestions retrieves an exam's questions with their options (the answer
// key included — callers must strip it before sending anything to students).
func (r *ExamRepository) GetQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_text, question_type, grading_mode, points,
		        keywords, min_length, max_length, order_num
		 FROM questions
		 WHERE exam_id = $1
		 ORDER BY order_num ASC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(
			&q.ID, &q.ExamID, &q.Text, &q.Type, &q.GradingMode, &q.Points,
			&q.Keywords, &q.MinLength, &q.MaxLength, &q.OrderNum,
		); err != nil {
			return nil, err
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, nil
	}

	optRows, err := r.pool.Query(ctx,
		`SELECT o.id, o.question_id, o.option_text, o.is_correct
		 FROM question_options o
		 JOIN questions q ON o.question_id = q.id
		 WHERE q.exam_id = $1
		 ORDER BY o.order_num ASC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer optRows.Close()

	for optRows.Next() {
		var (
			o   model.Option
			qID uuid.UUID
		)
		if err := optRows.Scan(&o.ID, &qID, &o.Text, &o.IsCorrect); err != nil {
			return nil, err
		}
		if i, ok := index[qID]; ok {
			questions[i].Options = append(questions[i].Options, o)
		}
	}
	return questions, optRows.Err()
}
