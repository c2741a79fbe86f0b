package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studyrail/attempt-backend/internal/model"
)

// ResponseRepository persists submitted answers. Responses are written once
// per attempt and never updated.
type ResponseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository creates a new ResponseRepository.
func NewResponseRepository(pool *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{pool: pool}
}

// CreateForAttempt bulk-inserts all responses of one submission. It returns
// false when the attempt already has a response for one of the questions:
// COPY is a single statement, so the unique-index violation from a racing
// duplicate submit rejects the whole batch without partial rows.
func (r *ResponseRepository) CreateForAttempt(ctx context.Context, attemptID uuid.UUID, responses []model.Response) (bool, error) {
	if len(responses) == 0 {
		return true, nil
	}
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"responses"},
		[]string{"id", "attempt_id", "question_id", "selected_option_ids", "answer_text", "answered_at"},
		pgx.CopyFromSlice(len(responses), func(i int) ([]interface{}, error) {
			resp := responses[i]
			return []interface{}{
				resp.ID, attemptID, resp.QuestionID,
				resp.SelectedOptionIDs, resp.AnswerText, resp.AnsweredAt,
			}, nil
		}),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ListByAttempt retrieves all responses of an attempt in answer order.
func (r *ResponseRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Response, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, question_id, selected_option_ids, answer_text, answered_at
		 FROM responses
		 WHERE attempt_id = $1
		 ORDER BY answered_at ASC`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []model.Response
	for rows.Next() {
		var resp model.Response
		if err := rows.Scan(
			&resp.ID, &resp.AttemptID, &resp.QuestionID,
			&resp.SelectedOptionIDs, &resp.AnswerText, &resp.AnsweredAt,
		); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}
