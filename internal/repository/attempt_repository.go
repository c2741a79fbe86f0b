package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studyrail/attempt-backend/internal/model"
)

const attemptColumns = `id, exam_id, user_id, status, started_at, expires_at, submitted_at,
	resume_token, score, max_score, percentage, passed, tab_switch_count,
	suspicious_activity_detected, suspicion_reasons`

// AttemptRepository handles attempt data access. The single-active-attempt
// invariant is enforced by the partial unique index ux_attempts_active on
// (exam_id, user_id) WHERE status = 'STARTED'.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(
		&a.ID, &a.ExamID, &a.UserID, &a.Status, &a.StartedAt, &a.ExpiresAt, &a.SubmittedAt,
		&a.ResumeToken, &a.Score, &a.MaxScore, &a.Percentage, &a.Passed, &a.TabSwitchCount,
		&a.SuspiciousActivityDetected, &a.SuspicionReasons,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an attempt. Returns nil when absent.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
}

// GetActive retrieves the STARTED attempt for (exam, user), if any.
func (r *AttemptRepository) GetActive(ctx context.Context, examID uuid.UUID, userID int) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE exam_id = $1 AND user_id = $2 AND status = $3`,
		examID, userID, model.AttemptStatusStarted))
}

// GetByResumeToken retrieves an attempt by its opaque resume token.
func (r *AttemptRepository) GetByResumeToken(ctx context.Context, token string) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE resume_token = $1`, token))
}

// CountCompleted counts a user's COMPLETED attempts on an exam.
func (r *AttemptRepository) CountCompleted(ctx context.Context, examID uuid.UUID, userID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts
		 WHERE exam_id = $1 AND user_id = $2 AND status = $3`,
		examID, userID, model.AttemptStatusCompleted,
	).Scan(&n)
	return n, err
}

// LastCompleted retrieves the user's most recently submitted attempt, if any.
func (r *AttemptRepository) LastCompleted(ctx context.Context, examID uuid.UUID, userID int) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE exam_id = $1 AND user_id = $2 AND status = $3
		 ORDER BY submitted_at DESC
		 LIMIT 1`,
		examID, userID, model.AttemptStatusCompleted))
}

// CreateStarted inserts a STARTED attempt. Returns false when a concurrent
// start already holds the active slot for this (exam, user) — the unique
// index turns the race into a no-op instead of a duplicate.
func (r *AttemptRepository) CreateStarted(ctx context.Context, a *model.Attempt) (bool, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO attempts (exam_id, user_id, status, started_at, expires_at, resume_token)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (exam_id, user_id) WHERE status = 'STARTED' DO NOTHING
		 RETURNING id`,
		a.ExamID, a.UserID, model.AttemptStatusStarted, a.StartedAt, a.ExpiresAt, a.ResumeToken,
	).Scan(&a.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CompleteIfStarted performs the atomic STARTED→COMPLETED transition. Returns
// false when the attempt was not in STARTED state (duplicate submit).
func (r *AttemptRepository) CompleteIfStarted(ctx context.Context, id uuid.UUID, c model.AttemptCompletion) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, submitted_at = $2, score = $3, max_score = $4,
		     percentage = $5, passed = $6, tab_switch_count = $7
		 WHERE id = $8 AND status = $9`,
		model.AttemptStatusCompleted, c.SubmittedAt, c.Score, c.MaxScore,
		c.Percentage, c.Passed, c.TabSwitchCount,
		id, model.AttemptStatusStarted,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// AnnotateSuspicion writes an anti-cheat verdict onto an attempt. This is the
// only mutation permitted on a COMPLETED attempt.
func (r *AttemptRepository) AnnotateSuspicion(ctx context.Context, id uuid.UUID, suspicious bool, reasons []string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET suspicious_activity_detected = $1, suspicion_reasons = $2
		 WHERE id = $3`,
		suspicious, reasons, id)
	return err
}
