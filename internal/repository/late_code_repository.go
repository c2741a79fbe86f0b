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

const lateCodeColumns = `id, exam_id, code, assigned_user_id, usages_remaining,
	expires_at, is_active, created_by, created_at`

// LateCodeRepository handles late-access code data access.
type LateCodeRepository struct {
	pool *pgxpool.Pool
}

// NewLateCodeRepository creates a new LateCodeRepository.
func NewLateCodeRepository(pool *pgxpool.Pool) *LateCodeRepository {
	return &LateCodeRepository{pool: pool}
}

func scanLateCode(row pgx.Row) (*model.LateCode, error) {
	c := &model.LateCode{}
	err := row.Scan(
		&c.ID, &c.ExamID, &c.Code, &c.AssignedUserID, &c.UsagesRemaining,
		&c.ExpiresAt, &c.IsActive, &c.CreatedBy, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// GetByID retrieves a late code. Returns nil when absent.
func (r *LateCodeRepository) GetByID(ctx context.Context, codeID uuid.UUID) (*model.LateCode, error) {
	return scanLateCode(r.pool.QueryRow(ctx,
		`SELECT `+lateCodeColumns+` FROM late_codes WHERE id = $1`, codeID))
}

// GetByExamAndCode retrieves a late code by its normalized code string.
func (r *LateCodeRepository) GetByExamAndCode(ctx context.Context, examID uuid.UUID, code string) (*model.LateCode, error) {
	return scanLateCode(r.pool.QueryRow(ctx,
		`SELECT `+lateCodeColumns+` FROM late_codes
		 WHERE exam_id = $1 AND code = $2`, examID, code))
}

// Consume records a usage and decrements the remaining counter in one
// transaction. The primary key on late_code_usages rejects a second use by
// the same user; the guarded decrement makes the last remaining usage go to
// exactly one of two racing callers.
func (r *LateCodeRepository) Consume(ctx context.Context, codeID uuid.UUID, userID int) (consumed bool, alreadyUsed bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, false, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO late_code_usages (late_code_id, user_id) VALUES ($1, $2)`,
		codeID, userID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, true, nil
		}
		return false, false, err
	}

	tag, err := tx.Exec(ctx,
		`UPDATE late_codes
		 SET usages_remaining = usages_remaining - 1
		 WHERE id = $1 AND usages_remaining > 0`,
		codeID,
	)
	if err != nil {
		return false, false, err
	}
	if tag.RowsAffected() == 0 {
		// No usages left; the rollback also discards the usage row.
		return false, false, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return false, false, err
	}
	return true, false, nil
}

// Create inserts a new late code.
func (r *LateCodeRepository) Create(ctx context.Context, c *model.LateCode) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO late_codes (exam_id, code, assigned_user_id, usages_remaining, expires_at, is_active, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		c.ExamID, c.Code, c.AssignedUserID, c.UsagesRemaining, c.ExpiresAt, c.IsActive, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt)
}

// ListByExam retrieves all late codes of an exam, newest first.
func (r *LateCodeRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.LateCode, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+lateCodeColumns+` FROM late_codes
		 WHERE exam_id = $1
		 ORDER BY created_at DESC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []model.LateCode
	for rows.Next() {
		var c model.LateCode
		if err := rows.Scan(
			&c.ID, &c.ExamID, &c.Code, &c.AssignedUserID, &c.UsagesRemaining,
			&c.ExpiresAt, &c.IsActive, &c.CreatedBy, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

// Deactivate turns a code off. Returns false when the code does not exist.
func (r *LateCodeRepository) Deactivate(ctx context.Context, codeID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE late_codes SET is_active = FALSE WHERE id = $1`, codeID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
