package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/studyrail/attempt-backend/internal/model"
)

// LateCodeStore is the persistence contract for late-access grants. Consume
// must be atomic: it records the (code, user) usage and decrements the
// remaining counter in one transaction, so two concurrent validations against
// the last remaining use succeed for exactly one caller.
type LateCodeStore interface {
	GetByExamAndCode(ctx context.Context, examID uuid.UUID, code string) (*model.LateCode, error)
	// Consume returns consumed=false with alreadyUsed=true when this user has
	// used the code before, and consumed=false with alreadyUsed=false when no
	// usages remain.
	Consume(ctx context.Context, codeID uuid.UUID, userID int) (consumed bool, alreadyUsed bool, err error)
	Create(ctx context.Context, code *model.LateCode) error
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.LateCode, error)
	Deactivate(ctx context.Context, codeID uuid.UUID) (bool, error)
	GetByID(ctx context.Context, codeID uuid.UUID) (*model.LateCode, error)
}

// LateCodeGrant is what a successful validation returns.
type LateCodeGrant struct {
	ExpiresAt       time.Time `json:"expires_at"`
	UsagesRemaining int       `json:"usages_remaining"`
}

// LateCodeService validates, consumes, and administers late-access codes.
type LateCodeService struct {
	store  LateCodeStore
	exams  ExamProvider
	events EventPublisher
	log    zerolog.Logger
	now    func() time.Time
}

// NewLateCodeService creates a new LateCodeService. events may be nil.
func NewLateCodeService(store LateCodeStore, exams ExamProvider, events EventPublisher, log zerolog.Logger) *LateCodeService {
	return &LateCodeService{
		store:  store,
		exams:  exams,
		events: events,
		log:    log.With().Str("component", "late_code_service").Logger(),
		now:    time.Now,
	}
}

// Check validates a code against every rule except consumption. Used for
// preflight checks and as the first phase of Redeem.
func (s *LateCodeService) Check(ctx context.Context, examID uuid.UUID, userID int, rawCode string) (*model.LateCode, error) {
	code, err := s.store.GetByExamAndCode(ctx, examID, model.NormalizeLateCode(rawCode))
	if err != nil {
		return nil, fmt.Errorf("get late code: %w", err)
	}
	if code == nil {
		return nil, ErrLateCodeInvalid
	}
	if !code.IsActive {
		return nil, ErrLateCodeInactive
	}
	now := s.now()
	if !code.ExpiresAt.After(now) {
		return nil, ErrLateCodeExpired
	}
	if code.UsagesRemaining <= 0 {
		return nil, ErrLateCodeExhausted
	}
	if code.AssignedUserID != nil && *code.AssignedUserID != userID {
		return nil, ErrLateCodeAssigned
	}
	return code, nil
}

// Redeem validates and atomically consumes one usage of a code for a user.
// The decrement and the per-user replay check happen in one store
// transaction; the pre-checks only produce the specific rejection kind.
func (s *LateCodeService) Redeem(ctx context.Context, examID uuid.UUID, userID int, rawCode string) (*LateCodeGrant, error) {
	code, err := s.Check(ctx, examID, userID, rawCode)
	if err != nil {
		return nil, err
	}

	consumed, alreadyUsed, err := s.store.Consume(ctx, code.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("consume late code: %w", err)
	}
	if alreadyUsed {
		return nil, ErrLateCodeReplayed
	}
	if !consumed {
		// Lost the race for the last remaining usage.
		return nil, ErrLateCodeExhausted
	}

	if s.events != nil {
		s.events.Publish(ctx, Event{
			Type:   EventLateCodeUsed,
			ExamID: examID.String(),
			UserID: userID,
			Payload: map[string]any{
				"code":             code.Code,
				"usages_remaining": code.UsagesRemaining - 1,
			},
		})
	}

	return &LateCodeGrant{
		ExpiresAt:       code.ExpiresAt,
		UsagesRemaining: code.UsagesRemaining - 1,
	}, nil
}

// Create mints a late code for an exam. Only the exam owner may create codes.
func (s *LateCodeService) Create(ctx context.Context, examID uuid.UUID, ownerID int, req *model.CreateLateCodeRequest) (*model.LateCode, error) {
	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}
	if exam.OwnerID != ownerID {
		return nil, ErrWrongUser
	}
	if !req.ExpiresAt.After(s.now()) {
		return nil, ErrLateCodeExpired
	}

	code := &model.LateCode{
		ExamID:          examID,
		Code:            model.NormalizeLateCode(req.Code),
		AssignedUserID:  req.AssignedUserID,
		UsagesRemaining: req.UsagesRemaining,
		ExpiresAt:       req.ExpiresAt,
		IsActive:        true,
		CreatedBy:       ownerID,
	}
	if err := s.store.Create(ctx, code); err != nil {
		return nil, fmt.Errorf("create late code: %w", err)
	}
	return code, nil
}

// ListByExam returns an exam's late codes for its owner.
func (s *LateCodeService) ListByExam(ctx context.Context, examID uuid.UUID, ownerID int) ([]model.LateCode, error) {
	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}
	if exam.OwnerID != ownerID {
		return nil, ErrWrongUser
	}
	return s.store.ListByExam(ctx, examID)
}

// Deactivate turns a code off. Remaining usages become unusable immediately.
func (s *LateCodeService) Deactivate(ctx context.Context, codeID uuid.UUID, ownerID int) error {
	code, err := s.store.GetByID(ctx, codeID)
	if err != nil {
		return fmt.Errorf("get late code: %w", err)
	}
	if code == nil {
		return ErrLateCodeInvalid
	}
	exam, err := s.exams.GetExam(ctx, code.ExamID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}
	if exam == nil || exam.OwnerID != ownerID {
		return ErrWrongUser
	}
	ok, err := s.store.Deactivate(ctx, codeID)
	if err != nil {
		return fmt.Errorf("deactivate late code: %w", err)
	}
	if !ok {
		return ErrLateCodeInvalid
	}
	return nil
}
