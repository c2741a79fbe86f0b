package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/studyrail/attempt-backend/internal/model"
)

// ExamProvider is the read-only exam/question collaborator. GetExam returns
// nil without error when the exam does not exist.
type ExamProvider interface {
	GetExam(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	GetQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
}

// AttemptStore is the persistence contract for attempts. Lookups return nil
// without error when no row matches. CreateStarted must be atomic with
// respect to concurrent starts for the same (exam, user): it returns false
// instead of creating a second STARTED attempt. CompleteIfStarted must be a
// conditional update returning false when the attempt was not STARTED.
type AttemptStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	GetActive(ctx context.Context, examID uuid.UUID, userID int) (*model.Attempt, error)
	GetByResumeToken(ctx context.Context, token string) (*model.Attempt, error)
	CountCompleted(ctx context.Context, examID uuid.UUID, userID int) (int, error)
	LastCompleted(ctx context.Context, examID uuid.UUID, userID int) (*model.Attempt, error)
	CreateStarted(ctx context.Context, attempt *model.Attempt) (bool, error)
	CompleteIfStarted(ctx context.Context, id uuid.UUID, c model.AttemptCompletion) (bool, error)
}

// ResponseStore persists the raw answers owned by an attempt.
// CreateForAttempt returns false, without writing, when the attempt already
// has responses on record; a duplicate submit that races past the status
// check is detected there.
type ResponseStore interface {
	CreateForAttempt(ctx context.Context, attemptID uuid.UUID, responses []model.Response) (bool, error)
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Response, error)
}

// AttemptService owns the attempt state machine: admission, resume,
// submission, and result visibility.
type AttemptService struct {
	attempts  AttemptStore
	responses ResponseStore
	exams     ExamProvider
	lateCodes *LateCodeService
	scorer    *ScoringEngine
	feedback  FeedbackGenerator
	events    EventPublisher
	flags     FlagQueue
	grace     time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewAttemptService creates a new AttemptService. feedback, events, and flags
// may be nil; the corresponding steps are skipped.
func NewAttemptService(
	attempts AttemptStore,
	responses ResponseStore,
	exams ExamProvider,
	lateCodes *LateCodeService,
	scorer *ScoringEngine,
	feedback FeedbackGenerator,
	events EventPublisher,
	flags FlagQueue,
	grace time.Duration,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:  attempts,
		responses: responses,
		exams:     exams,
		lateCodes: lateCodes,
		scorer:    scorer,
		feedback:  feedback,
		events:    events,
		flags:     flags,
		grace:     grace,
		log:       log.With().Str("component", "attempt_service").Logger(),
		now:       time.Now,
	}
}

// StartResult is the outcome of admission: either a freshly created attempt
// or, idempotently, the caller's still-running one.
type StartResult struct {
	Attempt *model.Attempt   `json:"attempt"`
	Config  model.ExamConfig `json:"config"`
	Resumed bool             `json:"resumed"`
}

// StartAttempt runs admission control and creates (or resumes) an attempt.
// Preconditions are checked in order; the first failure wins. lateCode is
// consumed only when the normal window has closed and all other checks pass.
func (s *AttemptService) StartAttempt(ctx context.Context, examID uuid.UUID, userID int, lateCode string) (*StartResult, error) {
	now := s.now()

	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}
	if exam.Status != model.ExamStatusPublished {
		return nil, ErrExamNotAvailable
	}
	if now.Before(exam.StartTime) {
		return nil, ErrExamNotStarted
	}
	if now.After(exam.LateWindowEnd()) {
		return nil, ErrExamEnded
	}

	// Past the normal window: admission continues only on a late code.
	late := now.After(exam.EndTime)
	if late {
		if lateCode == "" {
			return nil, ErrLateCodeRequired
		}
		// Pre-check only; the usage is consumed after the remaining
		// admission checks so a rejected start does not burn it.
		if _, err := s.lateCodes.Check(ctx, examID, userID, lateCode); err != nil {
			return nil, err
		}
	}

	// Resume path: a live STARTED attempt is returned idempotently instead
	// of creating a duplicate. An expired one is finalized before the quota
	// and cooldown checks below, so an abandoned attempt counts as completed
	// at admission and starts its own cooldown.
	active, err := s.attempts.GetActive(ctx, examID, userID)
	if err != nil {
		return nil, fmt.Errorf("get active attempt: %w", err)
	}
	if active != nil {
		if !active.Expired(now) {
			return &StartResult{Attempt: active, Config: exam.Config, Resumed: true}, nil
		}
		if err := s.finalizeExpired(ctx, active, exam); err != nil {
			return nil, err
		}
	}

	completed, err := s.attempts.CountCompleted(ctx, examID, userID)
	if err != nil {
		return nil, fmt.Errorf("count completed attempts: %w", err)
	}
	if exam.Config.MaxAttempts > 0 && completed >= exam.Config.MaxAttempts {
		return nil, ErrMaxAttemptsReached
	}

	if exam.Config.CooldownMinutes > 0 {
		last, err := s.attempts.LastCompleted(ctx, examID, userID)
		if err != nil {
			return nil, fmt.Errorf("get last completed attempt: %w", err)
		}
		if last != nil && last.SubmittedAt != nil {
			retryAt := last.SubmittedAt.Add(time.Duration(exam.Config.CooldownMinutes) * time.Minute)
			if now.Before(retryAt) {
				return nil, &MustWaitError{RetryAt: retryAt}
			}
		}
	}

	if late {
		if _, err := s.lateCodes.Redeem(ctx, examID, userID, lateCode); err != nil {
			return nil, err
		}
	}

	token, err := NewResumeToken()
	if err != nil {
		return nil, err
	}

	attempt := &model.Attempt{
		ExamID:      examID,
		UserID:      userID,
		Status:      model.AttemptStatusStarted,
		StartedAt:   now,
		ExpiresAt:   now.Add(exam.Duration()),
		ResumeToken: token,
	}

	created, err := s.attempts.CreateStarted(ctx, attempt)
	if err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}
	if !created {
		// Concurrent start won the unique-index race; hand back its attempt.
		existing, err := s.attempts.GetActive(ctx, examID, userID)
		if err != nil {
			return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("concurrent start detected, but no active attempt found")
		}
		return &StartResult{Attempt: existing, Config: exam.Config, Resumed: true}, nil
	}

	return &StartResult{Attempt: attempt, Config: exam.Config, Resumed: false}, nil
}

// finalizeExpired completes an abandoned attempt from whatever responses were
// persisted for it (usually none), so the score stays re-derivable.
func (s *AttemptService) finalizeExpired(ctx context.Context, attempt *model.Attempt, exam *model.Exam) error {
	questions, err := s.exams.GetQuestions(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("get questions: %w", err)
	}
	responses, err := s.responses.ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return fmt.Errorf("list responses: %w", err)
	}
	summary, err := s.scorer.Score(ctx, responses, questions, exam.Config.PassingScore)
	if err != nil {
		return fmt.Errorf("score expired attempt: %w", err)
	}
	if _, err := s.attempts.CompleteIfStarted(ctx, attempt.ID, model.AttemptCompletion{
		SubmittedAt:    attempt.ExpiresAt,
		Score:          summary.Score,
		MaxScore:       summary.MaxScore,
		Percentage:     summary.Percentage,
		Passed:         summary.Passed,
		TabSwitchCount: attempt.TabSwitchCount,
	}); err != nil {
		return fmt.Errorf("finalize expired attempt: %w", err)
	}
	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Int("user_id", attempt.UserID).
		Msg("Finalized expired attempt")
	return nil
}

// ResumeResult is what a token holder gets back: the attempt plus the student
// projection of the paper.
type ResumeResult struct {
	Attempt   *model.Attempt             `json:"attempt"`
	ExamTitle string                     `json:"exam_title"`
	Questions []model.QuestionForStudent `json:"questions"`
	// ReadOnly is set when the attempt can be viewed but no longer submitted.
	ReadOnly bool `json:"read_only"`
}

// Resume looks up an attempt by its resume token. The token is bearer-level
// access for the intended holder but is always cross-checked against the
// authenticated identity: it must not let one account hijack another's
// attempt.
func (s *AttemptService) Resume(ctx context.Context, token string, callerUserID int) (*ResumeResult, error) {
	attempt, err := s.attempts.GetByResumeToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("get attempt by token: %w", err)
	}
	if attempt == nil {
		return nil, ErrAttemptNotFound
	}
	if attempt.UserID != callerUserID {
		return nil, ErrWrongUser
	}

	exam, err := s.exams.GetExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}
	questions, err := s.exams.GetQuestions(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}

	paper := make([]model.QuestionForStudent, 0, len(questions))
	for i := range questions {
		paper = append(paper, questions[i].ForStudent())
	}

	return &ResumeResult{
		Attempt:   attempt,
		ExamTitle: exam.Title,
		Questions: paper,
		ReadOnly:  attempt.Status == model.AttemptStatusCompleted || attempt.Expired(s.now()),
	}, nil
}

// SubmitResult is the outcome of a completed submission.
type SubmitResult struct {
	AttemptID  uuid.UUID `json:"attempt_id"`
	Score      float64   `json:"score"`
	MaxScore   float64   `json:"max_score"`
	Percentage int       `json:"percentage"`
	Passed     bool      `json:"passed"`
	Feedback   string    `json:"feedback,omitempty"`
}

// Submit validates, scores, and completes an attempt. The STARTED→COMPLETED
// transition is atomic and exactly-once: a retried submit lands on the
// AlreadyCompleted guard instead of re-scoring. Anti-cheat detection and
// event publication run after the transition and never fail it.
func (s *AttemptService) Submit(ctx context.Context, attemptID uuid.UUID, callerUserID int, req *model.SubmitAttemptRequest) (*SubmitResult, error) {
	now := s.now()

	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt == nil || attempt.UserID != callerUserID {
		return nil, ErrInvalidAttempt
	}
	if attempt.Status == model.AttemptStatusCompleted {
		return nil, ErrAlreadyCompleted
	}

	exam, err := s.exams.GetExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}
	questions, err := s.exams.GetQuestions(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}

	if reasons := ValidateSubmission(attempt, req.Responses, questions, now, s.grace); len(reasons) > 0 {
		return nil, &SubmissionError{Reasons: reasons}
	}

	responses := make([]model.Response, 0, len(req.Responses))
	for _, r := range req.Responses {
		answeredAt := r.AnsweredAt
		if answeredAt.IsZero() {
			answeredAt = now
		}
		responses = append(responses, model.Response{
			ID:                uuid.New(),
			AttemptID:         attempt.ID,
			QuestionID:        r.QuestionID,
			SelectedOptionIDs: r.SelectedOptionIDs,
			AnswerText:        r.AnswerText,
			AnsweredAt:        answeredAt,
		})
	}
	persisted, err := s.responses.CreateForAttempt(ctx, attempt.ID, responses)
	if err != nil {
		return nil, fmt.Errorf("persist responses: %w", err)
	}
	if !persisted {
		// A concurrent submit already wrote this attempt's responses.
		return nil, ErrAlreadyCompleted
	}

	summary, err := s.scorer.Score(ctx, responses, questions, exam.Config.PassingScore)
	if err != nil {
		// Scoring a validated submission must not fail; this is a defect.
		return nil, fmt.Errorf("score attempt %s: %w", attempt.ID, err)
	}

	completed, err := s.attempts.CompleteIfStarted(ctx, attempt.ID, model.AttemptCompletion{
		SubmittedAt:    now,
		Score:          summary.Score,
		MaxScore:       summary.MaxScore,
		Percentage:     summary.Percentage,
		Passed:         summary.Passed,
		TabSwitchCount: req.TabSwitchCount,
	})
	if err != nil {
		return nil, fmt.Errorf("complete attempt: %w", err)
	}
	if !completed {
		// Lost a duplicate-submit race after the earlier status check.
		return nil, ErrAlreadyCompleted
	}

	attempt.Status = model.AttemptStatusCompleted
	attempt.SubmittedAt = &now
	attempt.TabSwitchCount = req.TabSwitchCount

	s.runAntiCheat(ctx, attempt, exam, responses, len(questions))

	if s.events != nil {
		s.events.Publish(ctx, Event{
			Type:      EventAttemptCompleted,
			ExamID:    exam.ID.String(),
			UserID:    attempt.UserID,
			AttemptID: attempt.ID.String(),
			Payload: map[string]any{
				"percentage": summary.Percentage,
				"passed":     summary.Passed,
			},
		})
	}

	result := &SubmitResult{
		AttemptID:  attempt.ID,
		Score:      summary.Score,
		MaxScore:   summary.MaxScore,
		Percentage: summary.Percentage,
		Passed:     summary.Passed,
	}

	if exam.Config.EnableImmediateFeedback && s.feedback != nil {
		fb, err := s.feedback.GenerateExamFeedback(ctx, exam, summary)
		if err != nil {
			// Feedback failure never rolls back the completed attempt.
			s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Feedback generation failed")
		} else {
			result.Feedback = fb
		}
	}

	return result, nil
}

// runAntiCheat executes detection isolated from the submit path: any error or
// panic is logged and swallowed.
func (s *AttemptService) runAntiCheat(ctx context.Context, attempt *model.Attempt, exam *model.Exam, responses []model.Response, questionCount int) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("attempt_id", attempt.ID.String()).Msg("Anti-cheat detector panicked")
		}
	}()

	verdict := DetectSuspicion(attempt, responses, questionCount, model.ParseCheatRules(exam.CheatRules))
	if !verdict.Suspicious {
		return
	}

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Strs("reasons", verdict.Reasons).
		Msg("Suspicious activity detected")

	if s.flags != nil {
		if err := s.flags.Enqueue(ctx, FlagAnnotation{
			AttemptID:  attempt.ID.String(),
			Suspicious: true,
			Reasons:    verdict.Reasons,
		}); err != nil {
			s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Enqueue flag annotation failed")
		}
	}
	if s.events != nil {
		s.events.Publish(ctx, Event{
			Type:      EventAttemptFlagged,
			ExamID:    exam.ID.String(),
			UserID:    attempt.UserID,
			AttemptID: attempt.ID.String(),
			Payload:   map[string]any{"reasons": verdict.Reasons},
		})
	}
}

// AttemptResult is a completed attempt's score sheet, re-derived from the
// persisted responses on every read.
type AttemptResult struct {
	Attempt *model.Attempt `json:"attempt"`
	Summary *ScoreSummary  `json:"summary"`
}

// Result returns a completed attempt's score once the visibility gate is
// open. The gate is recomputed on every call; results unlock as time passes.
func (s *AttemptService) Result(ctx context.Context, attemptID uuid.UUID, callerUserID int) (*AttemptResult, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt == nil || attempt.UserID != callerUserID {
		return nil, ErrInvalidAttempt
	}
	if attempt.Status != model.AttemptStatusCompleted {
		return nil, ErrAttemptNotCompleted
	}

	exam, err := s.exams.GetExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam == nil {
		return nil, ErrExamNotFound
	}

	now := s.now()
	if ResultsLocked(exam, now) {
		return nil, &ResultsLockedError{UnlocksAt: ResultsUnlockAt(exam)}
	}

	questions, err := s.exams.GetQuestions(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}
	responses, err := s.responses.ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}

	summary, err := s.scorer.Score(ctx, responses, questions, exam.Config.PassingScore)
	if err != nil {
		return nil, fmt.Errorf("rescore attempt %s: %w", attempt.ID, err)
	}

	attempt.ResumeToken = "" // not needed once completed
	return &AttemptResult{Attempt: attempt, Summary: summary}, nil
}
