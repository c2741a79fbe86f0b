package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/studyrail/attempt-backend/internal/model"
)

type attemptFixture struct {
	exams     *memExamProvider
	attempts  *memAttemptStore
	responses *memResponseStore
	lateCodes *memLateCodeStore
	events    *capturedEvents
	flags     *capturedFlags
	svc       *AttemptService
	lateSvc   *LateCodeService

	exam      *model.Exam
	questions []model.Question
	now       time.Time
}

func newAttemptFixture(t *testing.T) *attemptFixture {
	t.Helper()

	f := &attemptFixture{
		exams:     newMemExamProvider(),
		attempts:  newMemAttemptStore(),
		responses: newMemResponseStore(),
		lateCodes: newMemLateCodeStore(),
		events:    &capturedEvents{},
		flags:     &capturedFlags{},
		now:       time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC),
	}

	f.exam = &model.Exam{
		ID:              uuid.New(),
		Title:           "Biology Midterm",
		OwnerID:         7,
		Status:          model.ExamStatusPublished,
		StartTime:       time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		EndTime:         time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Config: model.ExamConfig{
			MaxAttempts:         2,
			CooldownMinutes:     10,
			LateDurationMinutes: 30,
			PassingScore:        50,
		},
	}
	q1 := choiceQuestion(model.QuestionTypeSingleChoice, model.GradingExact, 1, 1, 3)
	q2 := choiceQuestion(model.QuestionTypeSingleChoice, model.GradingExact, 1, 1, 3)
	f.questions = []model.Question{q1, q2}
	f.exams.exams[f.exam.ID] = f.exam
	f.exams.questions[f.exam.ID] = f.questions

	nop := zerolog.Nop()
	f.lateSvc = NewLateCodeService(f.lateCodes, f.exams, f.events, nop)
	f.lateSvc.now = func() time.Time { return f.now }

	f.svc = NewAttemptService(
		f.attempts, f.responses, f.exams, f.lateSvc,
		NewScoringEngine(nil), NewSummaryFeedback(),
		f.events, f.flags, 30*time.Second, nop,
	)
	f.svc.now = func() time.Time { return f.now }

	return f
}

func (f *attemptFixture) submission(correct int) *model.SubmitAttemptRequest {
	req := &model.SubmitAttemptRequest{}
	for i := range f.questions {
		q := f.questions[i]
		picks := pickOptions(q, 0, 1)
		if i < correct {
			picks = pickOptions(q, 1, 0)
		}
		req.Responses = append(req.Responses, model.SubmittedResponse{
			QuestionID:        q.ID,
			SelectedOptionIDs: picks,
			AnsweredAt:        f.now,
		})
	}
	return req
}

const userID = 42

func TestStartAttempt(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	result, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if result.Resumed {
		t.Error("fresh start reported as resumed")
	}
	a := result.Attempt
	if a.Status != model.AttemptStatusStarted {
		t.Errorf("status = %s, want STARTED", a.Status)
	}
	if !a.ExpiresAt.Equal(f.now.Add(time.Hour)) {
		t.Errorf("expires = %s, want start+duration", a.ExpiresAt)
	}
	if a.ResumeToken == "" {
		t.Error("missing resume token")
	}
}

func TestStartAttemptIdempotentResume(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	first, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	f.now = f.now.Add(10 * time.Minute)
	second, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	if err != nil {
		t.Fatalf("second StartAttempt: %v", err)
	}
	if !second.Resumed {
		t.Error("expected resumed result")
	}
	if second.Attempt.ID != first.Attempt.ID {
		t.Error("resume returned a different attempt")
	}
	if !second.Attempt.ExpiresAt.Equal(first.Attempt.ExpiresAt) {
		t.Error("resume must not extend the deadline")
	}
}

func TestStartAttemptAdmissionRejections(t *testing.T) {
	tests := []struct {
		name    string
		arrange func(f *attemptFixture)
		wantErr error
	}{
		{"unknown exam", func(f *attemptFixture) { f.exam.ID = uuid.New() }, ErrExamNotFound},
		{"draft exam", func(f *attemptFixture) {
			f.exams.exams[f.exam.ID].Status = model.ExamStatusDraft
		}, ErrExamNotAvailable},
		{"archived exam", func(f *attemptFixture) {
			f.exams.exams[f.exam.ID].Status = model.ExamStatusArchived
		}, ErrExamNotAvailable},
		{"before start", func(f *attemptFixture) {
			f.now = f.exam.StartTime.Add(-time.Minute)
		}, ErrExamNotStarted},
		{"after late window", func(f *attemptFixture) {
			f.now = f.exam.LateWindowEnd().Add(time.Minute)
		}, ErrExamEnded},
		{"late without code", func(f *attemptFixture) {
			f.now = f.exam.EndTime.Add(time.Minute)
		}, ErrLateCodeRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAttemptFixture(t)
			tt.arrange(f)
			_, err := f.svc.StartAttempt(context.Background(), f.exam.ID, userID, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStartAttemptMaxAttempts(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	for i := 0; i < f.exam.Config.MaxAttempts; i++ {
		result, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
		if err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		f.now = f.now.Add(5 * time.Minute)
		if _, err := f.svc.Submit(ctx, result.Attempt.ID, userID, f.submission(2)); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		f.now = f.now.Add(time.Duration(f.exam.Config.CooldownMinutes+1) * time.Minute)
	}

	if _, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, ""); !errors.Is(err, ErrMaxAttemptsReached) {
		t.Errorf("err = %v, want ErrMaxAttemptsReached", err)
	}
}

func TestStartAttemptCooldown(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	result, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	f.now = f.now.Add(5 * time.Minute)
	submittedAt := f.now
	if _, err := f.svc.Submit(ctx, result.Attempt.ID, userID, f.submission(2)); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	f.now = f.now.Add(time.Minute)
	_, err = f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	var mustWait *MustWaitError
	if !errors.As(err, &mustWait) {
		t.Fatalf("err = %v, want MustWaitError", err)
	}
	wantRetry := submittedAt.Add(time.Duration(f.exam.Config.CooldownMinutes) * time.Minute)
	if !mustWait.RetryAt.Equal(wantRetry) {
		t.Errorf("retry at %s, want %s", mustWait.RetryAt, wantRetry)
	}

	f.now = wantRetry
	if _, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, ""); err != nil {
		t.Errorf("start after cooldown: %v", err)
	}
}

func TestStartAttemptFinalizesExpiredActive(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	first, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	// Abandon the attempt past its deadline, then come back within the
	// exam window (cooldown elapsed).
	f.now = first.Attempt.ExpiresAt.Add(time.Duration(f.exam.Config.CooldownMinutes) * time.Minute)
	f.exams.exams[f.exam.ID].EndTime = f.now.Add(time.Hour)

	second, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if second.Resumed || second.Attempt.ID == first.Attempt.ID {
		t.Error("expired attempt should not be resumed")
	}

	old, err := f.attempts.GetByID(ctx, first.Attempt.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if old.Status != model.AttemptStatusCompleted {
		t.Errorf("expired attempt status = %s, want COMPLETED", old.Status)
	}
	if old.Score == nil || *old.Score != 0 {
		t.Error("abandoned attempt should score zero")
	}
}

func TestStartAttemptExpiredCountsTowardQuota(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()
	f.exam.Config.MaxAttempts = 1

	first, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	// Abandon the only attempt past its deadline, wait out the cooldown, and
	// try again: the finalized attempt must have spent the quota.
	f.now = first.Attempt.ExpiresAt.Add(time.Duration(f.exam.Config.CooldownMinutes) * time.Minute)

	if _, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, ""); !errors.Is(err, ErrMaxAttemptsReached) {
		t.Errorf("restart err = %v, want ErrMaxAttemptsReached", err)
	}

	// The refusal must still have finalized the abandoned attempt.
	old, err := f.attempts.GetByID(ctx, first.Attempt.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if old.Status != model.AttemptStatusCompleted {
		t.Errorf("expired attempt status = %s, want COMPLETED", old.Status)
	}
}

func TestStartAttemptExpiredTriggersCooldown(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	first, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	// One minute after the abandoned attempt expired, the cooldown anchored
	// on its finalization instant is still running.
	f.now = first.Attempt.ExpiresAt.Add(time.Minute)
	_, err = f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	var mustWait *MustWaitError
	if !errors.As(err, &mustWait) {
		t.Fatalf("restart err = %v, want MustWaitError", err)
	}
	wantRetry := first.Attempt.ExpiresAt.Add(time.Duration(f.exam.Config.CooldownMinutes) * time.Minute)
	if !mustWait.RetryAt.Equal(wantRetry) {
		t.Errorf("retry at %s, want %s", mustWait.RetryAt, wantRetry)
	}

	f.now = wantRetry
	second, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	if err != nil {
		t.Fatalf("start after cooldown: %v", err)
	}
	if second.Resumed || second.Attempt.ID == first.Attempt.ID {
		t.Error("expected a fresh attempt after the cooldown")
	}
}

func TestStartAttemptConcurrentSlotRace(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	// A STARTED attempt created between the service's GetActive check and its
	// insert must surface as a resume, not a duplicate.
	winner := &model.Attempt{
		ExamID:      f.exam.ID,
		UserID:      userID,
		Status:      model.AttemptStatusStarted,
		StartedAt:   f.now,
		ExpiresAt:   f.now.Add(time.Hour),
		ResumeToken: "winner-token",
	}
	if created, _ := f.attempts.CreateStarted(ctx, winner); !created {
		t.Fatal("fixture setup failed")
	}

	result, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if !result.Resumed || result.Attempt.ID != winner.ID {
		t.Error("expected the winner's attempt back")
	}
}

func TestStartAttemptLateWithCode(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	code := &model.LateCode{
		ExamID:          f.exam.ID,
		Code:            "MAKEUP-1",
		UsagesRemaining: 2,
		ExpiresAt:       f.exam.LateWindowEnd(),
		IsActive:        true,
		CreatedBy:       f.exam.OwnerID,
	}
	if err := f.lateCodes.Create(ctx, code); err != nil {
		t.Fatal(err)
	}

	f.now = f.exam.EndTime.Add(10 * time.Minute)

	result, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, "makeup-1")
	if err != nil {
		t.Fatalf("late start: %v", err)
	}
	if result.Resumed {
		t.Error("late start reported as resumed")
	}

	stored, _ := f.lateCodes.GetByID(ctx, code.ID)
	if stored.UsagesRemaining != 1 {
		t.Errorf("usages remaining = %d, want 1", stored.UsagesRemaining)
	}
	if events := f.events.byType(EventLateCodeUsed); len(events) != 1 {
		t.Errorf("late_code.used events = %d, want 1", len(events))
	}

	// A second user replaying the same account's code is a separate concern;
	// the same user starting again resumes without burning another usage.
	second, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, "MAKEUP-1")
	if err != nil {
		t.Fatalf("late resume: %v", err)
	}
	if !second.Resumed {
		t.Error("expected resume")
	}
	stored, _ = f.lateCodes.GetByID(ctx, code.ID)
	if stored.UsagesRemaining != 1 {
		t.Errorf("resume burned a usage: remaining = %d", stored.UsagesRemaining)
	}
}

func TestStartAttemptLateCodeRejections(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()
	f.now = f.exam.EndTime.Add(10 * time.Minute)

	if _, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, "NOPE"); !errors.Is(err, ErrLateCodeInvalid) {
		t.Errorf("unknown code err = %v", err)
	}

	otherUser := 99
	code := &model.LateCode{
		ExamID:          f.exam.ID,
		Code:            "ASSIGNED",
		AssignedUserID:  &otherUser,
		UsagesRemaining: 1,
		ExpiresAt:       f.exam.LateWindowEnd(),
		IsActive:        true,
	}
	if err := f.lateCodes.Create(ctx, code); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, "ASSIGNED"); !errors.Is(err, ErrLateCodeAssigned) {
		t.Errorf("assigned code err = %v", err)
	}
}

func TestSubmitHappyPath(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	start, err := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	f.now = f.now.Add(10 * time.Minute)
	result, err := f.svc.Submit(ctx, start.Attempt.ID, userID, f.submission(1))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if result.Score != 1 || result.MaxScore != 2 || result.Percentage != 50 {
		t.Errorf("score = %v/%v (%d%%), want 1/2 (50%%)", result.Score, result.MaxScore, result.Percentage)
	}
	if !result.Passed {
		t.Error("50% should pass at threshold 50")
	}

	stored, _ := f.attempts.GetByID(ctx, start.Attempt.ID)
	if stored.Status != model.AttemptStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", stored.Status)
	}
	if events := f.events.byType(EventAttemptCompleted); len(events) != 1 {
		t.Errorf("attempt.completed events = %d, want 1", len(events))
	}
	if len(f.flags.all()) != 0 {
		t.Errorf("clean attempt flagged: %v", f.flags.all())
	}
}

func TestSubmitDuplicate(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	start, _ := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	f.now = f.now.Add(10 * time.Minute)
	if _, err := f.svc.Submit(ctx, start.Attempt.ID, userID, f.submission(2)); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	if _, err := f.svc.Submit(ctx, start.Attempt.ID, userID, f.submission(0)); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("duplicate submit err = %v, want ErrAlreadyCompleted", err)
	}

	// The first score must stand.
	stored, _ := f.attempts.GetByID(ctx, start.Attempt.ID)
	if stored.Score == nil || *stored.Score != 2 {
		t.Errorf("score overwritten: %v", stored.Score)
	}
}

func TestSubmitLosesPersistRace(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	start, _ := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	f.now = f.now.Add(10 * time.Minute)

	// A concurrent submit got past the status check first and has already
	// persisted this attempt's responses.
	f.responses.responses[start.Attempt.ID] = []model.Response{{
		ID:         uuid.New(),
		AttemptID:  start.Attempt.ID,
		QuestionID: f.questions[0].ID,
		AnsweredAt: f.now,
	}}

	if _, err := f.svc.Submit(ctx, start.Attempt.ID, userID, f.submission(2)); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("racing submit err = %v, want ErrAlreadyCompleted", err)
	}

	// The loser must not have written responses or completed the attempt.
	if stored := f.responses.responses[start.Attempt.ID]; len(stored) != 1 {
		t.Errorf("responses = %d, want the winner's 1", len(stored))
	}
	attempt, _ := f.attempts.GetByID(ctx, start.Attempt.ID)
	if attempt.Status != model.AttemptStatusStarted || attempt.Score != nil {
		t.Errorf("loser mutated the attempt: status=%s score=%v", attempt.Status, attempt.Score)
	}
}

func TestSubmitWrongUser(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	start, _ := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	if _, err := f.svc.Submit(ctx, start.Attempt.ID, userID+1, f.submission(2)); !errors.Is(err, ErrInvalidAttempt) {
		t.Errorf("err = %v, want ErrInvalidAttempt", err)
	}
	if _, err := f.svc.Submit(ctx, uuid.New(), userID, f.submission(2)); !errors.Is(err, ErrInvalidAttempt) {
		t.Errorf("unknown attempt err = %v, want ErrInvalidAttempt", err)
	}
}

func TestSubmitValidationRejection(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	start, _ := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	req := &model.SubmitAttemptRequest{Responses: []model.SubmittedResponse{
		{QuestionID: uuid.New()},
	}}

	_, err := f.svc.Submit(ctx, start.Attempt.ID, userID, req)
	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("err = %v, want SubmissionError", err)
	}
	if len(subErr.Reasons) == 0 {
		t.Error("missing violation reasons")
	}

	// Rejected submission leaves the attempt open for a corrected retry.
	stored, _ := f.attempts.GetByID(ctx, start.Attempt.ID)
	if stored.Status != model.AttemptStatusStarted {
		t.Errorf("status = %s, want STARTED after rejection", stored.Status)
	}
}

func TestSubmitFlagsSuspiciousAttempt(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	start, _ := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")

	// Submitting 2 questions within 3 seconds trips the per-question floor.
	f.now = f.now.Add(3 * time.Second)
	req := f.submission(2)
	req.TabSwitchCount = 1
	if _, err := f.svc.Submit(ctx, start.Attempt.ID, userID, req); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	flags := f.flags.all()
	if len(flags) != 1 {
		t.Fatalf("flags = %d, want 1", len(flags))
	}
	if flags[0].AttemptID != start.Attempt.ID.String() || !flags[0].Suspicious {
		t.Errorf("bad flag: %+v", flags[0])
	}
	if events := f.events.byType(EventAttemptFlagged); len(events) != 1 {
		t.Errorf("attempt.flagged events = %d, want 1", len(events))
	}
}

func TestSubmitImmediateFeedback(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()
	f.exams.exams[f.exam.ID].Config.EnableImmediateFeedback = true

	start, _ := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	f.now = f.now.Add(10 * time.Minute)
	result, err := f.svc.Submit(ctx, start.Attempt.ID, userID, f.submission(2))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Feedback == "" {
		t.Error("expected feedback text")
	}
}

func TestResume(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	start, _ := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	token := start.Attempt.ResumeToken

	result, err := f.svc.Resume(ctx, token, userID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if result.Attempt.ID != start.Attempt.ID {
		t.Error("wrong attempt resumed")
	}
	if result.ReadOnly {
		t.Error("live attempt reported read-only")
	}
	if len(result.Questions) != len(f.questions) {
		t.Fatalf("questions = %d, want %d", len(result.Questions), len(f.questions))
	}
	for _, q := range result.Questions {
		if len(q.Options) == 0 {
			t.Error("options missing from student paper")
		}
	}

	if _, err := f.svc.Resume(ctx, token, userID+1); !errors.Is(err, ErrWrongUser) {
		t.Errorf("foreign caller err = %v, want ErrWrongUser", err)
	}
	if _, err := f.svc.Resume(ctx, "no-such-token", userID); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("unknown token err = %v, want ErrAttemptNotFound", err)
	}
}

func TestResumeReadOnlyAfterExpiry(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	start, _ := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	f.now = start.Attempt.ExpiresAt.Add(time.Minute)

	result, err := f.svc.Resume(ctx, start.Attempt.ResumeToken, userID)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !result.ReadOnly {
		t.Error("expired attempt should be read-only")
	}
}

func TestResult(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()

	start, _ := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")

	if _, err := f.svc.Result(ctx, start.Attempt.ID, userID); !errors.Is(err, ErrAttemptNotCompleted) {
		t.Errorf("open attempt err = %v, want ErrAttemptNotCompleted", err)
	}

	f.now = f.now.Add(10 * time.Minute)
	if _, err := f.svc.Submit(ctx, start.Attempt.ID, userID, f.submission(1)); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// Exam still running: locked with the unlock instant attached.
	_, err := f.svc.Result(ctx, start.Attempt.ID, userID)
	var locked *ResultsLockedError
	if !errors.As(err, &locked) {
		t.Fatalf("err = %v, want ResultsLockedError", err)
	}
	if !locked.UnlocksAt.Equal(f.exam.EndTime) {
		t.Errorf("unlocks at %s, want end time", locked.UnlocksAt)
	}

	f.now = f.exam.EndTime.Add(time.Minute)
	result, err := f.svc.Result(ctx, start.Attempt.ID, userID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result.Summary.Score != 1 || result.Summary.Percentage != 50 {
		t.Errorf("summary = %v, want 1 point / 50%%", result.Summary)
	}
	if result.Attempt.ResumeToken != "" {
		t.Error("resume token leaked in result payload")
	}

	if _, err := f.svc.Result(ctx, start.Attempt.ID, userID+1); !errors.Is(err, ErrInvalidAttempt) {
		t.Errorf("foreign caller err = %v, want ErrInvalidAttempt", err)
	}
}

func TestResultDelayedUntilLateEnd(t *testing.T) {
	f := newAttemptFixture(t)
	ctx := context.Background()
	f.exams.exams[f.exam.ID].Config.DelayResultsUntilLateEnd = true

	start, _ := f.svc.StartAttempt(ctx, f.exam.ID, userID, "")
	f.now = f.now.Add(10 * time.Minute)
	if _, err := f.svc.Submit(ctx, start.Attempt.ID, userID, f.submission(2)); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	f.now = f.exam.EndTime.Add(time.Minute)
	var locked *ResultsLockedError
	if _, err := f.svc.Result(ctx, start.Attempt.ID, userID); !errors.As(err, &locked) {
		t.Fatalf("err = %v, want ResultsLockedError during late window", err)
	}
	if !locked.UnlocksAt.Equal(f.exam.LateWindowEnd()) {
		t.Errorf("unlocks at %s, want late window end", locked.UnlocksAt)
	}

	f.now = f.exam.LateWindowEnd().Add(time.Second)
	if _, err := f.svc.Result(ctx, start.Attempt.ID, userID); err != nil {
		t.Errorf("Result after late window: %v", err)
	}
}
