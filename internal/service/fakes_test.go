package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/studyrail/attempt-backend/internal/model"
)

// In-memory fakes backing the service tests. They honor the same contracts
// the repositories do: nil-on-absent lookups, an atomic single-active-attempt
// slot, and a conditional complete.

type memExamProvider struct {
	exams     map[uuid.UUID]*model.Exam
	questions map[uuid.UUID][]model.Question
}

func newMemExamProvider() *memExamProvider {
	return &memExamProvider{
		exams:     make(map[uuid.UUID]*model.Exam),
		questions: make(map[uuid.UUID][]model.Question),
	}
}

func (p *memExamProvider) GetExam(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := p.exams[id]
	if !ok {
		return nil, nil
	}
	copied := *e
	return &copied, nil
}

func (p *memExamProvider) GetQuestions(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	return p.questions[examID], nil
}

type memAttemptStore struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*model.Attempt
}

func newMemAttemptStore() *memAttemptStore {
	return &memAttemptStore{attempts: make(map[uuid.UUID]*model.Attempt)}
}

func (s *memAttemptStore) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (s *memAttemptStore) GetActive(_ context.Context, examID uuid.UUID, userID int) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeLocked(examID, userID), nil
}

func (s *memAttemptStore) activeLocked(examID uuid.UUID, userID int) *model.Attempt {
	for _, a := range s.attempts {
		if a.ExamID == examID && a.UserID == userID && a.Status == model.AttemptStatusStarted {
			copied := *a
			return &copied
		}
	}
	return nil
}

func (s *memAttemptStore) GetByResumeToken(_ context.Context, token string) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attempts {
		if a.ResumeToken == token {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memAttemptStore) CountCompleted(_ context.Context, examID uuid.UUID, userID int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.attempts {
		if a.ExamID == examID && a.UserID == userID && a.Status == model.AttemptStatusCompleted {
			n++
		}
	}
	return n, nil
}

func (s *memAttemptStore) LastCompleted(_ context.Context, examID uuid.UUID, userID int) (*model.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last *model.Attempt
	for _, a := range s.attempts {
		if a.ExamID != examID || a.UserID != userID || a.Status != model.AttemptStatusCompleted || a.SubmittedAt == nil {
			continue
		}
		if last == nil || a.SubmittedAt.After(*last.SubmittedAt) {
			last = a
		}
	}
	if last == nil {
		return nil, nil
	}
	copied := *last
	return &copied, nil
}

func (s *memAttemptStore) CreateStarted(_ context.Context, a *model.Attempt) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeLocked(a.ExamID, a.UserID) != nil {
		return false, nil
	}
	a.ID = uuid.New()
	copied := *a
	s.attempts[a.ID] = &copied
	return true, nil
}

func (s *memAttemptStore) CompleteIfStarted(_ context.Context, id uuid.UUID, c model.AttemptCompletion) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[id]
	if !ok || a.Status != model.AttemptStatusStarted {
		return false, nil
	}
	a.Status = model.AttemptStatusCompleted
	submittedAt := c.SubmittedAt
	a.SubmittedAt = &submittedAt
	a.Score = &c.Score
	a.MaxScore = &c.MaxScore
	a.Percentage = &c.Percentage
	a.Passed = &c.Passed
	a.TabSwitchCount = c.TabSwitchCount
	return true, nil
}

type memResponseStore struct {
	mu        sync.Mutex
	responses map[uuid.UUID][]model.Response
}

func newMemResponseStore() *memResponseStore {
	return &memResponseStore{responses: make(map[uuid.UUID][]model.Response)}
}

func (s *memResponseStore) CreateForAttempt(_ context.Context, attemptID uuid.UUID, responses []model.Response) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(responses) == 0 {
		return true, nil
	}
	if len(s.responses[attemptID]) > 0 {
		return false, nil
	}
	s.responses[attemptID] = append(s.responses[attemptID], responses...)
	return true, nil
}

func (s *memResponseStore) ListByAttempt(_ context.Context, attemptID uuid.UUID) ([]model.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.responses[attemptID], nil
}

type memLateCodeStore struct {
	mu     sync.Mutex
	codes  map[uuid.UUID]*model.LateCode
	usages map[uuid.UUID]map[int]bool
}

func newMemLateCodeStore() *memLateCodeStore {
	return &memLateCodeStore{
		codes:  make(map[uuid.UUID]*model.LateCode),
		usages: make(map[uuid.UUID]map[int]bool),
	}
}

func (s *memLateCodeStore) GetByExamAndCode(_ context.Context, examID uuid.UUID, code string) (*model.LateCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.ExamID == examID && c.Code == code {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *memLateCodeStore) Consume(_ context.Context, codeID uuid.UUID, userID int) (bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.usages[codeID][userID] {
		return false, true, nil
	}
	c, ok := s.codes[codeID]
	if !ok || c.UsagesRemaining <= 0 {
		return false, false, nil
	}
	c.UsagesRemaining--
	if s.usages[codeID] == nil {
		s.usages[codeID] = make(map[int]bool)
	}
	s.usages[codeID][userID] = true
	return true, false, nil
}

func (s *memLateCodeStore) Create(_ context.Context, c *model.LateCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	copied := *c
	s.codes[c.ID] = &copied
	return nil
}

func (s *memLateCodeStore) ListByExam(_ context.Context, examID uuid.UUID) ([]model.LateCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var codes []model.LateCode
	for _, c := range s.codes {
		if c.ExamID == examID {
			codes = append(codes, *c)
		}
	}
	return codes, nil
}

func (s *memLateCodeStore) Deactivate(_ context.Context, codeID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[codeID]
	if !ok {
		return false, nil
	}
	c.IsActive = false
	return true, nil
}

func (s *memLateCodeStore) GetByID(_ context.Context, codeID uuid.UUID) (*model.LateCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[codeID]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

type capturedEvents struct {
	mu     sync.Mutex
	events []Event
}

func (p *capturedEvents) Publish(_ context.Context, event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *capturedEvents) byType(eventType string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type capturedFlags struct {
	mu    sync.Mutex
	flags []FlagAnnotation
}

func (q *capturedFlags) Enqueue(_ context.Context, flag FlagAnnotation) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.flags = append(q.flags, flag)
	return nil
}

func (q *capturedFlags) all() []FlagAnnotation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]FlagAnnotation(nil), q.flags...)
}
