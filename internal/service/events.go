package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/studyrail/attempt-backend/internal/config"
)

// Event types published on an exam's event channel.
const (
	EventAttemptCompleted = "attempt.completed"
	EventLateCodeUsed     = "late_code.used"
	EventAttemptFlagged   = "attempt.flagged"
)

// Event is a lifecycle notification fanned out to exam monitors. Delivery is
// best-effort: publishing never blocks or fails the core transition.
type Event struct {
	Type      string    `json:"type"`
	ExamID    string    `json:"exam_id"`
	UserID    int       `json:"user_id"`
	AttemptID string    `json:"attempt_id,omitempty"`
	Payload   any       `json:"payload,omitempty"`
	At        time.Time `json:"at"`
}

// EventPublisher fans out attempt lifecycle events. Implementations must be
// best-effort; callers ignore the outcome.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// RedisEventPublisher publishes events on the exam's Redis PubSub channel.
type RedisEventPublisher struct {
	rdb *redis.Client
	log zerolog.Logger
}

func NewRedisEventPublisher(rdb *redis.Client, log zerolog.Logger) *RedisEventPublisher {
	return &RedisEventPublisher{
		rdb: rdb,
		log: log.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.log.Error().Err(err).Str("type", event.Type).Msg("Marshal event failed")
		return
	}
	if err := p.rdb.Publish(ctx, config.CacheKey.ExamEventsChannel(event.ExamID), data).Err(); err != nil {
		// Best-effort: log and move on.
		p.log.Warn().Err(err).Str("type", event.Type).Msg("Publish event failed")
	}
}
