package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/studyrail/attempt-backend/internal/config"
	"github.com/studyrail/attempt-backend/internal/service"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// FlagWorker drains queued anti-cheat annotations and writes them onto
// completed attempts. The annotation is the only mutation a COMPLETED
// attempt ever receives.
type FlagWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewFlagWorker creates a new FlagWorker.
func NewFlagWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *FlagWorker {
	return &FlagWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "flag_worker").Logger(),
	}
}

// Start runs the worker loop until the context is cancelled.
func (w *FlagWorker) Start(ctx context.Context) {
	w.log.Info().Msg("FlagWorker started")

	buffer := make([]*service.FlagAnnotation, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Check flush conditions (time or size)
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 2. Check context (graceful shutdown)
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis. BLPop blocks for 1 second, returning
		// immediately when data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistFlagsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var flag service.FlagAnnotation
		if err := json.Unmarshal([]byte(result[1]), &flag); err != nil {
			// Malformed JSON can never succeed on retry. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &flag)
	}
}

// flushSafe attempts a batched update, then row-by-row recovery, then requeue.
func (w *FlagWorker) flushSafe(ctx context.Context, batch []*service.FlagAnnotation) {
	if err := w.batchUpdate(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Batch update failed, attempting row-by-row recovery")
		w.fallbackUpdate(ctx, batch)
	}
}

const annotateSQL = `UPDATE attempts
	 SET suspicious_activity_detected = $2, suspicion_reasons = $3
	 WHERE id = $1`

// batchUpdate pushes the whole batch in one round trip.
func (w *FlagWorker) batchUpdate(ctx context.Context, batch []*service.FlagAnnotation) error {
	b := &pgx.Batch{}
	for _, flag := range batch {
		attemptID, err := uuid.Parse(flag.AttemptID)
		if err != nil {
			// Trigger fallback, which drops the bad ID individually.
			return err
		}
		b.Queue(annotateSQL, attemptID, flag.Suspicious, flag.Reasons)
	}

	results := w.pool.SendBatch(ctx, b)
	defer results.Close()

	for range batch {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (w *FlagWorker) fallbackUpdate(ctx context.Context, batch []*service.FlagAnnotation) {
	requeueList := make([]*service.FlagAnnotation, 0)

	for _, flag := range batch {
		attemptID, err := uuid.Parse(flag.AttemptID)
		if err != nil {
			w.log.Error().Str("attempt_id", flag.AttemptID).Msg("Dropping flag with invalid UUID")
			continue
		}

		if _, err := w.pool.Exec(ctx, annotateSQL, attemptID, flag.Suspicious, flag.Reasons); err != nil {
			w.log.Error().Err(err).Str("attempt_id", flag.AttemptID).Msg("Annotation failed, requeueing")
			requeueList = append(requeueList, flag)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *FlagWorker) requeue(ctx context.Context, items []*service.FlagAnnotation) {
	pipe := w.rdb.Pipeline()
	for _, flag := range items {
		data, _ := json.Marshal(flag)
		pipe.RPush(ctx, config.WorkerKey.PersistFlagsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue flags to Redis. Data loss occurred.")
	} else {
		w.log.Info().Int("count", len(items)).Msg("Requeued failed flags back to Redis")
		// Avoid thrashing while the database is down.
		time.Sleep(2 * time.Second)
	}
}

func (w *FlagWorker) shutdown(buffer []*service.FlagAnnotation) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flushSafe(shutdownCtx, buffer)
	}
}
