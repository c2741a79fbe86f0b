package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/studyrail/attempt-backend/internal/config"
)

// FlagAnnotation is a queued anti-cheat verdict waiting to be written back
// onto a completed attempt. The write happens asynchronously so the attempt
// record stays immutable on the submit path.
type FlagAnnotation struct {
	AttemptID  string   `json:"attempt_id"`
	Suspicious bool     `json:"suspicious"`
	Reasons    []string `json:"reasons"`
}

// FlagQueue accepts anti-cheat annotations for asynchronous persistence.
type FlagQueue interface {
	Enqueue(ctx context.Context, flag FlagAnnotation) error
}

// RedisFlagQueue pushes annotations onto the flag worker's Redis list.
type RedisFlagQueue struct {
	rdb *redis.Client
}

func NewRedisFlagQueue(rdb *redis.Client) *RedisFlagQueue {
	return &RedisFlagQueue{rdb: rdb}
}

func (q *RedisFlagQueue) Enqueue(ctx context.Context, flag FlagAnnotation) error {
	data, err := json.Marshal(flag)
	if err != nil {
		return fmt.Errorf("marshal flag: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistFlagsQueue, data).Err()
}
