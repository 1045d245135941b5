package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/printfleet/printfleet-api/internal/models"
)

const blockLogKey = "planner:block-log"

// BlockLogRepository keeps the append-only diagnostic block-event stream in a
// capped Redis list. Newest events sit at the head; the list is trimmed after
// every append so retention is enforced on the write path.
type BlockLogRepository struct {
	client    *redis.Client
	retention int
}

// NewBlockLogRepository constructs repository with the given retention cap.
func NewBlockLogRepository(client *redis.Client, retention int) *BlockLogRepository {
	if retention <= 0 {
		retention = 500
	}
	return &BlockLogRepository{client: client, retention: retention}
}

// Append pushes events onto the stream and trims it to the retention cap.
func (r *BlockLogRepository) Append(ctx context.Context, events []models.BlockEvent) error {
	if len(events) == 0 {
		return nil
	}
	payloads := make([]interface{}, 0, len(events))
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encode block event: %w", err)
		}
		payloads = append(payloads, data)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, blockLogKey, payloads...)
	pipe.LTrim(ctx, blockLogKey, 0, int64(r.retention-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append block events: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (r *BlockLogRepository) Recent(ctx context.Context, limit int) ([]models.BlockEvent, error) {
	if limit <= 0 || limit > r.retention {
		limit = r.retention
	}
	raw, err := r.client.LRange(ctx, blockLogKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read block events: %w", err)
	}
	events := make([]models.BlockEvent, 0, len(raw))
	for _, item := range raw {
		var event models.BlockEvent
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			// Skip rows a newer/older writer produced rather than failing the read.
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
