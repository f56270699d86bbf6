package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/makerstokyo/api/internal/app"
)

// DefaultStreamMaxLen caps the event stream; older entries are trimmed
// approximately.
const DefaultStreamMaxLen = 100_000

// StreamSink appends events to a Redis stream for downstream workers such as
// the mailer and the moderation queue.
type StreamSink struct {
	client *Client
	stream string
	maxLen int64
}

var _ app.EventSink = (*StreamSink)(nil)

// NewStreamSink creates a sink writing to stream. A non-positive maxLen
// means DefaultStreamMaxLen.
func NewStreamSink(client *Client, stream string, maxLen int64) *StreamSink {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &StreamSink{client: client, stream: stream, maxLen: maxLen}
}

// Publish implements app.EventSink. The whole event is stored as JSON in the
// "payload" field next to the id and type for cheap filtering.
func (s *StreamSink) Publish(ctx context.Context, e app.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	start := time.Now()
	err = s.client.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":      e.ID,
			"type":    e.Type,
			"source":  e.Source,
			"payload": payload,
		},
	}).Err()
	DefaultMetrics.observe(opStreamPublish, start, err)
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
