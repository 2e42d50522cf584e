package eventsink

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisStream is the stream certificate events are appended to.
const DefaultRedisStream = "petconnect:certificates"

// RedisSink appends events to a Redis stream so downstream consumers can
// replay them with XREAD.
type RedisSink struct {
	client *redis.Client
	stream string
}

func NewRedisSink(client *redis.Client, stream string) *RedisSink {
	if stream == "" {
		stream = DefaultRedisStream
	}

	return &RedisSink{
		client: client,
		stream: stream,
	}
}

func (s *RedisSink) Publish(ctx context.Context, event Event) error {
	_, err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"type":           event.Type,
			"certificate_id": event.CertificateID.String(),
			"record_id":      event.RecordID.String(),
			"pet_id":         event.PetID.String(),
			"clinic_id":      event.ClinicID.String(),
			"number":         event.Number,
			"issued_at":      event.IssuedAt.UTC().Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to append event to stream %s: %w", s.stream, err)
	}

	return nil
}
