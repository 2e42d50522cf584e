package eventsink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
)

const (
	defaultAsyncBuffer   = 128
	defaultRetryInterval = 250 * time.Millisecond
	defaultMaxTries      = 5
)

// AsyncSink decouples publishing from the caller: events are queued on a
// buffered channel and delivered by a single worker goroutine with
// exponential backoff per event. When the buffer is full the event is
// dropped and logged rather than blocking issuance.
type AsyncSink struct {
	next   Sink
	events chan Event
	done   chan struct{}

	retryInterval time.Duration
	maxTries      uint

	mu     sync.RWMutex
	closed bool
}

func NewAsyncSink(next Sink, buffer int) *AsyncSink {
	if buffer <= 0 {
		buffer = defaultAsyncBuffer
	}

	s := &AsyncSink{
		next:          next,
		events:        make(chan Event, buffer),
		done:          make(chan struct{}),
		retryInterval: defaultRetryInterval,
		maxTries:      defaultMaxTries,
	}

	go s.run()

	return s
}

// Publish queues the event. It only returns an error after Close; a full
// buffer drops the event with a log line instead.
func (s *AsyncSink) Publish(ctx context.Context, event Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return fmt.Errorf("event sink is closed")
	}

	select {
	case s.events <- event:
		return nil
	default:
		log.Warn().
			Str("type", event.Type).
			Str("number", event.Number).
			Msg("Dropped event, sink buffer is full")

		return nil
	}
}

// Close stops accepting events, drains the buffer and waits for the worker
// to finish delivering.
func (s *AsyncSink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()

	<-s.done
}

func (s *AsyncSink) run() {
	defer close(s.done)

	for event := range s.events {
		s.deliver(event)
	}
}

func (s *AsyncSink) deliver(event Event) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.retryInterval

	_, err := backoff.Retry(context.Background(), func() (struct{}, error) {
		return struct{}{}, s.next.Publish(context.Background(), event)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(s.maxTries))

	if err != nil {
		log.Error().
			Err(err).
			Str("type", event.Type).
			Str("number", event.Number).
			Msg("Failed to publish event")
	}
}
