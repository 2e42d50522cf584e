package eventsink

import (
	"context"
	"errors"
)

// Multi fans each event out to every configured sink. All sinks see the
// event even when an earlier one fails; failures are joined.
type Multi struct {
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	return &Multi{sinks: sinks}
}

func (s *Multi) Publish(ctx context.Context, event Event) error {
	var errs []error

	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
