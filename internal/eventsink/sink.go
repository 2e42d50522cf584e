// Package eventsink publishes the domain events emitted after certificate
// issuance. Publishing is fire-and-forget from the issuer's point of view: a
// failed publish is logged and never affects the committed certificate.
package eventsink

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventTypeCertificateIssued is emitted once per persisted certificate.
const EventTypeCertificateIssued = "certificate.issued"

// Event describes something that happened in the clinic domain.
type Event struct {
	Type          string    `json:"type"`
	CertificateID uuid.UUID `json:"certificate_id"`
	RecordID      uuid.UUID `json:"record_id"`
	PetID         uuid.UUID `json:"pet_id"`
	ClinicID      uuid.UUID `json:"clinic_id"`
	Number        string    `json:"number"`
	IssuedAt      time.Time `json:"issued_at"`
}

// Sink delivers events to an external consumer.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Log writes events to the structured log. The default sink in development.
type Log struct{}

func NewLog() *Log {
	return &Log{}
}

func (s *Log) Publish(ctx context.Context, event Event) error {
	log.Info().
		Str("type", event.Type).
		Str("certificate_id", event.CertificateID.String()).
		Str("pet_id", event.PetID.String()).
		Str("number", event.Number).
		Msg("Published event")

	return nil
}

// Nop drops events.
type Nop struct{}

func NewNop() *Nop {
	return &Nop{}
}

func (s *Nop) Publish(ctx context.Context, event Event) error {
	return nil
}
