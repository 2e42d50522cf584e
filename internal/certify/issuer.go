// Package certify issues digital health certificates for pets. Issuance is
// a staged pipeline: authorization and eligibility first, uniqueness checks
// before any cryptographic work, vet and clinic signatures over the identical
// payload digest, then one atomic persist that also freezes the source
// vaccination record.
package certify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/i-bosquet/petconnect-sub002/internal/authz"
	"github.com/i-bosquet/petconnect-sub002/internal/eligibility"
	"github.com/i-bosquet/petconnect-sub002/internal/eventsink"
	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/payload"
	"github.com/i-bosquet/petconnect-sub002/internal/signing"
	"github.com/i-bosquet/petconnect-sub002/internal/store"
	"github.com/i-bosquet/petconnect-sub002/internal/telemetry"
)

// ErrInvalidNumber is returned when the caller-supplied certificate number
// fails validation.
var ErrInvalidNumber = errors.New("invalid certificate number")

// Stage is a step in the issuance pipeline.
type Stage string

const (
	StageRequested    Stage = "REQUESTED"
	StageValidated    Stage = "VALIDATED"
	StagePayloadBuilt Stage = "PAYLOAD_BUILT"
	StageHashed       Stage = "HASHED"
	StageVetSigned    Stage = "VET_SIGNED"
	StageClinicSigned Stage = "CLINIC_SIGNED"
	StagePersisted    Stage = "PERSISTED"
)

// IssueRequest carries everything needed for one issuance attempt. The key
// passwords are used for the two signing calls only and are never stored.
type IssueRequest struct {
	PetID             uuid.UUID
	VetID             uuid.UUID
	Number            string
	VetKeyPassword    []byte
	ClinicKeyPassword []byte
}

// Deps are the collaborators of the certify package.
type Deps struct {
	Certificates store.CertificateStore
	Records      store.RecordStore
	Pets         store.PetDirectory
	Staff        store.StaffDirectory
	Clinics      store.ClinicDirectory
	Eligibility  *eligibility.Validator
	Payloads     *payload.Builder
	Signer       *signing.Signer
	Gate         authz.Gate
	Events       eventsink.Sink
}

// Issuer drives the issuance pipeline.
type Issuer struct {
	deps Deps
	now  func() time.Time
}

func NewIssuer(deps Deps) *Issuer {
	return &Issuer{
		deps: deps,
		now:  time.Now,
	}
}

// Issue runs the full pipeline and returns the persisted certificate.
func (i *Issuer) Issue(ctx context.Context, req IssueRequest) (*models.Certificate, error) {
	metrics := telemetry.GetMetrics()
	started := time.Now()

	cert, err := i.issue(ctx, req)
	if err != nil {
		metrics.CertificateIssueFailures.Add(ctx, 1)
		return nil, err
	}

	metrics.CertificatesIssuedTotal.Add(ctx, 1)
	metrics.CertificateIssueDuration.Record(ctx, durationMillis(time.Since(started)))

	return cert, nil
}

func (i *Issuer) issue(ctx context.Context, req IssueRequest) (*models.Certificate, error) {
	number := strings.TrimSpace(req.Number)
	if number == "" {
		return nil, fmt.Errorf("%w: number is required", ErrInvalidNumber)
	}

	prog := newProgress(number)

	vet, err := i.deps.Staff.FindVet(ctx, req.VetID)
	if err != nil {
		return nil, err
	}

	pet, err := i.deps.Pets.FindPet(ctx, req.PetID)
	if err != nil {
		return nil, err
	}

	if err := i.deps.Gate.CanIssueFor(vet, pet); err != nil {
		return nil, err
	}

	// The gate guarantees the vet works at the pet's active clinic, so the
	// clinic reference is safe to follow.
	clinic, err := i.deps.Clinics.FindClinic(ctx, *vet.ClinicID)
	if err != nil {
		return nil, err
	}

	owner, err := i.deps.Staff.FindStaff(ctx, pet.OwnerID)
	if err != nil {
		return nil, err
	}

	now := i.now().UTC()

	rabies, err := i.deps.Eligibility.CheckCertificateEligibility(ctx, pet.PetID, now)
	if err != nil {
		return nil, err
	}

	// Uniqueness before any cryptographic work.
	if err := i.checkUniqueness(ctx, rabies.RecordID, number); err != nil {
		return nil, err
	}

	prog.advance(ctx, StageValidated)

	body, err := i.deps.Payloads.Build(ctx, payload.Input{
		Number:   number,
		IssuedAt: now,
		Record:   rabies,
		Pet:      pet,
		Owner:    owner,
		Vet:      vet,
		Clinic:   clinic,
	})
	if err != nil {
		return nil, err
	}

	prog.advance(ctx, StagePayloadBuilt)

	digest, err := signing.Hash([]byte(body))
	if err != nil {
		return nil, err
	}

	prog.advance(ctx, StageHashed)

	vetSig, err := i.deps.Signer.SignDetached(ctx, vet.KeyID, req.VetKeyPassword, digest)
	if err != nil {
		return nil, fmt.Errorf("vet signature: %w", err)
	}

	prog.advance(ctx, StageVetSigned)

	// The clinic countersigns the identical digest.
	clinicSig, err := i.deps.Signer.SignDetached(ctx, clinic.KeyID, req.ClinicKeyPassword, digest)
	if err != nil {
		return nil, fmt.Errorf("clinic signature: %w", err)
	}

	prog.advance(ctx, StageClinicSigned)

	cert := &models.Certificate{
		CertificateID:   uuid.Must(uuid.NewV7()),
		RecordID:        rabies.RecordID,
		Number:          number,
		PetID:           pet.PetID,
		VetID:           vet.StaffID,
		ClinicID:        clinic.ClinicID,
		Payload:         body,
		Hash:            digest,
		VetSignature:    vetSig.Value,
		ClinicSignature: clinicSig.Value,
		VetKeyID:        vetSig.KeyID,
		ClinicKeyID:     clinicSig.KeyID,
		IssuedAt:        now,
	}

	// Persisting the certificate freezes the source record in the same
	// transaction. A concurrent writer loses on the unique constraints and
	// gets the same uniqueness sentinels as the pre-checks.
	if err := i.deps.Certificates.CreateCertificate(ctx, cert); err != nil {
		return nil, err
	}

	prog.advance(ctx, StagePersisted)

	i.notify(ctx, cert)

	log.Info().
		Str("certificate_id", cert.CertificateID.String()).
		Str("number", cert.Number).
		Str("record_id", cert.RecordID.String()).
		Str("pet_id", cert.PetID.String()).
		Str("vet_id", cert.VetID.String()).
		Msg("Issued certificate")

	return cert, nil
}

func (i *Issuer) checkUniqueness(ctx context.Context, recordID uuid.UUID, number string) error {
	exists, err := i.deps.Certificates.ExistsForRecord(ctx, recordID)
	if err != nil {
		return err
	}

	if exists {
		return fmt.Errorf("%w: record %s", store.ErrCertificateExistsForRecord, recordID)
	}

	taken, err := i.deps.Certificates.NumberExists(ctx, number)
	if err != nil {
		return err
	}

	if taken {
		return fmt.Errorf("%w: %s", store.ErrCertificateNumberTaken, number)
	}

	return nil
}

// notify publishes the issuance event after the transaction committed. A
// publish failure is logged and counted but never unwinds the certificate.
func (i *Issuer) notify(ctx context.Context, cert *models.Certificate) {
	metrics := telemetry.GetMetrics()

	err := i.deps.Events.Publish(ctx, eventsink.Event{
		Type:          eventsink.EventTypeCertificateIssued,
		CertificateID: cert.CertificateID,
		RecordID:      cert.RecordID,
		PetID:         cert.PetID,
		ClinicID:      cert.ClinicID,
		Number:        cert.Number,
		IssuedAt:      cert.IssuedAt,
	})
	if err != nil {
		metrics.EventPublishErrorsTotal.Add(ctx, 1)
		log.Error().
			Err(err).
			Str("certificate_id", cert.CertificateID.String()).
			Msg("Failed to publish issuance event")

		return
	}

	metrics.EventsPublishedTotal.Add(ctx, 1)
}

// progress tracks the pipeline stage for logging and metering.
type progress struct {
	number  string
	stage   Stage
	since   time.Time
	metrics *telemetry.Metrics
}

func newProgress(number string) *progress {
	return &progress{
		number:  number,
		stage:   StageRequested,
		since:   time.Now(),
		metrics: telemetry.GetMetrics(),
	}
}

func (p *progress) advance(ctx context.Context, next Stage) {
	now := time.Now()

	p.metrics.IssueStageDuration.Record(ctx, durationMillis(now.Sub(p.since)),
		metric.WithAttributes(attribute.String("stage", string(next))))

	log.Debug().
		Str("number", p.number).
		Str("from", string(p.stage)).
		Str("to", string(next)).
		Msg("Certificate issuance stage")

	p.stage = next
	p.since = now
}

func durationMillis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
