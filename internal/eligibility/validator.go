// Package eligibility decides whether a pet qualifies for a health
// certificate: a valid rabies vaccination plus a recent annual checkup.
package eligibility

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/store"
	"github.com/i-bosquet/petconnect-sub002/internal/telemetry"
)

var (
	// ErrMissingRabiesVaccine is returned when the pet has no signed,
	// unexpired rabies vaccination.
	ErrMissingRabiesVaccine = errors.New("no valid rabies vaccination")

	// ErrMissingRecentCheckup is returned when the pet has no signed annual
	// checkup inside the freshness window.
	ErrMissingRecentCheckup = errors.New("no recent annual checkup")
)

// checkupWindowYears is the freshness window for the annual checkup.
const checkupWindowYears = 1

// Validator reads a pet's history and applies the certificate requirements.
type Validator struct {
	records store.RecordStore
}

func NewValidator(records store.RecordStore) *Validator {
	return &Validator{records: records}
}

// CheckCertificateEligibility verifies the two requirements in order and
// fails fast on the first miss. The rabies check scans signed vaccinations
// newest first and picks the first one still valid at now; validity runs for
// the vaccine's calendar months from the record's creation. The checkup
// check requires a signed annual check created after now minus one year.
//
// Returns the selected rabies vaccination record; its details feed the
// certificate payload.
func (v *Validator) CheckCertificateEligibility(ctx context.Context, petID uuid.UUID, now time.Time) (*models.MedicalRecord, error) {
	metrics := telemetry.GetMetrics()
	metrics.EligibilityChecksTotal.Add(ctx, 1)

	vaccinations, err := v.records.FindRabiesVaccinations(ctx, petID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rabies vaccinations: %w", err)
	}

	var rabies *models.MedicalRecord
	for _, rec := range vaccinations {
		if rec.ValidAt(now) {
			rabies = rec
			break
		}
	}

	if rabies == nil {
		metrics.EligibilityDeniedTotal.Add(ctx, 1)
		return nil, fmt.Errorf("%w: pet %s", ErrMissingRabiesVaccine, petID)
	}

	cutoff := now.AddDate(-checkupWindowYears, 0, 0)

	checkups, err := v.records.FindCheckupsSince(ctx, petID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to load annual checkups: %w", err)
	}

	if len(checkups) == 0 {
		metrics.EligibilityDeniedTotal.Add(ctx, 1)
		return nil, fmt.Errorf("%w: pet %s has none since %s", ErrMissingRecentCheckup, petID, cutoff.Format("2006-01-02"))
	}

	log.Debug().
		Str("pet_id", petID.String()).
		Str("rabies_record_id", rabies.RecordID.String()).
		Str("checkup_record_id", checkups[0].RecordID.String()).
		Msg("Certificate eligibility satisfied")

	return rabies, nil
}
