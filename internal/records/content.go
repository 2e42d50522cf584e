package records

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/signing"
)

// recordContent is the canonical content a record signature covers. Field
// order is part of the signed format and must not change.
type recordContent struct {
	RecordID    string          `json:"recordId"`
	PetID       string          `json:"petId"`
	CreatorID   string          `json:"creatorId"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Vaccine     *vaccineContent `json:"vaccine,omitempty"`
	CreatedAt   string          `json:"createdAt"`
}

type vaccineContent struct {
	Name           string `json:"name"`
	Lab            string `json:"lab,omitempty"`
	Batch          string `json:"batch,omitempty"`
	ValidityMonths int    `json:"validityMonths,omitempty"`
	Rabies         bool   `json:"rabies"`
}

// ContentDigest returns the sha256 hex digest of the record's canonical
// content. Detached record signatures are made over this digest.
func ContentDigest(rec *models.MedicalRecord) (string, error) {
	content := recordContent{
		RecordID:    rec.RecordID.String(),
		PetID:       rec.PetID.String(),
		CreatorID:   rec.CreatorID.String(),
		Type:        rec.Type,
		Description: rec.Description,
		CreatedAt:   rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	if rec.Vaccine != nil {
		content.Vaccine = &vaccineContent{
			Name:           rec.Vaccine.Name,
			Lab:            rec.Vaccine.Lab,
			Batch:          rec.Vaccine.BatchNumber,
			ValidityMonths: rec.Vaccine.ValidityMonths,
			Rabies:         rec.Vaccine.Rabies,
		}
	}

	data, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("failed to encode record content: %w", err)
	}

	return signing.Hash(data)
}
