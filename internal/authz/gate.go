// Package authz holds the access rules shared by the record and certificate
// services. Rules are pure functions over already-loaded entities so the
// callers decide what to fetch and when.
package authz

import (
	"errors"
	"fmt"

	"github.com/i-bosquet/petconnect-sub002/internal/models"
)

// ErrAccessDenied is returned when a staff member is not allowed to act on
// the target entity.
var ErrAccessDenied = errors.New("access denied")

// Gate answers whether a staff member may act on a pet.
type Gate interface {
	// CanAccessPet reports whether the member may read the pet's clinical
	// data. A nil error means access is granted.
	CanAccessPet(member *models.Staff, pet *models.Pet) error

	// CanIssueFor reports whether the vet may issue certificates for the
	// pet. A nil error means issuance may proceed.
	CanIssueFor(vet *models.Staff, pet *models.Pet) error
}

// ClinicGate grants owners access to their own pets and clinic staff access
// to the pets their clinic actively cares for.
type ClinicGate struct{}

func NewClinicGate() *ClinicGate {
	return &ClinicGate{}
}

func (g *ClinicGate) CanAccessPet(member *models.Staff, pet *models.Pet) error {
	if member.IsOwner() {
		if member.StaffID == pet.OwnerID {
			return nil
		}

		return fmt.Errorf("%w: pet %s does not belong to owner %s", ErrAccessDenied, pet.PetID, member.StaffID)
	}

	if pet.ActiveClinicID != nil && member.WorksAt(*pet.ActiveClinicID) {
		return nil
	}

	return fmt.Errorf("%w: staff %s does not work at the clinic caring for pet %s", ErrAccessDenied, member.StaffID, pet.PetID)
}

func (g *ClinicGate) CanIssueFor(vet *models.Staff, pet *models.Pet) error {
	if !vet.CanIssueCertificates() {
		return fmt.Errorf("%w: staff %s cannot issue certificates", ErrAccessDenied, vet.StaffID)
	}

	if pet.ActiveClinicID == nil || !vet.WorksAt(*pet.ActiveClinicID) {
		return fmt.Errorf("%w: vet %s does not work at the clinic caring for pet %s", ErrAccessDenied, vet.StaffID, pet.PetID)
	}

	return nil
}
