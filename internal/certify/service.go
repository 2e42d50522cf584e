package certify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/i-bosquet/petconnect-sub002/internal/authz"
	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/qr"
	"github.com/i-bosquet/petconnect-sub002/internal/telemetry"
)

// Service exposes the certificate operations to the transport layer. Reads
// are open to the pet's owner and to staff of the pet's active clinic;
// issuing itself is vet-only and enforced by the issuer.
type Service struct {
	deps   Deps
	issuer *Issuer
}

func NewService(deps Deps) *Service {
	return &Service{
		deps:   deps,
		issuer: NewIssuer(deps),
	}
}

// Issue generates a certificate and returns its view.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (*CertificateView, error) {
	cert, err := s.issuer.Issue(ctx, req)
	if err != nil {
		return nil, err
	}

	return s.view(ctx, cert)
}

// ListByPet returns the pet's certificates, newest first.
func (s *Service) ListByPet(ctx context.Context, petID, requesterID uuid.UUID) ([]*CertificateView, error) {
	if err := s.authorizePetRead(ctx, petID, requesterID); err != nil {
		return nil, err
	}

	certs, err := s.deps.Certificates.ListCertificatesByPet(ctx, petID)
	if err != nil {
		return nil, err
	}

	return s.views(ctx, certs)
}

// ListByClinic returns every certificate a clinic has issued, newest first.
// Restricted to staff of that clinic.
func (s *Service) ListByClinic(ctx context.Context, clinicID, requesterID uuid.UUID) ([]*CertificateView, error) {
	requester, err := s.deps.Staff.FindStaff(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	if !requester.WorksAt(clinicID) {
		return nil, fmt.Errorf("%w: staff %s does not work at clinic %s", authz.ErrAccessDenied, requesterID, clinicID)
	}

	certs, err := s.deps.Certificates.ListCertificatesByClinic(ctx, clinicID)
	if err != nil {
		return nil, err
	}

	return s.views(ctx, certs)
}

// Get returns a single certificate view.
func (s *Service) Get(ctx context.Context, certificateID, requesterID uuid.UUID) (*CertificateView, error) {
	cert, err := s.deps.Certificates.GetCertificate(ctx, certificateID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizePetRead(ctx, cert.PetID, requesterID); err != nil {
		return nil, err
	}

	return s.view(ctx, cert)
}

// QRToken renders the certificate as a scannable token.
func (s *Service) QRToken(ctx context.Context, certificateID, requesterID uuid.UUID) (string, error) {
	cert, err := s.deps.Certificates.GetCertificate(ctx, certificateID)
	if err != nil {
		return "", err
	}

	if err := s.authorizePetRead(ctx, cert.PetID, requesterID); err != nil {
		return "", err
	}

	token, err := qr.Encode(cert)
	if err != nil {
		return "", err
	}

	telemetry.GetMetrics().QRTokensEncodedTotal.Add(ctx, 1)

	return token, nil
}

func (s *Service) authorizePetRead(ctx context.Context, petID, requesterID uuid.UUID) error {
	requester, err := s.deps.Staff.FindStaff(ctx, requesterID)
	if err != nil {
		return err
	}

	pet, err := s.deps.Pets.FindPet(ctx, petID)
	if err != nil {
		return err
	}

	return s.deps.Gate.CanAccessPet(requester, pet)
}

func (s *Service) view(ctx context.Context, cert *models.Certificate) (*CertificateView, error) {
	rec, err := s.deps.Records.GetRecord(ctx, cert.RecordID)
	if err != nil {
		return nil, err
	}

	pet, err := s.deps.Pets.FindPet(ctx, cert.PetID)
	if err != nil {
		return nil, err
	}

	vet, err := s.deps.Staff.FindStaff(ctx, cert.VetID)
	if err != nil {
		return nil, err
	}

	clinic, err := s.deps.Clinics.FindClinic(ctx, cert.ClinicID)
	if err != nil {
		return nil, err
	}

	return newCertificateView(cert, rec, pet, vet, clinic), nil
}

func (s *Service) views(ctx context.Context, certs []*models.Certificate) ([]*CertificateView, error) {
	views := make([]*CertificateView, 0, len(certs))

	for _, cert := range certs {
		view, err := s.view(ctx, cert)
		if err != nil {
			return nil, err
		}

		views = append(views, view)
	}

	return views, nil
}
