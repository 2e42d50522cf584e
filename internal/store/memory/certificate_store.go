package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/store"
)

// CertificateStore implements store.CertificateStore using in-memory storage.
// It shares the record store so certificate persistence can freeze the source
// record in the same step.
type CertificateStore struct {
	mu sync.RWMutex

	certs    map[uuid.UUID]*models.Certificate // certificate_id -> Certificate
	byRecord map[uuid.UUID]uuid.UUID           // record_id -> certificate_id
	byNumber map[string]uuid.UUID              // number -> certificate_id

	records *RecordStore
}

// NewCertificateStore creates a new in-memory certificate store bound to the
// given record store.
func NewCertificateStore(records *RecordStore) *CertificateStore {
	return &CertificateStore{
		certs:    make(map[uuid.UUID]*models.Certificate),
		byRecord: make(map[uuid.UUID]uuid.UUID),
		byNumber: make(map[string]uuid.UUID),
		records:  records,
	}
}

// CreateCertificate stores the certificate and freezes the source record.
// Both changes become visible together, or not at all.
func (s *CertificateStore) CreateCertificate(ctx context.Context, cert *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byRecord[cert.RecordID]; exists {
		return store.ErrCertificateExistsForRecord
	}
	if _, exists := s.byNumber[cert.Number]; exists {
		return store.ErrCertificateNumberTaken
	}

	// Freeze before inserting: if the record is gone nothing is persisted.
	if err := s.records.freeze(cert.RecordID); err != nil {
		return err
	}

	clone := *cert
	s.certs[cert.CertificateID] = &clone
	s.byRecord[cert.RecordID] = cert.CertificateID
	s.byNumber[cert.Number] = cert.CertificateID

	return nil
}

// GetCertificate retrieves a certificate by ID.
func (s *CertificateStore) GetCertificate(ctx context.Context, certificateID uuid.UUID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cert, exists := s.certs[certificateID]
	if !exists {
		return nil, store.ErrCertificateNotFound
	}

	clone := *cert
	return &clone, nil
}

// ListCertificatesByPet returns the pet's certificates newest first.
func (s *CertificateStore) ListCertificatesByPet(ctx context.Context, petID uuid.UUID) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listWhere(func(c *models.Certificate) bool { return c.PetID == petID }), nil
}

// ListCertificatesByClinic returns the clinic's certificates newest first.
func (s *CertificateStore) ListCertificatesByClinic(ctx context.Context, clinicID uuid.UUID) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listWhere(func(c *models.Certificate) bool { return c.ClinicID == clinicID }), nil
}

// ExistsForRecord reports whether a certificate exists for the record.
func (s *CertificateStore) ExistsForRecord(ctx context.Context, recordID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.byRecord[recordID]
	return exists, nil
}

// NumberExists reports whether a certificate with the number exists.
func (s *CertificateStore) NumberExists(ctx context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.byNumber[number]
	return exists, nil
}

func (s *CertificateStore) listWhere(match func(*models.Certificate) bool) []*models.Certificate {
	var result []*models.Certificate
	for _, cert := range s.certs {
		if !match(cert) {
			continue
		}
		clone := *cert
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].IssuedAt.After(result[j].IssuedAt)
	})

	return result
}
