package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/i-bosquet/petconnect-sub002/internal/auth"
	"github.com/i-bosquet/petconnect-sub002/internal/models"
	"github.com/i-bosquet/petconnect-sub002/internal/records"
	"github.com/i-bosquet/petconnect-sub002/internal/store"
)

type vaccineBody struct {
	Name           string `json:"name"`
	Lab            string `json:"lab,omitempty"`
	BatchNumber    string `json:"batch_number,omitempty"`
	ValidityMonths int    `json:"validity_months,omitempty"`
	Rabies         bool   `json:"rabies"`
}

func (v *vaccineBody) toModel() *models.VaccineDetails {
	if v == nil {
		return nil
	}

	return &models.VaccineDetails{
		Name:           v.Name,
		Lab:            v.Lab,
		BatchNumber:    v.BatchNumber,
		ValidityMonths: v.ValidityMonths,
		Rabies:         v.Rabies,
	}
}

type createRecordRequest struct {
	Type        string       `json:"type"`
	Description string       `json:"description,omitempty"`
	Vaccine     *vaccineBody `json:"vaccine,omitempty"`

	// Sign requests a clinical signature at creation; key_password unlocks
	// the creating vet's signing key.
	Sign        bool   `json:"sign,omitempty"`
	KeyPassword string `json:"key_password,omitempty"`
}

type updateRecordRequest struct {
	Type        string       `json:"type"`
	Description string       `json:"description,omitempty"`
	Vaccine     *vaccineBody `json:"vaccine,omitempty"`
}

type signatureBody struct {
	SignerID  uuid.UUID `json:"signer_id"`
	KeyID     string    `json:"key_id"`
	Algorithm string    `json:"algorithm"`
	Value     string    `json:"value"`
	SignedAt  time.Time `json:"signed_at"`
}

type recordResponse struct {
	RecordID    uuid.UUID      `json:"record_id"`
	PetID       uuid.UUID      `json:"pet_id"`
	CreatorID   uuid.UUID      `json:"creator_id"`
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	Vaccine     *vaccineBody   `json:"vaccine,omitempty"`
	Signature   *signatureBody `json:"signature,omitempty"`
	Immutable   bool           `json:"immutable"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func toRecordResponse(rec *models.MedicalRecord) *recordResponse {
	resp := &recordResponse{
		RecordID:    rec.RecordID,
		PetID:       rec.PetID,
		CreatorID:   rec.CreatorID,
		Type:        rec.Type,
		Description: rec.Description,
		Immutable:   rec.Immutable,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}

	if rec.Vaccine != nil {
		resp.Vaccine = &vaccineBody{
			Name:           rec.Vaccine.Name,
			Lab:            rec.Vaccine.Lab,
			BatchNumber:    rec.Vaccine.BatchNumber,
			ValidityMonths: rec.Vaccine.ValidityMonths,
			Rabies:         rec.Vaccine.Rabies,
		}
	}

	if rec.Signature != nil {
		resp.Signature = &signatureBody{
			SignerID:  rec.Signature.SignerID,
			KeyID:     rec.Signature.KeyID,
			Algorithm: rec.Signature.Algorithm,
			Value:     rec.Signature.Value,
			SignedAt:  rec.Signature.SignedAt,
		}
	}

	return resp
}

func toRecordResponses(recs []*models.MedicalRecord) []*recordResponse {
	out := make([]*recordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecordResponse(rec))
	}

	return out
}

// requesterID pulls the authenticated staff ID out of the request context.
func requesterID(r *http.Request) (uuid.UUID, bool) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		return uuid.Nil, false
	}

	return principal.StaffID, true
}

func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))

	return id, err == nil
}

func (h *handlers) createRecord(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requesterID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}

	petID, ok := pathID(r, "petID")
	if !ok {
		badRequest(w, "invalid pet id")
		return
	}

	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}

	if req.Sign && req.KeyPassword == "" {
		badRequest(w, "key_password is required when sign is true")
		return
	}

	in := records.CreateInput{
		PetID:       petID,
		ActorID:     actorID,
		Type:        req.Type,
		Description: req.Description,
		Vaccine:     req.Vaccine.toModel(),
	}
	if req.Sign {
		in.KeyPassword = []byte(req.KeyPassword)
	}

	rec, err := h.records.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRecordResponse(rec))
}

func (h *handlers) listRecords(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requesterID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}

	petID, ok := pathID(r, "petID")
	if !ok {
		badRequest(w, "invalid pet id")
		return
	}

	filter := store.RecordFilter{Type: r.URL.Query().Get("type")}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			badRequest(w, "invalid limit")
			return
		}

		filter.Limit = limit
	}

	recs, err := h.records.ListByPet(r.Context(), petID, actorID, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecordResponses(recs))
}

func (h *handlers) getRecord(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requesterID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}

	recordID, ok := pathID(r, "recordID")
	if !ok {
		badRequest(w, "invalid record id")
		return
	}

	rec, err := h.records.Get(r.Context(), recordID, actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *handlers) updateRecord(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requesterID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}

	recordID, ok := pathID(r, "recordID")
	if !ok {
		badRequest(w, "invalid record id")
		return
	}

	var req updateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}

	rec, err := h.records.Update(r.Context(), records.UpdateInput{
		RecordID:    recordID,
		ActorID:     actorID,
		Type:        req.Type,
		Description: req.Description,
		Vaccine:     req.Vaccine.toModel(),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *handlers) deleteRecord(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requesterID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}

	recordID, ok := pathID(r, "recordID")
	if !ok {
		badRequest(w, "invalid record id")
		return
	}

	if err := h.records.Delete(r.Context(), recordID, actorID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
