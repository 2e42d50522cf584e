package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/i-bosquet/petconnect-sub002/internal/certify"
	"github.com/i-bosquet/petconnect-sub002/internal/reports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type issueCertificateRequest struct {
	Number            string `json:"number"`
	VetKeyPassword    string `json:"vet_key_password"`
	ClinicKeyPassword string `json:"clinic_key_password"`
}

func (h *handlers) issueCertificate(w http.ResponseWriter, r *http.Request) {
	vetID, ok := requesterID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}

	petID, ok := pathID(r, "petID")
	if !ok {
		badRequest(w, "invalid pet id")
		return
	}

	var req issueCertificateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json body")
		return
	}

	view, err := h.certificates.Issue(r.Context(), certify.IssueRequest{
		PetID:             petID,
		VetID:             vetID,
		Number:            req.Number,
		VetKeyPassword:    []byte(req.VetKeyPassword),
		ClinicKeyPassword: []byte(req.ClinicKeyPassword),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

func (h *handlers) listCertificates(w http.ResponseWriter, r *http.Request) {
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

	views, err := h.certificates.ListByPet(r.Context(), petID, actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, views)
}

func (h *handlers) getCertificate(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requesterID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}

	certificateID, ok := pathID(r, "certificateID")
	if !ok {
		badRequest(w, "invalid certificate id")
		return
	}

	view, err := h.certificates.Get(r.Context(), certificateID, actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *handlers) certificateQR(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requesterID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}

	certificateID, ok := pathID(r, "certificateID")
	if !ok {
		badRequest(w, "invalid certificate id")
		return
	}

	token, err := h.certificates.QRToken(r.Context(), certificateID, actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, token)
}

func (h *handlers) clinicRegister(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requesterID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthenticated"})
		return
	}

	clinicID, ok := pathID(r, "clinicID")
	if !ok {
		badRequest(w, "invalid clinic id")
		return
	}

	views, err := h.certificates.ListByClinic(r.Context(), clinicID, actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	workbook, err := reports.BuildRegister(views)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="certificate-register.xlsx"`)

	if _, err := w.Write(workbook); err != nil {
		// The status line is already out, so the failure can only be logged.
		log.Error().Err(err).Msg("Failed to stream register workbook")
	}
}
