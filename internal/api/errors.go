package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/i-bosquet/petconnect-sub002/internal/authz"
	"github.com/i-bosquet/petconnect-sub002/internal/certify"
	"github.com/i-bosquet/petconnect-sub002/internal/eligibility"
	"github.com/i-bosquet/petconnect-sub002/internal/records"
	"github.com/i-bosquet/petconnect-sub002/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// writeError maps a service error onto an HTTP status. Internal failures
// answer with a generic message; the cause only goes to the log, so key
// handling details never reach the client.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrPetNotFound),
		errors.Is(err, store.ErrStaffNotFound),
		errors.Is(err, store.ErrClinicNotFound),
		errors.Is(err, store.ErrBreedNotFound),
		errors.Is(err, store.ErrRecordNotFound),
		errors.Is(err, store.ErrCertificateNotFound):
		return http.StatusNotFound

	case errors.Is(err, authz.ErrAccessDenied):
		return http.StatusForbidden

	case errors.Is(err, store.ErrCertificateExistsForRecord),
		errors.Is(err, store.ErrCertificateNumberTaken),
		errors.Is(err, records.ErrRecordImmutable),
		errors.Is(err, records.ErrVaccineRecordImmutable),
		errors.Is(err, records.ErrRecordSigned):
		return http.StatusConflict

	case errors.Is(err, eligibility.ErrMissingRabiesVaccine),
		errors.Is(err, eligibility.ErrMissingRecentCheckup):
		return http.StatusUnprocessableEntity

	case errors.Is(err, records.ErrInvalidRecord),
		errors.Is(err, certify.ErrInvalidNumber):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
