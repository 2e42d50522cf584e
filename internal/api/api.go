// Package api exposes the medical record and certificate services over
// HTTP. Every /api/v1 route sits behind bearer-token verification; the
// requester identity always comes from the verified token subject, never
// from the request body.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/i-bosquet/petconnect-sub002/internal/auth"
	"github.com/i-bosquet/petconnect-sub002/internal/certify"
	"github.com/i-bosquet/petconnect-sub002/internal/records"
)

// Options wires the router to the domain services.
type Options struct {
	Records      *records.Service
	Certificates *certify.Service
	Verifier     *auth.Verifier

	// CORSOrigins lists the browser origins allowed to call the API.
	// Empty leaves CORS off.
	CORSOrigins []string
}

type handlers struct {
	records      *records.Service
	certificates *certify.Service
}

// New builds the HTTP handler tree.
func New(opts Options) http.Handler {
	h := &handlers{
		records:      opts.Records,
		certificates: opts.Certificates,
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(opts.Verifier.Middleware())

		api.Route("/pets/{petID}", func(pr chi.Router) {
			pr.Post("/records", h.createRecord)
			pr.Get("/records", h.listRecords)
			pr.Post("/certificates", h.issueCertificate)
			pr.Get("/certificates", h.listCertificates)
		})

		api.Get("/records/{recordID}", h.getRecord)
		api.Put("/records/{recordID}", h.updateRecord)
		api.Delete("/records/{recordID}", h.deleteRecord)

		api.Get("/certificates/{certificateID}", h.getCertificate)
		api.Get("/certificates/{certificateID}/qr", h.certificateQR)

		api.Get("/clinics/{clinicID}/certificates/register", h.clinicRegister)
	})

	if len(opts.CORSOrigins) == 0 {
		return r
	}

	return cors.New(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler(r)
}
