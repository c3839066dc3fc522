// internal/web/server.go
//
// HTTP surface: router assembly and the shared response envelope.
//
// Context
//   The portal exposes a small JSON API: the read-only catalog feed the
//   browser form is built from, three submission endpoints, and the usual
//   liveness probe.  Handlers answer HTTP 200 with either
//   `{"success":true}` or `{"error":"..."}` (plus field detail on
//   validation failures); transport and status-code semantics stay boring
//   so the form's fetch logic needs exactly one code path.
//
//   A top-level recover guard converts programming errors into the same
//   generic failure message—raw panic detail, stack traces, and
//   credentials must never reach a submitter.
//
//------------------------------------------------------------------------------

package web

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/itestchem/labportal/internal/catalog"
	"github.com/itestchem/labportal/internal/config"
	"github.com/itestchem/labportal/internal/forms"
	"github.com/itestchem/labportal/internal/mailer"
	"github.com/itestchem/labportal/internal/ratelimit"
	"github.com/itestchem/labportal/internal/requestinfo"
	"github.com/itestchem/labportal/internal/verify"
)

// genericFailure is the uniform message for any system-side fault.
const genericFailure = "Failed to submit. Please try again later."

// Server wires the pipeline collaborators into HTTP handlers.  All fields
// are set once at construction; the value is safe for concurrent use.
type Server struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	catalog  *catalog.Catalog
	verifier verify.Verifier
	mail     mailer.Mailer
	limiter  *ratelimit.Limiter
}

// New constructs a Server.
func New(cfg *config.Config, log *zap.SugaredLogger, cat *catalog.Catalog,
	vf verify.Verifier, m mailer.Mailer, lim *ratelimit.Limiter) *Server {
	return &Server{
		cfg:      cfg,
		log:      log,
		catalog:  cat,
		verifier: vf,
		mail:     m,
		limiter:  lim,
	}
}

// Routes assembles the chi router.  Request-info enrichment runs before
// the handlers so every submission can key the rate limiter and log lead
// origin.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(s.recoverer)
	r.Use(requestinfo.Enrich)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/catalog", s.handleCatalog)
	r.Post("/api/quote", s.handleQuote)
	r.Post("/api/contact", s.handleContact)
	r.Post("/api/careers/apply", s.handleApplication)

	return r
}

// -----------------------------------------------------------------------------
// Response envelope
// -----------------------------------------------------------------------------

type envelope struct {
	Success bool               `json:"success,omitempty"`
	Error   string             `json:"error,omitempty"`
	Fields  []forms.FieldError `json:"fields,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Errorw("response encode failed", "err", err)
	}
}

func (s *Server) writeSuccess(w http.ResponseWriter) {
	s.writeJSON(w, envelope{Success: true})
}

func (s *Server) writeError(w http.ResponseWriter, msg string) {
	s.writeJSON(w, envelope{Error: msg})
}

func (s *Server) writeFieldErrors(w http.ResponseWriter, msg string, fields []forms.FieldError) {
	s.writeJSON(w, envelope{Error: msg, Fields: fields})
}

// -----------------------------------------------------------------------------
// Guard middleware
// -----------------------------------------------------------------------------

// recoverer converts panics into the generic failure envelope.  Detail is
// retained in server logs only.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Errorw("handler panic",
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				s.writeError(w, genericFailure)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// -----------------------------------------------------------------------------
// Static endpoints
// -----------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// handleCatalog serves the immutable reference data the quote form is
// built from: categories, sample types, parameters, and phone codes.
func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	s.writeJSON(w, s.catalog)
}
