package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/fmuoria/apply-portal/internal/config"
	"github.com/fmuoria/apply-portal/internal/export"
	"github.com/fmuoria/apply-portal/internal/logger"
	"github.com/fmuoria/apply-portal/internal/models"
	"github.com/fmuoria/apply-portal/internal/portal"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"pathEscape": url.PathEscape,
}).ParseFS(templateFS, "templates/index.html"))

// Server serves the browser front end over a shared portal
type Server struct {
	portal *portal.Portal
	config *config.Config
}

// NewServer creates a new web server
func NewServer(p *portal.Portal, cfg *config.Config) *Server {
	return &Server{
		portal: p,
		config: cfg,
	}
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /candidate", s.handleCandidate)
	mux.HandleFunc("POST /jobs/{id}/submit", s.handleSubmit)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /export.xlsx", s.handleExport)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleIndex)

	return s.loggingMiddleware(mux)
}

type jobRow struct {
	Key     string
	Title   string
	RepoURL string
	State   models.SubmitState
}

type pageData struct {
	BaseURL string
	State   portal.State
	Rows    []jobRow
}

// handleIndex renders the page from a snapshot
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := s.portal.Snapshot()

	data := pageData{BaseURL: s.config.APIBaseURL, State: st}
	if !st.JobsLoading && st.JobsError == "" {
		seen := map[string]bool{}
		for _, job := range st.Jobs {
			key := job.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			data.Rows = append(data.Rows, jobRow{
				Key:     key,
				Title:   job.Title,
				RepoURL: st.RepoURL(key),
				State:   st.SubmitState(key),
			})
		}
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		logger.Named("web").Errorw("failed to render page", logger.FieldError, err)
		s.respondError(w, http.StatusInternalServerError, "failed to render page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleCandidate stores the email and looks the candidate up. The lookup
// outlives the request: a client that goes away does not abort it.
func (s *Server) handleCandidate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	s.portal.SetEmail(r.PostFormValue("email"))
	s.portal.LookupCandidate(context.WithoutCancel(r.Context()))

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleSubmit stores the repository URL for the job and submits it
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	jobID := r.PathValue("id")
	s.portal.SetRepoURL(jobID, r.PostFormValue("repoUrl"))
	s.portal.Submit(context.WithoutCancel(r.Context()), jobID)

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleState returns the current snapshot
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.portal.Snapshot())
}

// handleExport streams the submission report
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	st := s.portal.Snapshot()

	var buf bytes.Buffer
	report := export.Report{Candidate: st.Candidate, Records: st.Records()}
	if err := export.WriteExcel(report, &buf); err != nil {
		logger.Named("web").Errorw("failed to build report", logger.FieldError, err)
		s.respondError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="submissions.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// handleHealth provides a health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Named("web").Warnw("failed to encode JSON response", logger.FieldError, err)
	}
}

// respondError sends an error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{
		"error": message,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	log := logger.Named("web")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Infow("request",
			logger.FieldMethod, r.Method,
			logger.FieldPath, r.URL.Path,
			logger.FieldStatus, rec.status,
			logger.FieldDurationMS, time.Since(start).Milliseconds(),
		)
	})
}
