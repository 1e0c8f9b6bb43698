package portal

import (
	"context"
	"strings"
	"sync"

	"github.com/fmuoria/apply-portal/internal/logger"
	"github.com/fmuoria/apply-portal/internal/models"
)

// Messages shown to the candidate
const (
	MsgEmailRequired     = "Ingresá tu email."
	MsgCandidateRequired = "Primero buscá tu candidato por email (Step 2)."
	MsgRepoURLRequired   = "Ingresá la URL del repo."
	MsgSubmittedOK       = "✅ { ok: true }"
	MsgSubmitted         = "✅ Enviado correctamente"

	msgJobsFailed      = "Error cargando posiciones"
	msgCandidateFailed = "Error obteniendo candidato"
	msgSubmitFailed    = "Error enviando postulación"
)

// Backend is the remote service the portal talks to
type Backend interface {
	ListJobs(ctx context.Context) ([]models.Job, error)
	GetCandidateByEmail(ctx context.Context, email string) (*models.Candidate, error)
	ApplyToJob(ctx context.Context, req models.ApplyRequest) (any, error)
}

// ChangeCallback is called after every state change
type ChangeCallback func()

// Portal owns the application state and runs the network operations.
// Operations block until their request completes; front ends call them off
// the UI thread.
type Portal struct {
	mu       sync.RWMutex
	backend  Backend
	state    State
	onChange ChangeCallback
}

// New creates a portal. Jobs are reported as loading until LoadJobs finishes.
func New(backend Backend) *Portal {
	return &Portal{
		backend: backend,
		state: State{
			JobsLoading:        true,
			RepoURLByJobID:     map[string]string{},
			SubmitStateByJobID: map[string]models.SubmitState{},
		},
	}
}

// SetChangeCallback sets the change callback function
func (p *Portal) SetChangeCallback(cb ChangeCallback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onChange = cb
}

// SetBackend swaps the backend used by subsequent operations
func (p *Portal) SetBackend(backend Backend) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.backend = backend
}

// Snapshot returns a copy of the current state
func (p *Portal) Snapshot() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state.clone()
}

// update mutates state under the lock, then notifies outside of it
func (p *Portal) update(fn func(s *State)) {
	p.mu.Lock()
	fn(&p.state)
	cb := p.onChange
	p.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (p *Portal) currentBackend() Backend {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.backend
}

// LoadJobs fetches the job list
func (p *Portal) LoadJobs(ctx context.Context) {
	log := logger.Named("portal")

	p.update(func(s *State) {
		s.JobsLoading = true
		s.JobsError = ""
	})

	jobs, err := p.currentBackend().ListJobs(ctx)

	p.update(func(s *State) {
		s.JobsLoading = false
		if err != nil {
			s.JobsError = messageOr(err, msgJobsFailed)
			return
		}
		if jobs == nil {
			jobs = []models.Job{}
		}
		s.Jobs = jobs
	})

	if err != nil {
		log.Warnw("failed to load jobs", logger.FieldError, err)
		return
	}
	log.Infow("jobs loaded", logger.FieldCount, len(jobs))
}

// SetEmail stores the email field text
func (p *Portal) SetEmail(email string) {
	p.mu.RLock()
	unchanged := p.state.Email == email
	p.mu.RUnlock()
	if unchanged {
		return
	}

	p.update(func(s *State) {
		s.Email = email
	})
}

// LookupCandidate resolves the candidate for the current email. Overlapping
// lookups are not fenced: whichever response arrives last is kept.
func (p *Portal) LookupCandidate(ctx context.Context) {
	log := logger.Named("portal")

	p.mu.RLock()
	email := strings.TrimSpace(p.state.Email)
	p.mu.RUnlock()

	if email == "" {
		p.update(func(s *State) {
			s.CandidateError = MsgEmailRequired
		})
		return
	}

	p.update(func(s *State) {
		s.CandidateLoading = true
		s.CandidateError = ""
	})

	candidate, err := p.currentBackend().GetCandidateByEmail(ctx, email)

	p.update(func(s *State) {
		s.CandidateLoading = false
		if err != nil {
			s.Candidate = nil
			s.CandidateError = messageOr(err, msgCandidateFailed)
			return
		}
		s.Candidate = candidate
	})

	if err != nil {
		log.Warnw("candidate lookup failed", logger.FieldError, err)
	}
}

// SetRepoURL stores the repository URL typed for jobID
func (p *Portal) SetRepoURL(jobID, value string) {
	p.mu.RLock()
	current, ok := p.state.RepoURLByJobID[jobID]
	p.mu.RUnlock()
	if ok && current == value {
		return
	}

	p.update(func(s *State) {
		s.RepoURLByJobID[jobID] = value
	})
}

// Submit applies the resolved candidate to jobID with the URL typed for it.
// Only that job's submission state is touched.
func (p *Portal) Submit(ctx context.Context, jobID string) {
	log := logger.Named("portal").With(logger.FieldJobID, jobID)

	p.patchSubmitState(jobID, models.SubmitPatch{Error: ptr(""), Success: ptr("")})

	p.mu.RLock()
	candidate := p.state.Candidate
	repoURL := strings.TrimSpace(p.state.RepoURLByJobID[jobID])
	job, found := p.state.findJob(jobID)
	p.mu.RUnlock()

	if !candidate.Resolved() {
		p.patchSubmitState(jobID, models.SubmitPatch{Error: ptr(MsgCandidateRequired)})
		return
	}
	if repoURL == "" {
		p.patchSubmitState(jobID, models.SubmitPatch{Error: ptr(MsgRepoURLRequired)})
		return
	}

	jobRef := models.NewID(jobID)
	if found {
		jobRef = job.ID
	}

	p.patchSubmitState(jobID, models.SubmitPatch{Loading: ptr(true)})
	defer p.patchSubmitState(jobID, models.SubmitPatch{Loading: ptr(false)})

	res, err := p.currentBackend().ApplyToJob(ctx, models.ApplyRequest{
		UUID:        candidate.UUID,
		JobID:       jobRef,
		CandidateID: candidate.CandidateID,
		RepoURL:     repoURL,
	})
	if err != nil {
		log.Warnw("application failed", logger.FieldError, err)
		p.patchSubmitState(jobID, models.SubmitPatch{Error: ptr(messageOr(err, msgSubmitFailed))})
		return
	}

	log.Infow("apply response", "response", res)
	if isStrictOK(res) {
		p.patchSubmitState(jobID, models.SubmitPatch{Success: ptr(MsgSubmittedOK)})
	} else {
		p.patchSubmitState(jobID, models.SubmitPatch{Success: ptr(MsgSubmitted)})
	}
}

func (p *Portal) patchSubmitState(jobID string, patch models.SubmitPatch) {
	p.update(func(s *State) {
		s.SubmitStateByJobID[jobID] = patch.Apply(s.SubmitStateByJobID[jobID])
	})
}

// isStrictOK reports whether res is an object whose ok field is boolean true
func isStrictOK(res any) bool {
	obj, ok := res.(map[string]any)
	if !ok {
		return false
	}
	v, ok := obj["ok"].(bool)
	return ok && v
}

func messageOr(err error, fallback string) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

func ptr[T any](v T) *T {
	return &v
}
