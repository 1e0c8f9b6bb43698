package portal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/fmuoria/apply-portal/internal/api"
	"github.com/fmuoria/apply-portal/internal/models"
)

// fakeBackend records calls and returns canned answers
type fakeBackend struct {
	mu sync.Mutex

	jobs    []models.Job
	jobsErr error

	candidate    *models.Candidate
	candidateErr error

	applyRes any
	applyErr error

	lookupEmails []string
	applied      []models.ApplyRequest
}

func (f *fakeBackend) ListJobs(ctx context.Context) ([]models.Job, error) {
	return f.jobs, f.jobsErr
}

func (f *fakeBackend) GetCandidateByEmail(ctx context.Context, email string) (*models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookupEmails = append(f.lookupEmails, email)
	return f.candidate, f.candidateErr
}

func (f *fakeBackend) ApplyToJob(ctx context.Context, req models.ApplyRequest) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, req)
	return f.applyRes, f.applyErr
}

func mustJobs(t *testing.T, raw string) []models.Job {
	t.Helper()
	var jobs []models.Job
	if err := json.Unmarshal([]byte(raw), &jobs); err != nil {
		t.Fatalf("Failed to decode jobs: %v", err)
	}
	return jobs
}

func mustCandidate(t *testing.T, raw string) *models.Candidate {
	t.Helper()
	var c models.Candidate
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("Failed to decode candidate: %v", err)
	}
	return &c
}

// resolvedPortal returns a portal with two jobs loaded and candidate u1/c1 resolved
func resolvedPortal(t *testing.T, backend *fakeBackend) *Portal {
	t.Helper()
	backend.jobs = mustJobs(t, `[{"id":"j1","title":"Backend Eng"},{"id":"j2","title":"Frontend Eng"}]`)
	backend.candidate = mustCandidate(t, `{"uuid":"u1","candidateId":"c1"}`)

	p := New(backend)
	p.LoadJobs(context.Background())
	p.SetEmail("a@b.com")
	p.LookupCandidate(context.Background())
	if !p.Snapshot().Candidate.Resolved() {
		t.Fatal("Expected candidate to be resolved")
	}
	return p
}

func TestNewStartsLoadingJobs(t *testing.T) {
	p := New(&fakeBackend{})
	s := p.Snapshot()

	if !s.JobsLoading {
		t.Error("Expected jobs to be loading before the first load")
	}
	if s.Candidate != nil {
		t.Error("Expected no candidate initially")
	}
}

func TestLoadJobs(t *testing.T) {
	tests := []struct {
		name      string
		jobs      []models.Job
		err       error
		wantCount int
		wantError string
	}{
		{name: "Empty list", jobs: []models.Job{}, wantCount: 0},
		{name: "Nil list", jobs: nil, wantCount: 0},
		{name: "Backend error", err: errors.New("HTTP 500"), wantError: "HTTP 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(&fakeBackend{jobs: tt.jobs, jobsErr: tt.err})
			p.LoadJobs(context.Background())
			s := p.Snapshot()

			if s.JobsLoading {
				t.Error("Expected loading to be cleared")
			}
			if s.JobsError != tt.wantError {
				t.Errorf("JobsError = %q, want %q", s.JobsError, tt.wantError)
			}
			if len(s.Jobs) != tt.wantCount {
				t.Errorf("len(Jobs) = %d, want %d", len(s.Jobs), tt.wantCount)
			}
		})
	}
}

func TestLookupCandidateBlankEmail(t *testing.T) {
	for _, email := range []string{"", " ", "\t\n  "} {
		backend := &fakeBackend{}
		p := New(backend)
		p.SetEmail(email)
		p.LookupCandidate(context.Background())

		s := p.Snapshot()
		if s.CandidateError != MsgEmailRequired {
			t.Errorf("CandidateError(%q) = %q, want %q", email, s.CandidateError, MsgEmailRequired)
		}
		if len(backend.lookupEmails) != 0 {
			t.Errorf("Expected no network call for %q, got %v", email, backend.lookupEmails)
		}
	}
}

func TestLookupCandidateSuccessStoresBody(t *testing.T) {
	candidate := mustCandidate(t, `{"uuid":"u1","candidateId":"c1","firstName":"Ada"}`)
	backend := &fakeBackend{candidate: candidate}
	p := New(backend)

	p.SetEmail("  a@b.com ")
	p.LookupCandidate(context.Background())
	s := p.Snapshot()

	if !reflect.DeepEqual(backend.lookupEmails, []string{"a@b.com"}) {
		t.Errorf("Lookup emails = %v, want [a@b.com]", backend.lookupEmails)
	}
	if s.Candidate != candidate {
		t.Errorf("Candidate = %+v, want %+v", s.Candidate, candidate)
	}
	if s.CandidateError != "" || s.CandidateLoading {
		t.Errorf("Unexpected lookup state: error=%q loading=%v", s.CandidateError, s.CandidateLoading)
	}
}

func TestLookupCandidateFailureClearsCandidate(t *testing.T) {
	backend := &fakeBackend{candidate: mustCandidate(t, `{"uuid":"u1","candidateId":"c1"}`)}
	p := New(backend)
	p.SetEmail("a@b.com")
	p.LookupCandidate(context.Background())

	backend.candidate = nil
	backend.candidateErr = &api.Error{StatusCode: http.StatusNotFound, Message: "not found"}
	p.LookupCandidate(context.Background())
	s := p.Snapshot()

	if s.Candidate != nil {
		t.Errorf("Expected candidate to be cleared, got %+v", s.Candidate)
	}
	if s.CandidateError != "not found" {
		t.Errorf("CandidateError = %q, want %q", s.CandidateError, "not found")
	}
}

func TestLookupCandidateErrorFallback(t *testing.T) {
	p := New(&fakeBackend{candidateErr: errors.New("")})
	p.SetEmail("a@b.com")
	p.LookupCandidate(context.Background())

	if got := p.Snapshot().CandidateError; got != msgCandidateFailed {
		t.Errorf("CandidateError = %q, want %q", got, msgCandidateFailed)
	}
}

func TestSubmitWithoutCandidate(t *testing.T) {
	backend := &fakeBackend{jobs: mustJobs(t, `[{"id":"j1","title":"Backend Eng"}]`)}
	p := New(backend)
	p.LoadJobs(context.Background())
	p.SetRepoURL("j1", "https://github.com/x/y")

	p.Submit(context.Background(), "j1")
	st := p.Snapshot().SubmitState("j1")

	if st.Error != MsgCandidateRequired {
		t.Errorf("Error = %q, want %q", st.Error, MsgCandidateRequired)
	}
	if len(backend.applied) != 0 {
		t.Errorf("Expected no write request, got %v", backend.applied)
	}
}

func TestSubmitWithPartialCandidate(t *testing.T) {
	backend := &fakeBackend{candidate: mustCandidate(t, `{"uuid":"u1"}`)}
	p := New(backend)
	p.SetEmail("a@b.com")
	p.LookupCandidate(context.Background())
	p.SetRepoURL("j1", "https://github.com/x/y")

	p.Submit(context.Background(), "j1")

	if got := p.Snapshot().SubmitState("j1").Error; got != MsgCandidateRequired {
		t.Errorf("Error = %q, want %q", got, MsgCandidateRequired)
	}
	if len(backend.applied) != 0 {
		t.Errorf("Expected no write request, got %v", backend.applied)
	}
}

func TestSubmitBlankRepoURL(t *testing.T) {
	for _, url := range []string{"", "   "} {
		backend := &fakeBackend{}
		p := resolvedPortal(t, backend)
		p.SetRepoURL("j1", url)

		p.Submit(context.Background(), "j1")
		st := p.Snapshot().SubmitState("j1")

		if st.Error != MsgRepoURLRequired {
			t.Errorf("Error(%q) = %q, want %q", url, st.Error, MsgRepoURLRequired)
		}
		if st.Loading {
			t.Error("Expected loading to stay false")
		}
		if len(backend.applied) != 0 {
			t.Errorf("Expected no write request, got %v", backend.applied)
		}
	}
}

func TestSubmitSuccessMessages(t *testing.T) {
	tests := []struct {
		name     string
		response any
		expected string
	}{
		{name: "Strict ok", response: map[string]any{"ok": true}, expected: MsgSubmittedOK},
		{name: "Ok false", response: map[string]any{"ok": false}, expected: MsgSubmitted},
		{name: "Ok as string", response: map[string]any{"ok": "true"}, expected: MsgSubmitted},
		{name: "Other object", response: map[string]any{"status": "queued"}, expected: MsgSubmitted},
		{name: "Empty body", response: nil, expected: MsgSubmitted},
		{name: "Array body", response: []any{true}, expected: MsgSubmitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{applyRes: tt.response}
			p := resolvedPortal(t, backend)
			p.SetRepoURL("j1", "https://github.com/x/y")

			p.Submit(context.Background(), "j1")
			st := p.Snapshot().SubmitState("j1")

			if st.Success != tt.expected {
				t.Errorf("Success = %q, want %q", st.Success, tt.expected)
			}
			if st.Error != "" || st.Loading {
				t.Errorf("Unexpected state: %+v", st)
			}
		})
	}
}

func TestSubmitFailure(t *testing.T) {
	backend := &fakeBackend{applyErr: &api.Error{StatusCode: http.StatusBadRequest, Message: "invalid repo"}}
	p := resolvedPortal(t, backend)
	p.SetRepoURL("j1", "https://github.com/x/y")

	p.Submit(context.Background(), "j1")
	st := p.Snapshot().SubmitState("j1")

	if st.Error != "invalid repo" {
		t.Errorf("Error = %q, want %q", st.Error, "invalid repo")
	}
	if st.Success != "" || st.Loading {
		t.Errorf("Unexpected state: %+v", st)
	}
}

func TestSubmitClearsPreviousOutcome(t *testing.T) {
	backend := &fakeBackend{applyErr: errors.New("boom")}
	p := resolvedPortal(t, backend)
	p.SetRepoURL("j1", "https://github.com/x/y")
	p.Submit(context.Background(), "j1")

	backend.applyErr = nil
	backend.applyRes = map[string]any{"ok": true}
	p.Submit(context.Background(), "j1")
	st := p.Snapshot().SubmitState("j1")

	if st.Error != "" {
		t.Errorf("Expected previous error to be cleared, got %q", st.Error)
	}
	if st.Success != MsgSubmittedOK {
		t.Errorf("Success = %q, want %q", st.Success, MsgSubmittedOK)
	}
}

func TestSubmitMarksLoadingDuringRequest(t *testing.T) {
	backend := &fakeBackend{applyRes: map[string]any{"ok": true}}
	p := resolvedPortal(t, backend)
	p.SetRepoURL("j1", "https://github.com/x/y")

	var sawLoading bool
	p.SetChangeCallback(func() {
		if p.Snapshot().SubmitState("j1").Loading {
			sawLoading = true
		}
	})
	p.Submit(context.Background(), "j1")

	if !sawLoading {
		t.Error("Expected loading to be set while the request was in flight")
	}
	if p.Snapshot().SubmitState("j1").Loading {
		t.Error("Expected loading to be cleared after the request")
	}
}

func TestSubmitDoesNotTouchOtherJobs(t *testing.T) {
	backend := &fakeBackend{applyErr: errors.New("j1 failed")}
	p := resolvedPortal(t, backend)
	p.SetRepoURL("j1", "https://github.com/x/one")
	p.SetRepoURL("j2", "https://github.com/x/two")
	p.Submit(context.Background(), "j1")

	before := p.Snapshot().SubmitState("j1")

	backend.applyErr = nil
	backend.applyRes = map[string]any{"ok": true}
	p.Submit(context.Background(), "j2")
	s := p.Snapshot()

	if s.SubmitState("j1") != before {
		t.Errorf("j1 state changed: %+v -> %+v", before, s.SubmitState("j1"))
	}
	if s.SubmitState("j2").Success != MsgSubmittedOK {
		t.Errorf("j2 Success = %q, want %q", s.SubmitState("j2").Success, MsgSubmittedOK)
	}
	if s.RepoURL("j1") != "https://github.com/x/one" {
		t.Errorf("j1 repo URL changed to %q", s.RepoURL("j1"))
	}
}

func TestSubmitSendsNumericJobIDUnchanged(t *testing.T) {
	backend := &fakeBackend{applyRes: map[string]any{"ok": true}}
	p := resolvedPortal(t, backend)
	backend.jobs = mustJobs(t, `[{"id":7,"title":"Numeric"}]`)
	p.LoadJobs(context.Background())
	p.SetRepoURL("7", "https://github.com/x/y")

	p.Submit(context.Background(), "7")

	if len(backend.applied) != 1 {
		t.Fatalf("Expected one write request, got %d", len(backend.applied))
	}
	body, _ := json.Marshal(backend.applied[0])
	want := `{"uuid":"u1","jobId":7,"candidateId":"c1","repoUrl":"https://github.com/x/y"}`
	if string(body) != want {
		t.Errorf("Body = %s, want %s", body, want)
	}
}

func TestSetRepoURLNotifiesOnlyOnChange(t *testing.T) {
	p := New(&fakeBackend{})
	calls := 0
	p.SetChangeCallback(func() { calls++ })

	p.SetRepoURL("j1", "a")
	p.SetRepoURL("j1", "a")
	p.SetRepoURL("j1", "ab")

	if calls != 2 {
		t.Errorf("change callbacks = %d, want 2", calls)
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	p := New(&fakeBackend{})
	p.SetRepoURL("j1", "a")

	s := p.Snapshot()
	s.RepoURLByJobID["j1"] = "mutated"

	if got := p.Snapshot().RepoURL("j1"); got != "a" {
		t.Errorf("RepoURL = %q, want a", got)
	}
}

func TestRecords(t *testing.T) {
	backend := &fakeBackend{applyRes: map[string]any{"ok": true}}
	p := resolvedPortal(t, backend)
	p.SetRepoURL("j1", "https://github.com/x/y")
	p.Submit(context.Background(), "j1")

	records := p.Snapshot().Records()
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].JobID != "j1" || records[0].Status() != "submitted" {
		t.Errorf("Unexpected first record: %+v", records[0])
	}
	if records[1].JobID != "j2" || records[1].Status() != "pending" {
		t.Errorf("Unexpected second record: %+v", records[1])
	}
}

// TestEndToEndScenario drives the portal against a fake HTTP backend through the real client.
func TestEndToEndScenario(t *testing.T) {
	var mu sync.Mutex
	var posted []map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/jobs/get-list", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":"j1","title":"Backend Eng"},{"id":"j2","title":"Data Eng"}]`)
	})
	mux.HandleFunc("GET /api/candidate/get-by-email", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("email") != "a@b.com" {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"message":"not found"}`)
			return
		}
		io.WriteString(w, `{"uuid":"u1","candidateId":"c1"}`)
	})
	mux.HandleFunc("POST /api/candidate/apply-to-job", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		posted = append(posted, body)
		mu.Unlock()
		io.WriteString(w, `{"ok":true}`)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	p := New(api.NewClient(ts.URL, ts.Client()))
	ctx := context.Background()

	p.LoadJobs(ctx)
	p.SetEmail("nobody@b.com")
	p.LookupCandidate(ctx)
	if s := p.Snapshot(); s.Candidate != nil || s.CandidateError != "not found" {
		t.Fatalf("Expected not found lookup, got candidate=%v error=%q", s.Candidate, s.CandidateError)
	}

	p.SetEmail("a@b.com")
	p.LookupCandidate(ctx)
	p.SetRepoURL("j1", "https://github.com/x/y")
	p.Submit(ctx, "j1")
	s := p.Snapshot()

	expected := []map[string]any{{
		"uuid":        "u1",
		"jobId":       "j1",
		"candidateId": "c1",
		"repoUrl":     "https://github.com/x/y",
	}}
	if !reflect.DeepEqual(posted, expected) {
		t.Errorf("Posted = %#v, want %#v", posted, expected)
	}
	if s.SubmitState("j1").Success != MsgSubmittedOK {
		t.Errorf("j1 Success = %q, want %q", s.SubmitState("j1").Success, MsgSubmittedOK)
	}
	if _, touched := s.SubmitStateByJobID["j2"]; touched {
		t.Errorf("Expected j2 to be untouched, got %+v", s.SubmitState("j2"))
	}
}
