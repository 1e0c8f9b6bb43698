package portal

import (
	"maps"
	"slices"

	"github.com/fmuoria/apply-portal/internal/models"
)

// State is everything the views render
type State struct {
	Jobs        []models.Job `json:"jobs"`
	JobsLoading bool         `json:"jobs_loading"`
	JobsError   string       `json:"jobs_error,omitempty"`

	Email            string            `json:"email"`
	Candidate        *models.Candidate `json:"candidate"`
	CandidateLoading bool              `json:"candidate_loading"`
	CandidateError   string            `json:"candidate_error,omitempty"`

	RepoURLByJobID     map[string]string             `json:"repo_url_by_job_id"`
	SubmitStateByJobID map[string]models.SubmitState `json:"submit_state_by_job_id"`
}

func (s State) clone() State {
	out := s
	out.Jobs = slices.Clone(s.Jobs)
	out.RepoURLByJobID = maps.Clone(s.RepoURLByJobID)
	out.SubmitStateByJobID = maps.Clone(s.SubmitStateByJobID)
	return out
}

func (s State) findJob(jobID string) (models.Job, bool) {
	for _, job := range s.Jobs {
		if job.Key() == jobID {
			return job, true
		}
	}
	return models.Job{}, false
}

// RepoURL returns the text typed for jobID, or "".
func (s State) RepoURL(jobID string) string {
	return s.RepoURLByJobID[jobID]
}

// SubmitState returns the submission state of jobID; the zero value if untouched.
func (s State) SubmitState(jobID string) models.SubmitState {
	return s.SubmitStateByJobID[jobID]
}

// Records flattens every listed job into a report row
func (s State) Records() []models.SubmissionRecord {
	records := make([]models.SubmissionRecord, 0, len(s.Jobs))
	for _, job := range s.Jobs {
		key := job.Key()
		records = append(records, models.SubmissionRecord{
			JobID:   key,
			Title:   job.Title,
			RepoURL: s.RepoURL(key),
			State:   s.SubmitState(key),
		})
	}
	return records
}
