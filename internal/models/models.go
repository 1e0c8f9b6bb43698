package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID is a JSON identifier kept in its raw form so it can be sent back to the
// backend exactly as it was received (string or number).
type ID struct {
	raw json.RawMessage
}

// NewID returns a string ID
func NewID(s string) ID {
	b, _ := json.Marshal(s)
	return ID{raw: b}
}

// String returns the identifier as a map key: the unquoted string, or the
// literal for any other JSON value.
func (id ID) String() string {
	if len(id.raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(id.raw, &s); err == nil {
		return s
	}
	return string(id.raw)
}

// IsZero reports whether the identifier is missing, null, "", 0 or false.
func (id ID) IsZero() bool {
	raw := bytes.TrimSpace(id.raw)
	if len(raw) == 0 {
		return true
	}
	switch string(raw) {
	case "null", `""`, "false":
		return true
	}
	if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
		return f == 0
	}
	return false
}

// MarshalJSON implements json.Marshaler
func (id ID) MarshalJSON() ([]byte, error) {
	if len(id.raw) == 0 {
		return []byte("null"), nil
	}
	return id.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *ID) UnmarshalJSON(data []byte) error {
	id.raw = append(id.raw[:0], data...)
	return nil
}

// Job is a posting a candidate can apply to. Fields holds every attribute
// the backend returned, including id and title.
type Job struct {
	ID     ID             `json:"id"`
	Title  string         `json:"title"`
	Fields map[string]any `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the full object.
func (j *Job) UnmarshalJSON(data []byte) error {
	type plain Job
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*j = Job(p)
	j.Fields = fields
	return nil
}

// MarshalJSON writes the full object as received
func (j Job) MarshalJSON() ([]byte, error) {
	if j.Fields != nil {
		return json.Marshal(j.Fields)
	}
	type plain Job
	return json.Marshal(plain(j))
}

// Key returns the identifier used to address per-job state
func (j Job) Key() string {
	return j.ID.String()
}

// Candidate is the identity record resolved by email
type Candidate struct {
	UUID        ID             `json:"uuid"`
	CandidateID ID             `json:"candidateId"`
	Fields      map[string]any `json:"-"`
}

// UnmarshalJSON decodes uuid and candidateId and keeps the whole body in Fields.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	type plain Candidate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*c = Candidate(p)
	c.Fields = fields
	return nil
}

// MarshalJSON writes the full body as received
func (c Candidate) MarshalJSON() ([]byte, error) {
	if c.Fields != nil {
		return json.Marshal(c.Fields)
	}
	type plain Candidate
	return json.Marshal(plain(c))
}

// Resolved reports whether the candidate carries both identifiers needed to apply.
func (c *Candidate) Resolved() bool {
	return c != nil && !c.UUID.IsZero() && !c.CandidateID.IsZero()
}

// ApplyRequest is the exact body of POST /api/candidate/apply-to-job
type ApplyRequest struct {
	UUID        ID     `json:"uuid"`
	JobID       ID     `json:"jobId"`
	CandidateID ID     `json:"candidateId"`
	RepoURL     string `json:"repoUrl"`
}

// SubmitState tracks one job row's submission
type SubmitState struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
	Success string `json:"success,omitempty"`
}

// SubmitPatch is an addressed partial update; nil fields are left untouched.
type SubmitPatch struct {
	Loading *bool
	Error   *string
	Success *string
}

// Apply returns s with the patch applied
func (p SubmitPatch) Apply(s SubmitState) SubmitState {
	if p.Loading != nil {
		s.Loading = *p.Loading
	}
	if p.Error != nil {
		s.Error = *p.Error
	}
	if p.Success != nil {
		s.Success = *p.Success
	}
	return s
}

// SubmissionRecord is one job row flattened for reporting
type SubmissionRecord struct {
	JobID   string      `json:"job_id"`
	Title   string      `json:"title"`
	RepoURL string      `json:"repo_url"`
	State   SubmitState `json:"state"`
}

// Status summarizes the record for display
func (r SubmissionRecord) Status() string {
	switch {
	case r.State.Loading:
		return "sending"
	case r.State.Error != "":
		return "failed"
	case r.State.Success != "":
		return "submitted"
	default:
		return "pending"
	}
}
