package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/fmuoria/apply-portal/internal/logger"
	"github.com/fmuoria/apply-portal/internal/models"
)

const (
	jobsListPath        = "/api/jobs/get-list"
	candidateByEmailURL = "/api/candidate/get-by-email"
	applyToJobPath      = "/api/candidate/apply-to-job"

	requestIDHeader = "X-Request-Id"
)

// errorMessageFields are checked in order when a failed response carries a body.
var errorMessageFields = []string{"message", "error", "detail", "title"}

// Error is returned for any non-2xx response
type Error struct {
	StatusCode int
	Message    string
	Body       any
}

func (e *Error) Error() string {
	return e.Message
}

// Client talks to the jobs backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for baseURL. A nil httpClient means http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL returns the configured base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request and returns the decoded body
func (c *Client) Get(ctx context.Context, path string) (any, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post sends body as JSON and returns the decoded response body
func (c *Client) Post(ctx context.Context, path string, body any) (any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request body")
	}
	return c.do(ctx, http.MethodPost, path, payload)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (any, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build %s %s", method, path)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)

	log := logger.Named("api").With(
		logger.FieldMethod, method,
		logger.FieldPath, path,
		logger.FieldRequestID, requestID,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warnw("request failed", logger.FieldError, err)
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read response of %s %s", method, path)
	}
	data := parseBody(raw)

	log.Infow("request completed",
		logger.FieldStatus, resp.StatusCode,
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Message:    pickErrorMessage(data, resp.StatusCode),
			Body:       data,
		}
	}

	return data, nil
}

// parseBody decodes JSON, falling back to {"message": text}. An empty body is nil.
func parseBody(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return map[string]any{"message": string(raw)}
	}
	return data
}

func pickErrorMessage(data any, status int) string {
	if obj, ok := data.(map[string]any); ok {
		for _, field := range errorMessageFields {
			if msg, ok := messageFrom(obj[field]); ok {
				return msg
			}
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}

// messageFrom renders a truthy JSON value as text
func messageFrom(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, val != ""
	case bool:
		return "true", val
	case float64:
		if val == 0 {
			return "", false
		}
		return fmt.Sprint(val), true
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// falsy reports whether v is null, false, 0 or ""
func falsy(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case string:
		return val == ""
	case float64:
		return val == 0
	}
	return false
}

// ListJobs fetches the job postings. An empty or falsy response is an empty list.
func (c *Client) ListJobs(ctx context.Context) ([]models.Job, error) {
	data, err := c.Get(ctx, jobsListPath)
	if err != nil {
		return nil, err
	}
	if falsy(data) {
		return []models.Job{}, nil
	}
	if _, ok := data.([]any); !ok {
		return nil, errors.Newf("unexpected jobs response: %T", data)
	}

	var jobs []models.Job
	if err := decodeInto(data, &jobs); err != nil {
		return nil, errors.Wrap(err, "failed to decode jobs")
	}
	return jobs, nil
}

// GetCandidateByEmail looks up a candidate. A nil candidate with a nil error
// means the backend answered with an empty or falsy body. Any other body that
// is not an object yields a candidate without identifiers.
func (c *Client) GetCandidateByEmail(ctx context.Context, email string) (*models.Candidate, error) {
	data, err := c.Get(ctx, candidateByEmailURL+"?email="+escapeQueryValue(email))
	if err != nil {
		return nil, err
	}
	if falsy(data) {
		return nil, nil
	}
	if _, ok := data.(map[string]any); !ok {
		logger.Named("api").Warnw("candidate response is not an object", "type", fmt.Sprintf("%T", data))
		return &models.Candidate{}, nil
	}

	var candidate models.Candidate
	if err := decodeInto(data, &candidate); err != nil {
		return nil, errors.Wrap(err, "failed to decode candidate")
	}
	return &candidate, nil
}

// ApplyToJob submits an application and returns the decoded response body
func (c *Client) ApplyToJob(ctx context.Context, req models.ApplyRequest) (any, error) {
	return c.Post(ctx, applyToJobPath, req)
}

// escapeQueryValue escapes a query value, encoding spaces as %20 rather than +.
func escapeQueryValue(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// decodeInto converts a decoded JSON value into a typed one
func decodeInto(data any, out any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
