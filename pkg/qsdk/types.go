package qsdk

import (
	"encoding/json"
	"time"
)

// ModelSummary is one entry of a model listing.
type ModelSummary struct {
	Owner         string   `json:"owner"`
	Name          string   `json:"name"`
	URL           string   `json:"url"`
	Description   string   `json:"description"`
	Visibility    string   `json:"visibility"`
	LatestVersion *Version `json:"latest_version,omitempty"`
}

// ID returns "owner/name".
func (m ModelSummary) ID() string {
	return m.Owner + "/" + m.Name
}

// ModelDetails is the payload of GET /models/{owner}/{name}.
type ModelDetails struct {
	ModelSummary
	RunCount       int64           `json:"run_count"`
	CoverImageURL  string          `json:"cover_image_url,omitempty"`
	GithubURL      string          `json:"github_url,omitempty"`
	PaperURL       string          `json:"paper_url,omitempty"`
	LicenseURL     string          `json:"license_url,omitempty"`
	DefaultExample json.RawMessage `json:"default_example,omitempty"`
}

// Version is a model version payload. The schema documents are kept raw;
// qschema knows how to read them.
type Version struct {
	ID            string          `json:"id"`
	CreatedAt     string          `json:"created_at,omitempty"`
	CogVersion    string          `json:"cog_version,omitempty"`
	OpenAPISchema json.RawMessage `json:"openapi_schema,omitempty"`
	Schema        json.RawMessage `json:"schema,omitempty"`
}

// Status is the remote prediction state.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// Terminal reports whether s is absorbing.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// Prediction is a remote job. It is created by CreatePrediction and only
// refreshed by later fetches.
type Prediction struct {
	ID          string            `json:"id"`
	Version     string            `json:"version,omitempty"`
	Status      Status            `json:"status"`
	Input       map[string]any    `json:"input"`
	Output      any               `json:"output,omitempty"`
	Error       any               `json:"error,omitempty"`
	Logs        string            `json:"logs,omitempty"`
	CreatedAt   string            `json:"created_at,omitempty"`
	StartedAt   string            `json:"started_at,omitempty"`
	CompletedAt string            `json:"completed_at,omitempty"`
	URLs        map[string]string `json:"urls,omitempty"`
	Metrics     map[string]any    `json:"metrics,omitempty"`
}

// ErrorText flattens the remote error field, which is usually a string.
func (p *Prediction) ErrorText() string {
	if p == nil || p.Error == nil {
		return ""
	}
	if s, ok := p.Error.(string); ok {
		return s
	}
	b, err := json.Marshal(p.Error)
	if err != nil {
		return ""
	}
	return string(b)
}

// PredictRequest describes a create-then-wait call.
type PredictRequest struct {
	Version      string
	Input        map[string]any
	Webhook      string
	Timeout      time.Duration
	PollInterval time.Duration
}
