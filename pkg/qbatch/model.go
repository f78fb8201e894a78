package qbatch

import (
	"maps"
	"math"
)

// Mode says how a model produces multiple artifacts.
type Mode string

const (
	// ModeNativeBatch models take a count field and return many artifacts per
	// job.
	ModeNativeBatch Mode = "native_batch"
	// ModeSingleShot models return one artifact per job.
	ModeSingleShot Mode = "single_shot"
)

// Call is what a payload builder shapes one request from.
type Call struct {
	Prompt string
	Media  []string
	Extra  map[string]any
	// Count is the number of artifacts this job should produce.
	Count int
	// Iteration is zero for the first job of a run.
	Iteration int
}

// PayloadBuilder turns a Call into the input map of one prediction. It must
// not keep or mutate the Call's maps and slices.
type PayloadBuilder func(Call) map[string]any

// Model is one model family the orchestrator can drive.
type Model struct {
	Owner string
	Name  string
	// Version is a pinned version id; empty means the latest version.
	Version string
	Mode    Mode
	// MaxBatch caps the count of a native-batch job. Zero means no cap.
	MaxBatch int
	Build    PayloadBuilder
}

func (m Model) ID() string {
	return m.Owner + "/" + m.Name
}

// Passthrough returns a builder that sends Extra as is, setting countField
// to the call's count when countField is not empty.
func Passthrough(countField string) PayloadBuilder {
	return func(c Call) map[string]any {
		body := maps.Clone(c.Extra)
		if body == nil {
			body = map[string]any{}
		}
		if countField != "" {
			body[countField] = c.Count
		}
		return body
	}
}

// escalateSeed bumps a numeric seed by the iteration so continuation jobs do
// not repeat the first job's output.
func escalateSeed(v any, iteration int) (any, bool) {
	switch s := v.(type) {
	case int:
		return s + iteration, true
	case int64:
		return s + int64(iteration), true
	case float64:
		if s == math.Trunc(s) {
			return int64(s) + int64(iteration), true
		}
	}
	return v, false
}
