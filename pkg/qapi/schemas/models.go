package schemas

import "github.com/quatton/qgen/pkg/qparam"

// ModelSummary is one model of a listing
type ModelSummary struct {
	Owner           string `json:"owner" doc:"Model owner"`
	Name            string `json:"name" doc:"Model name"`
	Description     string `json:"description,omitempty" doc:"Model description"`
	Visibility      string `json:"visibility,omitempty" doc:"public or private"`
	URL             string `json:"url,omitempty" doc:"Model page"`
	LatestVersionID string `json:"latestVersionId,omitempty" doc:"Latest version id"`
}

// ModelDetails is a model plus the parameter summary of the requested version
type ModelDetails struct {
	ModelSummary
	RunCount      int64          `json:"runCount" doc:"Total runs"`
	CoverImageURL string         `json:"coverImageUrl,omitempty" doc:"Cover image"`
	Preset        bool           `json:"preset" doc:"Whether a preset payload shape exists"`
	Schema        qparam.Summary `json:"schema" doc:"Input parameters"`
}
