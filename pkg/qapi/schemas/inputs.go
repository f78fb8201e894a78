package schemas

import "github.com/quatton/qgen/pkg/qparam"

// ModelRef names a model and, optionally, a version
type ModelRef struct {
	Owner   string `json:"owner" minLength:"1" doc:"Model owner"`
	Name    string `json:"name" minLength:"1" doc:"Model name"`
	Version string `json:"version,omitempty" doc:"Version id; latest when empty"`
}

// InputValues are the values a host supplies for parameter resolution
type InputValues struct {
	Prompt        string         `json:"prompt,omitempty" doc:"Prompt text for prompt parameters"`
	Media         []string       `json:"media,omitempty" doc:"Media wire strings (data URI or URL), consumed in order"`
	Overrides     map[string]any `json:"overrides,omitempty" doc:"Explicit parameter values"`
	OverridesJSON string         `json:"overridesJson,omitempty" doc:"Explicit parameter values as JSON text; overrides wins"`
	Prior         map[string]any `json:"prior,omitempty" doc:"Values previously shown in the host UI"`
}

type ResolveRequest struct {
	ModelRef
	InputValues
}

type ResolveResponse struct {
	VersionID string         `json:"versionId" doc:"Resolved version id"`
	Input     map[string]any `json:"input" doc:"Resolved prediction input"`
	Summary   qparam.Summary `json:"summary" doc:"Parameter summary"`
}
