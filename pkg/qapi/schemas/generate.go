package schemas

import "github.com/quatton/qgen/pkg/qbatch"

type GenerateRequest struct {
	ModelRef
	InputValues
	Count          int  `json:"count,omitempty" minimum:"0" maximum:"64" doc:"Number of images; default 1"`
	TimeoutSeconds int  `json:"timeoutSeconds,omitempty" minimum:"0" doc:"Wait budget per job"`
	InlineImages   bool `json:"inlineImages,omitempty" doc:"Return images as data URIs"`
}

// GeneratedImage is one image of a run
type GeneratedImage struct {
	Index       int    `json:"index" doc:"Position in the run"`
	ContentType string `json:"contentType" doc:"MIME type"`
	Source      string `json:"source,omitempty" doc:"Remote URL the image came from"`
	Key         string `json:"key,omitempty" doc:"Artifact key when stored"`
	URL         string `json:"url,omitempty" doc:"Download link when stored"`
	DataURI     string `json:"dataUri,omitempty" doc:"Inline image when requested"`
}

type GenerateResponse struct {
	RunID      string           `json:"runId" doc:"Run id"`
	Model      string           `json:"model" doc:"owner/name"`
	VersionID  string           `json:"versionId" doc:"Resolved version id"`
	Images     []GeneratedImage `json:"images" doc:"Images in order"`
	Texts      []string         `json:"texts" doc:"Text fragments"`
	Records    []qbatch.Record  `json:"records" doc:"Raw job records"`
	Soft       bool             `json:"soft" doc:"Set when the model rejected the content"`
	Diagnostic map[string]any   `json:"diagnostic,omitempty" doc:"Rejection details"`
}
