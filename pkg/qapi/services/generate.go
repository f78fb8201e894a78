package services

import (
	"context"
	"time"

	"github.com/quatton/qgen/pkg/qbatch"
	"github.com/quatton/qgen/pkg/qmedia"
	"github.com/quatton/qgen/pkg/qparam"
	"github.com/quatton/qgen/pkg/qschema"
	"github.com/quatton/qgen/pkg/qsdk/qerr"
)

// ResolveParams names a model and the values to resolve against its schema.
type ResolveParams struct {
	Owner   string
	Name    string
	Version string
	Request qparam.Request
}

type Resolved struct {
	Schema  *qschema.Schema
	Input   map[string]any
	Summary qparam.Summary
	// Media is the media queue in wire form.
	Media []string
}

// ResolveInputs loads the schema of the model version through the schema
// cache and resolves the request against it. Queue items and media overrides
// are converted with qmedia unless the request brings its own converter.
func (s *Services) ResolveInputs(ctx context.Context, p ResolveParams) (*Resolved, error) {
	schema, err := s.Schemas.Get(ctx, p.Owner, p.Name, p.Version)
	if err != nil {
		return nil, err
	}
	req := p.Request
	if req.ConvertMedia == nil {
		req.ConvertMedia = qmedia.ToWireString
	}
	media := make([]string, 0, len(req.Media))
	for i, item := range req.Media {
		wire, err := req.ConvertMedia(item)
		if err != nil {
			return &Resolved{Schema: schema, Summary: qparam.Summarize(schema)},
				qerr.Validation("invalid media input %d: %v", i, err)
		}
		media = append(media, wire)
	}
	req.Media = media

	input, summary, err := qparam.Resolve(schema, req)
	if err != nil {
		return &Resolved{Schema: schema, Summary: summary, Media: media}, err
	}
	return &Resolved{Schema: schema, Input: input, Summary: summary, Media: media}, nil
}

type GenerateParams struct {
	ResolveParams
	Count   int
	Timeout time.Duration
}

// Generate resolves inputs once and runs the orchestrator with the preset
// payload shape of the model, or a plain single-shot shape.
func (s *Services) Generate(ctx context.Context, p GenerateParams) (*qbatch.Result, error) {
	resolved, err := s.ResolveInputs(ctx, p.ResolveParams)
	if err != nil {
		return nil, err
	}

	count := p.Count
	if count <= 0 {
		count = 1
	}
	timeout := p.Timeout
	if timeout <= 0 && s.Defaults.PredictionTimeout > 0 {
		timeout = time.Duration(s.Defaults.PredictionTimeout) * time.Second
	}
	var poll time.Duration
	if s.Defaults.PollInterval > 0 {
		poll = time.Duration(s.Defaults.PollInterval) * time.Second
	}

	// Prompt and media only reach preset fields the schema did not resolve.
	model := s.Catalog.ModelFor(p.Owner, p.Name, resolved.Schema.VersionID)
	return s.Batch.Run(ctx, qbatch.Request{
		Model:        model,
		Prompt:       p.Request.Prompt,
		Media:        resolved.Media,
		Extra:        resolved.Input,
		DesiredCount: count,
		Timeout:      timeout,
		PollInterval: poll,
	})
}
