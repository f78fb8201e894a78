// Package qbatch drives repeated predictions until a requested number of
// images has been produced.
package qbatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quatton/qgen/pkg/qart"
	"github.com/quatton/qgen/pkg/qlog"
	"github.com/quatton/qgen/pkg/qmedia"
	"github.com/quatton/qgen/pkg/qsdk"
	"github.com/quatton/qgen/pkg/qsdk/qerr"
)

// Predictor creates a prediction and waits for it, cancelling once on
// timeout. *qsdk.Client satisfies it.
type Predictor interface {
	Predict(ctx context.Context, req qsdk.PredictRequest) (*qsdk.Prediction, error)
}

// VersionResolver maps a model to a concrete version id. *qschema.Cache
// satisfies it and keeps the answer for the life of the process.
type VersionResolver interface {
	ResolveVersion(ctx context.Context, owner, name, version string) (string, error)
}

// OutputParser splits prediction output into images and text.
type OutputParser interface {
	Parse(ctx context.Context, output any) ([]qmedia.Image, []string)
}

// Request is one generation run.
type Request struct {
	Model        Model
	Prompt       string
	Media        []string
	Extra        map[string]any
	DesiredCount int
	Timeout      time.Duration
	PollInterval time.Duration
}

// Record is the raw trace of one job.
type Record struct {
	JobID    string           `json:"jobId"`
	Request  map[string]any   `json:"request"`
	Response *qsdk.Prediction `json:"response,omitempty"`
	Status   qsdk.Status      `json:"status"`
}

// Result is what a run produced. On a sensitive-content rejection Soft is
// set, Images is empty, Texts holds the display message and Diagnostic
// holds {"error", "model"}.
type Result struct {
	RunID      string           `json:"runId"`
	Model      string           `json:"model"`
	VersionID  string           `json:"versionId"`
	Images     []qmedia.Image   `json:"-"`
	Texts      []string         `json:"texts"`
	Records    []Record         `json:"records"`
	Artifacts  []*qart.Artifact `json:"artifacts,omitempty"`
	Soft       bool             `json:"soft"`
	Diagnostic json.RawMessage  `json:"diagnostic,omitempty"`
}

type Orchestrator struct {
	predictor Predictor
	versions  VersionResolver
	parser    OutputParser
	sink      qart.Store
	log       *qlog.Logger
	newRunID  func() (string, error)
}

type Option func(*Orchestrator)

func WithParser(p OutputParser) Option {
	return func(o *Orchestrator) { o.parser = p }
}

// WithSink stores every returned image under generations/{runID}/.
func WithSink(s qart.Store) Option {
	return func(o *Orchestrator) { o.sink = s }
}

func WithLogger(l *qlog.Logger) Option {
	return func(o *Orchestrator) { o.log = qlog.OrNop(l).Component("qbatch") }
}

func New(predictor Predictor, versions VersionResolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		predictor: predictor,
		versions:  versions,
		parser:    qmedia.NewParser(),
		log:       qlog.Nop(),
		newRunID: func() (string, error) {
			id, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run submits jobs one after another until DesiredCount images exist.
// Native-batch models ask for the whole shortfall each job and fail with
// "insufficient images" after DesiredCount jobs. Single-shot models ask for
// one image per job and fail with "no image output" on an empty job. The
// partial result is returned with any error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	m := req.Model
	if m.Owner == "" || m.Name == "" {
		return nil, qerr.Validation("model owner and name are required")
	}
	if req.DesiredCount < 1 {
		return nil, qerr.Validation("desired count must be at least 1, got %d", req.DesiredCount)
	}
	if m.Mode == "" {
		m.Mode = ModeSingleShot
	}
	build := m.Build
	if build == nil {
		build = Passthrough("")
	}

	runID, err := o.newRunID()
	if err != nil {
		return nil, fmt.Errorf("generating run id: %w", err)
	}
	res := &Result{RunID: runID, Model: m.ID(), Texts: []string{}, Records: []Record{}}

	versionID, err := o.versions.ResolveVersion(ctx, m.Owner, m.Name, m.Version)
	if err != nil {
		return res, fmt.Errorf("resolving version of %s: %w", m.ID(), err)
	}
	res.VersionID = versionID

	log := o.log.With("run", runID, "model", m.ID())
	for iteration := 0; len(res.Images) < req.DesiredCount; iteration++ {
		if iteration >= req.DesiredCount {
			if m.Mode == ModeNativeBatch {
				return res, qerr.Newf(qerr.CodePredictionFailed,
					"insufficient images: got %d of %d after %d jobs", len(res.Images), req.DesiredCount, iteration)
			}
			break
		}

		count := 1
		if m.Mode == ModeNativeBatch {
			count = req.DesiredCount - len(res.Images)
			if m.MaxBatch > 0 && count > m.MaxBatch {
				count = m.MaxBatch
			}
		}

		input := build(Call{
			Prompt:    req.Prompt,
			Media:     req.Media,
			Extra:     req.Extra,
			Count:     count,
			Iteration: iteration,
		})

		pred, err := o.predictor.Predict(ctx, qsdk.PredictRequest{
			Version:      versionID,
			Input:        input,
			Timeout:      req.Timeout,
			PollInterval: req.PollInterval,
		})
		res.Records = append(res.Records, record(input, pred))

		if err != nil {
			// Only a job the remote ran and failed can be a content rejection.
			if pred != nil && pred.Status == qsdk.StatusFailed && IsSensitive(pred.ErrorText()) {
				log.Warn("job rejected as sensitive content", "iteration", iteration)
				return o.soft(res, m, pred.ErrorText()), nil
			}
			return res, err
		}

		images, texts := o.parser.Parse(ctx, pred.Output)
		res.Images = append(res.Images, images...)
		res.Texts = append(res.Texts, texts...)
		log.Info("job done", "iteration", iteration, "requested", count, "got", len(images), "total", len(res.Images))

		if m.Mode == ModeSingleShot && len(images) == 0 {
			return res, qerr.Newf(qerr.CodePredictionFailed, "no image output from %s (job %s)", m.ID(), pred.ID)
		}
	}

	if len(res.Images) > req.DesiredCount {
		res.Images = res.Images[:req.DesiredCount]
	}

	if o.sink != nil {
		if err := o.store(ctx, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func record(input map[string]any, pred *qsdk.Prediction) Record {
	r := Record{Request: input, Response: pred}
	if pred != nil {
		r.JobID = pred.ID
		r.Status = pred.Status
	}
	return r
}

func (o *Orchestrator) soft(res *Result, m Model, text string) *Result {
	text = qerr.Redact(text)
	diag, _ := json.Marshal(map[string]string{"error": text, "model": m.ID()})
	res.Images = nil
	res.Soft = true
	res.Texts = []string{qerr.FormatMessage(qerr.Newf(qerr.CodeSensitiveContent, "%s", text))}
	res.Diagnostic = diag
	return res
}

func (o *Orchestrator) store(ctx context.Context, res *Result) error {
	for i, img := range res.Images {
		key := qart.GenerationKey(res.RunID, i, img.Ext())
		a, err := o.sink.Upload(ctx, key, bytes.NewReader(img.Data), int64(len(img.Data)), img.ContentType, map[string]string{
			"model":   res.Model,
			"version": res.VersionID,
		})
		if err != nil {
			return fmt.Errorf("storing %s: %w", key, err)
		}
		res.Artifacts = append(res.Artifacts, a)
	}
	o.log.Debug("artifacts stored", "run", res.RunID, "count", len(res.Artifacts))
	return nil
}
