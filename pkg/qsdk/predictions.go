package qsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/quatton/qgen/pkg/qsdk/qerr"
)

const (
	DefaultPredictionTimeout = 300 * time.Second
	DefaultPollInterval      = 2 * time.Second

	cancelTimeout = 10 * time.Second
)

type createPredictionBody struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
	Webhook string         `json:"webhook,omitempty"`
}

// CreatePrediction submits a job and returns it in its initial state.
func (c *Client) CreatePrediction(ctx context.Context, versionID string, input map[string]any, webhook string) (*Prediction, error) {
	if versionID == "" {
		return nil, qerr.Validation("no model version provided")
	}
	if input == nil {
		input = map[string]any{}
	}
	var p Prediction
	body := createPredictionBody{Version: versionID, Input: input, Webhook: webhook}
	if err := c.Do(ctx, http.MethodPost, "/predictions", nil, body, &p); err != nil {
		return nil, fmt.Errorf("creating prediction: %w", err)
	}
	c.log.Debug("prediction created", "id", p.ID, "status", p.Status)
	return &p, nil
}

// GetPrediction fetches the current state of a job.
func (c *Client) GetPrediction(ctx context.Context, id string) (*Prediction, error) {
	var p Prediction
	if err := c.Do(ctx, http.MethodGet, "/predictions/"+url.PathEscape(id), nil, nil, &p); err != nil {
		return nil, fmt.Errorf("getting prediction %s: %w", id, err)
	}
	return &p, nil
}

// CancelPrediction asks the remote to stop a non-terminal job.
func (c *Client) CancelPrediction(ctx context.Context, id string) (*Prediction, error) {
	var p Prediction
	if err := c.Do(ctx, http.MethodPost, "/predictions/"+url.PathEscape(id)+"/cancel", nil, nil, &p); err != nil {
		return nil, fmt.Errorf("canceling prediction %s: %w", id, err)
	}
	return &p, nil
}

// WaitForPrediction polls until the job is terminal. The deadline is measured
// from the call's start; when it passes first a CodeTimeout error is returned
// and the remote job is left alone. Callers decide whether to cancel.
func (c *Client) WaitForPrediction(ctx context.Context, id string, timeout, pollInterval time.Duration) (*Prediction, error) {
	if timeout <= 0 {
		timeout = DefaultPredictionTimeout
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	start := c.now()

	for {
		p, err := c.GetPrediction(ctx, id)
		if err != nil {
			return nil, err
		}
		if p.Status.Terminal() {
			return p, nil
		}
		if c.now().Sub(start) > timeout {
			return p, qerr.Newf(qerr.CodeTimeout, "prediction %s timed out after %s", id, timeout)
		}
		if err := c.sleep(ctx, pollInterval); err != nil {
			return p, err
		}
	}
}

// Predict creates a job and waits for it. On local timeout exactly one
// best-effort cancel is sent; the remote job may still finish on its own.
// The last known prediction is returned alongside any error.
func (c *Client) Predict(ctx context.Context, req PredictRequest) (*Prediction, error) {
	created, err := c.CreatePrediction(ctx, req.Version, req.Input, req.Webhook)
	if err != nil {
		return nil, err
	}

	result, err := c.WaitForPrediction(ctx, created.ID, req.Timeout, req.PollInterval)
	if err != nil {
		if qerr.IsCode(err, qerr.CodeTimeout) || errors.Is(err, context.DeadlineExceeded) {
			cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
			defer cancel()
			if _, cerr := c.CancelPrediction(cctx, created.ID); cerr != nil {
				c.log.Warn("cancel after timeout failed", "id", created.ID, "error", cerr)
			}
		}
		if result == nil {
			result = created
		}
		return result, err
	}

	switch result.Status {
	case StatusSucceeded:
		c.log.Info("prediction succeeded", "id", result.ID)
		return result, nil
	case StatusFailed:
		msg := result.ErrorText()
		if msg == "" {
			msg = "prediction failed"
		}
		return result, qerr.Newf(qerr.CodePredictionFailed, "prediction %s failed: %s", result.ID, msg)
	default:
		return result, qerr.Newf(qerr.CodeCanceled, "prediction %s was canceled", result.ID)
	}
}
