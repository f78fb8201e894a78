package qsdk

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/quatton/qgen/pkg/qsdk/qerr"
)

// CustomPreset selects a model via search instead of a preset.
const CustomPreset = "custom"

// PresetModels are the recommended models offered to hosts.
var PresetModels = []string{
	"google/nano-banana",
	"qwen/qwen-image-edit",
	"stability-ai/sdxl",
	"black-forest-labs/flux-schnell",
}

type listModelsResponse struct {
	Results []ModelSummary `json:"results"`
	Next    string         `json:"next,omitempty"`
}

// ListModels returns models matching search, at most limit of them (limit <= 0
// means no cap). Results are cached per (search, limit).
func (c *Client) ListModels(ctx context.Context, search string, limit int) ([]ModelSummary, error) {
	var models []ModelSummary
	key := fmt.Sprintf("models:%s:%d", search, limit)
	err := c.cached(ctx, key, &models, func() error {
		q := url.Values{}
		if search != "" {
			q.Set("search", search)
		}
		var resp listModelsResponse
		if err := c.Do(ctx, http.MethodGet, "/models", q, nil, &resp); err != nil {
			return err
		}
		models = resp.Results
		if limit > 0 && len(models) > limit {
			models = models[:limit]
		}
		if models == nil {
			models = []ModelSummary{}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	return models, nil
}

// GetModelDetails returns the model document, cached per (owner, name).
func (c *Client) GetModelDetails(ctx context.Context, owner, name string) (*ModelDetails, error) {
	if owner == "" || name == "" {
		return nil, qerr.Validation("model owner and name are required")
	}
	var details ModelDetails
	key := "details:" + owner + "/" + name
	err := c.cached(ctx, key, &details, func() error {
		return c.Do(ctx, http.MethodGet, "/models/"+url.PathEscape(owner)+"/"+url.PathEscape(name), nil, nil, &details)
	})
	if err != nil {
		return nil, fmt.Errorf("getting model %s/%s: %w", owner, name, err)
	}
	return &details, nil
}

// GetModelVersion always fetches fresh: a pinned version must be exact.
func (c *Client) GetModelVersion(ctx context.Context, owner, name, versionID string) (*Version, error) {
	if versionID == "" {
		return nil, qerr.Validation("version id is required")
	}
	var v Version
	path := fmt.Sprintf("/models/%s/%s/versions/%s", url.PathEscape(owner), url.PathEscape(name), url.PathEscape(versionID))
	if err := c.Do(ctx, http.MethodGet, path, nil, nil, &v); err != nil {
		return nil, fmt.Errorf("getting model version %s/%s@%s: %w", owner, name, versionID, err)
	}
	return &v, nil
}

// SelectRequest picks a model either by preset or by search.
type SelectRequest struct {
	Preset  string // "owner/name" or CustomPreset
	Search  string
	Limit   int
	Refresh bool // drop the listing/details cache first
}

// ModelInfo is what a host needs to continue with a model: identity, details
// and the latest version (whose schema qschema can parse).
type ModelInfo struct {
	ModelSummary
	Details   *ModelDetails `json:"details"`
	VersionID string        `json:"version_id"`
}

// SelectModel resolves a preset or the first search hit to a ModelInfo.
func (c *Client) SelectModel(ctx context.Context, req SelectRequest) (*ModelInfo, error) {
	if req.Refresh {
		if err := c.ClearCache(ctx); err != nil {
			c.log.Warn("cache clear failed", "error", err)
		}
	}

	var selected ModelSummary
	if req.Preset != "" && req.Preset != CustomPreset {
		owner, name, ok := strings.Cut(req.Preset, "/")
		if !ok || owner == "" || name == "" {
			return nil, qerr.Validation("preset %q must be owner/name", req.Preset)
		}
		details, err := c.GetModelDetails(ctx, owner, name)
		if err != nil {
			return nil, err
		}
		selected = ModelSummary{
			Owner:         owner,
			Name:          name,
			URL:           details.URL,
			Description:   details.Description,
			Visibility:    details.Visibility,
			LatestVersion: details.LatestVersion,
		}
		if selected.Visibility == "" {
			selected.Visibility = "public"
		}
	} else {
		limit := req.Limit
		if limit <= 0 {
			limit = 50
		}
		models, err := c.ListModels(ctx, req.Search, limit)
		if err != nil {
			return nil, err
		}
		if len(models) == 0 {
			return nil, qerr.Newf(qerr.CodeNotFound, "no model matches %q", req.Search)
		}
		selected = models[0]
	}

	details, err := c.GetModelDetails(ctx, selected.Owner, selected.Name)
	if err != nil {
		return nil, err
	}

	info := &ModelInfo{ModelSummary: selected, Details: details}
	if selected.LatestVersion != nil {
		info.VersionID = selected.LatestVersion.ID
	}
	c.log.Info("model selected", "model", selected.ID(), "version", info.VersionID)
	return info, nil
}

// Ping verifies the token by listing a single model.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListModels(ctx, "", 1)
	return err
}
