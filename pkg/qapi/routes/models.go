package routes

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/qgen/pkg/qapi/schemas"
	"github.com/quatton/qgen/pkg/qapi/services"
	"github.com/quatton/qgen/pkg/qparam"
	"github.com/quatton/qgen/pkg/qsdk"
)

type ListModelsInput struct {
	Search  string `query:"search" doc:"Search text; presets are listed when empty and presets is set"`
	Limit   int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum results"`
	Presets bool   `query:"presets" doc:"List the preset models instead of searching"`
	Refresh bool   `query:"refresh" doc:"Drop the listing cache first"`
}

type ListModelsOutput struct {
	Body struct {
		Models []schemas.ModelSummary `json:"models" doc:"Models"`
	}
}

type GetModelInput struct {
	Owner   string `path:"owner" doc:"Model owner"`
	Name    string `path:"name" doc:"Model name"`
	Version string `query:"version" doc:"Version id; latest when empty"`
	Refresh bool   `query:"refresh" doc:"Fetch fresh model details"`
}

type GetModelOutput struct {
	Body schemas.ModelDetails
}

func summaryOf(m qsdk.ModelSummary) schemas.ModelSummary {
	s := schemas.ModelSummary{
		Owner:       m.Owner,
		Name:        m.Name,
		Description: m.Description,
		Visibility:  m.Visibility,
		URL:         m.URL,
	}
	if m.LatestVersion != nil {
		s.LatestVersionID = m.LatestVersion.ID
	}
	return s
}

func RegisterModels(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "list-models",
		Method:      http.MethodGet,
		Path:        "/api/models",
		Summary:     "List models",
		Description: "Search hosted models, or list the presets",
		Tags:        []string{"Models"},
	}, func(ctx context.Context, input *ListModelsInput) (*ListModelsOutput, error) {
		if svcs == nil {
			return nil, unavailable()
		}
		if input.Refresh {
			if err := svcs.Client.ClearCache(ctx); err != nil {
				return nil, toHTTPError(err)
			}
		}

		resp := &ListModelsOutput{}
		resp.Body.Models = []schemas.ModelSummary{}

		if input.Presets {
			for _, id := range qsdk.PresetModels {
				info, err := svcs.Client.SelectModel(ctx, qsdk.SelectRequest{Preset: id})
				if err != nil {
					return nil, toHTTPError(err)
				}
				resp.Body.Models = append(resp.Body.Models, summaryOf(info.ModelSummary))
			}
			return resp, nil
		}

		models, err := svcs.Client.ListModels(ctx, input.Search, input.Limit)
		if err != nil {
			return nil, toHTTPError(err)
		}
		for _, m := range models {
			resp.Body.Models = append(resp.Body.Models, summaryOf(m))
		}
		return resp, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-model",
		Method:      http.MethodGet,
		Path:        "/api/models/{owner}/{name}",
		Summary:     "Get model",
		Description: "Model details and the parameter summary of a version",
		Tags:        []string{"Models"},
	}, func(ctx context.Context, input *GetModelInput) (*GetModelOutput, error) {
		if svcs == nil {
			return nil, unavailable()
		}
		info, err := svcs.Client.SelectModel(ctx, qsdk.SelectRequest{
			Preset:  input.Owner + "/" + input.Name,
			Refresh: input.Refresh,
		})
		if err != nil {
			return nil, toHTTPError(err)
		}
		if input.Version == "" && info.LatestVersion != nil {
			if _, err := svcs.Schemas.Seed(info); err != nil {
				return nil, toHTTPError(err)
			}
		}
		schema, err := svcs.Schemas.Get(ctx, input.Owner, input.Name, input.Version)
		if err != nil {
			return nil, toHTTPError(err)
		}
		_, preset := svcs.Catalog.Lookup(info.ID())

		resp := &GetModelOutput{}
		resp.Body = schemas.ModelDetails{
			ModelSummary: summaryOf(info.ModelSummary),
			Preset:       preset,
			Schema:       qparam.Summarize(schema),
		}
		if info.Details != nil {
			resp.Body.RunCount = info.Details.RunCount
			resp.Body.CoverImageURL = info.Details.CoverImageURL
		}
		return resp, nil
	})
}
