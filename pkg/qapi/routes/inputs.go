package routes

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/qgen/pkg/qapi/schemas"
	"github.com/quatton/qgen/pkg/qapi/services"
	"github.com/quatton/qgen/pkg/qmedia"
	"github.com/quatton/qgen/pkg/qparam"
)

type ResolveInputsInput struct {
	Body schemas.ResolveRequest
}

type ResolveInputsOutput struct {
	Body schemas.ResolveResponse
}

func resolveParams(ref schemas.ModelRef, v schemas.InputValues) services.ResolveParams {
	return services.ResolveParams{
		Owner:   ref.Owner,
		Name:    ref.Name,
		Version: ref.Version,
		Request: qparam.Request{
			Prompt:        v.Prompt,
			Media:         v.Media,
			Overrides:     v.Overrides,
			OverridesJSON: v.OverridesJSON,
			Prior:         v.Prior,
			ConvertMedia:  qmedia.ToRemoteWireString,
		},
	}
}

func RegisterInputs(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "resolve-inputs",
		Method:      http.MethodPost,
		Path:        "/api/inputs/resolve",
		Summary:     "Resolve inputs",
		Description: "Build a prediction input from a model schema and host values",
		Tags:        []string{"Inputs"},
	}, func(ctx context.Context, input *ResolveInputsInput) (*ResolveInputsOutput, error) {
		if svcs == nil {
			return nil, unavailable()
		}
		resolved, err := svcs.ResolveInputs(ctx, resolveParams(input.Body.ModelRef, input.Body.InputValues))
		if err != nil {
			return nil, toHTTPError(err)
		}
		resp := &ResolveInputsOutput{}
		resp.Body = schemas.ResolveResponse{
			VersionID: resolved.Schema.VersionID,
			Input:     resolved.Input,
			Summary:   resolved.Summary,
		}
		return resp, nil
	})
}
