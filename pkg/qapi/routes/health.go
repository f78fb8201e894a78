package routes

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/qgen/pkg/qapi/services"
)

type HealthInput struct {
	Deep bool `query:"deep" doc:"Also verify the upstream token"`
}

type HealthOutput struct {
	Body struct {
		Status    string `json:"status" doc:"ok"`
		Upstream  string `json:"upstream,omitempty" doc:"Upstream check result when deep"`
		Artifacts bool   `json:"artifacts" doc:"Whether an artifact store is configured"`
	}
}

func RegisterHealth(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Summary:     "Health check",
		Tags:        []string{"System"},
	}, func(ctx context.Context, input *HealthInput) (*HealthOutput, error) {
		if svcs == nil {
			return nil, unavailable()
		}
		resp := &HealthOutput{}
		resp.Body.Status = "ok"
		resp.Body.Artifacts = svcs.Artifacts != nil
		if input.Deep {
			if err := svcs.Client.Ping(ctx); err != nil {
				return nil, toHTTPError(err)
			}
			resp.Body.Upstream = "ok"
		}
		return resp, nil
	})
}
