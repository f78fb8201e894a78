package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/qgen/pkg/qapi/schemas"
	"github.com/quatton/qgen/pkg/qapi/services"
	"github.com/quatton/qgen/pkg/qsdk"
	"github.com/quatton/qgen/pkg/qsdk/qerr"
)

type CreatePredictionInput struct {
	Body schemas.CreatePredictionRequest
}

type PredictionOutput struct {
	Body schemas.PredictionResponse
}

type GetPredictionInput struct {
	ID string `path:"id" doc:"Prediction id"`
}

func predictionResponse(p *qsdk.Prediction) schemas.PredictionResponse {
	return schemas.PredictionResponse{
		ID:          p.ID,
		Version:     p.Version,
		Status:      string(p.Status),
		Output:      p.Output,
		Error:       p.ErrorText(),
		Logs:        p.Logs,
		CreatedAt:   p.CreatedAt,
		CompletedAt: p.CompletedAt,
	}
}

func RegisterPredictions(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "create-prediction",
		Method:      http.MethodPost,
		Path:        "/api/predictions",
		Summary:     "Run a prediction",
		Description: "Create a prediction and wait for it; a timed out prediction is canceled once",
		Tags:        []string{"Predictions"},
	}, func(ctx context.Context, input *CreatePredictionInput) (*PredictionOutput, error) {
		if svcs == nil {
			return nil, unavailable()
		}
		timeout := time.Duration(input.Body.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = time.Duration(svcs.Defaults.PredictionTimeout) * time.Second
		}
		p, err := svcs.Client.Predict(ctx, qsdk.PredictRequest{
			Version:      input.Body.Version,
			Input:        input.Body.Input,
			Webhook:      input.Body.Webhook,
			Timeout:      timeout,
			PollInterval: time.Duration(svcs.Defaults.PollInterval) * time.Second,
		})
		// Failed and canceled predictions are still a result for the caller.
		if err != nil && (p == nil || !(qerr.IsCode(err, qerr.CodePredictionFailed) || qerr.IsCode(err, qerr.CodeCanceled))) {
			return nil, toHTTPError(err)
		}
		return &PredictionOutput{Body: predictionResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-prediction",
		Method:      http.MethodGet,
		Path:        "/api/predictions/{id}",
		Summary:     "Get prediction",
		Tags:        []string{"Predictions"},
	}, func(ctx context.Context, input *GetPredictionInput) (*PredictionOutput, error) {
		if svcs == nil {
			return nil, unavailable()
		}
		p, err := svcs.Client.GetPrediction(ctx, input.ID)
		if err != nil {
			return nil, toHTTPError(err)
		}
		return &PredictionOutput{Body: predictionResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-prediction",
		Method:      http.MethodPost,
		Path:        "/api/predictions/{id}/cancel",
		Summary:     "Cancel prediction",
		Tags:        []string{"Predictions"},
	}, func(ctx context.Context, input *GetPredictionInput) (*PredictionOutput, error) {
		if svcs == nil {
			return nil, unavailable()
		}
		p, err := svcs.Client.CancelPrediction(ctx, input.ID)
		if err != nil {
			return nil, toHTTPError(err)
		}
		return &PredictionOutput{Body: predictionResponse(p)}, nil
	})
}
