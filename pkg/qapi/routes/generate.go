package routes

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/qgen/pkg/qapi/schemas"
	"github.com/quatton/qgen/pkg/qapi/services"
	"github.com/quatton/qgen/pkg/qbatch"
)

const artifactURLExpiry = time.Hour

type GenerateInput struct {
	Body schemas.GenerateRequest
}

type GenerateOutput struct {
	Body schemas.GenerateResponse
}

func RegisterGenerate(api huma.API, svcs *services.Services) {
	huma.Register(api, huma.Operation{
		OperationID: "generate",
		Method:      http.MethodPost,
		Path:        "/api/generate",
		Summary:     "Generate images",
		Description: "Resolve inputs and run jobs until the requested number of images exists",
		Tags:        []string{"Generate"},
	}, func(ctx context.Context, input *GenerateInput) (*GenerateOutput, error) {
		if svcs == nil {
			return nil, unavailable()
		}
		res, err := svcs.Generate(ctx, services.GenerateParams{
			ResolveParams: resolveParams(input.Body.ModelRef, input.Body.InputValues),
			Count:         input.Body.Count,
			Timeout:       time.Duration(input.Body.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return nil, toHTTPError(err)
		}
		return &GenerateOutput{Body: generateResponse(ctx, svcs, res, input.Body.InlineImages)}, nil
	})
}

func generateResponse(ctx context.Context, svcs *services.Services, res *qbatch.Result, inline bool) schemas.GenerateResponse {
	out := schemas.GenerateResponse{
		RunID:     res.RunID,
		Model:     res.Model,
		VersionID: res.VersionID,
		Images:    []schemas.GeneratedImage{},
		Texts:     res.Texts,
		Records:   res.Records,
		Soft:      res.Soft,
	}
	if len(res.Diagnostic) > 0 {
		_ = json.Unmarshal(res.Diagnostic, &out.Diagnostic)
	}

	for i, img := range res.Images {
		gi := schemas.GeneratedImage{Index: i, ContentType: img.ContentType}
		if img.Source != "data-uri" && img.Source != "base64" {
			gi.Source = img.Source
		}
		if i < len(res.Artifacts) {
			gi.Key = res.Artifacts[i].Key
			if url, err := svcs.Artifacts.URL(ctx, gi.Key, artifactURLExpiry); err == nil {
				gi.URL = url
			}
		}
		if inline {
			gi.DataURI = "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
		}
		out.Images = append(out.Images, gi)
	}
	return out
}
