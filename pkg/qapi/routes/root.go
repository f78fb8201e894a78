package routes

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/qgen/pkg/qapi/services"
)

// RegisterAPI registers every route. svcs may be nil when only the OpenAPI
// document is needed.
func RegisterAPI(api huma.API, svcs *services.Services) {
	RegisterHealth(api, svcs)
	RegisterModels(api, svcs)
	RegisterInputs(api, svcs)
	RegisterPredictions(api, svcs)
	RegisterGenerate(api, svcs)
}
