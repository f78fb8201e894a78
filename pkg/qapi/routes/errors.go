package routes

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/qgen/pkg/qsdk/qerr"
)

// toHTTPError maps gateway error codes to HTTP statuses. The message is the
// display-formatted text, so credentials never reach the response.
func toHTTPError(err error) error {
	msg := qerr.FormatMessage(err)
	switch qerr.CodeOf(err) {
	case qerr.CodeValidation:
		return huma.Error400BadRequest(msg)
	case qerr.CodeUnauthorized:
		return huma.Error401Unauthorized(msg)
	case qerr.CodeNotFound:
		return huma.Error404NotFound(msg)
	case qerr.CodeCanceled:
		return huma.Error409Conflict(msg)
	case qerr.CodePredictionFailed, qerr.CodeSensitiveContent:
		return huma.Error422UnprocessableEntity(msg)
	case qerr.CodeRateLimited:
		return huma.Error429TooManyRequests(msg)
	case qerr.CodeAPI, qerr.CodeTransport:
		return huma.Error502BadGateway(msg)
	case qerr.CodeTimeout:
		return huma.Error504GatewayTimeout(msg)
	default:
		return huma.Error500InternalServerError(msg)
	}
}

func unavailable() error {
	return huma.Error503ServiceUnavailable("gateway not configured")
}
