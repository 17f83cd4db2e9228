package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/agent-platform/llm-gateway/services/gateway"
	"github.com/agent-platform/llm-gateway/utils"
)

// statusClientClosedRequest is the nginx convention for an aborted caller
const statusClientClosedRequest = 499

// HandleServiceError maps gateway errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var exhausted *gateway.ExhaustedError
	switch {
	case errors.Is(err, context.Canceled):
		// The caller is gone; the status is written for the access log only
		w.WriteHeader(statusClientClosedRequest)

	case gateway.IsConfigurationError(err):
		if werr := utils.WriteServiceUnavailable(w, err.Error()); werr != nil {
			logger.Error("failed to write service unavailable response", zap.Error(werr))
		}

	case errors.As(err, &exhausted):
		details := map[string]interface{}{
			"attempted_providers": exhausted.Attempted,
			"last_error_kind":     string(exhausted.LastType),
		}
		var werr error
		if exhausted.LastType == gateway.ErrorTypeProviderTimeout {
			werr = utils.WriteGatewayTimeout(w, err.Error())
		} else {
			werr = utils.WriteBadGateway(w, err.Error(), details)
		}
		if werr != nil {
			logger.Error("failed to write exhaustion response", zap.Error(werr))
		}

	default:
		logger.Error("unhandled error type", zap.Error(err))
		if werr := utils.WriteInternalServerError(w, "An unexpected error occurred"); werr != nil {
			logger.Error("failed to write internal error response", zap.Error(werr))
		}
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		if werr := utils.WriteBadRequest(w, "Validation failed", details); werr != nil {
			logger.Error("failed to write validation error response", zap.Error(werr))
		}
		return
	}

	if werr := utils.WriteBadRequest(w, err.Error(), nil); werr != nil {
		logger.Error("failed to write validation error response", zap.Error(werr))
	}
}
