package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/agent-platform/llm-gateway/middleware"
	"github.com/agent-platform/llm-gateway/services/gateway"
	"github.com/agent-platform/llm-gateway/utils"
)

// GenerateRequest is the wire form of a generation call
type GenerateRequest struct {
	Purpose      string   `json:"purpose"`
	SystemPrompt string   `json:"system_prompt"`
	UserPrompt   string   `json:"user_prompt" validate:"required"`
	Temperature  float64  `json:"temperature" validate:"gte=0,lte=2"`
	JSONMode     bool     `json:"json_mode"`
	TimeoutMs    int      `json:"timeout_ms" validate:"gte=0"`
	Route        []string `json:"route,omitempty"`
}

// GenerateService defines the gateway operation the handler depends on
type GenerateService interface {
	Generate(ctx context.Context, req gateway.Request) (*gateway.Response, error)
}

// GenerateHandler handles generation HTTP requests
type GenerateHandler struct {
	service GenerateService
	logger  *zap.Logger
}

// NewGenerateHandler creates a new GenerateHandler
func NewGenerateHandler(service GenerateService, logger *zap.Logger) *GenerateHandler {
	return &GenerateHandler{
		service: service,
		logger:  logger,
	}
}

// HandleGenerate handles POST /api/generate
func (h *GenerateHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.RequestIDFromContext(ctx)

	var genReq GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&genReq); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(&genReq); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	serviceReq := gateway.Request{
		Purpose:      gateway.ParsePurpose(genReq.Purpose),
		SystemPrompt: genReq.SystemPrompt,
		UserPrompt:   genReq.UserPrompt,
		Temperature:  genReq.Temperature,
		JSONMode:     genReq.JSONMode,
		Timeout:      time.Duration(genReq.TimeoutMs) * time.Millisecond,
		Route:        genReq.Route,
	}

	result, err := h.service.Generate(ctx, serviceReq)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, result); err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", requestID),
			zap.Error(err))
	}
}
