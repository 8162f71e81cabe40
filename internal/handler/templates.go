package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sajtmaskin/sitebuilder/internal/generator"
	"github.com/sajtmaskin/sitebuilder/internal/model"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
)

// TemplateHandler bootstraps chats from templates and registries.
type TemplateHandler struct {
	generator *generator.Service
	logger    *logger.Logger
}

// NewTemplateHandler creates a template handler.
func NewTemplateHandler(gen *generator.Service, log *logger.Logger) *TemplateHandler {
	return &TemplateHandler{generator: gen, logger: log}
}

// FromTemplate handles POST /api/template
func (h *TemplateHandler) FromTemplate(w http.ResponseWriter, r *http.Request) {
	var req model.TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TemplateID == "" {
		writeError(w, http.StatusBadRequest, "templateId is required")
		return
	}

	result, err := h.generator.FromTemplate(r.Context(), req.TemplateID)
	if err != nil {
		writeTemplateError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// InitRegistry handles POST /api/v0/chats/init-registry
func (h *TemplateHandler) InitRegistry(w http.ResponseWriter, r *http.Request) {
	var req model.RegistryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RegistryURL == "" {
		writeError(w, http.StatusBadRequest, "registryUrl is required")
		return
	}

	result, err := h.generator.InitFromRegistry(r.Context(), req.RegistryURL)
	if err != nil {
		writeTemplateError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// writeTemplateError maps bootstrap errors onto the retry taxonomy: 404, 429
// and 401 are authoritative and surfaced directly; anything else already
// exhausted its retry budget.
func writeTemplateError(w http.ResponseWriter, err error, log *logger.Logger) {
	switch {
	case errors.Is(err, generator.ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, generator.ErrTemplateNotFound.Error())
	case errors.Is(err, generator.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, generator.ErrRateLimited.Error())
	case errors.Is(err, generator.ErrUnauthorized):
		writeError(w, http.StatusBadGateway, generator.ErrUnauthorized.Error())
	default:
		log.Error("template bootstrap failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to initialize from template")
	}
}

// Categories handles GET /api/template/categories
func (h *TemplateHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": generator.Categories(),
	})
}
