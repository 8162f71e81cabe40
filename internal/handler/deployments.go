package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sajtmaskin/sitebuilder/internal/middleware"
	"github.com/sajtmaskin/sitebuilder/internal/model"
	"github.com/sajtmaskin/sitebuilder/internal/service"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
)

// DeploymentHandler triggers Vercel deployments.
type DeploymentHandler struct {
	deploys *service.DeployService
	logger  *logger.Logger
}

// NewDeploymentHandler creates a deployment handler.
func NewDeploymentHandler(deploys *service.DeployService, log *logger.Logger) *DeploymentHandler {
	return &DeploymentHandler{deploys: deploys, logger: log}
}

// Create handles POST /api/v0/deployments
func (h *DeploymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.DeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateChatID(req.ChatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.VersionID == "" {
		writeError(w, http.StatusBadRequest, "versionId is required")
		return
	}

	result, err := h.deploys.Deploy(r.Context(), &req)
	if err != nil {
		h.logger.Error("deployment failed",
			zap.String("chat_id", req.ChatID), zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, result)
}
