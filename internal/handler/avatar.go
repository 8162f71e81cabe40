package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sajtmaskin/sitebuilder/internal/service"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
)

// AvatarHandler answers avatar-guide questions.
type AvatarHandler struct {
	guide  *service.GuideService
	logger *logger.Logger
}

// NewAvatarHandler creates an avatar guide handler.
func NewAvatarHandler(guide *service.GuideService, log *logger.Logger) *AvatarHandler {
	return &AvatarHandler{guide: guide, logger: log}
}

type avatarRequest struct {
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

// Ask handles POST /api/avatar-guide
func (h *AvatarHandler) Ask(w http.ResponseWriter, r *http.Request) {
	if !h.guide.Enabled() {
		writeError(w, http.StatusServiceUnavailable, "avatar guide is not configured")
		return
	}

	var req avatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := h.guide.Ask(r.Context(), req.Message, req.Context)
	if err != nil {
		h.logger.Error("avatar guide call failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "the guide is unavailable right now")
		return
	}

	writeJSON(w, http.StatusOK, reply)
}
