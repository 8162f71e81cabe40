package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sajtmaskin/sitebuilder/internal/middleware"
	"github.com/sajtmaskin/sitebuilder/internal/service"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
)

// BackofficeHandler serves the password-protected admin surface.
type BackofficeHandler struct {
	password  string
	jwtSecret string
	tokenTTL  time.Duration
	chats     *service.ChatService
	logger    *logger.Logger
}

// NewBackofficeHandler creates a backoffice handler. An empty password
// disables the surface entirely.
func NewBackofficeHandler(password, jwtSecret string, ttl time.Duration, chats *service.ChatService, log *logger.Logger) *BackofficeHandler {
	return &BackofficeHandler{
		password:  password,
		jwtSecret: jwtSecret,
		tokenTTL:  ttl,
		chats:     chats,
		logger:    log,
	}
}

// Enabled reports whether a backoffice password is configured.
func (h *BackofficeHandler) Enabled() bool {
	return h.password != ""
}

type loginRequest struct {
	Password string `json:"password"`
}

// Login handles POST /api/backoffice/login
func (h *BackofficeHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) != 1 {
		writeError(w, http.StatusUnauthorized, "wrong password")
		return
	}

	token, err := middleware.IssueBackofficeToken(h.jwtSecret, h.tokenTTL)
	if err != nil {
		h.logger.Error("failed to issue backoffice token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// DeleteChat handles DELETE /api/backoffice/chats/{chatId}
// With ?purge=1 the chat is also deleted on the platform.
func (h *BackofficeHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	purge := r.URL.Query().Get("purge") == "1"
	if err := h.chats.Delete(r.Context(), chatID, purge); err != nil {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListProjects handles GET /api/backoffice/projects
func (h *BackofficeHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.chats.Projects(r.Context())
	if err != nil {
		h.logger.Error("failed to list projects", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to list projects")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}
