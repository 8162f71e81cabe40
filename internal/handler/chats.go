// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sajtmaskin/sitebuilder/internal/generator"
	"github.com/sajtmaskin/sitebuilder/internal/middleware"
	"github.com/sajtmaskin/sitebuilder/internal/model"
	"github.com/sajtmaskin/sitebuilder/internal/preview"
	"github.com/sajtmaskin/sitebuilder/internal/service"
	"github.com/sajtmaskin/sitebuilder/internal/store"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
)

// ChatHandler handles generation and chat endpoints.
type ChatHandler struct {
	chats  *service.ChatService
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chats *service.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, logger: log}
}

// Create handles POST /api/v0/chats
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidatePrompt(req.Prompt); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.chats.Create(r.Context(), &req)
	if err != nil {
		h.writeGenerationError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Refine handles POST /api/v0/chats/{chatId}/messages
func (h *ChatHandler) Refine(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.RefineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidatePrompt(req.Instruction); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.chats.Refine(r.Context(), chatID, &req)
	if err != nil {
		if errors.Is(err, service.ErrSendInFlight) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.writeGenerationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// chatResponse combines the persisted record, transcript and preview hint.
type chatResponse struct {
	Chat     *store.ChatRecord     `json:"chat"`
	Messages []store.MessageRecord `json:"messages"`
	Preview  preview.Descriptor    `json:"preview"`
}

// Get handles GET /api/v0/chats/{chatId}
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.chats.Get(r.Context(), chatID)
	if err != nil {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	msgs, err := h.chats.Messages(r.Context(), chatID)
	if err != nil {
		h.logger.Error("failed to load transcript", zap.String("chat_id", chatID), zap.Error(err))
		msgs = nil
	}

	writeJSON(w, http.StatusOK, &chatResponse{
		Chat:     rec,
		Messages: msgs,
		Preview:  preview.Describe(rec.DemoURL, rec.ScreenshotURL, rec.PreferScreenshot),
	})
}

// List handles GET /api/v0/chats
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	chats, total, err := h.chats.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list chats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list chats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"chats": chats,
		"total": total,
	})
}

// Reconcile handles POST /api/v0/chats/{chatId}/reconcile. Forces a refetch
// of upstream chat and version state.
func (h *ChatHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.chats.Reconcile(r.Context(), chatID)
	if err != nil {
		h.logger.Error("reconcile failed", zap.String("chat_id", chatID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to reconcile chat state")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

type preferencesRequest struct {
	PreferScreenshot bool   `json:"preferScreenshot"`
	Instructions     string `json:"instructions,omitempty"`
}

// Preferences handles PUT /api/v0/chats/{chatId}/preferences
func (h *ChatHandler) Preferences(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.chats.SetPreferences(r.Context(), chatID, req.PreferScreenshot, req.Instructions); err != nil {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PreviewURL handles GET /api/v0/chats/{chatId}/preview. Returns a
// cache-busted preview descriptor for the latest version.
func (h *ChatHandler) PreviewURL(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.chats.Get(r.Context(), chatID)
	if err != nil {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}

	force := rec.PreferScreenshot || r.URL.Query().Get("screenshot") == "1"
	writeJSON(w, http.StatusOK, preview.Describe(rec.DemoURL, rec.ScreenshotURL, force))
}

// writeGenerationError maps generator errors to HTTP responses with the
// user-facing messages the taxonomy defines.
func (h *ChatHandler) writeGenerationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, generator.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, generator.ErrRateLimited.Error())
	case errors.Is(err, generator.ErrUnauthorized):
		writeError(w, http.StatusBadGateway, generator.ErrUnauthorized.Error())
	case errors.Is(err, generator.ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, generator.ErrTemplateNotFound.Error())
	case errors.Is(err, generator.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, generator.ErrTimeout.Error())
	default:
		h.logger.Error("generation failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "generation failed, please try again")
	}
}
