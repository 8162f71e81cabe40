package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sajtmaskin/sitebuilder/internal/middleware"
	"github.com/sajtmaskin/sitebuilder/internal/model"
	"github.com/sajtmaskin/sitebuilder/internal/v0"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
)

// FilesHandler manages the file set of a chat's version. Every write goes
// through the platform's UpdateVersion, which answers with a fresh version.
type FilesHandler struct {
	client v0.API
	logger *logger.Logger
}

// NewFilesHandler creates a files handler.
func NewFilesHandler(client v0.API, log *logger.Logger) *FilesHandler {
	return &FilesHandler{client: client, logger: log}
}

// resolveVersion picks the version to operate on: an explicit ?versionId=,
// otherwise the latest from the version list, falling back to the chat's
// embedded pointer.
func (h *FilesHandler) resolveVersion(r *http.Request, chatID string) (string, error) {
	if v := r.URL.Query().Get("versionId"); v != "" {
		return v, nil
	}
	versions, err := h.client.ListVersions(r.Context(), chatID)
	if err == nil && len(versions) > 0 {
		return versions[0].ID, nil
	}
	chat, err := h.client.GetChat(r.Context(), chatID)
	if err != nil {
		return "", err
	}
	if chat.LatestVersion == nil {
		return "", errNoVersion
	}
	return chat.LatestVersion.ID, nil
}

var errNoVersion = &v0.APIError{StatusCode: http.StatusNotFound, Operation: "resolve_version", Body: "chat has no versions"}

// List handles GET /api/v0/chats/{chatId}/files
func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	versionID, err := h.resolveVersion(r, chatID)
	if err != nil {
		writeError(w, http.StatusNotFound, "no version found for chat")
		return
	}

	version, err := h.client.GetVersion(r.Context(), chatID, versionID)
	if err != nil {
		h.logger.Error("failed to fetch version", zap.String("chat_id", chatID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to fetch files")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"versionId": version.ID,
		"files":     version.Files,
	})
}

type replaceFilesRequest struct {
	Files []model.File `json:"files"`
}

// Replace handles PUT /api/v0/chats/{chatId}/files: bulk replace.
func (h *FilesHandler) Replace(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req replaceFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, f := range req.Files {
		if err := middleware.ValidateFileName(f.Name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	versionID, err := h.resolveVersion(r, chatID)
	if err != nil {
		writeError(w, http.StatusNotFound, "no version found for chat")
		return
	}

	updated, err := h.client.UpdateVersion(r.Context(), chatID, versionID, &v0.UpdateVersionRequest{Files: req.Files})
	if err != nil {
		h.logger.Error("failed to replace files", zap.String("chat_id", chatID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to save files")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"versionId": updated.ID,
		"files":     updated.Files,
	})
}

type patchFileRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Patch handles PATCH /api/v0/chats/{chatId}/files: single-file upsert. The
// file is appended when it does not exist in the version's file set.
func (h *FilesHandler) Patch(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req patchFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateFileName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	versionID, err := h.resolveVersion(r, chatID)
	if err != nil {
		writeError(w, http.StatusNotFound, "no version found for chat")
		return
	}

	version, err := h.client.GetVersion(r.Context(), chatID, versionID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to fetch files")
		return
	}

	files := model.UpsertFile(version.Files, req.Name, req.Content)

	updated, err := h.client.UpdateVersion(r.Context(), chatID, versionID, &v0.UpdateVersionRequest{Files: files})
	if err != nil {
		h.logger.Error("failed to upsert file", zap.String("chat_id", chatID),
			zap.String("file", req.Name), zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to save file")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"versionId": updated.ID,
		"files":     updated.Files,
	})
}

// Delete handles DELETE /api/v0/chats/{chatId}/files?name=...
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := r.URL.Query().Get("name")
	if err := middleware.ValidateFileName(name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	versionID, err := h.resolveVersion(r, chatID)
	if err != nil {
		writeError(w, http.StatusNotFound, "no version found for chat")
		return
	}

	version, err := h.client.GetVersion(r.Context(), chatID, versionID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to fetch files")
		return
	}

	files, found := model.RemoveFile(version.Files, name)
	if !found {
		writeError(w, http.StatusNotFound, "file not found in version")
		return
	}

	updated, err := h.client.UpdateVersion(r.Context(), chatID, versionID, &v0.UpdateVersionRequest{Files: files})
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to delete file")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"versionId": updated.ID,
		"files":     updated.Files,
	})
}

// Download handles GET /api/v0/chats/{chatId}/download: streams the version
// as a zip archive.
func (h *FilesHandler) Download(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")
	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	versionID, err := h.resolveVersion(r, chatID)
	if err != nil {
		writeError(w, http.StatusNotFound, "no version found for chat")
		return
	}

	body, err := h.client.DownloadVersion(r.Context(), chatID, versionID)
	if err != nil {
		h.logger.Error("failed to download version", zap.String("chat_id", chatID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to download version")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="site-`+chatID+`.zip"`)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("zip stream interrupted", zap.String("chat_id", chatID), zap.Error(err))
	}
}
