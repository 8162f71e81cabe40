package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajtmaskin/sitebuilder/internal/generator"
	"github.com/sajtmaskin/sitebuilder/internal/model"
	"github.com/sajtmaskin/sitebuilder/internal/preview"
	"github.com/sajtmaskin/sitebuilder/internal/service"
	"github.com/sajtmaskin/sitebuilder/internal/store"
	"github.com/sajtmaskin/sitebuilder/internal/v0"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
)

// chatAPIStub answers CreateChat with a canned chat. Every other method on
// the embedded interface is nil and panics if a test path reaches it.
type chatAPIStub struct {
	v0.API
	chat *v0.Chat
}

func (s *chatAPIStub) CreateChat(ctx context.Context, req *v0.CreateChatRequest) (*v0.Chat, error) {
	return s.chat, nil
}

// recordStore is an in-memory ChatRepository for handler tests.
type recordStore struct {
	recs map[string]*store.ChatRecord
	msgs map[string][]store.MessageRecord
}

func newRecordStore() *recordStore {
	return &recordStore{
		recs: make(map[string]*store.ChatRecord),
		msgs: make(map[string][]store.MessageRecord),
	}
}

func (r *recordStore) Upsert(ctx context.Context, rec *store.ChatRecord) error {
	cp := *rec
	r.recs[rec.ChatID] = &cp
	return nil
}

func (r *recordStore) Get(ctx context.Context, chatID string) (*store.ChatRecord, error) {
	rec, ok := r.recs[chatID]
	if !ok {
		return nil, fmt.Errorf("chat %s: %w", chatID, store.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (r *recordStore) List(ctx context.Context, limit, offset int) ([]store.ChatRecord, int64, error) {
	var out []store.ChatRecord
	for _, rec := range r.recs {
		out = append(out, *rec)
	}
	return out, int64(len(out)), nil
}

func (r *recordStore) Delete(ctx context.Context, chatID string) error {
	delete(r.recs, chatID)
	return nil
}

func (r *recordStore) AppendMessage(ctx context.Context, msg *store.MessageRecord) error {
	r.msgs[msg.ChatID] = append(r.msgs[msg.ChatID], *msg)
	return nil
}

func (r *recordStore) Messages(ctx context.Context, chatID string) ([]store.MessageRecord, error) {
	return r.msgs[chatID], nil
}

func TestPreviewURL_ScreenshotQueryForcesFallback(t *testing.T) {
	files := []model.File{
		{Name: "app/page.tsx", Content: "export default function Page() {}"},
	}
	api := &chatAPIStub{chat: &v0.Chat{
		ID:            "chat-9",
		WebURL:        "https://v0.dev/chat/chat-9",
		ScreenshotURL: "https://shots.v0.dev/chat-9.png",
		Files:         files,
		LatestVersion: &v0.Version{
			ID:      "ver-1",
			Status:  v0.StatusCompleted,
			DemoURL: "https://demo.v0.dev/chat-9",
			Files:   files,
		},
	}}
	gen := generator.New(api, nil, logger.NewNop())
	svc := service.NewChatService(gen, api, newRecordStore(), logger.NewNop())

	_, err := svc.Create(context.Background(), &model.GenerateRequest{Prompt: "a cheese shop site"})
	require.NoError(t, err)

	h := NewChatHandler(svc, logger.NewNop())
	router := chi.NewRouter()
	router.Get("/api/v0/chats/{chatId}/preview", h.PreviewURL)

	req := httptest.NewRequest(http.MethodGet, "/api/v0/chats/chat-9/preview?screenshot=1", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var desc preview.Descriptor
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&desc))
	assert.Equal(t, preview.ModeScreenshot, desc.Mode)
	assert.Equal(t, "https://shots.v0.dev/chat-9.png", desc.ScreenshotURL)

	// Without the query parameter the live iframe wins, but the screenshot
	// URL still rides along for the client's fallback chain.
	req = httptest.NewRequest(http.MethodGet, "/api/v0/chats/chat-9/preview", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&desc))
	assert.Equal(t, preview.ModeLive, desc.Mode)
	assert.Contains(t, desc.URL, "https://demo.v0.dev/chat-9?v=")
	assert.Equal(t, "https://shots.v0.dev/chat-9.png", desc.ScreenshotURL)
}
