package service

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajtmaskin/sitebuilder/internal/generator"
	"github.com/sajtmaskin/sitebuilder/internal/model"
	"github.com/sajtmaskin/sitebuilder/internal/store"
	"github.com/sajtmaskin/sitebuilder/internal/v0"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
)

// stubAPI implements v0.API with overridable func fields.
type stubAPI struct {
	CreateChatFunc   func(ctx context.Context, req *v0.CreateChatRequest) (*v0.Chat, error)
	SendMessageFunc  func(ctx context.Context, chatID string, req *v0.SendMessageRequest) (*v0.Chat, error)
	GetChatFunc      func(ctx context.Context, chatID string) (*v0.Chat, error)
	ListVersionsFunc func(ctx context.Context, chatID string) ([]v0.Version, error)
	DeleteChatFunc   func(ctx context.Context, chatID string) error
	ListProjectsFunc func(ctx context.Context) ([]v0.Project, error)
}

func (s *stubAPI) CreateChat(ctx context.Context, req *v0.CreateChatRequest) (*v0.Chat, error) {
	return s.CreateChatFunc(ctx, req)
}

func (s *stubAPI) SendMessage(ctx context.Context, chatID string, req *v0.SendMessageRequest) (*v0.Chat, error) {
	return s.SendMessageFunc(ctx, chatID, req)
}

func (s *stubAPI) GetChat(ctx context.Context, chatID string) (*v0.Chat, error) {
	return s.GetChatFunc(ctx, chatID)
}

func (s *stubAPI) ListVersions(ctx context.Context, chatID string) ([]v0.Version, error) {
	return s.ListVersionsFunc(ctx, chatID)
}

func (s *stubAPI) GetVersion(ctx context.Context, chatID, versionID string) (*v0.Version, error) {
	panic("not used")
}

func (s *stubAPI) UpdateVersion(ctx context.Context, chatID, versionID string, req *v0.UpdateVersionRequest) (*v0.Version, error) {
	panic("not used")
}

func (s *stubAPI) DownloadVersion(ctx context.Context, chatID, versionID string) (io.ReadCloser, error) {
	panic("not used")
}

func (s *stubAPI) InitChat(ctx context.Context, req *v0.InitChatRequest) (*v0.Chat, error) {
	panic("not used")
}

func (s *stubAPI) DeleteChat(ctx context.Context, chatID string) error {
	if s.DeleteChatFunc == nil {
		panic("unexpected upstream delete")
	}
	return s.DeleteChatFunc(ctx, chatID)
}

func (s *stubAPI) ListProjects(ctx context.Context) ([]v0.Project, error) {
	return s.ListProjectsFunc(ctx)
}

// memChatRepo is an in-memory ChatRepository.
type memChatRepo struct {
	mu       sync.Mutex
	chats    map[string]*store.ChatRecord
	messages map[string][]store.MessageRecord
}

func newMemChatRepo() *memChatRepo {
	return &memChatRepo{
		chats:    make(map[string]*store.ChatRecord),
		messages: make(map[string][]store.MessageRecord),
	}
}

func (r *memChatRepo) Upsert(ctx context.Context, rec *store.ChatRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.chats[rec.ChatID] = &cp
	return nil
}

func (r *memChatRepo) Get(ctx context.Context, chatID string) (*store.ChatRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.chats[chatID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *memChatRepo) List(ctx context.Context, limit, offset int) ([]store.ChatRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.ChatRecord, 0, len(r.chats))
	for _, rec := range r.chats {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, int64(len(out)), nil
}

func (r *memChatRepo) Delete(ctx context.Context, chatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.chats[chatID]; !ok {
		return store.ErrNotFound
	}
	delete(r.chats, chatID)
	delete(r.messages, chatID)
	return nil
}

func (r *memChatRepo) AppendMessage(ctx context.Context, msg *store.MessageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[msg.ChatID] = append(r.messages[msg.ChatID], *msg)
	return nil
}

func (r *memChatRepo) Messages(ctx context.Context, chatID string) ([]store.MessageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]store.MessageRecord(nil), r.messages[chatID]...), nil
}

func readyChat(id, versionID string) *v0.Chat {
	files := []model.File{{Name: "app/page.tsx", Content: "export default function Page() {}"}}
	return &v0.Chat{
		ID:     id,
		WebURL: "https://v0.dev/chat/" + id,
		Files:  files,
		LatestVersion: &v0.Version{
			ID:      versionID,
			Status:  v0.StatusCompleted,
			DemoURL: "https://demo.v0.dev/" + id + "/" + versionID,
			Files:   files,
		},
	}
}

func newChatService(api v0.API, repo store.ChatRepository) *ChatService {
	gen := generator.New(api, nil, logger.NewNop(),
		generator.WithSleep(func(ctx context.Context, d time.Duration) error { return nil }))
	return NewChatService(gen, api, repo, logger.NewNop())
}

func TestChatService_CreatePersistsRecordAndTranscript(t *testing.T) {
	api := &stubAPI{
		CreateChatFunc: func(ctx context.Context, req *v0.CreateChatRequest) (*v0.Chat, error) {
			return readyChat("chat-1", "ver-1"), nil
		},
	}
	repo := newMemChatRepo()
	svc := newChatService(api, repo)

	result, err := svc.Create(context.Background(), &model.GenerateRequest{
		Prompt:  "a café site",
		Quality: model.QualityPro,
	})
	require.NoError(t, err)
	assert.Equal(t, "chat-1", result.ChatID)

	rec, err := svc.Get(context.Background(), "chat-1")
	require.NoError(t, err)
	assert.Equal(t, "a café site", rec.Title)
	assert.Equal(t, "ver-1", rec.VersionID)
	assert.NotEmpty(t, rec.DemoURL)

	msgs, err := svc.Messages(context.Background(), "chat-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, string(model.RoleUser), msgs[0].Role)
	assert.Equal(t, "a café site", msgs[0].Content)
	assert.Equal(t, string(model.RoleAssistant), msgs[1].Role)
}

func TestChatService_RefineRejectsConcurrentSend(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var enterOnce sync.Once

	api := &stubAPI{
		GetChatFunc: func(ctx context.Context, chatID string) (*v0.Chat, error) {
			return readyChat(chatID, "ver-1"), nil
		},
		SendMessageFunc: func(ctx context.Context, chatID string, req *v0.SendMessageRequest) (*v0.Chat, error) {
			enterOnce.Do(func() { close(entered) })
			<-release
			return readyChat(chatID, "ver-2"), nil
		},
	}
	repo := newMemChatRepo()
	svc := newChatService(api, repo)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Refine(context.Background(), "chat-2", &model.RefineRequest{Instruction: "bigger hero"})
		done <- err
	}()

	<-entered

	_, err := svc.Refine(context.Background(), "chat-2", &model.RefineRequest{Instruction: "smaller hero"})
	assert.ErrorIs(t, err, ErrSendInFlight)

	close(release)
	require.NoError(t, <-done)

	// The lock is free again after the first send completed.
	_, err = svc.Refine(context.Background(), "chat-2", &model.RefineRequest{Instruction: "round corners"})
	assert.NoError(t, err)
}

func TestChatService_ReconcileVersionListWins(t *testing.T) {
	api := &stubAPI{
		GetChatFunc: func(ctx context.Context, chatID string) (*v0.Chat, error) {
			chat := readyChat(chatID, "ver-stale")
			return chat, nil
		},
		ListVersionsFunc: func(ctx context.Context, chatID string) ([]v0.Version, error) {
			return []v0.Version{
				{ID: "ver-fresh", Status: v0.StatusCompleted, DemoURL: "https://demo.v0.dev/chat-3/ver-fresh"},
				{ID: "ver-stale", Status: v0.StatusCompleted},
			}, nil
		},
	}
	repo := newMemChatRepo()
	svc := newChatService(api, repo)

	rec, err := svc.Reconcile(context.Background(), "chat-3")
	require.NoError(t, err)

	assert.Equal(t, "ver-fresh", rec.VersionID)
	assert.Equal(t, "https://demo.v0.dev/chat-3/ver-fresh", rec.DemoURL)
}

func TestChatService_ReconcileFallsBackToChatPointer(t *testing.T) {
	api := &stubAPI{
		GetChatFunc: func(ctx context.Context, chatID string) (*v0.Chat, error) {
			return readyChat(chatID, "ver-1"), nil
		},
		ListVersionsFunc: func(ctx context.Context, chatID string) ([]v0.Version, error) {
			return nil, &v0.APIError{StatusCode: 500, Operation: "list_versions"}
		},
	}
	repo := newMemChatRepo()
	svc := newChatService(api, repo)

	rec, err := svc.Reconcile(context.Background(), "chat-4")
	require.NoError(t, err)
	assert.Equal(t, "ver-1", rec.VersionID)
}

func TestChatService_CreatePersistsScreenshotURL(t *testing.T) {
	api := &stubAPI{
		CreateChatFunc: func(ctx context.Context, req *v0.CreateChatRequest) (*v0.Chat, error) {
			chat := readyChat("chat-5", "ver-1")
			chat.ScreenshotURL = "https://shots.v0.dev/chat-5.png"
			return chat, nil
		},
	}
	repo := newMemChatRepo()
	svc := newChatService(api, repo)

	result, err := svc.Create(context.Background(), &model.GenerateRequest{Prompt: "a gym site"})
	require.NoError(t, err)
	assert.Equal(t, "https://shots.v0.dev/chat-5.png", result.ScreenshotURL)

	rec, err := svc.Get(context.Background(), "chat-5")
	require.NoError(t, err)
	assert.Equal(t, "https://shots.v0.dev/chat-5.png", rec.ScreenshotURL)
}

func TestChatService_DeletePurgesUpstreamWhenAsked(t *testing.T) {
	var deleted []string
	api := &stubAPI{
		CreateChatFunc: func(ctx context.Context, req *v0.CreateChatRequest) (*v0.Chat, error) {
			return readyChat("chat-6", "ver-1"), nil
		},
		DeleteChatFunc: func(ctx context.Context, chatID string) error {
			deleted = append(deleted, chatID)
			return nil
		},
	}
	repo := newMemChatRepo()
	svc := newChatService(api, repo)

	_, err := svc.Create(context.Background(), &model.GenerateRequest{Prompt: "a site"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "chat-6", true))
	assert.Equal(t, []string{"chat-6"}, deleted)

	_, err = svc.Get(context.Background(), "chat-6")
	assert.Error(t, err)
}

func TestChatService_DeleteLocalOnlyByDefault(t *testing.T) {
	// DeleteChatFunc is nil: any upstream delete would panic.
	api := &stubAPI{
		CreateChatFunc: func(ctx context.Context, req *v0.CreateChatRequest) (*v0.Chat, error) {
			return readyChat("chat-7", "ver-1"), nil
		},
	}
	repo := newMemChatRepo()
	svc := newChatService(api, repo)

	_, err := svc.Create(context.Background(), &model.GenerateRequest{Prompt: "a site"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), "chat-7", false))
}

func TestChatService_LockEvictedAfterRefine(t *testing.T) {
	api := &stubAPI{
		GetChatFunc: func(ctx context.Context, chatID string) (*v0.Chat, error) {
			return readyChat(chatID, "ver-1"), nil
		},
		SendMessageFunc: func(ctx context.Context, chatID string, req *v0.SendMessageRequest) (*v0.Chat, error) {
			return readyChat(chatID, "ver-2"), nil
		},
	}
	repo := newMemChatRepo()
	svc := newChatService(api, repo)

	for _, chatID := range []string{"chat-a", "chat-b", "chat-c"} {
		_, err := svc.Refine(context.Background(), chatID, &model.RefineRequest{Instruction: "tweak"})
		require.NoError(t, err)
	}

	svc.locksMu.Lock()
	defer svc.locksMu.Unlock()
	assert.Empty(t, svc.locks, "per-chat locks must not accumulate after sends finish")
}

func TestTitleFromPrompt_Truncates(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "prompt"
	}
	assert.Len(t, titleFromPrompt(long), 80)
	assert.Equal(t, "short", titleFromPrompt("  short  "))
}
