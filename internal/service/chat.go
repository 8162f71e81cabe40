// Package service provides business logic for the generation platform.
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/sajtmaskin/sitebuilder/internal/generator"
	"github.com/sajtmaskin/sitebuilder/internal/model"
	"github.com/sajtmaskin/sitebuilder/internal/store"
	"github.com/sajtmaskin/sitebuilder/internal/v0"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
)

// ErrSendInFlight is returned when a send is attempted on a chat that
// already has one in flight. Sends are serialized per chat; a concurrent
// attempt is rejected, not queued.
var ErrSendInFlight = errors.New("a message is already in flight for this chat")

// ChatService owns per-chat orchestration state: transcripts, the latest
// known demo URL and version, and the in-flight guard.
type ChatService struct {
	generator *generator.Service
	client    v0.API
	chats     store.ChatRepository
	logger    *logger.Logger

	// reads holds short-lived upstream read results so reconcile bursts do
	// not hammer the platform API.
	reads *gocache.Cache

	// locks serializes sends per chat id. Entries are refcounted and removed
	// once the last holder releases, so the map stays bounded by the number
	// of chats with a send in flight.
	locksMu sync.Mutex
	locks   map[string]*chatLock

	// reconcileDelay is how long to wait before the confirmatory refetch
	// when a mutation response omitted the demo URL.
	reconcileDelay time.Duration
}

// NewChatService creates a chat orchestration service.
func NewChatService(gen *generator.Service, client v0.API, chats store.ChatRepository, log *logger.Logger) *ChatService {
	return &ChatService{
		generator:      gen,
		client:         client,
		chats:          chats,
		logger:         log,
		reads:          gocache.New(10*time.Second, time.Minute),
		locks:          make(map[string]*chatLock),
		reconcileDelay: 2 * time.Second,
	}
}

// SetReconcileDelay overrides the reconciliation delay. For tests.
func (s *ChatService) SetReconcileDelay(d time.Duration) {
	s.reconcileDelay = d
}

// Create starts a new chat from a prompt and persists the result.
func (s *ChatService) Create(ctx context.Context, req *model.GenerateRequest) (*model.GenerationResult, error) {
	result, err := s.generator.Generate(ctx, req.Prompt, generator.GenerateOptions{
		Quality:        req.Quality,
		Category:       req.Category,
		Expanded:       req.Expanded,
		AttachmentURLs: req.AttachmentURLs,
		MediaURLs:      req.MediaURLs,
		Instructions:   req.Instructions,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &store.ChatRecord{
		ChatID:        result.ChatID,
		Title:         titleFromPrompt(req.Prompt),
		Quality:       string(req.Quality),
		DemoURL:       result.DemoURL,
		ScreenshotURL: result.ScreenshotURL,
		VersionID:     result.VersionID,
		WebURL:        result.WebURL,
		Instructions:  req.Instructions,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.chats.Upsert(ctx, rec); err != nil {
		s.logger.Error("failed to persist chat", zap.String("chat_id", result.ChatID), zap.Error(err))
	}
	s.appendTranscript(ctx, result.ChatID, model.RoleUser, req.Prompt)
	s.appendTranscript(ctx, result.ChatID, model.RoleAssistant, result.Code)

	// Trust nothing beyond the mutation's own echo: when the demo URL is
	// missing, schedule a confirmatory read instead of assuming failure.
	if result.DemoURL == "" {
		s.reconcileLater(result.ChatID)
	}

	return result, nil
}

// Refine sends a follow-up instruction on an existing chat. At most one send
// per chat may be in flight.
func (s *ChatService) Refine(ctx context.Context, chatID string, req *model.RefineRequest) (*model.GenerationResult, error) {
	lock, ok := s.acquire(chatID)
	if !ok {
		return nil, ErrSendInFlight
	}
	defer func() {
		lock.mu.Unlock()
		s.release(chatID, lock)
	}()

	result, err := s.generator.Refine(ctx, chatID, req)
	if err != nil {
		return nil, err
	}

	s.appendTranscript(ctx, chatID, model.RoleUser, req.Instruction)
	s.appendTranscript(ctx, result.ChatID, model.RoleAssistant, result.Code)
	s.updateRecord(ctx, result)

	if result.DemoURL == "" {
		s.reconcileLater(result.ChatID)
	}

	return result, nil
}

// Get returns the persisted chat record.
func (s *ChatService) Get(ctx context.Context, chatID string) (*store.ChatRecord, error) {
	return s.chats.Get(ctx, chatID)
}

// Messages returns the persisted transcript for a chat.
func (s *ChatService) Messages(ctx context.Context, chatID string) ([]store.MessageRecord, error) {
	return s.chats.Messages(ctx, chatID)
}

// List returns persisted chats, newest activity first.
func (s *ChatService) List(ctx context.Context, limit, offset int) ([]store.ChatRecord, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.chats.List(ctx, limit, offset)
}

// Delete removes a chat record locally. With purgeUpstream the chat is also
// deleted on the platform; an upstream failure is logged but does not keep
// the local record alive.
func (s *ChatService) Delete(ctx context.Context, chatID string, purgeUpstream bool) error {
	if purgeUpstream {
		if err := s.client.DeleteChat(ctx, chatID); err != nil {
			s.logger.Warn("upstream chat delete failed",
				zap.String("chat_id", chatID), zap.Error(err))
		}
	}
	return s.chats.Delete(ctx, chatID)
}

// Projects lists the platform projects for the configured account.
func (s *ChatService) Projects(ctx context.Context) ([]v0.Project, error) {
	return s.client.ListProjects(ctx)
}

// SetPreferences updates client preferences that survive reloads.
func (s *ChatService) SetPreferences(ctx context.Context, chatID string, preferScreenshot bool, instructions string) error {
	rec, err := s.chats.Get(ctx, chatID)
	if err != nil {
		return err
	}
	rec.PreferScreenshot = preferScreenshot
	if instructions != "" {
		rec.Instructions = instructions
	}
	rec.UpdatedAt = time.Now()
	return s.chats.Upsert(ctx, rec)
}

// Reconcile refetches the chat and its version list and updates the local
// record. The explicit version list wins over the chat's embedded
// latestVersion pointer whenever it is non-empty; the two are not guaranteed
// consistent and the list is the fresher source.
func (s *ChatService) Reconcile(ctx context.Context, chatID string) (*store.ChatRecord, error) {
	chat, err := s.getChatCached(ctx, chatID)
	if err != nil {
		return nil, err
	}

	demoURL := chat.DemoURL
	versionID := ""
	if chat.LatestVersion != nil {
		versionID = chat.LatestVersion.ID
		if chat.LatestVersion.DemoURL != "" {
			demoURL = chat.LatestVersion.DemoURL
		}
	}

	versions, err := s.listVersionsCached(ctx, chatID)
	if err != nil {
		s.logger.Warn("version list unavailable during reconcile, using chat pointer",
			zap.String("chat_id", chatID), zap.Error(err))
	} else if len(versions) > 0 {
		versionID = versions[0].ID
		if versions[0].DemoURL != "" {
			demoURL = versions[0].DemoURL
		}
	}

	rec, err := s.chats.Get(ctx, chatID)
	if err != nil {
		rec = &store.ChatRecord{ChatID: chatID, CreatedAt: time.Now()}
	}
	rec.DemoURL = demoURL
	rec.VersionID = versionID
	rec.WebURL = chat.WebURL
	if chat.ScreenshotURL != "" {
		rec.ScreenshotURL = chat.ScreenshotURL
	}
	rec.UpdatedAt = time.Now()

	if err := s.chats.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *ChatService) reconcileLater(chatID string) {
	time.AfterFunc(s.reconcileDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		rec, err := s.Reconcile(ctx, chatID)
		if err != nil {
			s.logger.Warn("delayed reconcile failed", zap.String("chat_id", chatID), zap.Error(err))
			return
		}
		if rec.DemoURL != "" {
			s.logger.Info("reconcile recovered demo URL",
				zap.String("chat_id", chatID), zap.String("version_id", rec.VersionID))
		}
	})
}

// chatLock is a refcounted per-chat mutex. The refcount keeps eviction safe:
// an entry leaves the map only when nobody holds a reference to it.
type chatLock struct {
	mu   sync.Mutex
	refs int
}

func (s *ChatService) acquire(chatID string) (*chatLock, bool) {
	s.locksMu.Lock()
	lock := s.locks[chatID]
	if lock == nil {
		lock = &chatLock{}
		s.locks[chatID] = lock
	}
	lock.refs++
	s.locksMu.Unlock()

	if !lock.mu.TryLock() {
		s.release(chatID, lock)
		return nil, false
	}
	return lock, true
}

func (s *ChatService) release(chatID string, lock *chatLock) {
	s.locksMu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(s.locks, chatID)
	}
	s.locksMu.Unlock()
}

func (s *ChatService) getChatCached(ctx context.Context, chatID string) (*v0.Chat, error) {
	key := "chat:" + chatID
	if v, ok := s.reads.Get(key); ok {
		return v.(*v0.Chat), nil
	}
	chat, err := s.client.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	s.reads.SetDefault(key, chat)
	return chat, nil
}

func (s *ChatService) listVersionsCached(ctx context.Context, chatID string) ([]v0.Version, error) {
	key := "versions:" + chatID
	if v, ok := s.reads.Get(key); ok {
		return v.([]v0.Version), nil
	}
	versions, err := s.client.ListVersions(ctx, chatID)
	if err != nil {
		return nil, err
	}
	s.reads.SetDefault(key, versions)
	return versions, nil
}

func (s *ChatService) updateRecord(ctx context.Context, result *model.GenerationResult) {
	rec, err := s.chats.Get(ctx, result.ChatID)
	if err != nil {
		rec = &store.ChatRecord{ChatID: result.ChatID, CreatedAt: time.Now()}
	}
	if result.DemoURL != "" {
		rec.DemoURL = result.DemoURL
	}
	if result.ScreenshotURL != "" {
		rec.ScreenshotURL = result.ScreenshotURL
	}
	if result.VersionID != "" {
		rec.VersionID = result.VersionID
	}
	if result.WebURL != "" {
		rec.WebURL = result.WebURL
	}
	rec.UpdatedAt = time.Now()
	if err := s.chats.Upsert(ctx, rec); err != nil {
		s.logger.Error("failed to update chat record", zap.String("chat_id", result.ChatID), zap.Error(err))
	}
}

func (s *ChatService) appendTranscript(ctx context.Context, chatID string, role model.Role, content string) {
	if content == "" {
		return
	}
	msg := &store.MessageRecord{
		MessageID: uuid.Must(uuid.NewV7()).String(),
		ChatID:    chatID,
		Role:      string(role),
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.chats.AppendMessage(ctx, msg); err != nil {
		s.logger.Error("failed to append transcript", zap.String("chat_id", chatID), zap.Error(err))
	}
}

func titleFromPrompt(prompt string) string {
	title := strings.TrimSpace(prompt)
	if len(title) > 80 {
		title = title[:80]
	}
	return title
}
