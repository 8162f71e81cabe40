// Package generator turns user intents into v0 Platform API calls and
// normalizes the heterogeneous responses into one result shape.
package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sajtmaskin/sitebuilder/internal/model"
	"github.com/sajtmaskin/sitebuilder/internal/v0"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
	"github.com/sajtmaskin/sitebuilder/pkg/metrics"
)

// Publisher receives generation lifecycle events. Implemented by the NATS
// event log; a no-op implementation is fine for tests.
type Publisher interface {
	PublishProgress(ctx context.Context, event *model.ProgressEvent) error
}

// StreamCallback receives generated output as it becomes available. Delivery
// is best-effort: the upstream may collapse it to one final chunk.
type StreamCallback func(token string)

// GenerateOptions tune a Generate call.
type GenerateOptions struct {
	Quality  model.Quality
	Category string

	// Expanded marks the prompt as a complete brief that must not be merged
	// into a category template.
	Expanded bool

	AttachmentURLs []string
	MediaURLs      []string
	Instructions   string
	OnStream       StreamCallback
}

// Service orchestrates generation against the v0 Platform API.
type Service struct {
	client v0.API
	events Publisher
	logger *logger.Logger

	pollInterval    time.Duration
	pollMaxAttempts int
	maxUndefined    int
	retryBase       time.Duration

	// sleep is injectable so tests can run the poller and retry loop
	// without real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Service.
type Option func(*Service)

// WithPolling overrides the poll cadence and attempt budget.
func WithPolling(interval time.Duration, maxAttempts int) Option {
	return func(s *Service) {
		s.pollInterval = interval
		s.pollMaxAttempts = maxAttempts
	}
}

// WithRetryBase overrides the initial retry backoff delay.
func WithRetryBase(d time.Duration) Option {
	return func(s *Service) { s.retryBase = d }
}

// WithSleep overrides the sleep function. For tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) { s.sleep = fn }
}

// New creates a generation service.
func New(client v0.API, events Publisher, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		client:          client,
		events:          events,
		logger:          log,
		pollInterval:    4 * time.Second,
		pollMaxAttempts: 45,
		maxUndefined:    5,
		retryBase:       defaultRetryBase,
		sleep:           sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate creates a new chat from a prompt and waits for the first version.
func (s *Service) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*model.GenerationResult, error) {
	start := time.Now()
	quality := opts.Quality
	if quality == "" {
		quality = model.DefaultQuality
	}
	modelID := model.ModelFor(quality)

	finalPrompt := buildPrompt(prompt, opts.Category, opts.Expanded, opts.MediaURLs)

	chat, err := s.client.CreateChat(ctx, &v0.CreateChatRequest{
		Message:        finalPrompt,
		System:         opts.Instructions,
		ModelID:        modelID,
		AttachmentURLs: opts.AttachmentURLs,
	})
	if err != nil {
		metrics.RecordGeneration("create", modelID, "error", time.Since(start).Seconds())
		return nil, s.mapGenerateError(err)
	}

	s.publish(ctx, chat.ID, model.PhaseCreated, 0, chat)

	// The create call can return before files or the demo URL exist. Poll
	// until the version settles rather than trusting a partial response.
	outcome := "success"
	if len(chat.Files) == 0 || demoURLOf(chat) == "" {
		ready, err := s.waitForVersionReady(ctx, chat.ID)
		if err != nil {
			metrics.RecordGeneration("create", modelID, "failed", time.Since(start).Seconds())
			return nil, err
		}
		if ready != nil {
			chat = ready
		} else {
			// Outcome unknown: the poller gave up on undefined statuses.
			outcome = "unknown"
		}
	}

	streamed := false
	if opts.OnStream != nil && chat.Text != "" {
		opts.OnStream(chat.Text)
		streamed = true
	}

	metrics.RecordGeneration("create", modelID, outcome, time.Since(start).Seconds())
	return s.normalize(chat, modelID, streamed), nil
}

// Refine sends a follow-up instruction to an existing chat. When chatID is
// empty it degrades to a fresh Generate with the existing code embedded as
// context instead of failing.
func (s *Service) Refine(ctx context.Context, chatID string, req *model.RefineRequest) (*model.GenerationResult, error) {
	if chatID == "" {
		return s.Generate(ctx, refineFallbackPrompt(req.ExistingCode, req.Instruction), GenerateOptions{
			Quality:   req.Quality,
			Expanded:  true,
			MediaURLs: req.MediaURLs,
		})
	}

	start := time.Now()
	quality := req.Quality
	if quality == "" {
		quality = model.DefaultQuality
	}
	modelID := model.ModelFor(quality)

	before, err := s.client.GetChat(ctx, chatID)
	if err != nil {
		s.logger.Warn("could not read chat before refine", zap.String("chat_id", chatID), zap.Error(err))
		before = &v0.Chat{ID: chatID}
	}

	message := req.Instruction
	if len(req.MediaURLs) > 0 {
		message = buildPrompt(req.Instruction, "", true, req.MediaURLs)
	}

	chat, err := s.client.SendMessage(ctx, chatID, &v0.SendMessageRequest{
		Message: message,
		ModelID: modelID,
	})
	if err != nil {
		metrics.RecordGeneration("refine", modelID, "error", time.Since(start).Seconds())
		return nil, s.mapGenerateError(err)
	}

	outcome := "success"
	if demoURLOf(chat) == "" || versionIDOf(chat) == versionIDOf(before) {
		ready, err := s.waitForVersionReady(ctx, chatID)
		if err != nil {
			metrics.RecordGeneration("refine", modelID, "failed", time.Since(start).Seconds())
			return nil, err
		}
		if ready != nil {
			chat = ready
		} else {
			outcome = "unknown"
		}
	}

	// A refine that leaves the demo URL and version untouched usually means
	// the upstream silently produced no new version. Best-effort signal:
	// logged, never surfaced, because a no-op refine is indistinguishable
	// from an upstream cache hit.
	if demoURLOf(chat) == demoURLOf(before) && versionIDOf(chat) == versionIDOf(before) {
		s.logger.Warn("refine returned unchanged demo URL and version",
			zap.String("chat_id", chatID),
			zap.String("version_id", versionIDOf(chat)))
	}

	metrics.RecordGeneration("refine", modelID, outcome, time.Since(start).Seconds())
	return s.normalize(chat, modelID, false), nil
}

// FromTemplate clones a template into a new chat. No generation runs; the
// call is retried on transient upstream faults.
func (s *Service) FromTemplate(ctx context.Context, templateID string) (*model.GenerationResult, error) {
	return s.initChat(ctx, "template", &v0.InitChatRequest{
		Type:       "template",
		TemplateID: templateID,
	})
}

// InitFromRegistry bootstraps a chat from a component registry URL.
func (s *Service) InitFromRegistry(ctx context.Context, registryURL string) (*model.GenerationResult, error) {
	return s.initChat(ctx, "registry", &v0.InitChatRequest{
		Type:        "registry",
		RegistryURL: registryURL,
	})
}

func (s *Service) initChat(ctx context.Context, kind string, req *v0.InitChatRequest) (*model.GenerationResult, error) {
	start := time.Now()
	var chat *v0.Chat

	err := s.retry(ctx, defaultMaxRetries, func() error {
		var err error
		chat, err = s.client.InitChat(ctx, req)
		return err
	})
	if err != nil {
		metrics.RecordGeneration(kind, "", "error", time.Since(start).Seconds())
		return nil, err
	}

	s.publish(ctx, chat.ID, model.PhaseCreated, 0, chat)
	metrics.RecordGeneration(kind, "", "success", time.Since(start).Seconds())
	return s.normalize(chat, "", false), nil
}

// normalize flattens the chat object into the common result record. The
// explicit version list is preferred over the chat's embedded pointer when
// both disagree, but here only the embedded pointer is available; the chat
// service reconciles against the list afterwards.
func (s *Service) normalize(chat *v0.Chat, modelID string, streamed bool) *model.GenerationResult {
	result := &model.GenerationResult{
		Files:         chat.Files,
		ChatID:        chat.ID,
		DemoURL:       demoURLOf(chat),
		ScreenshotURL: chat.ScreenshotURL,
		VersionID:     versionIDOf(chat),
		WebURL:        chat.WebURL,
		Model:         modelID,
		Streamed:      streamed,
	}
	if chat.LatestVersion != nil && len(chat.LatestVersion.Files) > 0 {
		result.Files = chat.LatestVersion.Files
	}
	if len(result.Files) > 0 {
		result.Code = result.Files[0].Content
	}
	return result
}

// mapGenerateError translates upstream errors into distinguishable
// user-facing messages. Anything unclassified is rethrown unchanged.
func (s *Service) mapGenerateError(err error) error {
	switch {
	case v0.IsRateLimited(err):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case v0.IsUnauthorized(err):
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	case v0.IsTimeout(err):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	default:
		return err
	}
}

func (s *Service) publish(ctx context.Context, chatID string, phase model.Phase, attempt int, chat *v0.Chat) {
	if s.events == nil {
		return
	}
	event := &model.ProgressEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		ChatID:    chatID,
		Phase:     phase,
		Attempt:   attempt,
		CreatedAt: time.Now(),
	}
	if chat != nil {
		event.DemoURL = demoURLOf(chat)
		event.VersionID = versionIDOf(chat)
	}
	if err := s.events.PublishProgress(ctx, event); err != nil {
		s.logger.Warn("failed to publish progress event",
			zap.String("chat_id", chatID), zap.String("phase", string(phase)), zap.Error(err))
	}
}

func demoURLOf(chat *v0.Chat) string {
	if chat == nil {
		return ""
	}
	if chat.LatestVersion != nil && chat.LatestVersion.DemoURL != "" {
		return chat.LatestVersion.DemoURL
	}
	return chat.DemoURL
}

func versionIDOf(chat *v0.Chat) string {
	if chat == nil || chat.LatestVersion == nil {
		return ""
	}
	return chat.LatestVersion.ID
}
