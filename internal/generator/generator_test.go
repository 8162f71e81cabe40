package generator

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajtmaskin/sitebuilder/internal/model"
	"github.com/sajtmaskin/sitebuilder/internal/v0"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
	"github.com/sajtmaskin/sitebuilder/pkg/metrics"
)

// fakeAPI implements v0.API with overridable func fields.
type fakeAPI struct {
	CreateChatFunc      func(ctx context.Context, req *v0.CreateChatRequest) (*v0.Chat, error)
	SendMessageFunc     func(ctx context.Context, chatID string, req *v0.SendMessageRequest) (*v0.Chat, error)
	GetChatFunc         func(ctx context.Context, chatID string) (*v0.Chat, error)
	ListVersionsFunc    func(ctx context.Context, chatID string) ([]v0.Version, error)
	GetVersionFunc      func(ctx context.Context, chatID, versionID string) (*v0.Version, error)
	UpdateVersionFunc   func(ctx context.Context, chatID, versionID string, req *v0.UpdateVersionRequest) (*v0.Version, error)
	DownloadVersionFunc func(ctx context.Context, chatID, versionID string) (io.ReadCloser, error)
	InitChatFunc        func(ctx context.Context, req *v0.InitChatRequest) (*v0.Chat, error)
	DeleteChatFunc      func(ctx context.Context, chatID string) error
	ListProjectsFunc    func(ctx context.Context) ([]v0.Project, error)
}

func (f *fakeAPI) CreateChat(ctx context.Context, req *v0.CreateChatRequest) (*v0.Chat, error) {
	return f.CreateChatFunc(ctx, req)
}

func (f *fakeAPI) SendMessage(ctx context.Context, chatID string, req *v0.SendMessageRequest) (*v0.Chat, error) {
	return f.SendMessageFunc(ctx, chatID, req)
}

func (f *fakeAPI) GetChat(ctx context.Context, chatID string) (*v0.Chat, error) {
	return f.GetChatFunc(ctx, chatID)
}

func (f *fakeAPI) ListVersions(ctx context.Context, chatID string) ([]v0.Version, error) {
	return f.ListVersionsFunc(ctx, chatID)
}

func (f *fakeAPI) GetVersion(ctx context.Context, chatID, versionID string) (*v0.Version, error) {
	return f.GetVersionFunc(ctx, chatID, versionID)
}

func (f *fakeAPI) UpdateVersion(ctx context.Context, chatID, versionID string, req *v0.UpdateVersionRequest) (*v0.Version, error) {
	return f.UpdateVersionFunc(ctx, chatID, versionID, req)
}

func (f *fakeAPI) DownloadVersion(ctx context.Context, chatID, versionID string) (io.ReadCloser, error) {
	return f.DownloadVersionFunc(ctx, chatID, versionID)
}

func (f *fakeAPI) InitChat(ctx context.Context, req *v0.InitChatRequest) (*v0.Chat, error) {
	return f.InitChatFunc(ctx, req)
}

func (f *fakeAPI) DeleteChat(ctx context.Context, chatID string) error {
	return f.DeleteChatFunc(ctx, chatID)
}

func (f *fakeAPI) ListProjects(ctx context.Context) ([]v0.Project, error) {
	return f.ListProjectsFunc(ctx)
}

// newTestService wires a service with instant sleeps, recording each delay.
func newTestService(api *fakeAPI, delays *[]time.Duration) *Service {
	return New(api, nil, logger.NewNop(),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			if delays != nil {
				*delays = append(*delays, d)
			}
			return nil
		}))
}

func completedChat(id, versionID string) *v0.Chat {
	files := []model.File{
		{Name: "app/page.tsx", Content: "export default function Page() {}"},
	}
	return &v0.Chat{
		ID:     id,
		WebURL: "https://v0.dev/chat/" + id,
		Files:  files,
		LatestVersion: &v0.Version{
			ID:      versionID,
			Status:  v0.StatusCompleted,
			DemoURL: "https://demo.v0.dev/" + id,
			Files:   files,
		},
	}
}

func TestGenerate_RawPromptPassesThrough(t *testing.T) {
	var captured *v0.CreateChatRequest
	api := &fakeAPI{
		CreateChatFunc: func(ctx context.Context, req *v0.CreateChatRequest) (*v0.Chat, error) {
			captured = req
			return completedChat("chat-1", "ver-1"), nil
		},
	}
	svc := newTestService(api, nil)

	result, err := svc.Generate(context.Background(), "a bakery site", GenerateOptions{
		Quality:  model.QualityStandard,
		Expanded: true,
	})
	require.NoError(t, err)
	require.NotNil(t, captured)

	assert.Equal(t, "a bakery site", captured.Message)
	assert.Equal(t, "v0-pro", captured.ModelID)

	assert.Equal(t, "chat-1", result.ChatID)
	assert.Equal(t, "ver-1", result.VersionID)
	assert.Contains(t, result.DemoURL, "https://")
	require.NotEmpty(t, result.Files)
	assert.Equal(t, result.Files[0].Content, result.Code)
}

func TestGenerate_PollsWhenCreateReturnsPartial(t *testing.T) {
	polls := 0
	api := &fakeAPI{
		CreateChatFunc: func(ctx context.Context, req *v0.CreateChatRequest) (*v0.Chat, error) {
			// No files, no demo URL yet.
			return &v0.Chat{ID: "chat-2"}, nil
		},
		GetChatFunc: func(ctx context.Context, chatID string) (*v0.Chat, error) {
			polls++
			if polls < 3 {
				return &v0.Chat{ID: chatID, LatestVersion: &v0.Version{ID: "ver-2", Status: v0.StatusPending}}, nil
			}
			return completedChat(chatID, "ver-2"), nil
		},
	}
	svc := newTestService(api, nil)

	result, err := svc.Generate(context.Background(), "a blog", GenerateOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, polls)
	assert.Equal(t, "ver-2", result.VersionID)
	assert.NotEmpty(t, result.Files)
}

func TestRefine_UsesSendMessageOnSameChat(t *testing.T) {
	var sentChatID string
	var sent *v0.SendMessageRequest
	api := &fakeAPI{
		CreateChatFunc: func(ctx context.Context, req *v0.CreateChatRequest) (*v0.Chat, error) {
			t.Fatal("refine with a chat id must not create a new chat")
			return nil, nil
		},
		GetChatFunc: func(ctx context.Context, chatID string) (*v0.Chat, error) {
			return completedChat(chatID, "ver-old"), nil
		},
		SendMessageFunc: func(ctx context.Context, chatID string, req *v0.SendMessageRequest) (*v0.Chat, error) {
			sentChatID = chatID
			sent = req
			chat := completedChat(chatID, "ver-new")
			chat.LatestVersion.DemoURL = "https://demo.v0.dev/chat-3/v2"
			return chat, nil
		},
	}
	svc := newTestService(api, nil)

	result, err := svc.Refine(context.Background(), "chat-3", &model.RefineRequest{
		Instruction: "make the header sticky",
	})
	require.NoError(t, err)

	assert.Equal(t, "chat-3", sentChatID)
	assert.Equal(t, "make the header sticky", sent.Message)
	assert.Equal(t, "chat-3", result.ChatID)
	assert.Equal(t, "ver-new", result.VersionID)
}

func TestRefine_EmptyChatIDFallsBackToGenerate(t *testing.T) {
	var created *v0.CreateChatRequest
	api := &fakeAPI{
		CreateChatFunc: func(ctx context.Context, req *v0.CreateChatRequest) (*v0.Chat, error) {
			created = req
			return completedChat("chat-4", "ver-1"), nil
		},
		SendMessageFunc: func(ctx context.Context, chatID string, req *v0.SendMessageRequest) (*v0.Chat, error) {
			t.Fatal("fallback must not send a message to a nonexistent chat")
			return nil, nil
		},
	}
	svc := newTestService(api, nil)

	result, err := svc.Refine(context.Background(), "", &model.RefineRequest{
		Instruction:  "add a footer",
		ExistingCode: "<main>old</main>",
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Contains(t, created.Message, "<main>old</main>")
	assert.Contains(t, created.Message, "add a footer")
	assert.Equal(t, "chat-4", result.ChatID)
}

func TestFromTemplate_RetriesTransientFaults(t *testing.T) {
	attempts := 0
	api := &fakeAPI{
		InitChatFunc: func(ctx context.Context, req *v0.InitChatRequest) (*v0.Chat, error) {
			attempts++
			if attempts < 3 {
				return nil, &v0.APIError{StatusCode: 503, Operation: "init_chat"}
			}
			return completedChat("chat-5", "ver-1"), nil
		},
	}
	var delays []time.Duration
	svc := newTestService(api, &delays)

	result, err := svc.FromTemplate(context.Background(), "tpl-1")
	require.NoError(t, err)

	assert.Equal(t, 3, attempts)
	require.Len(t, delays, 2)
	assert.Equal(t, 2*time.Second, delays[0])
	assert.Equal(t, 4*time.Second, delays[1])
	assert.Equal(t, "chat-5", result.ChatID)
}

func TestGenerate_UnknownOutcomeRecordedDistinctly(t *testing.T) {
	api := &fakeAPI{
		CreateChatFunc: func(ctx context.Context, req *v0.CreateChatRequest) (*v0.Chat, error) {
			return &v0.Chat{ID: "chat-7"}, nil
		},
		GetChatFunc: func(ctx context.Context, chatID string) (*v0.Chat, error) {
			// No status at all, every time.
			return &v0.Chat{ID: chatID}, nil
		},
	}
	svc := newTestService(api, nil)

	unknownBefore := testutil.ToFloat64(metrics.GenerationsTotal.WithLabelValues("create", "unknown"))
	successBefore := testutil.ToFloat64(metrics.GenerationsTotal.WithLabelValues("create", "success"))

	result, err := svc.Generate(context.Background(), "a site", GenerateOptions{})
	require.NoError(t, err)
	assert.Empty(t, result.DemoURL)

	unknownAfter := testutil.ToFloat64(metrics.GenerationsTotal.WithLabelValues("create", "unknown"))
	successAfter := testutil.ToFloat64(metrics.GenerationsTotal.WithLabelValues("create", "success"))

	assert.Equal(t, unknownBefore+1, unknownAfter)
	assert.Equal(t, successBefore, successAfter, "an unknown outcome must not count as success")
}

func TestGenerate_StreamedFlagSetOnlyWhenTextArrives(t *testing.T) {
	api := &fakeAPI{
		CreateChatFunc: func(ctx context.Context, req *v0.CreateChatRequest) (*v0.Chat, error) {
			chat := completedChat("chat-6", "ver-1")
			chat.Text = "partial output"
			return chat, nil
		},
	}
	svc := newTestService(api, nil)

	var tokens []string
	result, err := svc.Generate(context.Background(), "a shop", GenerateOptions{
		OnStream: func(token string) { tokens = append(tokens, token) },
	})
	require.NoError(t, err)

	assert.True(t, result.Streamed)
	assert.Equal(t, []string{"partial output"}, tokens)

	// Without a callback the flag stays false.
	result, err = svc.Generate(context.Background(), "a shop", GenerateOptions{})
	require.NoError(t, err)
	assert.False(t, result.Streamed)
}
