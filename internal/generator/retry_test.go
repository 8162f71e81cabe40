package generator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajtmaskin/sitebuilder/internal/v0"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
)

func TestRetry_NotFoundFailsFastWithUserMessage(t *testing.T) {
	attempts := 0
	api := &fakeAPI{
		InitChatFunc: func(ctx context.Context, req *v0.InitChatRequest) (*v0.Chat, error) {
			attempts++
			return nil, &v0.APIError{StatusCode: 404, Operation: "init_chat"}
		},
	}
	var delays []time.Duration
	svc := newTestService(api, &delays)

	_, err := svc.FromTemplate(context.Background(), "missing-template")
	require.Error(t, err)

	assert.ErrorIs(t, err, ErrTemplateNotFound)
	assert.Contains(t, err.Error(), "Template not found")
	assert.Equal(t, 1, attempts, "404 is authoritative, never retried")
	assert.Empty(t, delays)
}

func TestRetry_UnauthorizedFailsFast(t *testing.T) {
	attempts := 0
	api := &fakeAPI{
		InitChatFunc: func(ctx context.Context, req *v0.InitChatRequest) (*v0.Chat, error) {
			attempts++
			return nil, &v0.APIError{StatusCode: 401, Operation: "init_chat"}
		},
	}
	svc := newTestService(api, nil)

	_, err := svc.FromTemplate(context.Background(), "tpl-1")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, 1, attempts)
}

func TestRetry_RateLimitFailsFast(t *testing.T) {
	api := &fakeAPI{
		InitChatFunc: func(ctx context.Context, req *v0.InitChatRequest) (*v0.Chat, error) {
			return nil, &v0.APIError{StatusCode: 429, Operation: "init_chat"}
		},
	}
	svc := newTestService(api, nil)

	_, err := svc.InitFromRegistry(context.Background(), "https://registry.example.com/r.json")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestRetry_TransientFaultExhaustsBudget(t *testing.T) {
	attempts := 0
	api := &fakeAPI{
		InitChatFunc: func(ctx context.Context, req *v0.InitChatRequest) (*v0.Chat, error) {
			attempts++
			return nil, &v0.APIError{StatusCode: 503, Operation: "init_chat"}
		},
	}
	var delays []time.Duration
	svc := newTestService(api, &delays)

	_, err := svc.FromTemplate(context.Background(), "tpl-1")
	require.Error(t, err)

	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, delays)
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
}

func TestRetry_ContextCancelStopsTheLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	api := &fakeAPI{
		InitChatFunc: func(ctx context.Context, req *v0.InitChatRequest) (*v0.Chat, error) {
			attempts++
			return nil, &v0.APIError{StatusCode: 502, Operation: "init_chat"}
		},
	}
	svc := New(api, nil, logger.NewNop(),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}))

	_, err := svc.FromTemplate(ctx, "tpl-1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
