// Package v0 is a typed client for the v0 Platform API. There is no official
// Go SDK, so this package speaks the REST API directly with bearer auth.
package v0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sajtmaskin/sitebuilder/pkg/metrics"
)

// API is the subset of the v0 Platform API this service consumes. The
// concrete Client is constructed once in main and injected; tests substitute
// fakes.
type API interface {
	CreateChat(ctx context.Context, req *CreateChatRequest) (*Chat, error)
	SendMessage(ctx context.Context, chatID string, req *SendMessageRequest) (*Chat, error)
	GetChat(ctx context.Context, chatID string) (*Chat, error)
	ListVersions(ctx context.Context, chatID string) ([]Version, error)
	GetVersion(ctx context.Context, chatID, versionID string) (*Version, error)
	UpdateVersion(ctx context.Context, chatID, versionID string, req *UpdateVersionRequest) (*Version, error)
	DownloadVersion(ctx context.Context, chatID, versionID string) (io.ReadCloser, error)
	InitChat(ctx context.Context, req *InitChatRequest) (*Chat, error)
	DeleteChat(ctx context.Context, chatID string) error
	ListProjects(ctx context.Context) ([]Project, error)
}

// Client talks to the v0 Platform API over HTTP.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new v0 Platform API client.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.v0.dev/v1"
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// CreateChat starts a new chat from a prompt. POST /chats
func (c *Client) CreateChat(ctx context.Context, req *CreateChatRequest) (*Chat, error) {
	var chat Chat
	if err := c.doJSON(ctx, "create_chat", http.MethodPost, "/chats", req, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// SendMessage appends a follow-up message. POST /chats/{id}/messages
func (c *Client) SendMessage(ctx context.Context, chatID string, req *SendMessageRequest) (*Chat, error) {
	var chat Chat
	path := fmt.Sprintf("/chats/%s/messages", chatID)
	if err := c.doJSON(ctx, "send_message", http.MethodPost, path, req, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetChat fetches a chat by id. GET /chats/{id}
func (c *Client) GetChat(ctx context.Context, chatID string) (*Chat, error) {
	var chat Chat
	if err := c.doJSON(ctx, "get_chat", http.MethodGet, "/chats/"+chatID, nil, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListVersions fetches all versions for a chat, newest first.
// GET /chats/{id}/versions
func (c *Client) ListVersions(ctx context.Context, chatID string) ([]Version, error) {
	var resp listVersionsResponse
	path := fmt.Sprintf("/chats/%s/versions", chatID)
	if err := c.doJSON(ctx, "list_versions", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// GetVersion fetches one version including its files.
// GET /chats/{id}/versions/{versionId}
func (c *Client) GetVersion(ctx context.Context, chatID, versionID string) (*Version, error) {
	var version Version
	path := fmt.Sprintf("/chats/%s/versions/%s", chatID, versionID)
	if err := c.doJSON(ctx, "get_version", http.MethodGet, path, nil, &version); err != nil {
		return nil, err
	}
	return &version, nil
}

// UpdateVersion replaces a version's file set.
// PUT /chats/{id}/versions/{versionId}
func (c *Client) UpdateVersion(ctx context.Context, chatID, versionID string, req *UpdateVersionRequest) (*Version, error) {
	var version Version
	path := fmt.Sprintf("/chats/%s/versions/%s", chatID, versionID)
	if err := c.doJSON(ctx, "update_version", http.MethodPut, path, req, &version); err != nil {
		return nil, err
	}
	return &version, nil
}

// DownloadVersion streams a version as a zip archive. The caller owns the
// returned body. GET /chats/{id}/versions/{versionId}/download
func (c *Client) DownloadVersion(ctx context.Context, chatID, versionID string) (io.ReadCloser, error) {
	path := fmt.Sprintf("/chats/%s/versions/%s/download", chatID, versionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// No Content-Type: the response is binary, not JSON.
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.V0RequestsTotal.WithLabelValues("download_version", "error").Inc()
		return nil, fmt.Errorf("failed to download version: %w", err)
	}
	metrics.V0RequestsTotal.WithLabelValues("download_version", strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Operation: "download_version", Body: string(body)}
	}
	return resp.Body, nil
}

// InitChat bootstraps a chat from a template or registry, without running
// generation. POST /chats/init
func (c *Client) InitChat(ctx context.Context, req *InitChatRequest) (*Chat, error) {
	var chat Chat
	if err := c.doJSON(ctx, "init_chat", http.MethodPost, "/chats/init", req, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// DeleteChat removes a chat upstream. DELETE /chats/{id}
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.doJSON(ctx, "delete_chat", http.MethodDelete, "/chats/"+chatID, nil, nil)
}

// ListProjects fetches all projects for the account. GET /projects
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var resp listProjectsResponse
	if err := c.doJSON(ctx, "list_projects", http.MethodGet, "/projects", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.V0RequestsTotal.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("v0 %s: %w", op, err)
	}
	defer resp.Body.Close()

	metrics.V0RequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Operation: op, Body: string(raw)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("v0 %s: failed to decode response: %w", op, err)
		}
	}
	return nil
}
