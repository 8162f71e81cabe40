package v0

import (
	"github.com/sajtmaskin/sitebuilder/internal/model"
)

// ChatStatus values reported by the platform for a version. The API also
// returns responses with no status at all while a generation is settling;
// callers must treat that as a distinct, transient condition.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Chat is the platform's chat object, reduced to the fields this service
// consumes.
type Chat struct {
	ID            string       `json:"id"`
	WebURL        string       `json:"webUrl,omitempty"`
	DemoURL       string       `json:"demo,omitempty"`
	ScreenshotURL string       `json:"screenshotUrl,omitempty"`
	Files         []model.File `json:"files,omitempty"`
	LatestVersion *Version     `json:"latestVersion,omitempty"`
	Text          string       `json:"text,omitempty"`
}

// Version is an immutable snapshot of generated files.
type Version struct {
	ID      string       `json:"id"`
	Status  string       `json:"status,omitempty"`
	DemoURL string       `json:"demoUrl,omitempty"`
	Files   []model.File `json:"files,omitempty"`
}

// CreateChatRequest creates a new chat from a prompt.
type CreateChatRequest struct {
	Message        string   `json:"message"`
	System         string   `json:"system,omitempty"`
	ModelID        string   `json:"modelConfiguration,omitempty"`
	AttachmentURLs []string `json:"attachments,omitempty"`
}

// SendMessageRequest appends a follow-up message to an existing chat.
type SendMessageRequest struct {
	Message string `json:"message"`
	ModelID string `json:"modelConfiguration,omitempty"`
}

// InitChatRequest bootstraps a chat from a template or a registry URL,
// without running generation.
type InitChatRequest struct {
	Type        string `json:"type"` // "template" or "registry"
	TemplateID  string `json:"templateId,omitempty"`
	RegistryURL string `json:"registryUrl,omitempty"`
}

// UpdateVersionRequest replaces the file set of a version. The platform
// answers with a fresh version under the same chat.
type UpdateVersionRequest struct {
	Files []model.File `json:"files"`
}

type listVersionsResponse struct {
	Data []Version `json:"data"`
}

// Project is a v0 platform project owning chats and deployments.
type Project struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	WebURL string `json:"webUrl,omitempty"`
}

type listProjectsResponse struct {
	Data []Project `json:"data"`
}
