// Package model defines data structures for the site generation platform.
package model

import (
	"time"
)

// File is a single generated source file.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Locked  bool   `json:"locked,omitempty"`
}

// GenerationResult is the normalized outcome of any generation call,
// regardless of which v0 endpoint produced it.
type GenerationResult struct {
	Code          string `json:"code"`
	Files         []File `json:"files"`
	ChatID        string `json:"chatId"`
	DemoURL       string `json:"demoUrl,omitempty"`
	ScreenshotURL string `json:"screenshotUrl,omitempty"`
	VersionID     string `json:"versionId,omitempty"`
	WebURL        string `json:"webUrl,omitempty"`
	Model         string `json:"model"`

	// Streamed reports whether the response text was delivered through the
	// caller's stream callback. Delivery is best-effort and may arrive as a
	// single final chunk rather than token-by-token.
	Streamed bool `json:"streamed"`
}

// VersionSummary identifies an immutable generated snapshot.
type VersionSummary struct {
	ID      string `json:"id"`
	DemoURL string `json:"demoUrl,omitempty"`
	Status  string `json:"status,omitempty"`
}

// Role is the sender of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one turn in a chat transcript.
type ChatMessage struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// GenerateRequest is the request body for creating a new chat.
type GenerateRequest struct {
	Prompt string `json:"prompt"`

	Quality  Quality `json:"quality,omitempty"`
	Category string  `json:"category,omitempty"`

	// Expanded states that the prompt is already a full design brief and
	// must not be merged into a category template.
	Expanded bool `json:"expanded,omitempty"`

	AttachmentURLs []string `json:"attachmentUrls,omitempty"`
	MediaURLs      []string `json:"mediaUrls,omitempty"`
	Instructions   string   `json:"instructions,omitempty"`
}

// RefineRequest is the request body for refining an existing chat.
type RefineRequest struct {
	Instruction  string   `json:"instruction"`
	ExistingCode string   `json:"existingCode,omitempty"`
	Quality      Quality  `json:"quality,omitempty"`
	MediaURLs    []string `json:"mediaUrls,omitempty"`
}

// TemplateRequest is the request body for template bootstrap.
type TemplateRequest struct {
	TemplateID string `json:"templateId"`
}

// RegistryRequest is the request body for registry bootstrap.
type RegistryRequest struct {
	RegistryURL string `json:"registryUrl"`
}

// DeployRequest triggers a Vercel deployment for a chat version.
type DeployRequest struct {
	ChatID        string `json:"chatId"`
	VersionID     string `json:"versionId"`
	ProjectName   string `json:"projectName,omitempty"`
	ImageStrategy string `json:"imageStrategy,omitempty"` // "external" or "blob"
}

// DeployResult is the outcome of a deployment trigger.
type DeployResult struct {
	DeploymentID string `json:"deploymentId"`
	URL          string `json:"url"`
	Status       string `json:"status"`
}
