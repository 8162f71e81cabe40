package model

import (
	"time"
)

// Phase is a generation lifecycle phase published to the event stream.
type Phase string

const (
	PhaseCreated   Phase = "created"
	PhasePolling   Phase = "polling"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
	PhaseUnknown   Phase = "unknown"
)

// ProgressEvent describes one generation lifecycle transition for a chat.
type ProgressEvent struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Phase     Phase     `json:"phase"`
	Attempt   int       `json:"attempt,omitempty"`
	DemoURL   string    `json:"demo_url,omitempty"`
	VersionID string    `json:"version_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Sequence  uint64    `json:"sequence,omitempty"`
}

// HeartbeatEvent keeps SSE connections alive.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// ErrorEvent is sent to SSE clients on stream failures.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
