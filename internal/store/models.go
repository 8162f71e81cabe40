// Package store persists chat metadata, transcripts and media assets in a
// local SQLite database.
package store

import (
	"time"
)

// ChatRecord is the locally persisted view of an upstream chat.
type ChatRecord struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	ChatID    string `gorm:"uniqueIndex;size:64" json:"chatId"`
	Title     string `gorm:"size:256" json:"title"`
	Quality   string `gorm:"size:16" json:"quality"`
	DemoURL       string `json:"demoUrl"`
	ScreenshotURL string `json:"screenshotUrl,omitempty"`
	VersionID     string `gorm:"size:64" json:"versionId"`
	WebURL        string `json:"webUrl"`

	// Client preferences that survive reloads.
	PreferScreenshot bool   `json:"preferScreenshot"`
	Instructions     string `json:"instructions,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MessageRecord is one persisted transcript turn.
type MessageRecord struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	MessageID string    `gorm:"uniqueIndex;size:64" json:"id"`
	ChatID    string    `gorm:"index;size:64" json:"chatId"`
	Role      string    `gorm:"size:16" json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// MediaAsset is an uploaded media library entry backed by Vercel Blob.
type MediaAsset struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	AssetID     string    `gorm:"uniqueIndex;size:64" json:"id"`
	Filename    string    `gorm:"size:256" json:"filename"`
	ContentType string    `gorm:"size:128" json:"contentType"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
}
