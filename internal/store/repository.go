package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ChatRepository persists chat metadata and transcripts.
type ChatRepository interface {
	Upsert(ctx context.Context, rec *ChatRecord) error
	Get(ctx context.Context, chatID string) (*ChatRecord, error)
	List(ctx context.Context, limit, offset int) ([]ChatRecord, int64, error)
	Delete(ctx context.Context, chatID string) error

	AppendMessage(ctx context.Context, msg *MessageRecord) error
	Messages(ctx context.Context, chatID string) ([]MessageRecord, error)
}

// MediaRepository persists media library metadata.
type MediaRepository interface {
	Create(ctx context.Context, asset *MediaAsset) error
	Get(ctx context.Context, assetID string) (*MediaAsset, error)
	List(ctx context.Context) ([]MediaAsset, error)
	Delete(ctx context.Context, assetID string) error
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a chat repository over db.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Upsert(ctx context.Context, rec *ChatRecord) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "quality", "demo_url", "screenshot_url", "version_id",
			"web_url", "prefer_screenshot", "instructions", "updated_at",
		}),
	}).Create(rec).Error
	if err != nil {
		return fmt.Errorf("upserting chat %s: %w", rec.ChatID, err)
	}
	return nil
}

func (r *chatRepository) Get(ctx context.Context, chatID string) (*ChatRecord, error) {
	var rec ChatRecord
	err := r.db.WithContext(ctx).Where("chat_id = ?", chatID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("chat %s: %w", chatID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting chat %s: %w", chatID, err)
	}
	return &rec, nil
}

func (r *chatRepository) List(ctx context.Context, limit, offset int) ([]ChatRecord, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&ChatRecord{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting chats: %w", err)
	}
	var recs []ChatRecord
	err := r.db.WithContext(ctx).
		Order("updated_at DESC").
		Limit(limit).Offset(offset).
		Find(&recs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("listing chats: %w", err)
	}
	return recs, total, nil
}

func (r *chatRepository) Delete(ctx context.Context, chatID string) error {
	tx := r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&ChatRecord{})
	if tx.Error != nil {
		return fmt.Errorf("deleting chat %s: %w", chatID, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("chat %s: %w", chatID, ErrNotFound)
	}
	r.db.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&MessageRecord{})
	return nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, msg *MessageRecord) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("appending message to chat %s: %w", msg.ChatID, err)
	}
	return nil
}

func (r *chatRepository) Messages(ctx context.Context, chatID string) ([]MessageRecord, error) {
	var msgs []MessageRecord
	err := r.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("listing messages for chat %s: %w", chatID, err)
	}
	return msgs, nil
}

type mediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository creates a media repository over db.
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

func (r *mediaRepository) Create(ctx context.Context, asset *MediaAsset) error {
	if err := r.db.WithContext(ctx).Create(asset).Error; err != nil {
		return fmt.Errorf("creating media asset: %w", err)
	}
	return nil
}

func (r *mediaRepository) Get(ctx context.Context, assetID string) (*MediaAsset, error) {
	var asset MediaAsset
	err := r.db.WithContext(ctx).Where("asset_id = ?", assetID).First(&asset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("media asset %s: %w", assetID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting media asset %s: %w", assetID, err)
	}
	return &asset, nil
}

func (r *mediaRepository) List(ctx context.Context) ([]MediaAsset, error) {
	var assets []MediaAsset
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("listing media assets: %w", err)
	}
	return assets, nil
}

func (r *mediaRepository) Delete(ctx context.Context, assetID string) error {
	tx := r.db.WithContext(ctx).Where("asset_id = ?", assetID).Delete(&MediaAsset{})
	if tx.Error != nil {
		return fmt.Errorf("deleting media asset %s: %w", assetID, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return fmt.Errorf("media asset %s: %w", assetID, ErrNotFound)
	}
	return nil
}
