package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sajtmaskin/sitebuilder/internal/store"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
	"github.com/sajtmaskin/sitebuilder/pkg/metrics"
)

const blobBaseURL = "https://blob.vercel-storage.com"

// MediaService manages the Vercel Blob backed media library.
type MediaService struct {
	token      string
	baseURL    string
	httpClient *http.Client
	media      store.MediaRepository
	logger     *logger.Logger
}

// NewMediaService creates a media service. An empty token disables uploads.
func NewMediaService(token string, media store.MediaRepository, log *logger.Logger) *MediaService {
	return &MediaService{
		token:      token,
		baseURL:    blobBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		media:      media,
		logger:     log,
	}
}

// SetBaseURL overrides the blob endpoint. For tests.
func (s *MediaService) SetBaseURL(u string) {
	s.baseURL = u
}

type blobPutResponse struct {
	URL string `json:"url"`
}

// Upload stores a file in Vercel Blob and records it in the library.
func (s *MediaService) Upload(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*store.MediaAsset, error) {
	if s.token == "" {
		return nil, fmt.Errorf("media uploads are disabled: BLOB_READ_WRITE_TOKEN not set")
	}

	endpoint := fmt.Sprintf("%s/%s", s.baseURL, url.PathEscape(filename))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-api-version", "7")
	req.Header.Set("x-add-random-suffix", "1")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		metrics.MediaUploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("blob upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.MediaUploadsTotal.WithLabelValues("error").Inc()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("blob upload failed: status %d: %s", resp.StatusCode, string(raw))
	}

	var blob blobPutResponse
	if err := json.NewDecoder(resp.Body).Decode(&blob); err != nil {
		return nil, fmt.Errorf("failed to decode blob response: %w", err)
	}

	asset := &store.MediaAsset{
		AssetID:     uuid.Must(uuid.NewV7()).String(),
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		URL:         blob.URL,
		CreatedAt:   time.Now(),
	}
	if err := s.media.Create(ctx, asset); err != nil {
		return nil, err
	}

	metrics.MediaUploadsTotal.WithLabelValues("success").Inc()
	s.logger.Info("media uploaded", zap.String("asset_id", asset.AssetID), zap.String("filename", filename))
	return asset, nil
}

// Get returns one media asset.
func (s *MediaService) Get(ctx context.Context, assetID string) (*store.MediaAsset, error) {
	return s.media.Get(ctx, assetID)
}

// List returns all media assets, newest first.
func (s *MediaService) List(ctx context.Context) ([]store.MediaAsset, error) {
	return s.media.List(ctx)
}

// Delete removes an asset from the blob store and the library.
func (s *MediaService) Delete(ctx context.Context, assetID string) error {
	asset, err := s.media.Get(ctx, assetID)
	if err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string][]string{"urls": {asset.URL}})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/delete", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", "7")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("blob delete failed: %w", err)
	}
	resp.Body.Close()

	// Local metadata is removed even if the remote delete returned an error
	// status; a dangling blob is preferable to a ghost library entry.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Warn("blob delete returned non-success status",
			zap.String("asset_id", assetID), zap.Int("status", resp.StatusCode))
	}

	return s.media.Delete(ctx, assetID)
}
