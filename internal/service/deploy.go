package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sajtmaskin/sitebuilder/internal/model"
	"github.com/sajtmaskin/sitebuilder/internal/v0"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
	"github.com/sajtmaskin/sitebuilder/pkg/metrics"
)

const vercelAPIBase = "https://api.vercel.com"

// Image asset strategies for deployment. "external" leaves image URLs
// pointing at their origin; "blob" expects them to already live in Vercel
// Blob and rejects anything else.
const (
	ImageStrategyExternal = "external"
	ImageStrategyBlob     = "blob"
)

// DeployService triggers Vercel deployments for generated versions.
type DeployService struct {
	token      string
	baseURL    string
	httpClient *http.Client
	client     v0.API
	logger     *logger.Logger
}

// NewDeployService creates a deployment service. An empty token disables it.
func NewDeployService(token string, client v0.API, log *logger.Logger) *DeployService {
	return &DeployService{
		token:      token,
		baseURL:    vercelAPIBase,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		client:     client,
		logger:     log,
	}
}

// SetBaseURL overrides the Vercel API endpoint. For tests.
func (s *DeployService) SetBaseURL(u string) {
	s.baseURL = u
}

type vercelFile struct {
	File string `json:"file"`
	Data string `json:"data"`
}

type vercelDeployRequest struct {
	Name    string       `json:"name"`
	Files   []vercelFile `json:"files"`
	Target  string       `json:"target"`
	Project string       `json:"project,omitempty"`
}

type vercelDeployResponse struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	ReadyState string `json:"readyState"`
}

// Deploy fetches the version's files and creates a Vercel deployment.
func (s *DeployService) Deploy(ctx context.Context, req *model.DeployRequest) (*model.DeployResult, error) {
	if s.token == "" {
		return nil, fmt.Errorf("deployments are disabled: VERCEL_API_TOKEN not set")
	}

	strategy := req.ImageStrategy
	if strategy == "" {
		strategy = ImageStrategyExternal
	}
	if strategy != ImageStrategyExternal && strategy != ImageStrategyBlob {
		return nil, fmt.Errorf("unknown image strategy %q", strategy)
	}

	version, err := s.client.GetVersion(ctx, req.ChatID, req.VersionID)
	if err != nil {
		metrics.DeploymentsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to fetch version files: %w", err)
	}
	if len(version.Files) == 0 {
		metrics.DeploymentsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("version %s has no files to deploy", req.VersionID)
	}

	if strategy == ImageStrategyBlob {
		if offender := firstNonBlobImageRef(version.Files); offender != "" {
			metrics.DeploymentsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("blob image strategy requires all images in Vercel Blob, found %s", offender)
		}
	}

	name := req.ProjectName
	if name == "" {
		name = "sajtmaskin-" + req.ChatID
	}

	files := make([]vercelFile, len(version.Files))
	for i, f := range version.Files {
		files[i] = vercelFile{File: f.Name, Data: f.Content}
	}

	payload, err := json.Marshal(&vercelDeployRequest{
		Name:   name,
		Files:  files,
		Target: "production",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deployment: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/v13/deployments", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		metrics.DeploymentsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("deployment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.DeploymentsTotal.WithLabelValues("error").Inc()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("deployment failed: status %d: %s", resp.StatusCode, string(raw))
	}

	var out vercelDeployResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode deployment response: %w", err)
	}

	metrics.DeploymentsTotal.WithLabelValues("success").Inc()
	s.logger.Info("deployment created",
		zap.String("chat_id", req.ChatID),
		zap.String("deployment_id", out.ID),
		zap.String("url", out.URL))

	return &model.DeployResult{
		DeploymentID: out.ID,
		URL:          out.URL,
		Status:       out.ReadyState,
	}, nil
}

// firstNonBlobImageRef scans file contents for image URLs outside Vercel
// Blob storage and returns the first match, or "".
func firstNonBlobImageRef(files []model.File) string {
	exts := []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}
	for _, f := range files {
		for _, line := range strings.Split(f.Content, "\n") {
			idx := strings.Index(line, "https://")
			if idx < 0 {
				continue
			}
			rest := line[idx:]
			end := strings.IndexAny(rest, `"') >`)
			if end > 0 {
				rest = rest[:end]
			}
			for _, ext := range exts {
				if strings.HasSuffix(strings.ToLower(rest), ext) &&
					!strings.Contains(rest, "blob.vercel-storage.com") {
					return rest
				}
			}
		}
	}
	return ""
}
