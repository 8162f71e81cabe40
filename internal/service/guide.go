package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/sajtmaskin/sitebuilder/internal/llm"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
)

// Animation names map client-side to GLB animation clips. The set is fixed;
// anything else the model invents collapses to idle.
const (
	AnimationIdle      = "idle"
	AnimationWave      = "wave"
	AnimationTalk      = "talk"
	AnimationThink     = "think"
	AnimationPoint     = "point"
	AnimationCelebrate = "celebrate"
)

var validAnimations = map[string]bool{
	AnimationIdle:      true,
	AnimationWave:      true,
	AnimationTalk:      true,
	AnimationThink:     true,
	AnimationPoint:     true,
	AnimationCelebrate: true,
}

// GuideReply is the avatar guide's answer.
type GuideReply struct {
	Message   string `json:"message"`
	Animation string `json:"animation"`
}

const guideSystemPrompt = `You are a friendly floating avatar guiding users of a
website builder. Answer in at most two short sentences. Respond as JSON:
{"message": "...", "animation": "..."} where animation is one of idle, wave,
talk, think, point, celebrate. Use wave for greetings, celebrate when
something succeeded, think for open questions, point when directing the user
somewhere, talk otherwise.`

// GuideService answers avatar-guide questions with a small LLM call.
type GuideService struct {
	llm    llm.Client
	logger *logger.Logger
}

// NewGuideService creates a guide service. A nil client disables the guide.
func NewGuideService(client llm.Client, log *logger.Logger) *GuideService {
	return &GuideService{llm: client, logger: log}
}

// Enabled reports whether an LLM provider is configured.
func (s *GuideService) Enabled() bool {
	return s.llm != nil
}

// Ask produces a guide reply for a user message with optional page context.
func (s *GuideService) Ask(ctx context.Context, message, pageContext string) (*GuideReply, error) {
	userContent := message
	if pageContext != "" {
		userContent = "Current page: " + pageContext + "\n\n" + message
	}

	resp, err := s.llm.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.ChatMessage{
			{Role: "system", Content: guideSystemPrompt},
			{Role: "user", Content: userContent},
		},
		MaxTokens:   256,
		Temperature: 0.7,
	})
	if err != nil {
		return nil, err
	}

	return parseGuideReply(resp.Content, s.logger), nil
}

// parseGuideReply extracts the structured reply from model output. Models
// sometimes wrap JSON in prose or code fences; fall back to the raw text with
// an idle animation when parsing fails.
func parseGuideReply(content string, log *logger.Logger) *GuideReply {
	raw := strings.TrimSpace(content)
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}

	var reply GuideReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil || reply.Message == "" {
		log.Warn("guide reply was not valid JSON, using raw text", zap.Error(err))
		return &GuideReply{Message: strings.TrimSpace(content), Animation: AnimationIdle}
	}

	if !validAnimations[reply.Animation] {
		reply.Animation = AnimationIdle
	}
	return &reply
}
