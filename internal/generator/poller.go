package generator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sajtmaskin/sitebuilder/internal/model"
	"github.com/sajtmaskin/sitebuilder/internal/v0"
	"github.com/sajtmaskin/sitebuilder/pkg/metrics"
)

// Generation runs asynchronously upstream: the create/send call can return
// before files and demo URL exist. waitForVersionReady polls the chat at a
// fixed cadence until the latest version reaches a terminal status.
//
// The attempt ceiling (45 * 4s, about three minutes) tracks the upstream
// service's observed worst-case generation latency.
//
// A response with no status at all is a known transient fault, tolerated up
// to maxUndefined consecutive times. Past that the poller returns (nil, nil):
// outcome unknown, distinct from a definitive failure.
func (s *Service) waitForVersionReady(ctx context.Context, chatID string) (*v0.Chat, error) {
	undefinedStreak := 0

	for attempt := 1; attempt <= s.pollMaxAttempts; attempt++ {
		if err := s.sleep(ctx, s.pollInterval); err != nil {
			return nil, err
		}

		chat, err := s.client.GetChat(ctx, chatID)
		if err != nil {
			// A failed read mid-poll is treated like an undefined status:
			// transient until proven otherwise.
			undefinedStreak++
			s.logger.Warn("poll fetch failed", zap.String("chat_id", chatID),
				zap.Int("attempt", attempt), zap.Error(err))
			if undefinedStreak >= s.maxUndefined {
				metrics.PollAttempts.Observe(float64(attempt))
				return nil, nil
			}
			continue
		}

		status := ""
		if chat.LatestVersion != nil {
			status = chat.LatestVersion.Status
		}

		switch status {
		case v0.StatusCompleted:
			metrics.PollAttempts.Observe(float64(attempt))
			s.publish(ctx, chatID, model.PhaseCompleted, attempt, chat)
			return chat, nil

		case v0.StatusFailed:
			metrics.PollAttempts.Observe(float64(attempt))
			s.publish(ctx, chatID, model.PhaseFailed, attempt, chat)
			return nil, fmt.Errorf("generation failed for chat %s", chatID)

		case v0.StatusPending:
			undefinedStreak = 0
			s.publish(ctx, chatID, model.PhasePolling, attempt, chat)

		default:
			undefinedStreak++
			if undefinedStreak >= s.maxUndefined {
				s.logger.Warn("status undefined too many times, giving up",
					zap.String("chat_id", chatID), zap.Int("streak", undefinedStreak))
				metrics.PollAttempts.Observe(float64(attempt))
				s.publish(ctx, chatID, model.PhaseUnknown, attempt, chat)
				return nil, nil
			}
		}
	}

	metrics.PollAttempts.Observe(float64(s.pollMaxAttempts))
	return nil, fmt.Errorf("%w: chat %s not ready after %d attempts",
		ErrTimeout, chatID, s.pollMaxAttempts)
}
