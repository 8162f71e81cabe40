package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sajtmaskin/sitebuilder/internal/v0"
)

// Template and registry bootstrap hit flaky upstream paths, so they run in a
// bounded retry loop. Only transient faults (5xx, timeouts) are retried;
// authoritative client errors fail fast with a user-facing message.
const (
	defaultMaxRetries = 3
	defaultRetryBase  = 2 * time.Second
)

// Sentinel errors for authoritative upstream failures.
var (
	ErrTemplateNotFound = errors.New("Template not found")
	ErrRateLimited      = errors.New("rate limit exceeded, try again shortly")
	ErrUnauthorized     = errors.New("unauthorized: check the v0 API key")
	ErrTimeout          = errors.New("generation timed out")
)

// classify maps an upstream error to its user-facing form. Transient errors
// pass through unchanged so the retry loop can recognize them.
func classify(err error) error {
	switch {
	case v0.IsNotFound(err):
		return fmt.Errorf("%w: %v", ErrTemplateNotFound, err)
	case v0.IsRateLimited(err):
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case v0.IsUnauthorized(err):
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	default:
		return err
	}
}

// retry runs fn up to maxRetries times, sleeping base, 2*base, 4*base...
// between attempts. It stops immediately on success, on a non-retryable
// error, or when ctx is done.
func (s *Service) retry(ctx context.Context, maxRetries int, fn func() error) error {
	var lastErr error
	delay := s.retryBase
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !v0.IsRetryable(err) {
			return classify(err)
		}
		lastErr = err
		if attempt == maxRetries {
			break
		}
		s.logger.Warn("transient upstream error, retrying",
			zap.Error(err), zap.Int("attempt", attempt), zap.Duration("delay", delay))
		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxRetries, lastErr)
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
