package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sajtmaskin/sitebuilder/internal/events"
	"github.com/sajtmaskin/sitebuilder/internal/middleware"
	"github.com/sajtmaskin/sitebuilder/internal/model"
	"github.com/sajtmaskin/sitebuilder/pkg/logger"
	"github.com/sajtmaskin/sitebuilder/pkg/metrics"
)

// StreamHandler serves generation progress over SSE.
type StreamHandler struct {
	log    *events.Log
	logger *logger.Logger
}

// NewStreamHandler creates a stream handler.
func NewStreamHandler(progressLog *events.Log, log *logger.Logger) *StreamHandler {
	return &StreamHandler{log: progressLog, logger: log}
}

// replayCompleteEvent marks the end of event replay.
type replayCompleteEvent struct {
	LastSequence uint64 `json:"last_sequence"`
	EventCount   int    `json:"event_count"`
}

// Stream handles GET /api/v0/chats/{chatId}/events
// Supports ?after_sequence=N for resuming from a specific point.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chatID := chi.URLParam(r, "chatId")

	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var afterSequence uint64
	if seqStr := r.URL.Query().Get("after_sequence"); seqStr != "" {
		if seq, err := strconv.ParseUint(seqStr, 10, 64); err == nil {
			afterSequence = seq
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sendSSEEvent(w, flusher, "connected", map[string]string{
		"chat_id": chatID,
	})

	// Replay stored events first so late subscribers see the full history.
	var lastSequence uint64
	var totalReplayed int

	for {
		batch, lastSeq, hasMore, err := h.log.Replay(ctx, chatID, afterSequence, 50)
		if err != nil {
			h.logger.Error("failed to replay events", zap.String("chat_id", chatID), zap.Error(err))
			sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
				Code:    "replay_error",
				Message: "Failed to replay events",
			})
			break
		}

		for _, event := range batch {
			select {
			case <-ctx.Done():
				return
			default:
			}
			sendSSEEvent(w, flusher, "progress", event)
			totalReplayed++
		}
		if lastSeq > 0 {
			lastSequence = lastSeq
		}

		if hasMore {
			afterSequence = lastSequence
		} else {
			break
		}
	}

	sendSSEEvent(w, flusher, "replay_complete", &replayCompleteEvent{
		LastSequence: lastSequence,
		EventCount:   totalReplayed,
	})

	// Follow live events until the client goes away.
	live := make(chan model.ProgressEvent, 16)
	go func() {
		err := h.log.Subscribe(ctx, chatID, func(event model.ProgressEvent) {
			select {
			case live <- event:
			default:
			}
		})
		if err != nil {
			h.logger.Warn("live subscription failed", zap.String("chat_id", chatID), zap.Error(err))
		}
	}()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("SSE client disconnected", zap.String("chat_id", chatID))
			return

		case event := <-live:
			sendSSEEvent(w, flusher, "progress", event)

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &model.HeartbeatEvent{
				Timestamp: time.Now(),
			})
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
