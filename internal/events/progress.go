package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/sajtmaskin/sitebuilder/internal/model"
)

const (
	// StreamName is the name of the generation-progress stream.
	StreamName = "GENERATIONS"

	// SubjectPrefix is the prefix for all generation subjects.
	SubjectPrefix = "gen"
)

// Log records generation lifecycle events in JetStream so SSE clients can
// replay and follow progress for a chat.
type Log struct {
	client *Client
}

// NewLog creates a progress log over an established NATS client.
func NewLog(client *Client) *Log {
	return &Log{client: client}
}

// EnsureStream creates the generations stream if it does not exist.
func (l *Log) EnsureStream(ctx context.Context) error {
	js := l.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Generation lifecycle events per chat",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// ProgressSubject returns the subject for a progress event.
func ProgressSubject(chatID string, phase model.Phase) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, chatID, phase)
}

// chatFilter matches every event for one chat.
func chatFilter(chatID string) string {
	return fmt.Sprintf("%s.%s.>", SubjectPrefix, chatID)
}

// PublishProgress publishes one lifecycle event. Satisfies
// generator.Publisher.
func (l *Log) PublishProgress(ctx context.Context, event *model.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := l.client.JetStream().Publish(ctx, ProgressSubject(event.ChatID, event.Phase), data)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	event.Sequence = ack.Sequence
	return nil
}

// Replay fetches stored events for a chat after the given stream sequence.
func (l *Log) Replay(ctx context.Context, chatID string, afterSequence uint64, limit int) ([]model.ProgressEvent, uint64, bool, error) {
	js := l.client.JetStream()

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: chatFilter(chatID),
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}
	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := js.CreateConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to fetch events: %w", err)
	}

	var out []model.ProgressEvent
	var lastSequence uint64

	for msg := range batch.Messages() {
		var event model.ProgressEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			continue
		}
		if meta, err := msg.Metadata(); err == nil {
			event.Sequence = meta.Sequence.Stream
			lastSequence = meta.Sequence.Stream
		}
		out = append(out, event)
	}

	if err := batch.Error(); err != nil && err != context.DeadlineExceeded {
		return nil, 0, false, fmt.Errorf("batch error: %w", err)
	}

	return out, lastSequence, len(out) == limit, nil
}

// Subscribe delivers live events for a chat to handler until ctx is done.
func (l *Log) Subscribe(ctx context.Context, chatID string, handler func(model.ProgressEvent)) error {
	consumer, err := l.client.JetStream().CreateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject: chatFilter(chatID),
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		var event model.ProgressEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			return
		}
		if meta, err := msg.Metadata(); err == nil {
			event.Sequence = meta.Sequence.Stream
		}
		handler(event)
	})
	if err != nil {
		return fmt.Errorf("failed to consume: %w", err)
	}

	<-ctx.Done()
	cons.Stop()
	return nil
}
