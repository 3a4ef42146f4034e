package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/kmsconnect/kms-connect/internal/core/applicant"
	"github.com/kmsconnect/kms-connect/internal/platform/config"
)

// EventTypeStatusChanged は審査状態遷移イベントの種別です。
const EventTypeStatusChanged = "applicant.status_changed"

// MessageWriter は kafka.Writer のうち送信に必要な操作です。
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher は StatusChanged を Kafka トピックへ送信します。
type Publisher struct {
	writer MessageWriter
	now    func() time.Time
}

// NewPublisher は設定から kafka.Writer を生成して Publisher を返します。
func NewPublisher(cfg config.KafkaConfig) *Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		MaxAttempts:            5,
		WriteBackoffMin:        100 * time.Millisecond,
		WriteBackoffMax:        time.Second,
	}
	return NewPublisherWithWriter(writer)
}

// NewPublisherWithWriter は任意の MessageWriter を使う Publisher を生成します。
func NewPublisherWithWriter(w MessageWriter) *Publisher {
	return &Publisher{writer: w, now: func() time.Time { return time.Now().UTC() }}
}

// StatusChangedMessage は Kafka に送信するメッセージ本文です。
type StatusChangedMessage struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	ProfileID  int64     `json:"profile_id"`
	PublicID   string    `json:"public_id,omitempty"`
	OwnerID    string    `json:"owner_id,omitempty"`
	OldStatus  string    `json:"old_status"`
	NewStatus  string    `json:"new_status"`
	ActorID    string    `json:"actor_id"`
	ActorRole  string    `json:"actor_role"`
	Notes      string    `json:"notes,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// HandleStatusChanged はイベントを JSON に変換して送信します。キーはプロフィールの公開 ID です。
func (p *Publisher) HandleStatusChanged(ctx context.Context, event applicant.StatusChanged) error {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = p.now()
	}

	msg := StatusChangedMessage{
		EventID:    uuid.NewString(),
		EventType:  EventTypeStatusChanged,
		ProfileID:  event.ProfileID,
		PublicID:   event.PublicID,
		OwnerID:    event.OwnerID,
		OldStatus:  string(event.OldStatus),
		NewStatus:  string(event.NewStatus),
		ActorID:    event.ActorID,
		ActorRole:  string(event.ActorRole),
		Notes:      event.Notes,
		OccurredAt: occurredAt,
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal status changed event: %w", err)
	}

	key := event.PublicID
	if key == "" {
		key = strconv.FormatInt(event.ProfileID, 10)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  occurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeStatusChanged)},
			{Key: "event_id", Value: []byte(msg.EventID)},
		},
	}); err != nil {
		return fmt.Errorf("write status changed event: %w", err)
	}
	return nil
}

// Close は Writer を閉じ、未送信のメッセージを送り切ります。
func (p *Publisher) Close() error {
	return p.writer.Close()
}
