package applicant

import (
	"context"
	"time"

	"github.com/kmsconnect/kms-connect/internal/core/actor"
)

// StatusChanged は審査状態が遷移したときに発行されるドメインイベントです。
type StatusChanged struct {
	ProfileID  int64
	PublicID   string
	OwnerID    string
	FullName   string
	OldStatus  VerificationStatus
	NewStatus  VerificationStatus
	ActorID    string
	ActorRole  actor.Role
	Notes      string
	OccurredAt time.Time
}

// EventPublisher は StatusChanged を外部へ配送します。
// 配送は fire-and-forget であり、失敗しても遷移は取り消されません。
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event StatusChanged)
}

type noopPublisher struct{}

func (noopPublisher) PublishStatusChanged(context.Context, StatusChanged) {}
