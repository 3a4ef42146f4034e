package notification

import (
	"context"
	"time"
)

// Repository は通知の永続化を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, n *Notification) (*Notification, error)
	List(ctx context.Context, filter ListFilter) ([]*Notification, string, error)
	// MarkRead は指定ユーザーの通知を既読にします。該当がなければ ErrNotificationNotFound を返します。
	MarkRead(ctx context.Context, id int64, userID string, at time.Time) (*Notification, error)
}

// ListFilter は一覧取得時の検索条件を表します。
type ListFilter struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int
}
