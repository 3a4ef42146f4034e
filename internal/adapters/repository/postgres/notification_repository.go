package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kmsconnect/kms-connect/internal/core/notification"
	pgdb "github.com/kmsconnect/kms-connect/internal/platform/db/postgres"
)

// NotificationRepository は PostgreSQL を利用した通知永続化の実装です。
type NotificationRepository struct {
	pool pgdb.Queryer
}

// NewNotificationRepository は NotificationRepository を生成します。
func NewNotificationRepository(pool pgdb.Queryer) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create は通知を作成します。
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) (*notification.Notification, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO notifications (user_id, title, message, type, action_url, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, user_id, title, message, type, action_url, read_at, created_at
    `, n.UserID, n.Title, n.Message, string(n.Type), n.ActionURL, n.CreatedAt)

	return scanNotification(row)
}

// List はユーザー宛ての通知を新しい順に取得します。
func (r *NotificationRepository) List(ctx context.Context, filter notification.ListFilter) ([]*notification.Notification, string, error) {
	if filter.Limit <= 0 {
		return nil, "", notification.ErrInvalidPageSize
	}
	if filter.Offset < 0 {
		return nil, "", notification.ErrInvalidPageToken
	}
	if !validUUID(filter.UserID) {
		return nil, "", nil
	}

	unreadClause := ""
	if filter.UnreadOnly {
		unreadClause = " AND read_at IS NULL"
	}

	exec := pgdb.QueryerFromContext(ctx, r.pool)
	rows, err := exec.Query(ctx, `
        SELECT id, user_id, title, message, type, action_url, read_at, created_at
          FROM notifications
         WHERE user_id = $1`+unreadClause+`
         ORDER BY created_at DESC, id DESC
         LIMIT $2
        OFFSET $3
    `, filter.UserID, filter.Limit+1, filter.Offset)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var items []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, "", err
		}
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var nextToken string
	if len(items) > filter.Limit {
		nextToken = strconv.Itoa(filter.Offset + filter.Limit)
		items = items[:filter.Limit]
	}
	return items, nextToken, nil
}

// MarkRead は指定ユーザーの通知を既読にします。既読済みの場合は既読日時を維持します。
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64, userID string, at time.Time) (*notification.Notification, error) {
	if !validUUID(userID) {
		return nil, notification.ErrNotificationNotFound
	}
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        UPDATE notifications
           SET read_at = COALESCE(read_at, $1)
         WHERE id = $2
           AND user_id = $3
        RETURNING id, user_id, title, message, type, action_url, read_at, created_at
    `, at, id, userID)

	return scanNotification(row)
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var (
		n      notification.Notification
		typ    string
		readAt sql.NullTime
	)
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &typ, &n.ActionURL, &readAt, &n.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notification.ErrNotificationNotFound
		}
		return nil, err
	}
	n.Type = notification.Type(typ)
	n.ReadAt = timePtr(readAt)
	return &n, nil
}
