package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/kmsconnect/kms-connect/internal/core/notification"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestNotificationRepository_List_UnreadWithNextToken(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewNotificationRepository(mock)
	userID := "0b9d6a0e-3f0c-4a43-9a55-6f4b8e1d2c3a"
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE user_id = $1 AND read_at IS NULL`)).
		WithArgs(userID, 2, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "title", "message", "type", "action_url", "read_at", "created_at"}).
			AddRow(int64(3), userID, "Profil ditolak", "m", "VERIFICATION", "/applicants/x", nil, now).
			AddRow(int64(2), userID, "Profil dikirim untuk verifikasi", "m", "VERIFICATION", "/applicants/x", nil, now))

	items, next, err := repo.List(context.Background(), notification.ListFilter{UserID: userID, UnreadOnly: true, Limit: 1})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(items) != 1 || next != "1" {
		t.Fatalf("expected one item and next token 1, got %d / %q", len(items), next)
	}
	if items[0].ReadAt != nil || items[0].Type != notification.TypeVerification {
		t.Fatalf("unexpected notification %+v", items[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNotificationRepository_MarkRead_OtherUser(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	repo := NewNotificationRepository(mock)
	userID := "0b9d6a0e-3f0c-4a43-9a55-6f4b8e1d2c3a"
	at := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`SET read_at = COALESCE(read_at, $1)`)).
		WithArgs(at, int64(9), userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "title", "message", "type", "action_url", "read_at", "created_at"}))

	if _, err := repo.MarkRead(context.Background(), 9, userID, at); !errors.Is(err, notification.ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
