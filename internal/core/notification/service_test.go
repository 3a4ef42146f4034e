package notification

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kmsconnect/kms-connect/internal/core/actor"
	"github.com/kmsconnect/kms-connect/internal/core/applicant"
)

type stubClock struct {
	now time.Time
}

func (s stubClock) Now() time.Time {
	return s.now
}

type fakeRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*Notification
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[int64]*Notification)}
}

func (f *fakeRepo) Create(_ context.Context, n *Notification) (*Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	clone := *n
	clone.ID = f.nextID
	f.items[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (f *fakeRepo) List(_ context.Context, filter ListFilter) ([]*Notification, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*Notification
	for _, n := range f.items {
		if n.UserID != filter.UserID {
			continue
		}
		if filter.UnreadOnly && n.IsRead() {
			continue
		}
		clone := *n
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	if filter.Offset >= len(matched) {
		return nil, "", nil
	}
	end := filter.Offset + filter.Limit
	next := ""
	if end < len(matched) {
		next = strconv.Itoa(end)
	} else {
		end = len(matched)
	}
	return matched[filter.Offset:end], next, nil
}

func (f *fakeRepo) MarkRead(_ context.Context, id int64, userID string, at time.Time) (*Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.items[id]
	if !ok || n.UserID != userID {
		return nil, ErrNotificationNotFound
	}
	if n.ReadAt == nil {
		n.ReadAt = &at
	}
	clone := *n
	return &clone, nil
}

var (
	testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	owner   = actor.Actor{ID: "user-owner", Role: actor.RoleApplicant}
)

func TestService_OnStatusChanged_CreatesNotificationPerStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    applicant.VerificationStatus
		notes     string
		wantTitle string
		wantInMsg string
	}{
		{name: "submitted", status: applicant.StatusSubmitted, wantTitle: "Profil dikirim untuk verifikasi", wantInMsg: "menunggu verifikasi"},
		{name: "accepted", status: applicant.StatusAccepted, wantTitle: "Profil disetujui", wantInMsg: "disetujui"},
		{name: "rejected", status: applicant.StatusRejected, notes: "Foto KTP buram", wantTitle: "Profil ditolak", wantInMsg: "Catatan: Foto KTP buram"},
		{name: "reopened", status: applicant.StatusDraft, wantTitle: "Profil dibuka kembali", wantInMsg: "dikirim ulang"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := newFakeRepo()
			svc := NewService(repo, stubClock{now: testNow})

			err := svc.OnStatusChanged(context.Background(), applicant.StatusChanged{
				ProfileID:  7,
				PublicID:   "a1b2",
				OwnerID:    owner.ID,
				NewStatus:  tt.status,
				Notes:      tt.notes,
				OccurredAt: testNow,
			})
			if err != nil {
				t.Fatalf("OnStatusChanged returned error: %v", err)
			}
			if len(repo.items) != 1 {
				t.Fatalf("expected one notification, got %d", len(repo.items))
			}
			n := repo.items[1]
			if n.Title != tt.wantTitle {
				t.Errorf("expected title %q, got %q", tt.wantTitle, n.Title)
			}
			if !strings.Contains(n.Message, tt.wantInMsg) {
				t.Errorf("expected message to contain %q, got %q", tt.wantInMsg, n.Message)
			}
			if n.Type != TypeVerification || n.ActionURL != "/applicants/a1b2" || n.UserID != owner.ID {
				t.Errorf("unexpected notification %+v", n)
			}
		})
	}
}

func TestService_OnStatusChanged_IgnoresUnknownStatusAndMissingOwner(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, stubClock{now: testNow})

	if err := svc.OnStatusChanged(context.Background(), applicant.StatusChanged{OwnerID: owner.ID, NewStatus: "ARCHIVED"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.OnStatusChanged(context.Background(), applicant.StatusChanged{NewStatus: applicant.StatusAccepted}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.items) != 0 {
		t.Fatalf("expected no notifications, got %d", len(repo.items))
	}
}

func TestService_ListAndMarkRead(t *testing.T) {
	t.Parallel()

	repo := newFakeRepo()
	svc := NewService(repo, stubClock{now: testNow})
	ctx := context.Background()

	for _, status := range []applicant.VerificationStatus{applicant.StatusSubmitted, applicant.StatusRejected, applicant.StatusDraft} {
		if err := svc.OnStatusChanged(ctx, applicant.StatusChanged{ProfileID: 7, OwnerID: owner.ID, NewStatus: status}); err != nil {
			t.Fatalf("OnStatusChanged returned error: %v", err)
		}
	}
	if err := svc.OnStatusChanged(ctx, applicant.StatusChanged{ProfileID: 8, OwnerID: "someone-else", NewStatus: applicant.StatusSubmitted}); err != nil {
		t.Fatalf("OnStatusChanged returned error: %v", err)
	}

	page, err := svc.List(ctx, owner, ListInput{PageSize: 2})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(page.Notifications) != 2 || page.NextPageToken != "2" {
		t.Fatalf("unexpected first page: %d items, token %q", len(page.Notifications), page.NextPageToken)
	}
	if page.Notifications[0].Title != "Profil dibuka kembali" {
		t.Errorf("expected newest first, got %q", page.Notifications[0].Title)
	}

	read, err := svc.MarkRead(ctx, owner, page.Notifications[0].ID)
	if err != nil {
		t.Fatalf("MarkRead returned error: %v", err)
	}
	if read.ReadAt == nil || !read.ReadAt.Equal(testNow) {
		t.Fatalf("expected ReadAt %v, got %v", testNow, read.ReadAt)
	}

	unread, err := svc.List(ctx, owner, ListInput{UnreadOnly: true})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(unread.Notifications) != 2 {
		t.Fatalf("expected 2 unread notifications, got %d", len(unread.Notifications))
	}

	if _, err := svc.MarkRead(ctx, owner, 4); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("expected ErrNotificationNotFound for another user's notification, got %v", err)
	}
}

func TestService_List_Validation(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeRepo(), stubClock{now: testNow})
	ctx := context.Background()

	if _, err := svc.List(ctx, actor.Actor{}, ListInput{}); !errors.Is(err, actor.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if _, err := svc.List(ctx, owner, ListInput{PageSize: 500}); !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize, got %v", err)
	}
	if _, err := svc.List(ctx, owner, ListInput{PageToken: "abc"}); !errors.Is(err, ErrInvalidPageToken) {
		t.Fatalf("expected ErrInvalidPageToken, got %v", err)
	}
	if _, err := svc.MarkRead(ctx, owner, 0); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}
