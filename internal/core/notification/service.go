package notification

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kmsconnect/kms-connect/internal/core/actor"
	"github.com/kmsconnect/kms-connect/internal/core/applicant"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

const (
	defaultListPageSize = 50
	maxListPageSize     = 200
)

// Service は通知の作成と参照を扱います。
type Service struct {
	repo  Repository
	clock Clock
}

// UseCase は通知ユースケースの公開インターフェースです。
type UseCase interface {
	List(ctx context.Context, act actor.Actor, in ListInput) (*ListResult, error)
	MarkRead(ctx context.Context, act actor.Actor, id int64) (*Notification, error)
}

// NewService は Service を生成します。
func NewService(repo Repository, clock Clock) *Service {
	if clock == nil {
		clock = realClock{}
	}
	return &Service{repo: repo, clock: clock}
}

// ListInput は一覧取得時の入力です。
type ListInput struct {
	PageSize   int
	PageToken  string
	UnreadOnly bool
}

// ListResult は一覧取得結果を表します。
type ListResult struct {
	Notifications []*Notification
	NextPageToken string
}

// OnStatusChanged は審査状態の変更をプロフィール所有者へ通知します。
func (s *Service) OnStatusChanged(ctx context.Context, event applicant.StatusChanged) error {
	if event.OwnerID == "" {
		return nil
	}
	title, message, ok := statusCopy(event)
	if !ok {
		return nil
	}

	createdAt := event.OccurredAt
	if createdAt.IsZero() {
		createdAt = s.clock.Now()
	}

	if _, err := s.repo.Create(ctx, &Notification{
		UserID:    event.OwnerID,
		Title:     title,
		Message:   message,
		Type:      TypeVerification,
		ActionURL: actionURL(event),
		CreatedAt: createdAt,
	}); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// List は操作主体宛ての通知を新しい順に返します。
func (s *Service) List(ctx context.Context, act actor.Actor, in ListInput) (*ListResult, error) {
	if act.ID == "" || !act.Role.IsValid() {
		return nil, actor.ErrPermissionDenied
	}
	limit, err := normalizePageSize(in.PageSize)
	if err != nil {
		return nil, err
	}
	offset, err := parsePageToken(in.PageToken)
	if err != nil {
		return nil, err
	}

	items, next, err := s.repo.List(ctx, ListFilter{
		UserID:     act.ID,
		UnreadOnly: in.UnreadOnly,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, err
	}
	return &ListResult{Notifications: items, NextPageToken: next}, nil
}

// MarkRead は通知を既読にします。他人の通知は存在しないものとして扱います。
func (s *Service) MarkRead(ctx context.Context, act actor.Actor, id int64) (*Notification, error) {
	if act.ID == "" || !act.Role.IsValid() {
		return nil, actor.ErrPermissionDenied
	}
	if id <= 0 {
		return nil, fmt.Errorf("id: %w", ErrInvalidID)
	}
	return s.repo.MarkRead(ctx, id, act.ID, s.clock.Now())
}

func actionURL(event applicant.StatusChanged) string {
	if event.PublicID != "" {
		return "/applicants/" + event.PublicID
	}
	return "/applicants/" + strconv.FormatInt(event.ProfileID, 10)
}

func statusCopy(event applicant.StatusChanged) (string, string, bool) {
	switch event.NewStatus {
	case applicant.StatusSubmitted:
		return "Profil dikirim untuk verifikasi",
			"Profil Anda telah dikirim dan sedang menunggu verifikasi oleh tim kami.", true
	case applicant.StatusAccepted:
		return "Profil disetujui",
			"Selamat, profil Anda telah diverifikasi dan disetujui.", true
	case applicant.StatusRejected:
		msg := "Profil Anda belum dapat disetujui."
		if notes := strings.TrimSpace(event.Notes); notes != "" {
			msg += " Catatan: " + notes
		}
		return "Profil ditolak", msg, true
	case applicant.StatusDraft:
		return "Profil dibuka kembali",
			"Profil Anda dapat diperbarui dan dikirim ulang untuk verifikasi.", true
	default:
		return "", "", false
	}
}

func normalizePageSize(pageSize int) (int, error) {
	if pageSize <= 0 {
		return defaultListPageSize, nil
	}
	if pageSize > maxListPageSize {
		return 0, ErrInvalidPageSize
	}
	return pageSize, nil
}

func parsePageToken(token string) (int, error) {
	if strings.TrimSpace(token) == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(token)
	if err != nil || offset < 0 {
		return 0, ErrInvalidPageToken
	}
	return offset, nil
}
