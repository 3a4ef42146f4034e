package notification

import "time"

// Type は通知の種別です。
type Type string

const (
	TypeVerification Type = "VERIFICATION"
)

// Notification はユーザー宛てのアプリ内通知です。
type Notification struct {
	ID        int64
	UserID    string
	Title     string
	Message   string
	Type      Type
	ActionURL string
	ReadAt    *time.Time
	CreatedAt time.Time
}

// IsRead は既読かを判定します。
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
