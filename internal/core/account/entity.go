package account

import (
	"time"

	"github.com/kmsconnect/kms-connect/internal/core/actor"
)

// User はログイン主体となるアカウントです。
type User struct {
	ID        string
	Email     string
	FullName  string
	Role      actor.Role
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsBackoffice は管理者またはスタッフのアカウントかを判定します。
func (u *User) IsBackoffice() bool {
	return u != nil && (u.Role == actor.RoleAdmin || u.Role == actor.RoleStaff)
}
