package actor

import "errors"

// Role は操作主体のロールを表します。
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleStaff     Role = "STAFF"
	RoleCompany   Role = "COMPANY"
	RoleApplicant Role = "APPLICANT"
)

// ErrPermissionDenied は操作主体に権限がない場合に返却されます。
var ErrPermissionDenied = errors.New("permission denied")

// Actor は各ユースケースに明示的に渡される操作主体です。
type Actor struct {
	ID   string
	Role Role
}

// IsValid はロールが既知の値かを判定します。
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleCompany, RoleApplicant:
		return true
	default:
		return false
	}
}

// IsBackoffice は管理者またはスタッフかを判定します。
func (a Actor) IsBackoffice() bool {
	return a.Role == RoleAdmin || a.Role == RoleStaff
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsApplicant() bool {
	return a.Role == RoleApplicant
}

// RequireBackoffice は管理者・スタッフ以外を拒否します。
func (a Actor) RequireBackoffice() error {
	if a.ID == "" || !a.IsBackoffice() {
		return ErrPermissionDenied
	}
	return nil
}

// RequireAdmin は管理者以外を拒否します。
func (a Actor) RequireAdmin() error {
	if a.ID == "" || !a.IsAdmin() {
		return ErrPermissionDenied
	}
	return nil
}
