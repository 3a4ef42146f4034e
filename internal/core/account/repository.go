package account

import "context"

// Repository はアカウントの参照を行うインターフェースです。
type Repository interface {
	Create(ctx context.Context, user *User) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}
