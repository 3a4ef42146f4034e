package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/kmsconnect/kms-connect/internal/core/account"
	"github.com/kmsconnect/kms-connect/internal/core/actor"
	pgdb "github.com/kmsconnect/kms-connect/internal/platform/db/postgres"
)

// AccountRepository は PostgreSQL を利用したアカウント永続化の実装です。
type AccountRepository struct {
	pool pgdb.Queryer
}

// NewAccountRepository は AccountRepository を生成します。
func NewAccountRepository(pool pgdb.Queryer) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create はアカウントを新規作成します。
func (r *AccountRepository) Create(ctx context.Context, u *account.User) (*account.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        INSERT INTO users (email, full_name, role, active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, email, full_name, role, active, created_at, updated_at
    `, strings.ToLower(u.Email), u.FullName, string(u.Role), u.Active, u.CreatedAt, u.UpdatedAt)

	created, err := scanAccount(row)
	if err != nil {
		return nil, translateAccountPgError(err)
	}
	return created, nil
}

// FindByID は ID でアカウントを取得します。
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*account.User, error) {
	if !validUUID(id) {
		return nil, account.ErrUserNotFound
	}
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, email, full_name, role, active, created_at, updated_at
          FROM users
         WHERE id = $1
         LIMIT 1
    `, id)

	found, err := scanAccount(row)
	if err != nil {
		return nil, translateAccountPgError(err)
	}
	return found, nil
}

// FindByEmail はメールアドレスでアカウントを取得します。
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*account.User, error) {
	exec := pgdb.QueryerFromContext(ctx, r.pool)
	row := exec.QueryRow(ctx, `
        SELECT id, email, full_name, role, active, created_at, updated_at
          FROM users
         WHERE email = $1
         LIMIT 1
    `, strings.ToLower(strings.TrimSpace(email)))

	found, err := scanAccount(row)
	if err != nil {
		return nil, translateAccountPgError(err)
	}
	return found, nil
}

func scanAccount(row pgx.Row) (*account.User, error) {
	var (
		id, email, fullName  string
		role                 string
		active               bool
		createdAt, updatedAt time.Time
	)

	if err := row.Scan(&id, &email, &fullName, &role, &active, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrUserNotFound
		}
		return nil, err
	}

	return &account.User{
		ID:        id,
		Email:     email,
		FullName:  fullName,
		Role:      actor.Role(role),
		Active:    active,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

func translateAccountPgError(err error) error {
	code, _, ok := pgErrorCode(err)
	if ok && code == uniqueViolationCode {
		return account.ErrEmailAlreadyExists
	}
	return err
}
