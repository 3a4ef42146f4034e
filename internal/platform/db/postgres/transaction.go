package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"

	defaultMaxTxAttempts = 3
)

// ErrReadOnlyTransaction は読み取り専用トランザクションの内側で書き込みを要求した場合に返却されます。
var ErrReadOnlyTransaction = errors.New("postgres: read-write work requested inside a read-only transaction")

type txStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type txContextKey struct{}

// txState はコンテキストに格納する実行中トランザクションです。
type txState struct {
	tx       pgx.Tx
	readOnly bool
}

// TransactionManager はユースケース単位のトランザクションを管理します。
// 直列化失敗とデッドロックは最上位のトランザクションで再試行します。
type TransactionManager struct {
	pool        txStarter
	maxAttempts int
}

// TxOption は TransactionManager の任意設定です。
type TxOption func(*TransactionManager)

// WithMaxAttempts は直列化失敗時の最大試行回数を設定します。
func WithMaxAttempts(n int) TxOption {
	return func(m *TransactionManager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// NewTransactionManager は TransactionManager を生成します。
func NewTransactionManager(pool txStarter, opts ...TxOption) *TransactionManager {
	if pool == nil {
		return nil
	}
	m := &TransactionManager{pool: pool, maxAttempts: defaultMaxTxAttempts}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithinReadOnly は一覧・参照系のユースケースを読み取り専用トランザクションで実行します。
func (m *TransactionManager) WithinReadOnly(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.run(ctx, true, fn)
}

// WithinReadWrite は状態遷移などの更新系ユースケースを実行します。
func (m *TransactionManager) WithinReadWrite(ctx context.Context, fn func(context.Context) error) error {
	if m == nil {
		return fn(ctx)
	}
	return m.run(ctx, false, fn)
}

func (m *TransactionManager) run(ctx context.Context, readOnly bool, fn func(context.Context) error) error {
	if fn == nil {
		return fmt.Errorf("postgres: transaction function is required")
	}

	if outer, ok := stateFromContext(ctx); ok {
		if outer.readOnly && !readOnly {
			return ErrReadOnlyTransaction
		}
		return fn(ctx)
	}

	opts := pgx.TxOptions{AccessMode: pgx.ReadWrite}
	if readOnly {
		opts.AccessMode = pgx.ReadOnly
	}

	var err error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		err = m.attempt(ctx, opts, readOnly, fn)
		if err == nil || !isRetryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (m *TransactionManager) attempt(ctx context.Context, opts pgx.TxOptions, readOnly bool, fn func(context.Context) error) error {
	tx, err := m.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	finished := false
	defer func() {
		if !finished {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(context.WithValue(ctx, txContextKey{}, txState{tx: tx, readOnly: readOnly})); err != nil {
		finished = true
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("postgres: rollback: %w", rbErr))
		}
		return err
	}

	finished = true
	if err := tx.Commit(ctx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(fmt.Errorf("postgres: commit: %w", err), fmt.Errorf("postgres: rollback after commit failure: %w", rbErr))
		}
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// isRetryable は直列化失敗またはデッドロックかを判定します。
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
}

func stateFromContext(ctx context.Context) (txState, bool) {
	if ctx == nil {
		return txState{}, false
	}
	st, ok := ctx.Value(txContextKey{}).(txState)
	return st, ok
}

// InTransaction はコンテキストにトランザクションが存在するかを返します。
func InTransaction(ctx context.Context) bool {
	_, ok := stateFromContext(ctx)
	return ok
}

// Queryer は pgx.Tx と pgxpool.Pool に共通するクエリ実行インターフェースです。
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// QueryerFromContext は実行中のトランザクションがあればそれを、なければ fallback を返します。
func QueryerFromContext(ctx context.Context, fallback Queryer) Queryer {
	if st, ok := stateFromContext(ctx); ok {
		return st.tx
	}
	return fallback
}
