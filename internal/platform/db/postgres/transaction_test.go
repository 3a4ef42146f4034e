package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestTransactionManager_ReadWriteCommit(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	tm := NewTransactionManager(mock)

	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadWrite})
	mock.ExpectCommit()

	err := tm.WithinReadWrite(context.Background(), func(ctx context.Context) error {
		if !InTransaction(ctx) {
			t.Fatalf("transaction not injected into context")
		}
		if QueryerFromContext(ctx, nil) == nil {
			t.Fatalf("expected queryer from transaction")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinReadWrite returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransactionManager_ReadOnlyRollbackOnError(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	tm := NewTransactionManager(mock)

	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadOnly})
	mock.ExpectRollback()

	expectedErr := errors.New("profile not found")
	err := tm.WithinReadOnly(context.Background(), func(context.Context) error {
		return expectedErr
	})
	if !errors.Is(err, expectedErr) {
		t.Fatalf("expected %v, got %v", expectedErr, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransactionManager_NestedReadOnlyJoinsOuter(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	tm := NewTransactionManager(mock)

	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadWrite})
	mock.ExpectCommit()

	err := tm.WithinReadWrite(context.Background(), func(ctx context.Context) error {
		return tm.WithinReadOnly(ctx, func(inner context.Context) error {
			if !InTransaction(inner) {
				t.Fatalf("nested transaction lost context")
			}
			return nil
		})
	})
	if err != nil {
		t.Fatalf("nested transaction returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransactionManager_WriteInsideReadOnlyIsRejected(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	tm := NewTransactionManager(mock)

	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadOnly})
	mock.ExpectRollback()

	err := tm.WithinReadOnly(context.Background(), func(ctx context.Context) error {
		return tm.WithinReadWrite(ctx, func(context.Context) error {
			t.Fatal("write work must not run inside a read-only transaction")
			return nil
		})
	})
	if !errors.Is(err, ErrReadOnlyTransaction) {
		t.Fatalf("expected ErrReadOnlyTransaction, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransactionManager_RetriesSerializationFailure(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	tm := NewTransactionManager(mock, WithMaxAttempts(2))

	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadWrite})
	mock.ExpectRollback()
	mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadWrite})
	mock.ExpectCommit()

	calls := 0
	err := tm.WithinReadWrite(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return &pgconn.PgError{Code: sqlStateSerializationFailure}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransactionManager_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	tm := NewTransactionManager(mock, WithMaxAttempts(2))

	for i := 0; i < 2; i++ {
		mock.ExpectBeginTx(pgx.TxOptions{AccessMode: pgx.ReadWrite})
		mock.ExpectRollback()
	}

	deadlock := &pgconn.PgError{Code: sqlStateDeadlockDetected}
	err := tm.WithinReadWrite(context.Background(), func(context.Context) error {
		return deadlock
	})
	if !errors.Is(err, deadlock) {
		t.Fatalf("expected deadlock error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransactionManager_NilRunsWithoutTransaction(t *testing.T) {
	t.Parallel()

	var tm *TransactionManager
	ran := false
	if err := tm.WithinReadWrite(context.Background(), func(ctx context.Context) error {
		ran = !InTransaction(ctx)
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("expected fn to run outside a transaction")
	}
}
