package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kmsconnect/kms-connect/internal/platform/config"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func TestBuildPoolConfig(t *testing.T) {
	t.Parallel()

	dbCfg := config.DatabaseConfig{
		Host:             "localhost",
		Port:             15432,
		User:             "user",
		Password:         "pass",
		Name:             "db",
		SSLMode:          "disable",
		MaxOpenConns:     20,
		MaxIdleConns:     5,
		ConnMaxLifetime:  30 * time.Minute,
		ConnMaxIdleTime:  10 * time.Minute,
		StatementTimeout: 30 * time.Second,
	}

	poolCfg, err := BuildPoolConfig(dbCfg)
	if err != nil {
		t.Fatalf("BuildPoolConfig returned error: %v", err)
	}

	if poolCfg.MaxConns != 20 {
		t.Errorf("expected MaxConns 20, got %d", poolCfg.MaxConns)
	}

	if poolCfg.MinConns != 5 {
		t.Errorf("expected MinConns 5, got %d", poolCfg.MinConns)
	}

	if poolCfg.MaxConnLifetime != 30*time.Minute {
		t.Errorf("unexpected MaxConnLifetime: %v", poolCfg.MaxConnLifetime)
	}

	if poolCfg.MaxConnIdleTime != 10*time.Minute {
		t.Errorf("unexpected MaxConnIdleTime: %v", poolCfg.MaxConnIdleTime)
	}

	if got := poolCfg.ConnConfig.RuntimeParams["statement_timeout"]; got != "30000" {
		t.Errorf("expected statement_timeout 30000, got %q", got)
	}

	if got := poolCfg.ConnConfig.RuntimeParams["timezone"]; got != "UTC" {
		t.Errorf("expected timezone UTC, got %q", got)
	}

	if got := poolCfg.ConnConfig.RuntimeParams["application_name"]; got != "kms-connect" {
		t.Errorf("expected application_name kms-connect, got %q", got)
	}

	if poolCfg.HealthCheckPeriod != 30*time.Second {
		t.Errorf("unexpected HealthCheckPeriod: %v", poolCfg.HealthCheckPeriod)
	}

	if poolCfg.ConnConfig.Database != "db" {
		t.Errorf("expected database db, got %s", poolCfg.ConnConfig.Database)
	}
}

func TestBuildPoolConfig_MinConnsCappedByMax(t *testing.T) {
	t.Parallel()

	poolCfg, err := BuildPoolConfig(config.DatabaseConfig{
		Host:         "localhost",
		Port:         5432,
		User:         "kms",
		Password:     "kms",
		Name:         "kms_connect",
		SSLMode:      "disable",
		MaxOpenConns: 4,
		MaxIdleConns: 10,
	})
	if err != nil {
		t.Fatalf("BuildPoolConfig returned error: %v", err)
	}
	if poolCfg.MinConns != 4 {
		t.Fatalf("expected MinConns capped at 4, got %d", poolCfg.MinConns)
	}
	if _, ok := poolCfg.ConnConfig.RuntimeParams["statement_timeout"]; ok {
		t.Fatal("expected no statement_timeout when unset")
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	if err := Health(context.Background(), mock); err == nil {
		t.Fatal("expected ping failure to be reported")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
