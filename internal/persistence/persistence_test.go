package persistence

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/testnet-portal/internal/config"
)

func TestNewPostgres_WithoutDSN(t *testing.T) {
	pg, err := NewPostgres(context.Background(), config.PostgresConfig{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	if pg.PoolHandle() != nil {
		t.Fatal("expected no pool without a DSN")
	}
	if err := pg.Ping(context.Background()); err == nil {
		t.Fatal("Ping should fail without a pool")
	}
	pg.Close()
}

func TestNilHandles(t *testing.T) {
	var pg *Postgres
	if pg.PoolHandle() != nil {
		t.Fatal("nil Postgres should have no pool")
	}
	var r *Redis
	if err := r.Ping(context.Background()); err == nil {
		t.Fatal("nil Redis Ping should fail")
	}
	if err := RunMigrations(context.Background(), nil, zap.NewNop()); err != nil {
		t.Fatalf("RunMigrations without pool: %v", err)
	}
}

func TestMigrationNames_Embedded(t *testing.T) {
	names, err := migrationNames()
	if err != nil {
		t.Fatalf("migrationNames: %v", err)
	}
	if len(names) == 0 || names[0] != "001_login_outcomes.sql" {
		t.Fatalf("names = %v, want 001_login_outcomes.sql first", names)
	}
}

func TestRedis_NilClientCacheCalls(t *testing.T) {
	r := &Redis{}
	if _, err := r.Get(context.Background(), "k"); err == nil {
		t.Fatal("Get without client should fail")
	}
	if err := r.Set(context.Background(), "k", "v", 0); err == nil {
		t.Fatal("Set without client should fail")
	}
}
