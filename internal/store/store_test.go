package store

import (
	"context"
	"errors"
	"os"
	"slices"
	"strconv"
	"testing"
	"time"
)

// setupLocalTestStore creates a test store using local in-memory SQLite.
// Use this for fast unit tests that don't need network access.
func setupLocalTestStore(t *testing.T) (KV, func()) {
	t.Helper()

	kv, err := New(Config{Backend: BackendSQLite, SQLitePath: ":memory:"})
	if err != nil {
		t.Fatalf("Failed to create local store: %v", err)
	}
	return kv, func() { kv.Close() }
}

// setupTursoTestStore connects to a Turso dev database, skipping without one.
func setupTursoTestStore(t *testing.T) (KV, func()) {
	t.Helper()

	dbURL := os.Getenv("TURSO_DATABASE_URL")
	authToken := os.Getenv("TURSO_AUTH_TOKEN")
	if dbURL == "" || authToken == "" {
		t.Skip("TURSO_DATABASE_URL and TURSO_AUTH_TOKEN not set, skipping test")
	}

	kv, err := New(Config{Backend: BackendTurso, TursoURL: dbURL, TursoToken: authToken})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return kv, func() { kv.Close() }
}

// exerciseKV runs the slot contract against any backend. Keys are namespaced
// so shared databases are left as they were found.
func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()
	ns := "test-" + strconv.FormatInt(time.Now().UnixNano(), 36) + ":"
	t.Cleanup(func() {
		keys, _ := kv.Keys(context.Background(), ns)
		for _, k := range keys {
			kv.Delete(context.Background(), k)
		}
	})

	if _, err := kv.Get(ctx, ns+"missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := kv.Put(ctx, ns+"a", []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := kv.Get(ctx, ns+"a")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `[{"id":"1"}]` {
		t.Errorf("Expected stored value, got %s", got)
	}

	// overwrite replaces the whole slot
	if err := kv.Put(ctx, ns+"a", []byte(`[]`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if got, _ := kv.Get(ctx, ns+"a"); string(got) != `[]` {
		t.Errorf("Expected overwritten value, got %s", got)
	}

	if err := kv.Put(ctx, ns+"b", []byte(`{}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	keys, err := kv.Keys(ctx, ns)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	slices.Sort(keys)
	if !slices.Equal(keys, []string{ns + "a", ns + "b"}) {
		t.Errorf("Unexpected keys %v", keys)
	}

	if err := kv.Delete(ctx, ns+"a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := kv.Get(ctx, ns+"a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	// deleting a missing slot is not an error
	if err := kv.Delete(ctx, ns+"a"); err != nil {
		t.Errorf("Expected no error deleting twice, got %v", err)
	}
}

func TestLocalSQLite(t *testing.T) {
	kv, cleanup := setupLocalTestStore(t)
	defer cleanup()

	if kv.Description() != "SQLite (in-memory)" {
		t.Errorf("Unexpected description %q", kv.Description())
	}
	exerciseKV(t, kv)
}

func TestSQLiteFile(t *testing.T) {
	path := t.TempDir() + "/slots.db"

	kv, err := New(Config{Backend: BackendSQLite, SQLitePath: path})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := kv.Put(context.Background(), KeyUsers, []byte(`[]`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	kv.Close()

	// reopening keeps the data and the migration is idempotent
	kv, err = New(Config{Backend: BackendSQLite, SQLitePath: path})
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer kv.Close()
	if got, err := kv.Get(context.Background(), KeyUsers); err != nil || string(got) != `[]` {
		t.Errorf("Expected persisted slot, got %s / %v", got, err)
	}
}

func TestTurso(t *testing.T) {
	kv, cleanup := setupTursoTestStore(t)
	defer cleanup()
	exerciseKV(t, kv)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping test")
	}
	kv, err := New(Config{Backend: BackendPostgres, PostgresDSN: dsn})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer kv.Close()
	exerciseKV(t, kv)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set, skipping test")
	}
	kv, err := New(Config{Backend: BackendRedis, RedisAddr: addr})
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer kv.Close()
	exerciseKV(t, kv)
}

func TestNewInvalidBackend(t *testing.T) {
	if _, err := New(Config{Backend: "invalid"}); err == nil {
		t.Error("Expected error for invalid backend")
	}
}

func TestNewMissingSettings(t *testing.T) {
	if _, err := New(Config{Backend: BackendTurso}); err == nil {
		t.Error("Expected error for Turso without URL")
	}
	if _, err := New(Config{Backend: BackendPostgres}); err == nil {
		t.Error("Expected error for Postgres without DSN")
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{backend: &PostgresBackend{DSN: "x"}}
	if got := pg.rebind(`SELECT value FROM kv WHERE key = ? AND x = ?`); got != `SELECT value FROM kv WHERE key = $1 AND x = $2` {
		t.Errorf("Unexpected postgres query %q", got)
	}
	lite := &SQLStore{backend: &SQLiteBackend{Path: ":memory:"}}
	if got := lite.rebind(`key = ?`); got != `key = ?` {
		t.Errorf("SQLite query should be unchanged, got %q", got)
	}
}

func TestConfigFromEnv(t *testing.T) {
	for _, k := range []string{"DB_BACKEND", "TURSO_DATABASE_URL", "DATABASE_URL", "SQLITE_PATH", "REDIS_HOST", "REDIS_PORT", "REDIS_DB"} {
		t.Setenv(k, "")
	}

	cfg := ConfigFromEnv()
	if cfg.Backend != BackendSQLite || cfg.SQLitePath != "terradjunto.db" {
		t.Errorf("Expected default sqlite config, got %+v", cfg)
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/terradjunto")
	if cfg := ConfigFromEnv(); cfg.Backend != BackendPostgres || cfg.PostgresDSN == "" {
		t.Errorf("Expected postgres to be detected, got %+v", cfg)
	}

	t.Setenv("DB_BACKEND", "redis")
	t.Setenv("REDIS_DB", "2")
	cfg = ConfigFromEnv()
	if cfg.Backend != BackendRedis || cfg.RedisAddr != "127.0.0.1:6379" || cfg.RedisDB != 2 {
		t.Errorf("Unexpected redis config %+v", cfg)
	}
}
