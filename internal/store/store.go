package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"terradjunto/internal/logger"

	"github.com/redis/go-redis/v9"
)

// Slot keys. Each holds one JSON document.
const (
	KeyIncidents        = "registoOcorrencias"
	KeyWasteRequests    = "wasteRequests"
	KeyParticipation    = "participationRecords"
	KeyLegislationFiles = "customLegislationFiles"
	KeyDatasets         = "adminDatasets"
	KeyUsers            = "users"
	KeyLegislationPDFs  = "portal_legislation_pdfs"
	KeyAssistantPrefix  = "vaMessages:"
)

// ErrNotFound is returned by Get for a slot that was never written.
var ErrNotFound = errors.New("slot not found")

// KV is a flat key-value store of JSON slots. Writes overwrite the whole slot.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Description() string
	Close() error
}

// New opens the slot store described by cfg.
// Use ConfigFromEnv() to create config from environment variables.
func New(cfg Config) (KV, error) {
	var kv KV
	if cfg.Backend == BackendRedis {
		kv = &RedisStore{client: openRedis(cfg), addr: cfg.RedisAddr}
	} else {
		s, err := NewSQL(cfg)
		if err != nil {
			return nil, err
		}
		kv = s
	}
	logger.L().Info("slot store ready", "backend", kv.Description())
	return kv, nil
}

// SQLStore keeps slots in a single kv table.
type SQLStore struct {
	db      *sql.DB
	backend DataBackend
}

// NewSQL connects a SQL backend and ensures the schema exists.
func NewSQL(cfg Config) (*SQLStore, error) {
	backend, err := NewDataBackend(cfg)
	if err != nil {
		return nil, err
	}

	db, err := backend.Connect()
	if err != nil {
		return nil, err
	}

	s := &SQLStore{db: db, backend: backend}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Backend returns the data backend
func (s *SQLStore) Backend() DataBackend {
	return s.backend
}

func (s *SQLStore) Description() string {
	return s.backend.Description()
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`

	_, err := s.db.Exec(schema)
	return err
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.backend.Type() != BackendPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT value FROM kv WHERE key = ?`), key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (s *SQLStore) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		key, string(value), time.Now().UTC(),
	)
	return err
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM kv WHERE key = ?`), key)
	return err
}

func (s *SQLStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT key FROM kv WHERE key LIKE ? ORDER BY key`), prefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// RedisStore keeps each slot as a plain redis string.
type RedisStore struct {
	client *redis.Client
	addr   string
}

// NewRedis wraps an existing client, mainly for tests and manual injection.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, addr: client.Options().Addr}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (s *RedisStore) Description() string {
	return fmt.Sprintf("Redis (%s)", s.addr)
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
