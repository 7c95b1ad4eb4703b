package store

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// DataBackendType identifies the database backend
type DataBackendType string

const (
	BackendSQLite   DataBackendType = "sqlite"
	BackendTurso    DataBackendType = "turso"
	BackendPostgres DataBackendType = "postgres"
	BackendRedis    DataBackendType = "redis"
)

// DataBackend defines the interface for SQL database backends
type DataBackend interface {
	// Type returns the backend type
	Type() DataBackendType

	// Connect establishes a database connection
	Connect() (*sql.DB, error)

	// Description returns a human-readable description
	Description() string
}

// Config holds the slot store configuration
type Config struct {
	Backend DataBackendType `json:"backend"`

	// SQLite-specific
	SQLitePath string `json:"sqlitePath,omitempty"` // e.g., "./terradjunto.db" or ":memory:"

	// Turso-specific
	TursoURL   string `json:"tursoUrl,omitempty"`   // e.g., "libsql://mydb.turso.io"
	TursoToken string `json:"tursoToken,omitempty"` // Auth token

	// Postgres-specific
	PostgresDSN string `json:"postgresDsn,omitempty"`

	// Redis-specific
	RedisAddr string `json:"redisAddr,omitempty"`
	RedisPass string `json:"-"`
	RedisDB   int    `json:"redisDb,omitempty"`
}

// ConfigFromEnv creates a Config from environment variables
// DB_BACKEND: "sqlite", "turso", "postgres" or "redis" (auto-detected if not set)
// For SQLite: SQLITE_PATH (defaults to "terradjunto.db")
// For Turso: TURSO_DATABASE_URL, TURSO_AUTH_TOKEN
// For Postgres: DATABASE_URL
// For Redis: REDIS_HOST, REDIS_PORT, REDIS_PASS, REDIS_DB
func ConfigFromEnv() Config {
	backend := DataBackendType(os.Getenv("DB_BACKEND"))
	if backend == "" {
		switch {
		case os.Getenv("TURSO_DATABASE_URL") != "":
			backend = BackendTurso
		case os.Getenv("DATABASE_URL") != "":
			backend = BackendPostgres
		default:
			backend = BackendSQLite
		}
	}

	cfg := Config{Backend: backend}

	switch backend {
	case BackendTurso:
		cfg.TursoURL = os.Getenv("TURSO_DATABASE_URL")
		cfg.TursoToken = os.Getenv("TURSO_AUTH_TOKEN")
	case BackendPostgres:
		cfg.PostgresDSN = os.Getenv("DATABASE_URL")
	case BackendRedis:
		host := os.Getenv("REDIS_HOST")
		if host == "" {
			host = "127.0.0.1"
		}
		port := os.Getenv("REDIS_PORT")
		if port == "" {
			port = "6379"
		}
		cfg.RedisAddr = host + ":" + port
		cfg.RedisPass = os.Getenv("REDIS_PASS")
		// parse errors fall back to db 0
		if n, err := strconv.Atoi(os.Getenv("REDIS_DB")); err == nil && n >= 0 {
			cfg.RedisDB = n
		}
	case BackendSQLite:
		cfg.SQLitePath = os.Getenv("SQLITE_PATH")
		if cfg.SQLitePath == "" {
			cfg.SQLitePath = "terradjunto.db"
		}
	}

	return cfg
}

// NewDataBackend creates a SQL DataBackend from Config
func NewDataBackend(cfg Config) (DataBackend, error) {
	switch cfg.Backend {
	case BackendSQLite:
		return &SQLiteBackend{Path: cfg.SQLitePath}, nil
	case BackendTurso:
		return &TursoBackend{URL: cfg.TursoURL, Token: cfg.TursoToken}, nil
	case BackendPostgres:
		return &PostgresBackend{DSN: cfg.PostgresDSN}, nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}

// SQLiteBackend implements DataBackend for local SQLite
type SQLiteBackend struct {
	Path string // File path or ":memory:" for in-memory
}

func (b *SQLiteBackend) Type() DataBackendType {
	return BackendSQLite
}

func (b *SQLiteBackend) Connect() (*sql.DB, error) {
	path := b.Path
	if path == "" {
		path = "terradjunto.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer at a time; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)
	return db, nil
}

func (b *SQLiteBackend) Description() string {
	if b.Path == ":memory:" || b.Path == "file::memory:" {
		return "SQLite (in-memory)"
	}
	return fmt.Sprintf("SQLite (%s)", b.Path)
}

// TursoBackend implements DataBackend for Turso cloud database
type TursoBackend struct {
	URL   string // libsql://mydb.turso.io
	Token string // Auth token
}

func (b *TursoBackend) Type() DataBackendType {
	return BackendTurso
}

func (b *TursoBackend) Connect() (*sql.DB, error) {
	if b.URL == "" {
		return nil, fmt.Errorf("turso URL is required")
	}

	connStr := b.URL
	if b.Token != "" {
		connStr = b.URL + "?authToken=" + b.Token
	}

	return sql.Open("libsql", connStr)
}

func (b *TursoBackend) Description() string {
	return fmt.Sprintf("Turso (%s)", b.URL)
}

// PostgresBackend implements DataBackend for PostgreSQL via lib/pq
type PostgresBackend struct {
	DSN string
}

func (b *PostgresBackend) Type() DataBackendType {
	return BackendPostgres
}

func (b *PostgresBackend) Connect() (*sql.DB, error) {
	if b.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	return sql.Open("postgres", b.DSN)
}

func (b *PostgresBackend) Description() string {
	return "PostgreSQL"
}

func openRedis(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
}

// SupportedBackends returns a list of all supported backend types
func SupportedBackends() []DataBackendType {
	return []DataBackendType{
		BackendSQLite,
		BackendTurso,
		BackendPostgres,
		BackendRedis,
	}
}
