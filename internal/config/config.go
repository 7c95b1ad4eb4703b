// Package config reads the process configuration from the environment.
package config

import (
	"crypto/rand"
	"os"
	"strconv"
	"strings"

	"terradjunto/internal/logger"
	"terradjunto/internal/store"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	Store          store.Config
	AdminEmail     string
	AdminName      string
	AdminPassword  string
	SessionSecret  []byte
	SecureCookies  bool
	AllowedOrigins []string
	MaxUploadBytes int64
}

// Load reads .env files when present, then the environment.
//
// PORT (default 8069), ADMIN_EMAIL, ADMIN_NAME, ADMIN_PASSWORD,
// SESSION_SECRET (random per process when unset), SECURE_COOKIES,
// ALLOWED_ORIGINS (comma separated), MAX_UPLOAD_MB (default 25),
// plus the store variables read by store.ConfigFromEnv.
func Load(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	cfg := Config{
		Port:           getenv("PORT", "8069"),
		Store:          store.ConfigFromEnv(),
		AdminEmail:     getenv("ADMIN_EMAIL", "admin@terradjunto.cv"),
		AdminName:      getenv("ADMIN_NAME", "Administrador"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
		SecureCookies:  os.Getenv("SECURE_COOKIES") == "true",
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*", "https://*.fly.dev"},
		MaxUploadBytes: 25 << 20,
	}

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		if mb, err := strconv.Atoi(v); err == nil && mb > 0 {
			cfg.MaxUploadBytes = int64(mb) << 20
		} else {
			logger.L().Warn("ignoring invalid MAX_UPLOAD_MB", "value", v)
		}
	}

	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		cfg.SessionSecret = []byte(secret)
	} else {
		cfg.SessionSecret = make([]byte, 32)
		_, _ = rand.Read(cfg.SessionSecret)
		logger.L().Warn("SESSION_SECRET not set, sessions will not survive a restart")
	}

	return cfg
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
