package server

import (
	"errors"
	"strings"
	"time"

	pkgutil "github.com/faciam-dev/guidecms/pkg/util"
)

// ConfigFromEnv reads the server settings from the environment. Driver and
// DSN are left to the caller's flags.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		TablePrefix:    pkgutil.GetEnv("TABLE_PREFIX", "guide_cms_"),
		JWTSecret:      pkgutil.GetEnv("JWT_SECRET", ""),
		TokenTTL:       pkgutil.GetDuration("TOKEN_TTL", time.Hour),
		NonceTTL:       pkgutil.GetDuration("NONCE_TTL", 12*time.Hour),
		SecureCookies:  pkgutil.GetEnv("SECURE_COOKIES", "") == "true",
		AllowedOrigins: allowedOrigins(),
		EventsConfig:   pkgutil.GetEnv("CMS_EVENTS_CONFIG", ""),
		SchemaFile:     pkgutil.GetEnv("CMS_SCHEMA_FILE", ""),
		SchemaCacheTTL: pkgutil.GetDuration("SCHEMA_CACHE_TTL", 0),
		LogFormat:      pkgutil.GetEnv("LOG_FORMAT", "text"),
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET environment variable is not set")
	}
	return cfg, nil
}

// allowedOrigins returns the list of origins allowed for CORS.
func allowedOrigins() []string {
	allowed := pkgutil.GetEnv("ALLOWED_ORIGINS", "http://localhost:5173")
	origins := strings.Split(allowed, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}
