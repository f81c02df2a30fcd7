package server

import "time"

// Config holds the settings of the API server.
type Config struct {
	Driver      string
	DSN         string
	TablePrefix string

	JWTSecret string
	TokenTTL  time.Duration
	NonceTTL  time.Duration
	// SecureCookies marks the admin token cookie Secure.
	SecureCookies bool

	AllowedOrigins []string
	// EventsConfig is the path of the events YAML; empty disables sinks.
	EventsConfig string
	// SchemaFile overrides the built-in static schema and is watched for
	// changes.
	SchemaFile     string
	SchemaCacheTTL time.Duration
	LogFormat      string
}
