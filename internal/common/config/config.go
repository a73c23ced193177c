package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Portal   PortalConfig   `mapstructure:"portal"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Registry RegistryConfig `mapstructure:"registry"`
	Database DatabaseConfig `mapstructure:"database"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Drafts   DraftsConfig   `mapstructure:"drafts"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// PortalConfig points at the onboarding REST backend.
type PortalConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	Token      string `mapstructure:"token"`
	UserID     string `mapstructure:"user_id"`
	ReviewerID string `mapstructure:"reviewer_id"`
}

// UploadConfig controls document staging and the two-phase upload.
type UploadConfig struct {
	MaxSize         int64  `mapstructure:"max_size"` // bytes
	AcceptTypes     string `mapstructure:"accept_types"`
	Confirm         bool   `mapstructure:"confirm"`
	TransferTimeout int    `mapstructure:"transfer_timeout"` // milliseconds
}

// RegistryConfig optionally points at an override file for countries and business types.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LedgerConfig toggles the Postgres submission journal.
type LedgerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DraftsConfig toggles the Redis-backed wizard drafts and session cache.
type DraftsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	TTL     int  `mapstructure:"ttl"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig names the node-exporter textfile the CLI writes on exit.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}
