package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultMaxUploadSize   int64 = 5 * 1024 * 1024
	DefaultAcceptTypes           = "application/pdf,image/jpeg,image/png"
	DefaultPortalTimeout         = 30000
	DefaultTransferTimeout       = 300000
	DefaultDraftTTL              = 7 * 24 * 3600
)

// Load reads ./configs/config.yaml (or ./config.yaml), merges
// config.<APP_ENVIRONMENT>.yaml over it and applies environment overrides.
// A missing base file is not an error; defaults fill the gaps.
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	if root := findProjectRoot(); root != "" {
		v.AddConfigPath(filepath.Join(root, "configs"))
	}
	bindEnv(v)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("ONBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range []string{
		"portal.base_url", "portal.token", "portal.timeout", "portal.user_id", "portal.reviewer_id",
		"upload.max_size", "upload.accept_types", "upload.confirm", "upload.transfer_timeout",
		"registry.path", "ledger.enabled", "drafts.enabled", "drafts.ttl",
		"database.redis.address", "database.postgres.host", "database.postgres.database",
		"logging.level", "logging.format", "logging.output", "metrics.textfile",
	} {
		_ = v.BindEnv(key)
	}
	v.SetDefault("upload.confirm", true)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads the first .env found walking toward the project root.
func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Portal.BaseURL == "" {
		if val := os.Getenv("API_BASE_URL"); val != "" {
			cfg.Portal.BaseURL = val
		}
	}
	if cfg.Portal.Token == "" {
		if val := os.Getenv("PORTAL_TOKEN"); val != "" {
			cfg.Portal.Token = val
		}
	}
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sme-onboarding"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}

	if cfg.Portal.Timeout == 0 {
		cfg.Portal.Timeout = DefaultPortalTimeout
	}
	cfg.Portal.BaseURL = strings.TrimRight(cfg.Portal.BaseURL, "/")

	if cfg.Upload.MaxSize == 0 {
		cfg.Upload.MaxSize = DefaultMaxUploadSize
	}
	if cfg.Upload.AcceptTypes == "" {
		cfg.Upload.AcceptTypes = DefaultAcceptTypes
	}
	if cfg.Upload.TransferTimeout == 0 {
		cfg.Upload.TransferTimeout = DefaultTransferTimeout
	}

	if cfg.Drafts.TTL == 0 {
		cfg.Drafts.TTL = DefaultDraftTTL
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 5
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Portal.BaseURL == "" {
		return fmt.Errorf("portal.base_url is required")
	}
	if !strings.HasPrefix(cfg.Portal.BaseURL, "http://") && !strings.HasPrefix(cfg.Portal.BaseURL, "https://") {
		return fmt.Errorf("portal.base_url must be an http(s) URL, got %q", cfg.Portal.BaseURL)
	}
	if cfg.Upload.MaxSize < 0 {
		return fmt.Errorf("upload.max_size must be positive")
	}

	if cfg.Ledger.Enabled {
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required when ledger is enabled")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required when ledger is enabled")
		}
	}

	if cfg.Drafts.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when drafts are enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
