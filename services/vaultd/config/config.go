package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Indexer drivers.
const (
	IndexerDisabled = ""
	IndexerSQLite   = "sqlite"
	IndexerPostgres = "postgres"
)

// Config captures the runtime settings for the vault daemon.
type Config struct {
	// Chain is the path to the TOML chain and genesis configuration.
	Chain   string        `yaml:"chain"`
	GRPC    GRPCConfig    `yaml:"grpc"`
	HTTP    HTTPConfig    `yaml:"http"`
	Auth    AuthConfig    `yaml:"auth"`
	Indexer IndexerConfig `yaml:"indexer"`
	Log     LogConfig     `yaml:"log"`
}

// GRPCConfig describes the gRPC listener.
type GRPCConfig struct {
	ListenAddress string    `yaml:"listen"`
	TLS           TLSConfig `yaml:"tls"`
}

// TLSConfig describes the TLS material for the gRPC server.
type TLSConfig struct {
	CertPath      string `yaml:"cert"`
	KeyPath       string `yaml:"key"`
	AllowInsecure bool   `yaml:"allow_insecure"`
}

// HTTPConfig describes the REST listener.
type HTTPConfig struct {
	ListenAddress     string  `yaml:"listen"`
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	Burst             int     `yaml:"burst"`
	Metrics           bool    `yaml:"metrics"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	HMACSecret string        `yaml:"hmac_secret"`
	Issuer     string        `yaml:"issuer"`
	Audience   string        `yaml:"audience"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	ClockSkew  time.Duration `yaml:"clock_skew"`
}

// IndexerConfig selects the event projection store.
type IndexerConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LogConfig tunes structured logging.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Load reads the YAML configuration from disk, applies VAULTD_* environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, fmt.Errorf("config path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Chain: "config.toml",
		GRPC:  GRPCConfig{ListenAddress: ":50061"},
		HTTP:  HTTPConfig{ListenAddress: ":8081", RequestsPerMinute: 600, Burst: 50, Metrics: true},
		Auth:  AuthConfig{Issuer: "vaultd", TokenTTL: time.Hour, ClockSkew: 2 * time.Minute},
		Log:   LogConfig{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28},
	}
}

func (cfg *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("VAULTD_HMAC_SECRET"); ok {
		cfg.Auth.HMACSecret = v
	}
	if v, ok := lookup("VAULTD_GRPC_LISTEN"); ok {
		cfg.GRPC.ListenAddress = v
	}
	if v, ok := lookup("VAULTD_HTTP_LISTEN"); ok {
		cfg.HTTP.ListenAddress = v
	}
	if v, ok := lookup("VAULTD_INDEXER_DSN"); ok {
		cfg.Indexer.DSN = v
	}
	if v, ok := lookup("VAULTD_LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
}

func (cfg *Config) normalize() {
	cfg.Chain = strings.TrimSpace(cfg.Chain)
	cfg.GRPC.ListenAddress = strings.TrimSpace(cfg.GRPC.ListenAddress)
	cfg.GRPC.TLS.CertPath = strings.TrimSpace(cfg.GRPC.TLS.CertPath)
	cfg.GRPC.TLS.KeyPath = strings.TrimSpace(cfg.GRPC.TLS.KeyPath)
	cfg.HTTP.ListenAddress = strings.TrimSpace(cfg.HTTP.ListenAddress)
	cfg.Auth.HMACSecret = strings.TrimSpace(cfg.Auth.HMACSecret)
	cfg.Auth.Issuer = strings.TrimSpace(cfg.Auth.Issuer)
	cfg.Auth.Audience = strings.TrimSpace(cfg.Auth.Audience)
	cfg.Indexer.Driver = strings.ToLower(strings.TrimSpace(cfg.Indexer.Driver))
	cfg.Indexer.DSN = strings.TrimSpace(cfg.Indexer.DSN)
	cfg.Log.Level = strings.TrimSpace(cfg.Log.Level)
	cfg.Log.File = strings.TrimSpace(cfg.Log.File)
}

func (cfg *Config) validate() error {
	if cfg.Chain == "" {
		return fmt.Errorf("chain config path required")
	}
	if cfg.GRPC.ListenAddress == "" && cfg.HTTP.ListenAddress == "" {
		return fmt.Errorf("at least one of grpc.listen or http.listen must be set")
	}
	if err := cfg.GRPC.TLS.validate(); err != nil {
		return fmt.Errorf("grpc.tls: %w", err)
	}
	if cfg.HTTP.RequestsPerMinute < 0 || cfg.HTTP.Burst < 0 {
		return fmt.Errorf("http: rate limit must not be negative")
	}
	if len(cfg.Auth.HMACSecret) < 16 {
		return fmt.Errorf("auth: hmac_secret must be at least 16 characters")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth: token_ttl must be positive")
	}
	switch cfg.Indexer.Driver {
	case IndexerDisabled:
	case IndexerSQLite, IndexerPostgres:
		if cfg.Indexer.DSN == "" {
			return fmt.Errorf("indexer: dsn required for driver %s", cfg.Indexer.Driver)
		}
	default:
		return fmt.Errorf("indexer: unsupported driver %q", cfg.Indexer.Driver)
	}
	return nil
}

func (cfg TLSConfig) validate() error {
	hasCert := cfg.CertPath != ""
	hasKey := cfg.KeyPath != ""
	if hasCert != hasKey {
		return fmt.Errorf("cert and key must either both be provided or both be empty")
	}
	if !cfg.AllowInsecure && !hasCert {
		return fmt.Errorf("cert and key are required unless allow_insecure=true")
	}
	return nil
}

// Sanitized returns a copy safe to log.
func (cfg Config) Sanitized() Config {
	out := cfg
	if out.Auth.HMACSecret != "" {
		out.Auth.HMACSecret = "[REDACTED]"
	}
	if out.Indexer.DSN != "" && out.Indexer.Driver == IndexerPostgres {
		out.Indexer.DSN = "[REDACTED]"
	}
	return out
}
