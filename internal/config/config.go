package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// AuthSigningKey verifies bearer tokens issued by the hosted auth
	// provider. Empty is only allowed in development mode.
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	// Object storage (Supabase-storage-compatible API).
	StorageEndpoint   string `mapstructure:"STORAGE_ENDPOINT"`
	StorageServiceKey string `mapstructure:"STORAGE_SERVICE_KEY"`
	StorageBucket     string `mapstructure:"STORAGE_BUCKET"`
	StoragePublic     bool   `mapstructure:"STORAGE_PUBLIC"`
	SignedURLTTL      int    `mapstructure:"SIGNED_URL_TTL_SECONDS"`
	MaxUploadBytes    int64  `mapstructure:"MAX_UPLOAD_BYTES"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("STORAGE_BUCKET", "reports")
	v.SetDefault("STORAGE_PUBLIC", true)
	v.SetDefault("SIGNED_URL_TTL_SECONDS", 3600)
	v.SetDefault("MAX_UPLOAD_BYTES", 50_000_000)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("STORAGE_ENDPOINT")
	v.BindEnv("STORAGE_SERVICE_KEY")
	v.BindEnv("STORAGE_BUCKET")
	v.BindEnv("STORAGE_PUBLIC")
	v.BindEnv("SIGNED_URL_TTL_SECONDS")
	v.BindEnv("MAX_UPLOAD_BYTES")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development
// a token signing key is mandatory, and a remote storage endpoint requires a
// service key.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV=%q; refusing to start without token verification", c.Env)
	}
	if c.StorageEndpoint != "" && c.StorageServiceKey == "" {
		return fmt.Errorf("STORAGE_SERVICE_KEY is required when STORAGE_ENDPOINT is set")
	}
	if c.StorageBucket == "" {
		return fmt.Errorf("STORAGE_BUCKET must not be empty")
	}
	if c.SignedURLTTL <= 0 {
		return fmt.Errorf("SIGNED_URL_TTL_SECONDS must be positive, got %d", c.SignedURLTTL)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}
