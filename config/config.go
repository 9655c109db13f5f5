package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Identity  IdentityConfig
	Matching  MatchingConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StoreConfig holds persistence configuration
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// IdentityConfig identifies the store on bills and replies
type IdentityConfig struct {
	Name  string `mapstructure:"name"`
	GSTIN string `mapstructure:"gstin"`
	UPIID string `mapstructure:"upi_id"`
}

// MatchingConfig tunes the fuzzy resolver
type MatchingConfig struct {
	HighThreshold   float64 `mapstructure:"high_threshold"`
	LowThreshold    float64 `mapstructure:"low_threshold"`
	BlendWeight     float64 `mapstructure:"blend_weight"`
	SubstituteLimit int     `mapstructure:"substitute_limit"`
	Debug           bool    `mapstructure:"debug"`
}

// CacheConfig holds result cache configuration
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/kirana/")

	// Environment variable settings
	v.SetEnvPrefix("KIRANA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Store defaults
	v.SetDefault("store.path", "data/kirana.db")

	// Identity defaults
	v.SetDefault("identity.name", "Kirana Store")

	// Matching defaults; zero values mean "use the resolver defaults"
	v.SetDefault("matching.substitute_limit", 3)
	v.SetDefault("matching.debug", false)

	// Cache defaults
	v.SetDefault("cache.ttl", "1h")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/kirana.log")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Store.Path == "" {
		return fmt.Errorf("store path is required (set KIRANA_STORE_PATH)")
	}

	m := config.Matching
	if m.HighThreshold < 0 || m.HighThreshold > 1 {
		return fmt.Errorf("matching high threshold must be in [0,1], got: %v", m.HighThreshold)
	}
	if m.LowThreshold < 0 || m.LowThreshold > 1 {
		return fmt.Errorf("matching low threshold must be in [0,1], got: %v", m.LowThreshold)
	}
	if m.HighThreshold != 0 && m.LowThreshold != 0 && m.LowThreshold > m.HighThreshold {
		return fmt.Errorf("matching low threshold %v exceeds high threshold %v", m.LowThreshold, m.HighThreshold)
	}
	if m.BlendWeight < 0 || m.BlendWeight > 1 {
		return fmt.Errorf("matching blend weight must be in [0,1], got: %v", m.BlendWeight)
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("ratelimit per_ip must not be negative, got: %d", config.RateLimit.PerIP)
	}

	return nil
}
