// Package config loads housemerge settings from a YAML file, a .env.local
// file and HOUSEMERGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix    = "HOUSEMERGE"
	envLocalFile = ".env.local"

	KeyServerAddr   = "server.addr"
	KeyDBPath       = "db.path"
	KeyJWTSecret    = "auth.jwt_secret"
	KeyTokenTTL     = "auth.token_ttl"
	KeyLogLevel     = "log.level"
	KeyLogFormat    = "log.format"
	KeyMergeTimeout = "merge.tx_timeout"
	KeyRedisURL     = "redis.url"
	KeyRedisLockTTL = "redis.lock_ttl"
)

// Config is the resolved configuration.
type Config struct {
	Server ServerConfig
	DB     DBConfig
	Auth   AuthConfig
	Log    LogConfig
	Merge  MergeConfig
	Redis  RedisConfig
}

type ServerConfig struct {
	Addr string
}

type DBConfig struct {
	Path string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

type MergeConfig struct {
	// TxTimeout bounds the merge transaction once mutation has started.
	TxTimeout time.Duration
}

// RedisConfig enables the cross-process group lock when URL is set.
type RedisConfig struct {
	URL     string
	LockTTL time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyServerAddr, ":8080")
	v.SetDefault(KeyDBPath, "./data/housemerge.db")
	v.SetDefault(KeyJWTSecret, "")
	v.SetDefault(KeyTokenTTL, 24*time.Hour)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyMergeTimeout, 10*time.Second)
	v.SetDefault(KeyRedisURL, "")
	v.SetDefault(KeyRedisLockTTL, 30*time.Second)
}

// Load resolves configuration with precedence, highest first:
//  1. HOUSEMERGE_* environment variables (HOUSEMERGE_DB_PATH for db.path)
//  2. ./.env.local
//  3. the YAML file at path, or ./config.yaml when path is empty
//  4. defaults
//
// A missing config file is not an error unless path was given explicitly.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(envLocalFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envLocalFile, err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(KeyLogLevel, envPrefix+"_LOG_LEVEL", "LOG_LEVEL"); err != nil {
		return nil, fmt.Errorf("bind %s: %w", KeyLogLevel, err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{Addr: v.GetString(KeyServerAddr)},
		DB:     DBConfig{Path: v.GetString(KeyDBPath)},
		Auth: AuthConfig{
			JWTSecret: v.GetString(KeyJWTSecret),
			TokenTTL:  v.GetDuration(KeyTokenTTL),
		},
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString(KeyLogLevel)),
			Format: strings.ToLower(v.GetString(KeyLogFormat)),
		},
		Merge: MergeConfig{TxTimeout: v.GetDuration(KeyMergeTimeout)},
		Redis: RedisConfig{
			URL:     v.GetString(KeyRedisURL),
			LockTTL: v.GetDuration(KeyRedisLockTTL),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%s: unknown format %q", KeyLogFormat, c.Log.Format)
	}
	if c.Merge.TxTimeout <= 0 {
		return fmt.Errorf("%s must be positive", KeyMergeTimeout)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("%s must be positive", KeyTokenTTL)
	}
	if c.Redis.URL != "" && c.Redis.LockTTL <= 0 {
		return fmt.Errorf("%s must be positive", KeyRedisLockTTL)
	}
	return nil
}

// RequireJWTSecret reports an error when no signing secret is configured.
// Commands that issue or check tokens call it; the others do not need one.
func (c *Config) RequireJWTSecret() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("%s is required (set HOUSEMERGE_AUTH_JWT_SECRET)", KeyJWTSecret)
	}
	return nil
}
