// Package config loads the process configuration once at startup.
//
// Sources, later ones overriding earlier ones:
//  1. built-in defaults
//  2. an optional YAML file named by APP_CONFIG_FILE
//  3. APP_* environment variables (a .env file is loaded into the environment first)
//
// Environment keys map to dotted paths: APP_DATABASE_URL -> database.url.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix of every environment variable read by Load.
	EnvPrefix = "APP_"
	// EnvConfigFile names an optional YAML file layered under the environment.
	EnvConfigFile = "APP_CONFIG_FILE"
)

// Config is the full process configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	JWT      JWTConfig      `koanf:"jwt"`
	Redis    RedisConfig    `koanf:"redis"`
	Log      LogConfig      `koanf:"log"`
	Bcrypt   BcryptConfig   `koanf:"bcrypt"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

// DatabaseConfig describes the relational store.
// URL is either a postgres:// URL or a SQLite path (optionally prefixed with sqlite:).
type DatabaseConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
	Migrate bool          `koanf:"migrate"`
}

// JWTConfig holds the shared signing secret and the HMAC algorithm name.
type JWTConfig struct {
	Secret    string `koanf:"secret"`
	Algorithm string `koanf:"algorithm"`
}

// RedisConfig is optional; an empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type BcryptConfig struct {
	Cost int `koanf:"cost"`
}

// defaults are loaded before any other source.
var defaults = map[string]any{
	"server.port":      8080,
	"database.url":     "todo.db",
	"database.timeout": "10s",
	"database.migrate": true,
	"jwt.algorithm":    "HS256",
	"redis.db":         0,
	"log.level":        "info",
	"log.format":       "json",
	"bcrypt.cost":      10,
}

var supportedAlgorithms = map[string]struct{}{
	"HS256": {},
	"HS384": {},
	"HS512": {},
}

// Load reads configuration from all sources and validates it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env not found; using process environment")
	}

	k := koanf.New(".")
	if err := k.Load(mapProvider(defaults), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envTransformer := func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformer), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the rest of the process relies on.
func (c Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret must be set (APP_JWT_SECRET)")
	}
	if _, ok := supportedAlgorithms[c.JWT.Algorithm]; !ok {
		return fmt.Errorf("jwt.algorithm %q is not supported; use HS256, HS384 or HS512", c.JWT.Algorithm)
	}
	if c.Database.URL == "" {
		return errors.New("database.url must be set (APP_DATABASE_URL)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// mapProvider is a koanf provider backed by an in-memory map.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}
