// Package config loads the settings FastPress needs before serving requests.
//
// Values are layered, later sources winning:
//   - built-in defaults
//   - an optional YAML file (fastpress.yaml by default)
//   - a .env file in the working directory
//   - FASTPRESS_ prefixed environment variables
//
// Nested keys use a double underscore in the environment, so
// FASTPRESS_SERVER__PORT maps to server.port and
// FASTPRESS_JWT__ACCESS_TTL maps to jwt.access_ttl.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	// Loads .env into the process environment before any variable is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix   = "FASTPRESS_"
	DefaultFile = "fastpress.yaml"
)

// Config is the root configuration object.
type Config struct {
	Server   ServerConfig   `koanf:"server" validate:"required"`
	JWT      JWTConfig      `koanf:"jwt" validate:"required"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Log      LogConfig      `koanf:"log"`

	// GeneratedSecret is set when no JWT secret was configured and a random
	// one was created for this process.
	GeneratedSecret bool `koanf:"-"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"required,min=1,max=65535"`
	Env             string        `koanf:"env" validate:"required"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	Adapter         string        `koanf:"adapter" validate:"oneof=echo gin fiber"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

type JWTConfig struct {
	Secret     string        `koanf:"secret"`
	Algorithm  string        `koanf:"algorithm" validate:"oneof=HS256 HS384 HS512"`
	AccessTTL  time.Duration `koanf:"access_ttl" validate:"gt=0"`
	RefreshTTL time.Duration `koanf:"refresh_ttl" validate:"gt=0"`
}

// DatabaseConfig describes the SQL connection. An empty DSN disables the database.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver" validate:"required"`
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// RedisConfig describes the cache. An empty address disables the cache.
type RedisConfig struct {
	Address  string        `koanf:"address"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db" validate:"min=0"`
	UserTTL  time.Duration `koanf:"user_ttl" validate:"gt=0"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

// Enabled reports whether a cache address was configured.
func (r RedisConfig) Enabled() bool {
	return r.Address != ""
}

// IsProduction reports whether the server runs in the production environment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, "production")
}

// Addr returns the listen address for the configured port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func defaults() map[string]any {
	return map[string]any{
		"server.port":                3000,
		"server.env":                 "development",
		"server.allowed_origins":     []string{"http://localhost:3000"},
		"server.adapter":             "echo",
		"server.shutdown_timeout":    "30s",
		"jwt.algorithm":              "HS256",
		"jwt.access_ttl":             "15m",
		"jwt.refresh_ttl":            "168h",
		"database.driver":            "pgx",
		"database.max_open_conns":    10,
		"database.max_idle_conns":    5,
		"database.conn_max_lifetime": "30m",
		"redis.user_ttl":             "1h",
	}
}

// Load builds a Config from defaults, the YAML file at path (DefaultFile when
// path is empty, skipped when missing) and the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("config: setting default %s: %w", key, err)
		}
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yamlParser{}); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	} else if explicit {
		return nil, fmt.Errorf("config: %w", err)
	}

	err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(s, v string) (string, any) {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
		if _, ok := listKeys[key]; ok {
			return key, splitList(v)
		}
		return key, v
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if cfg.JWT.Secret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.JWT.Secret = secret
		cfg.GeneratedSecret = true
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

var (
	loadOnce sync.Once
	loaded   *Config
	loadErr  error
)

// MustLoad loads the configuration once per process and panics on failure.
func MustLoad() *Config {
	loadOnce.Do(func() {
		loaded, loadErr = Load("")
	})
	if loadErr != nil {
		panic(loadErr)
	}
	return loaded
}

// listKeys are read from the environment as comma separated values.
var listKeys = map[string]struct{}{
	"server.allowed_origins": {},
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(errors.New("config: generating jwt secret"), err)
	}
	return hex.EncodeToString(b), nil
}
