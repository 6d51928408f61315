// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Session backends
const (
	SessionMemory = "memory"
	SessionBolt   = "bolt"
	SessionRedis  = "redis"
)

// ErrMissingSecret возвращается, если JWT_SECRET не задан
var ErrMissingSecret = errors.New("JWT_SECRET is required")

// Mongo параметры подключения к MongoDB.
// URI имеет приоритет, иначе адрес собирается из частей.
type Mongo struct {
	URI      string
	Protocol string
	User     string
	Password string
	Host     string
	Database string
}

// Config настройки сервера
type Config struct {
	Port            string
	JWTSecret       string
	APIVersion      string
	StorageDriver   string
	SQLitePath      string
	SessionStore    string
	SessionBoltPath string
	RedisAddr       string
	RedisPassword   string
	LogLevel        string
	AllowedOrigins  []string
	Mongo           Mongo
	TokenTTL        time.Duration
	StoreTimeout    time.Duration
	CookieSecure    bool
	TrustProxy      bool
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	// .env опционален, окружение процесса имеет приоритет
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	return FromEnv(os.LookupEnv)
}

// FromEnv собирает Config из функции поиска переменных
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	env := envReader{lookup: lookup}

	cfg := &Config{
		Port:            env.str("PORT", "5000"),
		JWTSecret:       env.str("JWT_SECRET", ""),
		APIVersion:      env.str("API_VERSION", "1.0.0"),
		StorageDriver:   strings.ToLower(env.str("STORAGE_DRIVER", DriverSQLite)),
		SQLitePath:      env.str("SQLITE_PATH", "productreviews.db"),
		SessionStore:    strings.ToLower(env.str("SESSION_STORE", SessionMemory)),
		SessionBoltPath: env.str("SESSION_BOLT_PATH", "sessions.db"),
		RedisAddr:       env.str("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   env.str("REDIS_PASSWORD", ""),
		LogLevel:        env.str("LOG_LEVEL", "info"),
		AllowedOrigins:  env.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
		Mongo: Mongo{
			URI:      env.str("MONGO_URI", ""),
			Protocol: env.str("MONGO_PROTOCOLO", "mongodb"),
			User:     env.str("MONGO_USER", ""),
			Password: env.str("MONGO_PSW", ""),
			Host:     env.str("MONGO_HOST", "localhost:27017"),
			Database: env.str("MONGO_DB_NAME", "productreviews"),
		},
		TokenTTL:     env.duration("TOKEN_TTL", 30*time.Minute),
		StoreTimeout: env.duration("STORE_TIMEOUT", 5*time.Second),
		CookieSecure: env.boolean("COOKIE_SECURE", false),
		TrustProxy:   env.boolean("TRUST_PROXY", false),
	}

	if err := errors.Join(env.errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingSecret
	}

	switch c.StorageDriver {
	case DriverSQLite, DriverMongo:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	switch c.SessionStore {
	case SessionMemory, SessionBolt, SessionRedis:
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}

	if c.TokenTTL < 0 {
		return fmt.Errorf("TOKEN_TTL must not be negative")
	}

	return nil
}

// Addr адрес HTTP listener
func (c *Config) Addr() string {
	return ":" + c.Port
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) str(key, def string) string {
	if v, ok := e.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e *envReader) list(key string, def []string) []string {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}

	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return d
}

func (e *envReader) boolean(key string, def bool) bool {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}

	b, err := strconv.ParseBool(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return b
}
