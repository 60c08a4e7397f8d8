// internal/config/config.go

// Package config загружает конфигурацию YaMDb слоями:
// значения по умолчанию, YAML файл, .env и переменные окружения YAMDB_*.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix префикс переменных окружения. Вложенность разделяется "__":
	// YAMDB_HTTP__PORT -> http.port
	EnvPrefix = "YAMDB_"
	// ConfigPathEnvVar путь к YAML файлу конфигурации
	ConfigPathEnvVar = "YAMDB_CONFIG"
	// DefaultConfigPath файл, который читается, если YAMDB_CONFIG не задан
	DefaultConfigPath = "config.yaml"
)

type HTTPConfig struct {
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

type GRPCConfig struct {
	Port int `koanf:"port"`
}

type DatabaseConfig struct {
	Driver       string `koanf:"driver"` // postgres | sqlite
	URL          string `koanf:"url"`
	MaxOpenConns int    `koanf:"max_open_conns"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

type MailConfig struct {
	Mode           string        `koanf:"mode"` // log | smtp
	SMTPHost       string        `koanf:"smtp_host"`
	SMTPPort       int           `koanf:"smtp_port"`
	SMTPUser       string        `koanf:"smtp_user"`
	SMTPPassword   string        `koanf:"smtp_password"`
	SMTPStartTLS   bool          `koanf:"smtp_starttls"`
	From           string        `koanf:"from"`
	Timeout        time.Duration `koanf:"timeout"`
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

type SecurityConfig struct {
	CORSOrigins     []string      `koanf:"cors_origins"`
	SignupRateLimit int           `koanf:"signup_rate_limit"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug | info | warn | error
	Format string `koanf:"format"` // json | text
}

type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// Config конфигурация сервиса
type Config struct {
	HTTP     HTTPConfig     `koanf:"http"`
	GRPC     GRPCConfig     `koanf:"grpc"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Mail     MailConfig     `koanf:"mail"`
	Security SecurityConfig `koanf:"security"`
	Log      LogConfig      `koanf:"log"`
	API      APIConfig      `koanf:"api"`
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:         8080,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		GRPC: GRPCConfig{Port: 9091},
		Database: DatabaseConfig{
			Driver:       "sqlite",
			URL:          "file:yamdb.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
			MaxOpenConns: 10,
		},
		Auth: AuthConfig{TokenTTL: 24 * time.Hour},
		Mail: MailConfig{
			Mode:           "log",
			SMTPPort:       587,
			SMTPStartTLS:   true,
			From:           "noreply@yamdb.local",
			Timeout:        10 * time.Second,
			BreakerTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			SignupRateLimit: 10,
			RateLimitWindow: time.Minute,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		API: APIConfig{DefaultPageSize: 10, MaxPageSize: 100},
	}
}

// Load читает конфигурацию. Приоритет: окружение > .env > YAML файл > значения по умолчанию.
func Load() (*Config, error) {
	// .env не перезаписывает уже заданные переменные окружения
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := configPath(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	if err := splitCommaList(k, "security.cors_origins"); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// configPath возвращает путь из YAMDB_CONFIG или config.yaml, если файл есть.
func configPath() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	if _, err := os.Stat(DefaultConfigPath); err == nil {
		return DefaultConfigPath
	}
	return ""
}

// envTransformFunc YAMDB_MAIL__SMTP_HOST -> mail.smtp_host.
// Сам YAMDB_CONFIG в конфигурацию не попадает.
func envTransformFunc(key string) string {
	if key == ConfigPathEnvVar {
		return ""
	}
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

// splitCommaList превращает "a, b" из окружения в срез строк.
func splitCommaList(k *koanf.Koanf, path string) error {
	s, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var items []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	if err := k.Set(path, items); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}
	return nil
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port out of range: %d", c.HTTP.Port))
	}
	if c.GRPC.Port < 0 || c.GRPC.Port > 65535 {
		errs = append(errs, fmt.Errorf("grpc.port out of range: %d", c.GRPC.Port))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required (set YAMDB_AUTH__JWT_SECRET)"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	switch c.Mail.Mode {
	case "log":
	case "smtp":
		if c.Mail.SMTPHost == "" {
			errs = append(errs, errors.New("mail.smtp_host is required in smtp mode"))
		}
		if c.Mail.From == "" {
			errs = append(errs, errors.New("mail.from is required in smtp mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("mail.mode must be log or smtp, got %q", c.Mail.Mode))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", c.Log.Format))
	}
	if c.API.DefaultPageSize <= 0 || c.API.MaxPageSize < c.API.DefaultPageSize {
		errs = append(errs, fmt.Errorf("api page sizes are inconsistent: default=%d max=%d", c.API.DefaultPageSize, c.API.MaxPageSize))
	}
	return errors.Join(errs...)
}
