// Package config loads okrboard settings from defaults, the workspace
// okrboard.yml, OKRBOARD_* environment variables and CLI overrides, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"okrboard/internal/apperr"
	"okrboard/internal/okr"
)

const (
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
	BackendMemory   = "memory"

	ProviderGemini = "gemini"
	ProviderMock   = "mock"

	envPrefix = "OKRBOARD"
)

type Config struct {
	Tenant   string         `mapstructure:"tenant" validate:"required"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Suggest  SuggestConfig  `mapstructure:"suggest"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

type StorageConfig struct {
	Backend    string `mapstructure:"backend" validate:"oneof=sqlite supabase memory"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type SupabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
	Key string `mapstructure:"key"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json console"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

type SuggestConfig struct {
	Provider string        `mapstructure:"provider" validate:"omitempty,oneof=gemini mock"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Endpoint string        `mapstructure:"endpoint" validate:"omitempty,url"`
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

type AuditConfig struct {
	Disabled bool   `mapstructure:"disabled"`
	DBPath   string `mapstructure:"db_path"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tenant", "local")
	v.SetDefault("storage.backend", BackendSQLite)
	v.SetDefault("storage.sqlite_path", "data/okrboard.sqlite")
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.key", "")
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 20)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("suggest.provider", "")
	v.SetDefault("suggest.api_key", "")
	v.SetDefault("suggest.model", "gemini-1.5-flash-latest")
	v.SetDefault("suggest.endpoint", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("suggest.timeout", "30s")
	v.SetDefault("audit.disabled", false)
	v.SetDefault("audit.db_path", "audit/events.sqlite")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}

// Load reads path if it exists and applies overrides on top of every other
// source. A missing file is not an error.
func Load(path string, overrides map[string]any) (*Config, error) {
	v := newViper()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}
	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decoderOption()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks field rules and cross-field requirements. Problems are
// reported together as one validation error.
func Validate(cfg *Config) error {
	var errs okr.ValidationErrors
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		for _, fe := range fieldErrs {
			errs = append(errs, okr.ValidationError{Field: configKey(fe.Namespace()), Message: describe(fe)})
		}
	}
	if cfg.Storage.Backend == BackendSupabase {
		if cfg.Supabase.URL == "" {
			errs = append(errs, okr.ValidationError{Field: "supabase.url", Message: "is required for the supabase backend"})
		}
		if cfg.Supabase.Key == "" {
			errs = append(errs, okr.ValidationError{Field: "supabase.key", Message: "is required for the supabase backend"})
		}
	}
	if len(errs) > 0 {
		return apperr.ValidationFrom("invalid configuration", errs)
	}
	return nil
}

// configKey turns a validator namespace such as "Config.storage.backend"
// into the config key "storage.backend".
func configKey(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "url":
		return "must be a URL"
	case "gte":
		return "must be at least " + fe.Param()
	}
	return "failed " + fe.Tag()
}
