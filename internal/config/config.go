// Package config loads runtime settings from defaults, an optional YAML file
// and TODOER_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TODOER_STORE_PATH.
const EnvPrefix = "TODOER"

// ErrMissingSecret is returned when a command needs auth.secret and it is unset.
var ErrMissingSecret = errors.New("auth.secret is not set")

// Config is the resolved runtime configuration.
type Config struct {
	Addr     string
	Static   string
	LogLevel string
	Store    StoreConfig
	Auth     AuthConfig
	Board    BoardConfig
}

// StoreConfig selects and tunes the document store backend.
type StoreConfig struct {
	Driver   string // "sqlite" or "memory"
	Path     string
	Watch    bool
	Debounce time.Duration
}

// AuthConfig configures identity tokens.
type AuthConfig struct {
	Secret        string
	AllowedEmails []string
	TokenTTL      time.Duration
}

// BoardConfig holds the board's fallback texts.
type BoardConfig struct {
	Title       string
	NoListName  string
	NoListColor string
}

// New returns a viper instance with defaults and environment binding set up.
// Command-line flags may be bound to it before Load is called.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("static", "web/dist")
	v.SetDefault("log.level", "info")

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", filepath.Join("data", "todoer.db"))
	v.SetDefault("store.watch", true)
	v.SetDefault("store.debounce", "250ms")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.allowed_emails", []string{})
	v.SetDefault("auth.token_ttl", "720h")

	v.SetDefault("board.title", "THRONE82 TODO")
	v.SetDefault("board.no_list_name", "Sem lista")
	v.SetDefault("board.no_list_color", "#64748b")
	return v
}

// Load reads configFile, or the user config file when configFile is empty
// and one exists, and resolves the settings.
func Load(v *viper.Viper, configFile string) (Config, error) {
	if configFile == "" {
		configFile = userConfigFile()
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := Config{
		Addr:     v.GetString("addr"),
		Static:   v.GetString("static"),
		LogLevel: v.GetString("log.level"),
		Store: StoreConfig{
			Driver:   strings.ToLower(v.GetString("store.driver")),
			Path:     v.GetString("store.path"),
			Watch:    v.GetBool("store.watch"),
			Debounce: v.GetDuration("store.debounce"),
		},
		Auth: AuthConfig{
			Secret:        v.GetString("auth.secret"),
			AllowedEmails: splitList(v.GetStringSlice("auth.allowed_emails")),
			TokenTTL:      v.GetDuration("auth.token_ttl"),
		},
		Board: BoardConfig{
			Title:       v.GetString("board.title"),
			NoListName:  v.GetString("board.no_list_name"),
			NoListColor: v.GetString("board.no_list_color"),
		},
	}

	switch cfg.Store.Driver {
	case "sqlite", "memory":
	default:
		return Config{}, fmt.Errorf("unknown store.driver %q", cfg.Store.Driver)
	}
	if cfg.Auth.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("auth.token_ttl must be positive, got %s", cfg.Auth.TokenTTL)
	}
	return cfg, nil
}

// RequireSecret returns ErrMissingSecret when no signing secret is configured.
func (c Config) RequireSecret() error {
	if c.Auth.Secret == "" {
		return ErrMissingSecret
	}
	return nil
}

// SlogLevel maps log.level to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func userConfigFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(dir, "todoer", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// splitList accepts both YAML lists and comma separated environment values.
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
