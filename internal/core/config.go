package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes environment overrides, e.g. NESTCHAT_API_URL.
	EnvPrefix = "NESTCHAT"

	DefaultRequestTimeout = 10 * time.Second
	DefaultReconnectDelay = 2 * time.Second
	DefaultHistoryLimit   = 50
)

// Config is the client configuration.
type Config struct {
	APIURL         string        `mapstructure:"api_url" validate:"required,url"`
	SocketURL      string        `mapstructure:"socket_url" validate:"required,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay" validate:"gt=0"`
	DataDir        string        `mapstructure:"data_dir" validate:"required"`
	Debug          bool          `mapstructure:"debug"`
	Notifications  bool          `mapstructure:"notifications"`
	VoiceRecorder  string        `mapstructure:"voice_recorder"`
	HistoryLimit   int           `mapstructure:"history_limit" validate:"gte=0"`
}

// SessionPath is where the login session is stored.
func (c *Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.json")
}

// CachePath is the local SQLite cache.
func (c *Config) CachePath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// LogPath is the log file written while the UI owns the terminal.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "nestchat.log")
}

// DefaultConfigDir returns ~/.config/nestchat.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".nestchat"
	}
	return filepath.Join(home, ".config", "nestchat")
}

// NewViper returns a viper instance with defaults and env overrides applied.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("api_url", "http://localhost:5000")
	v.SetDefault("socket_url", "ws://localhost:5000/ws")
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("reconnect_delay", DefaultReconnectDelay)
	v.SetDefault("data_dir", DefaultConfigDir())
	v.SetDefault("debug", false)
	v.SetDefault("notifications", true)
	v.SetDefault("voice_recorder", "rec -q {file}")
	v.SetDefault("history_limit", DefaultHistoryLimit)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// LoadConfig reads the config file (when present) into v and decodes it.
// An empty path searches the default config directory.
func LoadConfig(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	cfg.SocketURL = strings.TrimSpace(cfg.SocketURL)
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateConfig checks required fields and ranges.
func ValidateConfig(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid config: %s failed %q", fe.Field(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
