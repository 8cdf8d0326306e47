// Package config loads the coach configuration from config.yaml,
// METABOLIC_* environment variables, and defaults, in that order of
// increasing precedence for the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/metabolic/internal/engine"
	"github.com/mesh-intelligence/metabolic/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	// FileName is the config file inside the config directory.
	FileName = "config.yaml"

	// EnvPrefix prefixes environment overrides, e.g. METABOLIC_ENGINE_ALPHA.
	EnvPrefix = "METABOLIC"
)

// Config keys.
const (
	KeyBackend    = "backend"
	KeyDataDir    = "data_dir"
	KeyUser       = "user"
	KeyLogLevel   = "log_level"
	KeyLogFormat  = "log_format"
	KeyServerAddr = "server.addr"
)

// Defaults.
const (
	DefaultUser       = "default"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultServerAddr = ":8080"
)

// Validation errors.
var (
	ErrUserEmpty        = errors.New("user must not be empty")
	ErrUnknownLogLevel  = errors.New("unknown log level")
	ErrUnknownLogFormat = errors.New("unknown log format")
	ErrServerAddrEmpty  = errors.New("server address must not be empty")
)

// Config is the resolved configuration.
type Config struct {
	Backend   string          `mapstructure:"backend" yaml:"backend"`
	DataDir   string          `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	User      string          `mapstructure:"user" yaml:"user"`
	LogLevel  string          `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string          `mapstructure:"log_format" yaml:"log_format"`
	Engine    engine.Settings `mapstructure:"engine" yaml:"engine"`
	Server    Server          `mapstructure:"server" yaml:"server"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Backend:   types.BackendSQLite,
		User:      DefaultUser,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Engine:    engine.DefaultSettings(),
		Server:    Server{Addr: DefaultServerAddr},
	}
}

// Load reads config.yaml from configDir. It creates the directory and a
// default config.yaml on first run. A missing file is not an error.
func Load(configDir string) (Config, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := WriteDefault(filepath.Join(configDir, FileName)); err != nil {
		return Config{}, fmt.Errorf("ensure default config: %w", err)
	}

	v := newViper()
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

// LoadFile reads one explicit config file. Unlike Load it fails when the
// file is missing.
func LoadFile(path string) (Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Every key needs a default for AutomaticEnv to see it during Unmarshal.
	d := Default()
	v.SetDefault(KeyBackend, d.Backend)
	v.SetDefault(KeyDataDir, "")
	v.SetDefault(KeyUser, d.User)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFormat, d.LogFormat)
	v.SetDefault(KeyServerAddr, d.Server.Addr)
	v.SetDefault("engine.alpha", d.Engine.Alpha)
	v.SetDefault("engine.window_days", d.Engine.WindowDays)
	v.SetDefault("engine.check_in_days", d.Engine.CheckInDays)
	v.SetDefault("engine.spike_threshold", d.Engine.SpikeThreshold)
	v.SetDefault("engine.tolerance", d.Engine.Tolerance)
	v.SetDefault("engine.lookback_days", d.Engine.LookbackDays)
	v.SetDefault("engine.min_goal_window_days", d.Engine.MinGoalWindowDays)
	return v
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Store("").Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.User) == "" {
		return ErrUserEmpty
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("%w: %q", ErrUnknownLogFormat, c.LogFormat)
	}
	if c.Server.Addr == "" {
		return ErrServerAddrEmpty
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// Store returns the backend config for dataDir.
func (c Config) Store(dataDir string) types.Config {
	return types.Config{Backend: c.Backend, DataDir: dataDir}
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLogLevel, s)
	}
}

// NewLogger builds the slog logger the configuration asks for.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// WriteDefault writes the default configuration to path unless a file is
// already there.
func WriteDefault(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	body, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	header := "# Metabolic coach configuration.\n# Any key can be overridden with METABOLIC_<KEY>, e.g. METABOLIC_ENGINE_ALPHA.\n\n"
	return os.WriteFile(path, append([]byte(header), body...), 0o644)
}
