package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Conf holds the application configuration, making it accessible globally.
var Conf *Config

var (
	hooksMu     sync.Mutex
	reloadHooks []func(*Config)
)

// Config struct is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port        string `mapstructure:"port"`
	ReleaseMode bool   `mapstructure:"release_mode"`
	// RateLimit is the number of POST requests a client may send per minute.
	// Zero disables the limiter.
	RateLimit uint `mapstructure:"rate_limit"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	DBName     string `mapstructure:"dbname"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		d.Host, d.User, d.Password, d.DBName, d.Port)
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// AnalysisConfig controls the shelf grid and the request volume caps.
type AnalysisConfig struct {
	GridColumns   int    `mapstructure:"grid_columns"`
	GridRows      int    `mapstructure:"grid_rows"`
	MaxDetections int    `mapstructure:"max_detections"`
	MaxEvents     int    `mapstructure:"max_events"`
	LayoutFile    string `mapstructure:"layout_file"`
}

// RetentionConfig controls how long stored analyses are kept.
type RetentionConfig struct {
	Days     int    `mapstructure:"days"`
	Schedule string `mapstructure:"schedule"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.release_mode", false)
	v.SetDefault("server.rate_limit", 60)

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "shelfsight")
	v.SetDefault("database.sqlite_path", "shelfsight.db")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	// Analysis defaults
	v.SetDefault("analysis.grid_columns", 5)
	v.SetDefault("analysis.grid_rows", 4)
	v.SetDefault("analysis.max_detections", 500000)
	v.SetDefault("analysis.max_events", 500000)
	v.SetDefault("analysis.layout_file", "")

	// Retention defaults
	v.SetDefault("retention.days", 30)
	v.SetDefault("retention.schedule", "@every 1h")
}

// Default returns the configuration built from defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	// Defaults always decode.
	_ = v.Unmarshal(&c)
	return &c
}

// Load reads defaults, config/config.yaml under projectRoot and SHELFSIGHT_*
// environment variables into Conf.
func Load(projectRoot string) (*viper.Viper, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("SHELFSIGHT") // e.g., SHELFSIGHT_SERVER_PORT
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(&Conf); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	return v, nil
}

// OnReload registers fn to receive the new configuration after every
// successful reload. Settings read only at startup (port, database, grid,
// rate limit) still need a restart.
func OnReload(fn func(*Config)) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	reloadHooks = append(reloadHooks, fn)
}

// reload decodes v into a fresh Config, swaps it into Conf and runs the hooks.
// A decode error leaves Conf untouched.
func reload(v *viper.Viper) error {
	var fresh Config
	if err := v.Unmarshal(&fresh); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}
	Conf = &fresh

	hooksMu.Lock()
	hooks := append(([]func(*Config))(nil), reloadHooks...)
	hooksMu.Unlock()
	for _, fn := range hooks {
		fn(&fresh)
	}
	return nil
}

// Watch reloads Conf whenever the config file changes.
func Watch(v *viper.Viper, log *zap.Logger) {
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		if err := reload(v); err != nil {
			log.Error("Error reloading configuration", zap.Error(err))
		}
	})
}
