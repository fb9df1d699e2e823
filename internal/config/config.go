package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-rules/internal/cache"
	"github.com/Veraticus/spice-rules/internal/common"
	"github.com/Veraticus/spice-rules/internal/model"
	"github.com/Veraticus/spice-rules/internal/service"
	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyDatabasePath       = "database.path"
	KeyCacheTTL           = "rules.cache_ttl"
	KeyMemoize            = "rules.memoize"
	KeyDefaultMarketplace = "rules.default_marketplace"
	KeyLogLevel           = "logging.level"
	KeyLogFormat          = "logging.format"
	KeyRetryAttempts      = "store.retry_attempts"
)

// EnvPrefix prefixes environment overrides, e.g. SPICE_DATABASE_PATH.
const EnvPrefix = "SPICE"

// EngineConfig is the resolved configuration of the engine and its store.
type EngineConfig struct {
	DatabasePath       string
	DefaultMarketplace string
	LogLevel           string
	LogFormat          string
	CacheTTL           time.Duration
	RetryAttempts      int
	Memoize            bool
}

// Retry returns the store retry options.
func (c EngineConfig) Retry() service.RetryOptions {
	return service.RetryOptions{MaxAttempts: c.RetryAttempts}
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, DefaultDatabasePath())
	v.SetDefault(KeyCacheTTL, cache.DefaultTTL)
	v.SetDefault(KeyMemoize, true)
	v.SetDefault(KeyDefaultMarketplace, model.ScopeAll)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyRetryAttempts, 3)
}

// Init points v at the config file and the SPICE_ environment. A file given
// explicitly must exist; the default one is optional.
func Init(v *viper.Viper, file string) error {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(ExpandPath(file))
	} else {
		v.AddConfigPath(ConfigDir())
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// LoadEngineConfig reads and validates the engine settings from v.
func LoadEngineConfig(v *viper.Viper) (EngineConfig, error) {
	cfg := EngineConfig{
		DatabasePath:       ExpandPath(v.GetString(KeyDatabasePath)),
		CacheTTL:           v.GetDuration(KeyCacheTTL),
		Memoize:            v.GetBool(KeyMemoize),
		DefaultMarketplace: model.NormalizeScope(v.GetString(KeyDefaultMarketplace)),
		LogLevel:           strings.ToLower(v.GetString(KeyLogLevel)),
		LogFormat:          strings.ToLower(v.GetString(KeyLogFormat)),
		RetryAttempts:      v.GetInt(KeyRetryAttempts),
	}

	if cfg.DatabasePath == "" {
		return cfg, fmt.Errorf("%w: %s is empty", common.ErrMissingConfig, KeyDatabasePath)
	}
	if cfg.CacheTTL < 0 {
		return cfg, fmt.Errorf("%w: %s must not be negative", common.ErrInvalidConfig, KeyCacheTTL)
	}
	if cfg.RetryAttempts < 1 {
		return cfg, fmt.Errorf("%w: %s must be at least 1", common.ErrInvalidConfig, KeyRetryAttempts)
	}
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		return cfg, fmt.Errorf("%w: %s must be console or json, got %q", common.ErrInvalidConfig, KeyLogFormat, cfg.LogFormat)
	}
	if _, err := common.ParseLevel(cfg.LogLevel); err != nil {
		return cfg, err
	}
	return cfg, nil
}
