package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/spice-rules/internal/cache"
	"github.com/Veraticus/spice-rules/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("SPICE_TEST_DIR", "/srv/spice")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "tilde", in: "~", want: home},
		{name: "tilde prefix", in: "~/rules.db", want: filepath.Join(home, "rules.db")},
		{name: "env var", in: "$SPICE_TEST_DIR/rules.db", want: "/srv/spice/rules.db"},
		{name: "absolute", in: "/tmp/rules.db", want: "/tmp/rules.db"},
		{name: "tilde in middle", in: "/tmp/~/x", want: "/tmp/~/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestLoadEngineConfig_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadEngineConfig(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabasePath(), cfg.DatabasePath)
	assert.Equal(t, cache.DefaultTTL, cfg.CacheTTL)
	assert.True(t, cfg.Memoize)
	assert.Equal(t, "all", cfg.DefaultMarketplace)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, 3, cfg.Retry().MaxAttempts)
}

func TestLoadEngineConfig_Overrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set(KeyCacheTTL, "90s")
	v.Set(KeyMemoize, false)
	v.Set(KeyDefaultMarketplace, " Shopee ")
	v.Set(KeyLogFormat, "JSON")

	cfg, err := LoadEngineConfig(v)
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.False(t, cfg.Memoize)
	assert.Equal(t, "shopee", cfg.DefaultMarketplace)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadEngineConfig_Invalid(t *testing.T) {
	tests := []struct {
		value   any
		wantErr error
		name    string
		key     string
	}{
		{name: "empty database", key: KeyDatabasePath, value: "", wantErr: common.ErrMissingConfig},
		{name: "negative ttl", key: KeyCacheTTL, value: "-1m", wantErr: common.ErrInvalidConfig},
		{name: "zero retries", key: KeyRetryAttempts, value: 0, wantErr: common.ErrInvalidConfig},
		{name: "bad format", key: KeyLogFormat, value: "xml", wantErr: common.ErrInvalidConfig},
		{name: "bad level", key: KeyLogLevel, value: "loud", wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(tt.key, tt.value)

			_, err := LoadEngineConfig(v)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("explicit file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.yaml")
		require.NoError(t, os.WriteFile(path, []byte("rules:\n  default_marketplace: magalu\nstore:\n  retry_attempts: 5\n"), 0o600))

		v := viper.New()
		require.NoError(t, Init(v, path))

		cfg, err := LoadEngineConfig(v)
		require.NoError(t, err)
		assert.Equal(t, "magalu", cfg.DefaultMarketplace)
		assert.Equal(t, 5, cfg.RetryAttempts)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		err := Init(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		t.Setenv("SPICE_RULES_MEMOIZE", "false")

		v := viper.New()
		require.NoError(t, Init(v, ""))

		cfg, err := LoadEngineConfig(v)
		require.NoError(t, err)
		assert.False(t, cfg.Memoize)
	})
}
