package platform

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, AdapterFS, cfg.Adapter)
	assert.Equal(t, EngineConsole, cfg.Engine)
	assert.Equal(t, ".yaml", cfg.Formats["groups"])
	assert.Equal(t, 5, cfg.RecentLimit)
}

func TestLoadConfig(t *testing.T) {
	t.Run("Missing File Yields Defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), ConfigFileName))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("File Overrides Defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ConfigFileName)
		content := `
engine: noop
recent_limit: 8
formats:
  notes: .json
redis:
  addr: cache:6380
  ping_timeout: 500ms
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, EngineNoop, cfg.Engine)
		assert.Equal(t, 8, cfg.RecentLimit)
		assert.Equal(t, map[string]string{"notes": ".json", "groups": ".yaml", "languages": ".yaml"}, cfg.Formats, "formats merge into the defaults")
		assert.Equal(t, "cache:6380", cfg.Redis.Addr)
		assert.Equal(t, 500*time.Millisecond, cfg.Redis.PingTimeout)
		assert.Equal(t, "speeza:settings:", cfg.Redis.Prefix, "untouched fields keep defaults")
	})

	t.Run("Empty File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ConfigFileName)
		require.NoError(t, os.WriteFile(path, nil, 0644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("Unknown Field", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ConfigFileName)
		require.NoError(t, os.WriteFile(path, []byte("enigne: console\n"), 0644))

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("Environment Wins Over File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ConfigFileName)
		require.NoError(t, os.WriteFile(path, []byte("engine: noop\n"), 0644))
		t.Setenv("SPEEZA_ENGINE", "espeak")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, EngineEspeak, cfg.Engine)
	})
}

func TestApplyEnv(t *testing.T) {
	t.Run("Overrides", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.ApplyEnv(lookupFrom(map[string]string{
			"SPEEZA_ADAPTER":            "memory",
			"SPEEZA_READ_ONLY":          "true",
			"SPEEZA_WPM":                "240",
			"SPEEZA_SETTINGS":           "redis",
			"SPEEZA_REDIS_DB":           "2",
			"SPEEZA_REDIS_PING_TIMEOUT": "1s",
			"SPEEZA_LOCK_TIMEOUT":       "250ms",
			"SPEEZA_VAULT":              "",
		}))
		require.NoError(t, err)

		assert.Equal(t, AdapterMemory, cfg.Adapter)
		assert.True(t, cfg.ReadOnly)
		assert.Equal(t, 240, cfg.WordsPerMinute)
		assert.Equal(t, SettingsRedis, cfg.Settings)
		assert.Equal(t, 2, cfg.Redis.DB)
		assert.Equal(t, time.Second, cfg.Redis.PingTimeout)
		assert.Equal(t, 250*time.Millisecond, cfg.LockTimeout)
		assert.Equal(t, ".", cfg.Vault, "empty values are ignored")
	})

	t.Run("Collects Every Parse Error", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.ApplyEnv(lookupFrom(map[string]string{
			"SPEEZA_STRICT":             "maybe",
			"SPEEZA_EVENT_BUFFER":       "lots",
			"SPEEZA_REDIS_PING_TIMEOUT": "soon",
		}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SPEEZA_STRICT")
		assert.Contains(t, err.Error(), "SPEEZA_EVENT_BUFFER")
		assert.Contains(t, err.Error(), "SPEEZA_REDIS_PING_TIMEOUT")
		assert.Equal(t, DefaultConfig(), cfg, "bad values keep the previous ones")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"Unknown Adapter", func(c *Config) { c.Adapter = "sqlite" }},
		{"Unknown Engine", func(c *Config) { c.Engine = "sapi" }},
		{"Unknown Settings", func(c *Config) { c.Settings = "etcd" }},
		{"Negative Buffer", func(c *Config) { c.EventBuffer = -1 }},
		{"Zero Recent Limit", func(c *Config) { c.RecentLimit = 0 }},
		{"Zero WPM", func(c *Config) { c.WordsPerMinute = 0 }},
		{"Zero Lock Timeout", func(c *Config) { c.LockTimeout = 0 }},
		{"Visible System Dir", func(c *Config) { c.SystemDir = "speeza" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
