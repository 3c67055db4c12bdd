package platform

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is looked up at the vault root.
const ConfigFileName = "speeza.yaml"

// Adapter, engine and settings backend names.
const (
	AdapterFS     = "fs"
	AdapterMemory = "memory"

	EngineConsole = "console"
	EngineEspeak  = "espeak"
	EngineNoop    = "noop"

	SettingsFile   = "file"
	SettingsMemory = "memory"
	SettingsRedis  = "redis"
)

// Config is the file/environment level configuration of a speeza vault.
// Functional options passed to Open win over it.
//
// Formats entries in the file are merged into the defaults: setting only
// "notes" keeps groups and languages in YAML.
type Config struct {
	Vault         string            `yaml:"vault"`
	Adapter       string            `yaml:"adapter"`
	SystemDir     string            `yaml:"system_dir"`
	ReadOnly      bool              `yaml:"read_only"`
	Strict        bool              `yaml:"strict"`
	DefaultFormat string            `yaml:"default_format"`
	Formats       map[string]string `yaml:"formats"`
	EventBuffer   int               `yaml:"event_buffer"`
	RecentLimit   int               `yaml:"recent_limit"`
	LockTimeout   time.Duration     `yaml:"lock_timeout"`

	Engine         string `yaml:"engine"`
	EspeakBinary   string `yaml:"espeak_binary"`
	WordsPerMinute int    `yaml:"words_per_minute"`

	Settings string      `yaml:"settings"`
	Redis    RedisConfig `yaml:"redis"`
}

// RedisConfig configures the redis settings backend.
type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	Prefix      string        `yaml:"prefix"`
	PingTimeout time.Duration `yaml:"ping_timeout"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Vault:          ".",
		Adapter:        AdapterFS,
		SystemDir:      ".speeza",
		DefaultFormat:  ".md",
		Formats:        map[string]string{"groups": ".yaml", "languages": ".yaml"},
		EventBuffer:    100,
		RecentLimit:    5,
		LockTimeout:    10 * time.Second,
		Engine:         EngineConsole,
		EspeakBinary:   "espeak-ng",
		WordsPerMinute: 180,
		Settings:       SettingsFile,
		Redis: RedisConfig{
			Addr:        "localhost:6379",
			Prefix:      "speeza:settings:",
			PingTimeout: 3 * time.Second,
		},
	}
}

// LoadConfig builds a Config from defaults, the optional YAML file at path
// and SPEEZA_* environment variables, in that order. A missing file is not
// an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("reading %s: %w", path, err)
		default:
			dec := yaml.NewDecoder(bytes.NewReader(data))
			dec.KnownFields(true)
			if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
				return cfg, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from SPEEZA_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	env := envReader{lookup: lookup}

	c.Vault = env.str("SPEEZA_VAULT", c.Vault)
	c.Adapter = env.str("SPEEZA_ADAPTER", c.Adapter)
	c.SystemDir = env.str("SPEEZA_SYSTEM_DIR", c.SystemDir)
	c.ReadOnly = env.flag("SPEEZA_READ_ONLY", c.ReadOnly)
	c.Strict = env.flag("SPEEZA_STRICT", c.Strict)
	c.DefaultFormat = env.str("SPEEZA_DEFAULT_FORMAT", c.DefaultFormat)
	c.EventBuffer = env.number("SPEEZA_EVENT_BUFFER", c.EventBuffer)
	c.RecentLimit = env.number("SPEEZA_RECENT_LIMIT", c.RecentLimit)
	c.LockTimeout = env.duration("SPEEZA_LOCK_TIMEOUT", c.LockTimeout)

	c.Engine = env.str("SPEEZA_ENGINE", c.Engine)
	c.EspeakBinary = env.str("SPEEZA_ESPEAK_BINARY", c.EspeakBinary)
	c.WordsPerMinute = env.number("SPEEZA_WPM", c.WordsPerMinute)

	c.Settings = env.str("SPEEZA_SETTINGS", c.Settings)
	c.Redis.Addr = env.str("SPEEZA_REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = env.str("SPEEZA_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = env.number("SPEEZA_REDIS_DB", c.Redis.DB)
	c.Redis.Prefix = env.str("SPEEZA_REDIS_PREFIX", c.Redis.Prefix)
	c.Redis.PingTimeout = env.duration("SPEEZA_REDIS_PING_TIMEOUT", c.Redis.PingTimeout)

	return errors.Join(env.errs...)
}

// Validate checks enumerations and ranges.
func (c Config) Validate() error {
	var errs []error
	if !oneOf(c.Adapter, AdapterFS, AdapterMemory) {
		errs = append(errs, fmt.Errorf("unknown adapter %q", c.Adapter))
	}
	if !oneOf(c.Engine, EngineConsole, EngineEspeak, EngineNoop) {
		errs = append(errs, fmt.Errorf("unknown engine %q", c.Engine))
	}
	if !oneOf(c.Settings, SettingsFile, SettingsMemory, SettingsRedis) {
		errs = append(errs, fmt.Errorf("unknown settings backend %q", c.Settings))
	}
	if c.EventBuffer < 0 {
		errs = append(errs, fmt.Errorf("event_buffer must not be negative"))
	}
	if c.RecentLimit <= 0 {
		errs = append(errs, fmt.Errorf("recent_limit must be positive"))
	}
	if c.LockTimeout <= 0 {
		errs = append(errs, fmt.Errorf("lock_timeout must be positive"))
	}
	if c.WordsPerMinute <= 0 {
		errs = append(errs, fmt.Errorf("words_per_minute must be positive"))
	}
	if c.SystemDir == "" || !strings.HasPrefix(c.SystemDir, ".") {
		errs = append(errs, fmt.Errorf("system_dir must be a hidden directory name, got %q", c.SystemDir))
	}
	return errors.Join(errs...)
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}

// envReader collects parse errors instead of failing on the first one.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *envReader) str(key, def string) string {
	if v, ok := e.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (e *envReader) flag(key string, def bool) bool {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return def
	}
	return b
}

func (e *envReader) number(key string, def int) int {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}
