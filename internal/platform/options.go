package platform

import (
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/speeza/pkg/core"
	"github.com/aretw0/speeza/pkg/settings"
	"github.com/aretw0/speeza/pkg/speech"
)

// options holds the internal configuration for opening a speeza vault.
// Pointer fields distinguish "not set" from the zero value so that options
// can override the file/environment Config selectively.
type options struct {
	repository  core.Repository
	engine      speech.Engine
	kv          settings.KV
	logger      *slog.Logger
	config      *Config
	configPath  string
	speechOut   io.Writer
	clock       func() time.Time
	errHandler  func(error)
	adapter     string
	engineName  string
	systemDir   string
	eventBuffer int
	readOnly    *bool
	strict      *bool
	devSafety   *bool
	forceTemp   bool
	mustExist   bool
}

// Option defines a functional option for configuring speeza.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithConfig replaces the file/environment configuration entirely.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = &cfg
	}
}

// WithConfigFile reads the configuration from path instead of
// <vault>/speeza.yaml.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configPath = path
	}
}

// WithRepository allows injecting a custom storage adapter (e.g. mock).
// If provided, the adapter selection is skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithAdapter selects the storage adapter by name ("fs" or "memory").
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithEngine injects a speech engine, bypassing the configured one.
func WithEngine(engine speech.Engine) Option {
	return func(o *options) {
		o.engine = engine
	}
}

// WithEngineName selects the speech engine by name ("console", "espeak", "noop").
func WithEngineName(name string) Option {
	return func(o *options) {
		o.engineName = name
	}
}

// WithSpeechOutput sets where the console engine prints. Defaults to stdout.
func WithSpeechOutput(w io.Writer) Option {
	return func(o *options) {
		o.speechOut = w
	}
}

// WithKV injects the settings backend, bypassing the configured one.
func WithKV(kv settings.KV) Option {
	return func(o *options) {
		o.kv = kv
	}
}

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}

// WithSystemDir allows specifying the hidden directory name (e.g. ".speeza").
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.systemDir = name
	}
}

// WithEventBuffer allows specifying the size of the event buffer.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithStrict keeps numbers in stored documents as json.Number.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = &strict
	}
}

// WithWatcherErrorHandler registers a callback for errors raised by the
// filesystem watcher, which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errHandler = fn
	}
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.forceTemp = force
	}
}

// WithMustExist ensures the vault directory must already exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.mustExist = must
	}
}

// WithReadOnly enables read-only mode.
// In this mode:
// 1. Write operations return core.ErrReadOnly.
// 2. Vault directories are not created.
// 3. Dev safety (go run temp dir) is bypassed, the real path is used.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.readOnly = &enabled
	}
}

// WithDevSafety controls the sandbox used when running via `go run`.
// By default (true) the vault is re-rooted into a temporary directory to
// prevent accidental data loss.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.devSafety = &enabled
	}
}
