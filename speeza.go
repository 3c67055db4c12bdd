package speeza

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/speeza/internal/platform"
	"github.com/aretw0/speeza/pkg/core"
	"github.com/aretw0/speeza/pkg/settings"
	"github.com/aretw0/speeza/pkg/speech"
	"github.com/aretw0/speeza/pkg/typed"
)

// --- Types ---

// App is the wired application returned by Open.
type App = platform.App

// AppState is the introspection snapshot of an App.
type AppState = platform.AppState

// Config is the file/environment configuration of a vault.
type Config = platform.Config

// DocumentModel is a public alias for the typed document model.
type DocumentModel[T any] = typed.DocumentModel[T]

// TypedRepository is a public alias for the typed repository.
type TypedRepository[T any] = typed.Repository[T]

// Adapter, engine and settings backend names accepted by the options.
const (
	AdapterFS     = platform.AdapterFS
	AdapterMemory = platform.AdapterMemory

	EngineConsole = platform.EngineConsole
	EngineEspeak  = platform.EngineEspeak
	EngineNoop    = platform.EngineNoop

	SettingsFile   = platform.SettingsFile
	SettingsMemory = platform.SettingsMemory
	SettingsRedis  = platform.SettingsRedis
)

// ConfigFileName is the optional configuration file at the vault root.
const ConfigFileName = platform.ConfigFileName

// --- Configuration ---

// Option defines a functional option for configuring speeza.
type Option = platform.Option

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithConfig replaces the file/environment configuration entirely.
func WithConfig(cfg Config) Option {
	return platform.WithConfig(cfg)
}

// WithConfigFile reads the configuration from path instead of <vault>/speeza.yaml.
func WithConfigFile(path string) Option {
	return platform.WithConfigFile(path)
}

// WithRepository allows injecting a custom storage adapter.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithAdapter selects the storage adapter by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithEngine injects a speech engine.
func WithEngine(engine speech.Engine) Option {
	return platform.WithEngine(engine)
}

// WithEngineName selects the speech engine by name.
func WithEngineName(name string) Option {
	return platform.WithEngineName(name)
}

// WithSpeechOutput sets where the console engine prints.
func WithSpeechOutput(w io.Writer) Option {
	return platform.WithSpeechOutput(w)
}

// WithKV injects the settings backend.
func WithKV(kv settings.KV) Option {
	return platform.WithKV(kv)
}

// WithClock sets the time source for note and preference timestamps.
func WithClock(now func() time.Time) Option {
	return platform.WithClock(now)
}

// WithSystemDir allows specifying the hidden directory name (e.g. ".speeza").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithEventBuffer allows specifying the size of the event buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithStrict keeps numbers in stored documents as json.Number.
func WithStrict(strict bool) Option {
	return platform.WithStrict(strict)
}

// WithWatcherErrorHandler receives errors raised by the filesystem watcher.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithMustExist ensures the vault directory must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithReadOnly enables read-only mode.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithDevSafety controls the temp-dir sandbox used under `go run`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// --- Factory ---

// Open wires notes, groups, language preferences, settings and playback
// over the vault at path.
func Open(ctx context.Context, path string, opts ...Option) (*App, error) {
	return platform.Open(ctx, path, opts...)
}

// LoadConfig reads defaults, the YAML file at path and SPEEZA_* variables.
func LoadConfig(path string) (Config, error) {
	return platform.LoadConfig(path)
}

// NewTypedRepository creates a type-safe view of one collection of repo.
func NewTypedRepository[T any](repo core.Repository, collection string) *typed.Repository[T] {
	return typed.NewRepository[T](repo, collection)
}

// --- Safety & Utils ---

// ResolveVaultPath determines the actual path for the vault based on safety rules.
func ResolveVaultPath(userPath string, forceTemp bool) string {
	return platform.ResolveVaultPath(userPath, forceTemp)
}

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// FindVaultRoot looks upwards from startDir for a vault marker
// (the system directory or speeza.yaml).
func FindVaultRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir, platform.DefaultConfig().SystemDir)
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return platform.DefaultConfig()
}
