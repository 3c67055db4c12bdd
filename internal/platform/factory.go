package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/speeza/pkg/adapters/fs"
	"github.com/aretw0/speeza/pkg/adapters/memory"
	"github.com/aretw0/speeza/pkg/core"
	"github.com/aretw0/speeza/pkg/notes"
	"github.com/aretw0/speeza/pkg/playback"
	"github.com/aretw0/speeza/pkg/prefs"
	"github.com/aretw0/speeza/pkg/settings"
	"github.com/aretw0/speeza/pkg/speech"
	"github.com/aretw0/speeza/pkg/speech/espeak"
	"github.com/aretw0/speeza/pkg/voice"
)

// settingsFileName lives inside the system directory of an fs vault.
const settingsFileName = "settings.yaml"

// Open wires a complete speeza application over the vault at path.
// The path is adapter-specific: a directory for "fs", ignored for "memory".
//
// Workflow:
//  1. Resolve configuration (speeza.yaml, SPEEZA_* env, then options).
//  2. Build and initialize the store.
//  3. Build the speech engine and load the voice catalog from it.
//  4. Wire preferences, library, settings and playback around them.
func Open(ctx context.Context, path string, opts ...Option) (*App, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	log := o.logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cfg, err := resolveConfig(path, o)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, log: log}

	repo, vaultPath, err := openRepository(ctx, cfg, o, log)
	if err != nil {
		return nil, err
	}
	app.Repo = repo
	app.Path = vaultPath

	app.Service = core.NewService(repo,
		core.WithServiceLogger(log),
		core.WithEventBufferSize(cfg.EventBuffer),
	)

	app.Engine = o.engine
	if app.Engine == nil {
		app.Engine = newEngine(cfg, o, log)
	}
	if !speech.IsAvailable(app.Engine) {
		log.Warn("speech engine unavailable, playback disabled", "engine", cfg.Engine)
	}
	app.Voices = voice.Load(ctx, app.Engine, voice.WithLogger(log))

	now := o.clock
	if now == nil {
		now = time.Now
	}

	app.Arbiter = playback.NewArbiter()
	app.Library = notes.NewLibrary(repo,
		notes.WithLogger(log),
		notes.WithClock(now),
		notes.WithService(app.Service),
		notes.WithSilencer(app.Arbiter),
	)
	// Language toggles reach the same observers as note and group edits.
	app.Prefs = prefs.NewStore(repo,
		prefs.WithLogger(log),
		prefs.WithClock(now),
		prefs.WithOnChange(func(p prefs.LanguagePreference) {
			app.Library.Notify(notes.Change{Kind: notes.LanguageChanged, ID: p.LanguageCode})
		}),
	)

	kv, closeKV, err := openKV(ctx, cfg, o, vaultPath)
	if err != nil {
		return nil, err
	}
	if closeKV != nil {
		app.closers = append(app.closers, closeKV)
	}
	app.Settings = settings.New(kv, settings.WithLogger(log))

	app.Quick = playback.NewController(app.Engine, app.Voices,
		playback.WithArbiter(app.Arbiter),
		playback.WithName("quick"),
		playback.WithLogger(log),
	)
	app.Preview = playback.NewController(app.Engine, app.Voices,
		playback.WithArbiter(app.Arbiter),
		playback.WithName("preview"),
		playback.WithLogger(log),
	)

	log.Debug("speeza opened",
		"adapter", cfg.Adapter,
		"path", vaultPath,
		"engine", cfg.Engine,
		"settings", cfg.Settings,
		"voices", len(app.Voices.Voices()),
	)
	return app, nil
}

// resolveConfig layers explicit options over the loaded Config.
func resolveConfig(path string, o *options) (Config, error) {
	var cfg Config
	if o.config != nil {
		cfg = *o.config
	} else {
		cfgPath := o.configPath
		if cfgPath == "" && path != "" {
			cfgPath = filepath.Join(path, ConfigFileName)
		}
		loaded, err := LoadConfig(cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("%w: %w", core.ErrValidation, err)
		}
		cfg = loaded
	}

	if path != "" {
		cfg.Vault = path
	}
	if o.adapter != "" {
		cfg.Adapter = o.adapter
	}
	if o.engineName != "" {
		cfg.Engine = o.engineName
	}
	if o.systemDir != "" {
		cfg.SystemDir = o.systemDir
	}
	if o.eventBuffer > 0 {
		cfg.EventBuffer = o.eventBuffer
	}
	if o.readOnly != nil {
		cfg.ReadOnly = *o.readOnly
	}
	if o.strict != nil {
		cfg.Strict = *o.strict
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: %w", core.ErrValidation, err)
	}
	return cfg, nil
}

func openRepository(ctx context.Context, cfg Config, o *options, log *slog.Logger) (core.Repository, string, error) {
	if o.repository != nil {
		if err := o.repository.Initialize(ctx); err != nil {
			return nil, "", err
		}
		return o.repository, "", nil
	}

	switch cfg.Adapter {
	case AdapterMemory:
		return memory.NewRepository(memory.WithLogger(log), memory.WithReadOnly(cfg.ReadOnly)), "", nil
	case AdapterFS:
		repo, resolved := initFS(cfg, o, log)
		if err := repo.Initialize(ctx); err != nil {
			return nil, "", err
		}
		return repo, resolved, nil
	default:
		return nil, "", fmt.Errorf("unknown adapter: %s", cfg.Adapter)
	}
}

// initFS handles path safety and configuration for the filesystem adapter.
func initFS(cfg Config, o *options, log *slog.Logger) (*fs.Repository, string) {
	devSafety := true
	if o.devSafety != nil {
		devSafety = *o.devSafety
	}

	// Read-only access is inherently safe.
	bypassSafety := cfg.ReadOnly || !devSafety
	useTemp := o.forceTemp || (IsDevRun() && !bypassSafety)
	resolvedPath := ResolveVaultPath(cfg.Vault, useTemp)

	if IsDevRun() {
		switch {
		case bypassSafety && cfg.ReadOnly:
			log.Debug("running in READ-ONLY mode (bypassing dev sandbox)", "path", resolvedPath)
		case bypassSafety:
			log.Warn("running in UNSAFE mode (bypassing dev sandbox)", "path", resolvedPath)
		default:
			log.Debug("running in SAFE mode (dev sandbox enabled)", "path", resolvedPath)
		}
	}
	if useTemp && resolvedPath != cfg.Vault {
		log.Warn("running in SAFE MODE (Dev/Test)", "original_path", cfg.Vault, "resolved_path", resolvedPath)
	}

	repo := fs.NewRepository(fs.Config{
		Path:          resolvedPath,
		MustExist:     o.mustExist,
		ReadOnly:      cfg.ReadOnly,
		Strict:        cfg.Strict,
		Logger:        log,
		SystemDir:     cfg.SystemDir,
		DefaultFormat: cfg.DefaultFormat,
		Formats:       cfg.Formats,
		LockTimeout:   cfg.LockTimeout,
		ErrorHandler:  o.errHandler,
	})
	return repo, resolvedPath
}

func newEngine(cfg Config, o *options, log *slog.Logger) speech.Engine {
	switch cfg.Engine {
	case EngineEspeak:
		return espeak.New(cfg.EspeakBinary, log)
	case EngineNoop:
		return speech.NewNoOp(log)
	default:
		out := o.speechOut
		if out == nil {
			out = os.Stdout
		}
		return speech.NewConsole(
			speech.WithConsoleWriter(out),
			speech.WithWordsPerMinute(cfg.WordsPerMinute),
			speech.WithConsoleLogger(log),
		)
	}
}

// openKV picks the settings backend. A memory store falls back to memory
// settings since there is no vault directory to write into. Settings of a
// read-only vault refuse writes like its documents do.
func openKV(ctx context.Context, cfg Config, o *options, vaultPath string) (settings.KV, func() error, error) {
	kv, closeKV, err := dialKV(ctx, cfg, o, vaultPath)
	if err != nil || !cfg.ReadOnly {
		return kv, closeKV, err
	}
	return settings.ReadOnlyKV{KV: kv}, closeKV, nil
}

func dialKV(ctx context.Context, cfg Config, o *options, vaultPath string) (settings.KV, func() error, error) {
	if o.kv != nil {
		return o.kv, nil, nil
	}

	switch {
	case cfg.Settings == SettingsRedis:
		kv, closeFn, err := settings.DialRedis(ctx, settings.RedisOptions{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			Prefix:      cfg.Redis.Prefix,
			PingTimeout: cfg.Redis.PingTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", core.ErrPersistence, err)
		}
		return kv, closeFn, nil
	case cfg.Settings == SettingsMemory, vaultPath == "":
		return settings.NewMemoryKV(), nil, nil
	default:
		return settings.NewFileKV(filepath.Join(vaultPath, cfg.SystemDir, settingsFileName)), nil, nil
	}
}
