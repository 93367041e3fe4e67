// Command cueline runs the Cueline prompter server: it loads the
// configuration, wires the STT provider, script storage and session manager,
// and serves the REST and WebSocket API until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cueline/cueline/internal/app"
	"github.com/cueline/cueline/internal/config"
	"github.com/cueline/cueline/internal/health"
	"github.com/cueline/cueline/internal/observe"
	"github.com/cueline/cueline/internal/resilience"
	"github.com/cueline/cueline/internal/script/scriptstore"
	"github.com/cueline/cueline/internal/server"
	"github.com/cueline/cueline/pkg/provider/stt"
	"github.com/cueline/cueline/pkg/provider/stt/deepgram"
	"github.com/cueline/cueline/pkg/provider/stt/mock"
	"github.com/cueline/cueline/pkg/provider/stt/whisper"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Hot-reloadable pieces: the log level applies immediately, new tracker
	// tuning applies to sessions created after the change. The manager is
	// stored behind an atomic pointer because the watcher callback runs on
	// its own goroutine.
	logLevel := new(slog.LevelVar)
	var managerRef atomic.Pointer[app.Manager]
	onReload := func(old, cur *config.Config) {
		d := config.Diff(old, cur)
		if d.Empty() {
			return
		}
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		if d.TrackerChanged {
			if m := managerRef.Load(); m != nil {
				m.SetParams(cur.Tracker)
				slog.Info("tracker tuning changed; applies to new sessions")
			}
		}
	}

	watcher, err := config.NewWatcher(*configPath, onReload)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "config file %q not found; see configs/example.yaml for a starting point\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		}
		return 1
	}
	defer watcher.Stop()
	cfg := watcher.Current()

	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "cueline",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("init telemetry", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shCtx); err != nil {
			slog.Warn("telemetry shutdown", "err", err)
		}
	}()

	metrics := observe.DefaultMetrics()

	provider, err := buildProvider(cfg.STT)
	if err != nil {
		slog.Error("create stt provider", "name", cfg.STT.Name, "err", err)
		return 1
	}

	store, checkers, cleanup, err := buildStore(ctx, cfg.Storage)
	if err != nil {
		slog.Error("open script store", "kind", cfg.Storage.Kind, "err", err)
		return 1
	}
	defer cleanup()

	manager := app.NewManager(app.ManagerConfig{
		Provider: provider,
		Scripts:  store,
		Params:   cfg.Tracker,
		Stream: stt.StreamConfig{
			SampleRate: cfg.STT.SampleRate,
			Channels:   1,
			Language:   cfg.STT.Language,
		},
		Metrics: metrics,
	})
	managerRef.Store(manager)

	srv := server.New(cfg.Server, manager, store, metrics, checkers...)

	printStartupSummary(cfg)

	err = srv.Run(ctx)
	manager.StopAll()
	if err != nil {
		slog.Error("server exited", "err", err)
		return 1
	}
	slog.Info("shutdown complete")
	return 0
}

// buildProvider constructs the configured STT provider through the registry.
// When a fallback entry is configured, the result is a failover wrapper that
// tries the fallback provider whenever the primary cannot start a stream.
func buildProvider(entry config.ProviderEntry) (stt.Provider, error) {
	registry := newProviderRegistry()

	primary, err := registry.CreateSTT(entry)
	if err != nil {
		return nil, err
	}
	if entry.Fallback == nil {
		return primary, nil
	}

	secondary, err := registry.CreateSTT(*entry.Fallback)
	if err != nil {
		return nil, fmt.Errorf("fallback provider: %w", err)
	}
	fb := resilience.NewSTTFallback(primary, entry.Name, resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  3,
			ResetTimeout: 30 * time.Second,
		},
	})
	fb.AddFallback(entry.Fallback.Name, secondary)
	return fb, nil
}

// newProviderRegistry returns a registry with the built-in STT providers.
func newProviderRegistry() *config.Registry {
	registry := config.NewRegistry()

	registry.RegisterSTT("deepgram", func(e config.ProviderEntry) (stt.Provider, error) {
		opts := []deepgram.Option{}
		if e.Model != "" {
			opts = append(opts, deepgram.WithModel(e.Model))
		}
		if e.Language != "" {
			opts = append(opts, deepgram.WithLanguage(e.Language))
		}
		if e.SampleRate > 0 {
			opts = append(opts, deepgram.WithSampleRate(e.SampleRate))
		}
		return deepgram.New(e.APIKey, opts...)
	})

	registry.RegisterSTT("whisper", func(e config.ProviderEntry) (stt.Provider, error) {
		opts := []whisper.Option{}
		if e.Language != "" {
			opts = append(opts, whisper.WithLanguage(e.Language))
		}
		if e.SampleRate > 0 {
			opts = append(opts, whisper.WithSampleRate(e.SampleRate))
		}
		return whisper.New(e.ModelPath, opts...)
	})

	registry.RegisterSTT("mock", func(config.ProviderEntry) (stt.Provider, error) {
		return mock.New(), nil
	})

	return registry
}

// buildStore opens the configured script store. The returned cleanup closes
// any underlying connection pool and is safe to call even on the memory store.
func buildStore(ctx context.Context, cfg config.StorageConfig) (scriptstore.Store, []health.Checker, func(), error) {
	switch cfg.Kind {
	case config.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := scriptstore.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("migrate: %w", err)
		}
		checkers := []health.Checker{{
			Name:  "postgres",
			Check: pool.Ping,
		}}
		return store, checkers, pool.Close, nil
	default:
		return scriptstore.NewMemStore(), nil, func() {}, nil
	}
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printStartupSummary(cfg *config.Config) {
	scheme := "http"
	if cfg.Server.TLS != nil {
		scheme = "https"
	}
	fmt.Printf("┌─────────────────────────────────────────────┐\n")
	fmt.Printf("│  Cueline %-35s│\n", version)
	fmt.Printf("├─────────────────────────────────────────────┤\n")
	fmt.Printf("│  listen    %-33s│\n", scheme+"://"+cfg.Server.ListenAddr)
	fmt.Printf("│  stt       %-33s│\n", cfg.STT.Name)
	fmt.Printf("│  storage   %-33s│\n", string(cfg.Storage.Kind))
	fmt.Printf("│  log level %-33s│\n", string(cfg.Server.LogLevel))
	fmt.Printf("└─────────────────────────────────────────────┘\n")
}
