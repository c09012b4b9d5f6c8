package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ryanbastic/go-rebuilder/internal/api"
	"github.com/ryanbastic/go-rebuilder/internal/collection"
	"github.com/ryanbastic/go-rebuilder/internal/config"
	"github.com/ryanbastic/go-rebuilder/internal/geocode"
	"github.com/ryanbastic/go-rebuilder/internal/rebuild"
	"github.com/ryanbastic/go-rebuilder/internal/storage"
)

// environment is the configuration shared by every command.
type environment struct {
	cfg         config.Config
	collections *config.CollectionsConfig
	logger      *slog.Logger
}

func loadEnvironment(opts *RootOptions, logOut io.Writer) (*environment, error) {
	cfg := config.Load()

	level := config.ParseLogLevel(cfg.LogLevel)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level}))

	path := cfg.CollectionsConfigPath
	if opts.Collections != "" {
		path = opts.Collections
	}
	collections, err := config.LoadCollectionsConfig(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load collections config", err)
	}

	return &environment{cfg: cfg, collections: collections, logger: logger}, nil
}

func (e *environment) newGeocoder() (*geocode.Client, *geocode.Pacer) {
	client := geocode.NewClient(geocode.Config{
		URL:                e.cfg.GeocodeURL,
		UserAgent:          e.cfg.GeocodeUserAgent,
		Timeout:            e.cfg.GeocodeTimeout,
		BreakerMaxFailures: e.cfg.GeocodeBreakerMaxFailures,
		BreakerReset:       e.cfg.GeocodeBreakerReset,
	}, e.logger)
	return client, geocode.NewPacer(e.cfg.GeocodeInterval)
}

func (e *environment) newDispatcher() *rebuild.Dispatcher {
	return rebuild.NewDispatcher(rebuild.DispatcherConfig{
		HookURL:      e.cfg.RebuildHookURL,
		HookToken:    e.cfg.RebuildHookToken,
		GitHubToken:  e.cfg.GitHubToken,
		GitHubRepo:   e.cfg.GitHubRepo,
		GitHubAPIURL: e.cfg.GitHubAPIURL,
		EventType:    e.cfg.RebuildEventType,
		Timeout:      e.cfg.RebuildTimeout,
	}, e.logger)
}

func (e *environment) newNotifier() (*rebuild.Notifier, *rebuild.Debouncer) {
	debouncer := rebuild.NewDebouncer(e.cfg.RebuildCooldown, e.cfg.RebuildMaxEntries)
	notifier := rebuild.NewNotifier(debouncer, e.newDispatcher(), nil, e.logger)
	if !notifier.Enabled() {
		e.logger.Warn("no rebuild trigger configured; set REBUILD_HOOK_URL or GITHUB_TOKEN and GITHUB_REPO")
	}
	return notifier, debouncer
}

// backend is the opened document store. pool is nil for the memory store.
type backend struct {
	name  string
	store interface {
		storage.DocumentStore
		api.Pinger
	}
	pool *pgxpool.Pool
}

// openBackend connects to PostgreSQL when DATABASE_URL is set and falls
// back to the memory store otherwise.
func openBackend(ctx context.Context, env *environment, migrate bool) (*backend, error) {
	if env.cfg.DatabaseURL == "" {
		env.logger.Warn("DATABASE_URL not set, using in-memory store; content is lost on restart")
		return &backend{name: "memory", store: storage.NewMemoryStore()}, nil
	}

	pool, err := pgxpool.New(ctx, env.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	env.logger.Info("connected to database")

	if migrate {
		if err := storage.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		env.logger.Info("migrations complete")
	}

	return &backend{
		name:  "postgres",
		store: storage.NewPostgresStore(pool, env.cfg.DBQueryTimeout),
		pool:  pool,
	}, nil
}

func (b *backend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
}

func (b *backend) pingers() map[string]api.Pinger {
	return map[string]api.Pinger{b.name: b.store}
}

// newService builds the write pipeline on top of b.
func (e *environment) newService(b *backend, geocoder collection.Geocoder, pacer collection.Pacer, notifier collection.Notifier) *collection.Service {
	enricher := collection.NewEnricher(geocoder, pacer, e.logger)
	return collection.NewService(b.store, enricher, notifier, e.collections, e.logger)
}

func (e *environment) collectionDefinition(name string) (config.CollectionDefinition, bool) {
	for _, c := range e.collections.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return config.CollectionDefinition{}, false
}
