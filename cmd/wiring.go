package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/okian/cadis/internal/adapters/repository"
	"github.com/okian/cadis/internal/adapters/source"
	app "github.com/okian/cadis/internal/app"
	"github.com/okian/cadis/internal/config"
	"github.com/okian/cadis/internal/domain/classify"
	"github.com/okian/cadis/internal/domain/signals"
	"github.com/okian/cadis/internal/domain/simulate"
	"github.com/okian/cadis/pkg/logger"
)

// backends holds the optional external systems named by the config.
type backends struct {
	store   repository.Store
	sources source.Multi
	redis   *redis.Client
}

// Close releases the store and the Redis client.
func (b *backends) Close() error {
	err := b.closeCache()
	if cerr := b.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// closeCache releases only the Redis client, for callers that hand the
// store to an owner that closes it.
func (b *backends) closeCache() error {
	if b.redis == nil {
		return nil
	}
	return b.redis.Close()
}

// openBackends connects the run store and the record sources. With no DSN
// runs live in memory; with no Redis address the store is not cached.
func openBackends(ctx context.Context, cfg *config.Config, log logger.Logger) (*backends, error) {
	b := &backends{store: repository.NewMemoryStore()}

	if cfg.RecordsDir != "" {
		b.sources = append(b.sources, source.NewDir(cfg.RecordsDir))
	}

	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		b.store = repository.NewPostgresStore(db)
		b.sources = append(b.sources, source.NewPostgres(db))
		log.Info(ctx, "postgres store enabled")
	}

	if cfg.RedisAddr != "" {
		b.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := b.redis.Ping(ctx).Err(); err != nil {
			// the cache degrades to the backing store, so an unreachable
			// Redis is not fatal
			log.Warn(ctx, "redis unreachable at startup", logger.String("addr", cfg.RedisAddr), logger.Error(err))
		}
		b.store = repository.NewCache(b.store, b.redis,
			repository.WithTTL(cfg.RedisTTL()),
			repository.WithCacheLogger(log.Named("run-cache")),
		)
		log.Info(ctx, "redis run cache enabled", logger.String("addr", cfg.RedisAddr))
	}

	return b, nil
}

// engineOptions translates the config into engine options. Table files
// replace the embedded defaults when set.
func engineOptions(cfg *config.Config, lister source.Lister, log logger.Logger) ([]app.Option, error) {
	opts := []app.Option{
		app.WithLogger(log.Named("engine")),
		app.WithRecentWindow(cfg.RecentWindow()),
		app.WithBucketWidth(cfg.BucketWidth()),
		app.WithActivityThresholds(cfg.ActivityHighThreshold, cfg.ActivityMediumThreshold),
		app.WithGrowthScaleFactor(cfg.GrowthScaleFactor),
		app.WithRunDefaults(
			app.WithMaxInsights(cfg.MaxInsights),
			app.WithConcurrencyLimit(cfg.ConcurrencyLimit),
			app.WithPhaseCount(cfg.PhaseCount),
			app.WithSourceTimeout(cfg.SourceTimeout()),
			app.WithExampleCap(cfg.ExampleCap),
		),
	}
	if lister != nil {
		opts = append(opts, app.WithSources(lister))
	}

	if cfg.PatternsFile != "" {
		t, err := signals.LoadTableFile(cfg.PatternsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithPatterns(t))
	}
	if cfg.ScenariosFile != "" {
		t, err := classify.LoadTableFile(cfg.ScenariosFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithRules(t))
	}
	if cfg.HeuristicsFile != "" {
		t, err := simulate.LoadTableFile(cfg.HeuristicsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, app.WithHeuristics(t))
	}
	return opts, nil
}

// newEngine builds an engine from the config.
func newEngine(cfg *config.Config, lister source.Lister, log logger.Logger) (*app.Engine, error) {
	opts, err := engineOptions(cfg, lister, log)
	if err != nil {
		return nil, err
	}
	return app.New(opts...)
}

// listerOf returns the sources as a Lister, or nil when none is configured.
func listerOf(m source.Multi) source.Lister {
	if len(m) == 0 {
		return nil
	}
	return m
}
