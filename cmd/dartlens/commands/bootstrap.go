package commands

import (
	"context"
	"fmt"

	"github.com/wonny/dartlens/backend/internal/external/dart"
	"github.com/wonny/dartlens/backend/internal/insights"
	"github.com/wonny/dartlens/backend/internal/normalize"
	"github.com/wonny/dartlens/backend/internal/store"
	"github.com/wonny/dartlens/backend/pkg/config"
	"github.com/wonny/dartlens/backend/pkg/database"
	"github.com/wonny/dartlens/backend/pkg/logger"
	"github.com/wonny/dartlens/backend/pkg/redis"
)

// app is the wired object graph shared by the commands
type app struct {
	cfg *config.Config
	log *logger.Logger
	db  *database.DB
	rdb *redis.Client

	source   *dart.Source
	corps    *store.CorpRepository
	mappings *store.MappingRepository
	registry *normalize.Registry
	insights *insights.Service
}

// bootstrap loads config and wires every component.
// Redis is optional: a failed connection falls back to the disabled client.
func bootstrap(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.Database.MigrateOnBoot {
		if _, err := db.Migrate(log); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	// 4. Redis (optional)
	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without response cache and rate limit")
		rdb = redis.Disabled()
	}

	// 5. External + repositories
	dartClient := dart.NewClient(cfg.DART, log)
	log.WithField("min_interval", dartClient.Gate().Interval().String()).Debug("DART client ready")
	source := dart.NewSource(dartClient)
	corpRepo := store.NewCorpRepository(db.Pool)
	mappingRepo := store.NewMappingRepository(db.Pool)
	insightRepo := store.NewInsightRepository(db.Pool)

	// 6. Core pipeline
	registry := normalize.NewRegistry(log, mappingRepo, normalize.EmbeddedLoader{})
	normalizer := normalize.NewNormalizer(normalize.NewResolver(registry, log), source, log)
	svc := insights.NewService(insightRepo, source, normalizer, cfg.Sync, log)
	if cfg.Sync.RequireKnownCorp {
		svc.WithCorpDirectory(corpRepo)
	}
	if rdb.Enabled() {
		svc.WithResponseCache(redis.NewCache(rdb, "dartlens"), cfg.Redis.InsightsCacheTTL)
	}

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		rdb:      rdb,
		source:   source,
		corps:    corpRepo,
		mappings: mappingRepo,
		registry: registry,
		insights: svc,
	}, nil
}

func (a *app) Close() {
	if err := a.rdb.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
	a.db.Close()
}
