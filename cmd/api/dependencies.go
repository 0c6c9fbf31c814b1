package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/apilog"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/maps"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/places"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/recommend"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/spatialcache"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/domain/user"
	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
	"github.com/f-lab-edu/Meet-Up-Spot/pkg/config"
	"github.com/f-lab-edu/Meet-Up-Spot/pkg/db"
	"github.com/f-lab-edu/Meet-Up-Spot/pkg/metrics"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *db.DB
	Redis    *redis.Client
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// Repositories
	PlaceRepo  places.Repository
	UserRepo   user.Repository
	APILogRepo apilog.Repository

	// Pipeline
	Cache       *spatialcache.Service
	Provider    *maps.Adapter
	Fetcher     *recommend.Fetcher
	Recommender *recommend.Recommender
}

// InitDependencies initializes all application dependencies
func InitDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initMetrics()

	if err := deps.initDatabase(ctx); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initCache(ctx); err != nil {
		return nil, fmt.Errorf("failed to init spatial cache: %w", err)
	}

	deps.initRepositories()

	if err := deps.initPipeline(); err != nil {
		return nil, fmt.Errorf("failed to init pipeline: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initMetrics() {
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = metrics.New(d.Registry)
}

// initDatabase connects the pool and applies migrations.
func (d *Dependencies) initDatabase(ctx context.Context) error {
	database, err := db.New(ctx, db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}
	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initCache wires the geospatial index behind the spatial cache. Outside a
// real Redis an in-memory index keeps local runs working.
func (d *Dependencies) initCache(ctx context.Context) error {
	if d.Config.Server.Environment == "test" {
		d.Cache = spatialcache.New(spatialcache.NewMemoryIndex(), d.Logger, d.Metrics, d.Config.Recommend.CacheTTL)
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     d.Config.Redis.Addr,
		Password: d.Config.Redis.Password,
		DB:       d.Config.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	d.Redis = client
	d.Cache = spatialcache.New(spatialcache.NewRedisIndex(client), d.Logger, d.Metrics, d.Config.Recommend.CacheTTL)
	return nil
}

func (d *Dependencies) initRepositories() {
	d.PlaceRepo = places.NewRepository(d.Config.Server.Environment, d.DB.Pool, d.Logger)
	d.UserRepo = user.NewRepositoryImpl(d.DB.Pool, d.Logger)
	d.APILogRepo = apilog.NewRepositoryImpl(d.DB.Pool, d.Logger)
}

func (d *Dependencies) initPipeline() error {
	client, err := maps.NewGoogleClient(d.Config.Maps.APIKey, d.Config.Maps.QPS, d.Config.Maps.Timeout)
	if err != nil {
		return err
	}

	d.Provider = maps.NewAdapter(client, d.APILogRepo, d.Logger, d.Metrics, maps.AdapterConfig{
		MaxRetries:   d.Config.Maps.MaxRetries,
		RetryBackoff: d.Config.Maps.RetryBackoff,
		Language:     d.Config.Maps.Language,
		TravelMode:   types.TravelMode(d.Config.Maps.TravelMode),
	})

	d.Fetcher = recommend.NewFetcher(d.Provider, d.Cache, d.PlaceRepo, d.Logger, recommend.FetcherConfig{
		WideRadiusM:        d.Config.Recommend.WideRadiusM,
		DefaultRadiusM:     d.Config.Recommend.DefaultRadiusM,
		CacheLookupRadiusM: d.Config.Recommend.CacheLookupRadiusM,
		GeocodeTTL:         d.Config.Recommend.CacheTTL,
	})

	d.Recommender = recommend.NewRecommender(d.Fetcher, d.Provider, d.PlaceRepo, d.UserRepo, d.Logger, recommend.Weights{
		Interest: d.Config.Recommend.InterestWeight,
		Search:   d.Config.Recommend.SearchWeight,
		Type:     d.Config.Recommend.TypeWeight,
		Rating:   d.Config.Recommend.RatingWeight,
	})
	return nil
}

// Close releases every held connection.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Warn("failed to close redis client", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
