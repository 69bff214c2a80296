package server

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"fabric-catalog/internal/config"
	"fabric-catalog/internal/database"
	"fabric-catalog/internal/repository"
	"fabric-catalog/internal/repository/memstore"
	"fabric-catalog/internal/repository/mongostore"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Storage bundles the repositories of the configured backend
type Storage struct {
	Driver     string
	Categories repository.CategoryRepository
	Products   repository.ProductRepository

	health func(ctx context.Context) map[string]string
	close  func() error
}

// Health reports the backend status for the health endpoint
func (s *Storage) Health(ctx context.Context) map[string]string {
	stats := s.health(ctx)
	stats["driver"] = s.Driver
	return stats
}

// Close releases the backend connections
func (s *Storage) Close() error {
	return s.close()
}

// OpenStorage connects the backend selected by DB_DRIVER. Postgres is
// migrated to the latest schema before use.
func OpenStorage(ctx context.Context, cfg config.DatabaseConfig, migrationsDir string, logger *zap.Logger) (*Storage, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return openPostgres(cfg, migrationsDir, logger)
	case config.DriverMongo:
		return openMongo(ctx, cfg, logger)
	case config.DriverMemory:
		logger.Warn("Using in-memory storage, data is lost on restart")
		store := memstore.New()
		return &Storage{
			Driver:     config.DriverMemory,
			Categories: store.Categories(),
			Products:   store.Products(),
			health: func(context.Context) map[string]string {
				return map[string]string{"status": "up"}
			},
			close: func() error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

func openPostgres(cfg config.DatabaseConfig, migrationsDir string, logger *zap.Logger) (*Storage, error) {
	dbService, err := database.New(cfg)
	if err != nil {
		return nil, err
	}
	db := dbService.DB()

	logger.Info("Database health check", zap.Any("health", dbService.Health()))

	if err := database.RunMigrations(db, migrationsDir, logger); err != nil {
		dbService.Close()
		return nil, err
	}

	return &Storage{
		Driver:     config.DriverPostgres,
		Categories: repository.NewCategoryRepository(db),
		Products:   repository.NewProductRepository(db),
		health: func(context.Context) map[string]string {
			stats := dbService.Health()
			if version, err := database.CurrentVersion(db); err == nil {
				stats["schema_version"] = strconv.FormatInt(version, 10)
			}
			return stats
		},
		close: dbService.Close,
	}, nil
}

func openMongo(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Storage, error) {
	client, err := mongostore.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, err
	}

	db := client.Database(cfg.MongoDatabase)
	if err := mongostore.EnsureIndexes(ctx, db); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	logger.Info("Connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	store := mongostore.New(db)
	return &Storage{
		Driver:     config.DriverMongo,
		Categories: store.Categories(),
		Products:   store.Products(),
		health:     mongoHealth(client),
		close: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return client.Disconnect(ctx)
		},
	}, nil
}

func mongoHealth(client *mongo.Client) func(ctx context.Context) map[string]string {
	return func(ctx context.Context) map[string]string {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := client.Ping(ctx, nil); err != nil {
			return map[string]string{"status": "down", "error": fmt.Sprintf("mongo down: %v", err)}
		}
		return map[string]string{"status": "up"}
	}
}
