// Package initializer builds the process-wide dependencies from configuration.
package initializer

import (
	"fmt"
	"log/slog"

	"github.com/amirasaad/tripledger/infra"
	infraeventbus "github.com/amirasaad/tripledger/infra/eventbus"
	"github.com/amirasaad/tripledger/pkg/app"
	"github.com/amirasaad/tripledger/pkg/config"
	"github.com/amirasaad/tripledger/pkg/eventbus"
)

// InitializeDependencies initializes all the application dependencies
func InitializeDependencies(cfg *config.App) (*app.Deps, error) {
	logger := setupLogger(cfg.Log)

	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return nil, err
	}
	if cfg.DB.Migrate {
		if err := infra.RunMigrations(db, logger); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}

	bus, err := initEventBus(cfg, logger)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &app.Deps{
		Uow:      infra.NewUoW(db),
		EventBus: bus,
		DB:       sqlDB,
		Logger:   logger,
	}, nil
}

// initEventBus picks Kafka, then Redis, then the in-process bus. An
// unreachable broker degrades to the in-process bus: purchase events are
// notifications and the ledger itself never depends on them.
func initEventBus(cfg *config.App, logger *slog.Logger) (eventbus.Bus, error) {
	if cfg.Kafka != nil && cfg.Kafka.Brokers != "" {
		bus, err := infraeventbus.NewWithKafka(cfg.Kafka.Brokers, logger, &infraeventbus.KafkaEventBusConfig{
			GroupID:      cfg.Kafka.GroupID,
			TopicPrefix:  cfg.Kafka.TopicPrefix,
			SASLUsername: cfg.Kafka.SASLUsername,
			SASLPassword: cfg.Kafka.SASLPassword,
		})
		if err == nil {
			return bus, nil
		}
		logger.Warn("Kafka event bus unavailable; using in-memory bus", "error", err)
		return infraeventbus.NewWithMemory(logger), nil
	}

	if cfg.Redis != nil && cfg.Redis.URL != "" {
		if cfg.Redis.Group == "" {
			return nil, fmt.Errorf("redis event bus: REDIS_GROUP must not be empty")
		}
		bus, err := infraeventbus.NewWithRedis(cfg.Redis.URL, cfg.Redis.Group, logger)
		if err == nil {
			return bus, nil
		}
		logger.Warn("Redis event bus unavailable; using in-memory bus", "error", err)
		return infraeventbus.NewWithMemory(logger), nil
	}

	return infraeventbus.NewWithMemory(logger), nil
}
