package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/herdline/reprohub/clinical-hub/internal/archive"
	"github.com/herdline/reprohub/clinical-hub/internal/clients/animals"
	"github.com/herdline/reprohub/clinical-hub/internal/clients/calendar"
	"github.com/herdline/reprohub/clinical-hub/internal/clients/injections"
	"github.com/herdline/reprohub/clinical-hub/internal/clients/local"
	"github.com/herdline/reprohub/clinical-hub/internal/clients/modules"
	"github.com/herdline/reprohub/clinical-hub/internal/clients/notifications"
	"github.com/herdline/reprohub/clinical-hub/internal/clients/rest"
	"github.com/herdline/reprohub/clinical-hub/internal/config"
	"github.com/herdline/reprohub/clinical-hub/internal/notify"
	"github.com/herdline/reprohub/clinical-hub/internal/store"
	"github.com/herdline/reprohub/clinical-hub/internal/workflow"
)

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("no database url configured, workflows are kept in memory")
		return store.NewMemoryStore(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}
	pg := store.NewPGStore(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return pg, func() { db.Close() }, nil
}

func restClient(cfg config.Config, baseURL string) (*rest.Client, error) {
	return rest.New(rest.Config{
		BaseURL: baseURL,
		Timeout: cfg.AdapterTimeout,
		Retries: cfg.AdapterRetries,
	})
}

// buildAdapters uses a REST adapter for every subsystem with a url and the
// logging fallback for the rest. Kafka takes over notifications when brokers
// are configured.
func buildAdapters(cfg config.Config, logger *zap.Logger) (workflow.Adapters, func(), error) {
	fallback := local.New(logger)
	adapters := workflow.Adapters{
		Calendar:      fallback,
		Injections:    fallback,
		Modules:       fallback,
		Notifications: fallback,
	}
	closer := func() {}

	if cfg.CalendarURL != "" {
		c, err := restClient(cfg, cfg.CalendarURL)
		if err != nil {
			return workflow.Adapters{}, nil, fmt.Errorf("calendar client: %w", err)
		}
		adapters.Calendar = calendar.New(c)
	}
	if cfg.InjectionsURL != "" {
		c, err := restClient(cfg, cfg.InjectionsURL)
		if err != nil {
			return workflow.Adapters{}, nil, fmt.Errorf("injections client: %w", err)
		}
		adapters.Injections = injections.New(c)
	}
	if cfg.ModulesURL != "" {
		c, err := restClient(cfg, cfg.ModulesURL)
		if err != nil {
			return workflow.Adapters{}, nil, fmt.Errorf("modules client: %w", err)
		}
		adapters.Modules = modules.New(c)
	}

	switch {
	case len(cfg.KafkaBrokers) > 0:
		notifier, err := notify.NewKafkaNotifier(notify.KafkaConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaNotificationTopic,
			WriteTimeout: cfg.AdapterTimeout,
		})
		if err != nil {
			return workflow.Adapters{}, nil, err
		}
		adapters.Notifications = notifier
		closer = func() {
			if err := notifier.Close(); err != nil {
				logger.Warn("close kafka notifier", zap.Error(err))
			}
		}
	case cfg.NotificationsURL != "":
		c, err := restClient(cfg, cfg.NotificationsURL)
		if err != nil {
			return workflow.Adapters{}, nil, fmt.Errorf("notifications client: %w", err)
		}
		adapters.Notifications = notifications.New(c)
	}
	return adapters, closer, nil
}

func buildArchiver(ctx context.Context, cfg config.Config, logger *zap.Logger) (*archive.S3Archiver, error) {
	if cfg.ArchiveBucket == "" {
		return nil, nil
	}
	a, err := archive.NewS3Archiver(ctx, cfg.ArchiveBucket, cfg.ArchivePrefix)
	if err != nil {
		return nil, fmt.Errorf("archiver init: %w", err)
	}
	logger.Info("archiving workflows", zap.String("bucket", cfg.ArchiveBucket), zap.String("prefix", cfg.ArchivePrefix))
	return a, nil
}

func buildAnimalDirectory(cfg config.Config, logger *zap.Logger) (*animals.Directory, error) {
	if cfg.AnimalsURL == "" {
		return nil, nil
	}
	c, err := restClient(cfg, cfg.AnimalsURL)
	if err != nil {
		return nil, fmt.Errorf("animals client: %w", err)
	}
	return animals.NewDirectory(c, cfg.AnimalCacheTTL, logger), nil
}
