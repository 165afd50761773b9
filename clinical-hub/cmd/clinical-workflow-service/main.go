package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/herdline/reprohub/clinical-hub/internal/config"
	"github.com/herdline/reprohub/clinical-hub/internal/httpserver"
	"github.com/herdline/reprohub/clinical-hub/internal/logging"
	"github.com/herdline/reprohub/clinical-hub/internal/metrics"
	"github.com/herdline/reprohub/clinical-hub/internal/workflow"
)

type cli struct {
	v   *viper.Viper
	cfg config.Config
}

func setupFlags(cmd *cobra.Command, v *viper.Viper) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().String("addr", ":8070", "http listen address")
	cmd.Flags().String("database-url", "", "postgres url; empty keeps workflows in memory")
	cmd.Flags().String("log-level", "info", "debug, info, warn or error")
	cmd.Flags().Bool("log-development", false, "human readable console logs")
	cmd.Flags().String("calendar-url", "", "calendar service base url")
	cmd.Flags().String("injections-url", "", "injection scheduling service base url")
	cmd.Flags().String("modules-url", "", "base url hosting the procedure modules")
	cmd.Flags().String("notifications-url", "", "notification service base url")
	cmd.Flags().String("animals-url", "", "herd registry base url used for animal names")
	cmd.Flags().Duration("adapter-timeout", 5*time.Second, "timeout per subsystem request attempt")
	cmd.Flags().Int("adapter-retries", 2, "retries per subsystem request")
	cmd.Flags().Duration("action-timeout", 0, "overall deadline per dispatched action; 0 disables it")
	cmd.Flags().Int("bulk-concurrency", 4, "animals processed in parallel by a bulk assignment")
	cmd.Flags().String("kafka-brokers", "", "comma separated kafka brokers for notifications")
	cmd.Flags().String("kafka-notification-topic", "clinical.notifications", "kafka topic for notifications")
	cmd.Flags().String("archive-bucket", "", "s3 bucket for workflow snapshots")
	cmd.Flags().String("archive-prefix", "clinical-hub", "key prefix inside the archive bucket")
	cmd.Flags().Duration("animal-cache-ttl", 10*time.Minute, "how long resolved animal names are cached")
	return v.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	if configFile != "" {
		c.v.SetConfigFile(configFile)
		if err := c.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return err
			}
		}
	}
	c.cfg, err = config.Load(c.v)
	return err
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	logger, err := logging.New(c.cfg.LogLevel, c.cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore, err := openStore(ctx, c.cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	adapters, closeAdapters, err := buildAdapters(c.cfg, logger)
	if err != nil {
		return err
	}
	defer closeAdapters()

	archiver, err := buildArchiver(ctx, c.cfg, logger)
	if err != nil {
		return err
	}
	animals, err := buildAnimalDirectory(c.cfg, logger)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder()
	opts := workflow.Options{
		Logger:          logger,
		Observer:        recorder,
		ActionTimeout:   c.cfg.ActionTimeout,
		BulkConcurrency: c.cfg.BulkConcurrency,
	}
	if archiver != nil {
		opts.Archiver = archiver
	}
	if animals != nil {
		opts.Animals = animals
	}
	engine := workflow.NewEngine(st, adapters, opts)
	server := httpserver.New(engine, logger, recorder.Handler())

	httpServer := &http.Server{
		Addr:    c.cfg.Addr,
		Handler: server.Router(),
	}
	go func() {
		logger.Info("clinical workflow service listening", zap.String("addr", c.cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	waitForShutdown(cancel, httpServer, logger)
	return nil
}

func waitForShutdown(cancel context.CancelFunc, srv *http.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancel()
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func main() {
	c := &cli{v: viper.New()}

	cmd := &cobra.Command{
		Use:     "clinical-workflow-service",
		Short:   "Turns clinical decisions into scheduled, dispatched workflow actions",
		PreRunE: c.setupConfig,
		RunE:    c.run,
	}

	if err := setupFlags(cmd, c.v); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
