// Command ecoscand serves the image moderation pipeline over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anatolykoptev/go-ecoscan/internal/api"
	"github.com/anatolykoptev/go-ecoscan/internal/config"
	"github.com/anatolykoptev/go-ecoscan/internal/logger"
	"github.com/anatolykoptev/go-ecoscan/internal/mlclient"
	"github.com/anatolykoptev/go-ecoscan/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ecoscand: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.GetConfigPath(config.DefaultPath))
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: cfg.Logging.OutputPaths,
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	classifier := mlclient.NewClient(cfg.Classifier.URL, cfg.Classifier.Timeout,
		mlclient.WithDefaultScale(mlclient.Scale(cfg.Classifier.Scale)))
	metrics := telemetry.NewMetrics()

	pipeline := cfg.LibraryConfig()
	pipeline.Classifier = classifier
	pipeline.Logger = log
	metrics.Instrument(&pipeline)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.NewHandler(&pipeline, classifier, log, api.WithAdminToken(cfg.Server.AdminToken)), api.RouterConfig{
		Logger:         log,
		Metrics:        metrics.Handler(),
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting ecoscand",
			zap.Int("port", cfg.Server.Port),
			zap.String("classifier_url", cfg.Classifier.URL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down ecoscand")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
