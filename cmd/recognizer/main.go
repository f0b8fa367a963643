package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/saturnino-fabrica-de-software/momento/internal/api"
	"github.com/saturnino-fabrica-de-software/momento/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/momento/internal/camera"
	"github.com/saturnino-fabrica-de-software/momento/internal/config"
	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/face"
	"github.com/saturnino-fabrica-de-software/momento/internal/scheduler"
	"github.com/saturnino-fabrica-de-software/momento/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.LoadEngine()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Momento recognizer",
		slog.String("environment", cfg.Environment),
		slog.String("username", cfg.Username),
		slog.String("detector", cfg.Detector),
		slog.Int("port", cfg.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := face.NewEngine(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Error("engine close failed", slog.Any("error", err))
		}
	}()

	report, err := engine.Start(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	logger.Info("faces loaded",
		slog.Int("loaded", report.Loaded),
		slog.Int("skipped", len(report.Skipped)),
		slog.Duration("elapsed", report.Duration),
	)

	source := camera.FromURL(cfg.CameraURL, cfg.BackendTimeout)
	sched := scheduler.New(engine.Service, source, cfg.RecognitionInterval, logger)

	router := api.NewRouter(logger, "Momento Recognizer")
	router.SetupEngine(&api.EngineDependencies{
		EngineDeps: handler.EngineDeps{
			Faces:     engine.Service,
			Scheduler: sched,
			Models:    engine.Models,
			Camera:    source,
			Username:  cfg.Username,
			Session:   ctx,
		},
	}, fmt.Sprintf("localhost:%d", cfg.Port))

	hub := router.Hub()
	sched.OnResult(func(rec domain.Recognition) {
		hub.Publish(cfg.Username, ws.EventRecognitionCompleted, rec)
	})

	if source != nil {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start recognition: %w", err)
		}
	} else {
		logger.Warn("no camera configured, recognition runs on request only")
	}

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		sched.Stop()
		return fmt.Errorf("server error: %w", err)
	}

	sched.Stop()
	sched.Wait()

	logger.Info("shutting down server...")
	if err := shutdown(router, 10*time.Second); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	logger.Info("recognizer stopped")
	return nil
}

func shutdown(router *api.Router, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timed out after %s", timeout)
	}
}
