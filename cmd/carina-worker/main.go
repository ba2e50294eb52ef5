package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pjecz/carina/internal/adapters/queue"
	"pjecz/carina/internal/app"
	"pjecz/carina/internal/application/tasks"
	"pjecz/carina/internal/infrastructure/config"
	"pjecz/carina/internal/infrastructure/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker stopped: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.App.Name+"-worker", cfg.Log.Level, cfg.App.Environment)

	if !cfg.Queue.Enabled {
		return errors.New("QUEUE_ENABLED=false: the API process runs the tareas itself")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := app.NewMetrics(cfg.Metrics)
	a, err := app.New(ctx, cfg, m, log)
	if err != nil {
		return err
	}
	defer a.Close()

	nc, err := queue.Connect(ctx, cfg.Queue.URL, cfg.App.Name+"-worker", cfg.Queue.ConnectRetries, log)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer nc.Close()

	pool := tasks.NewWorkerPool(ctx, cfg.Queue.Workers, a.Runner, log)
	pool.Start()

	sub := queue.NewSubscriber(nc, cfg.Queue.Subject, cfg.Queue.QueueGroup, pool, log)
	if err := sub.Start(ctx); err != nil {
		pool.Stop()
		return err
	}
	log.Info("Worker started", "subject", cfg.Queue.Subject, "group", cfg.Queue.QueueGroup, "workers", cfg.Queue.Workers)

	// The worker has no API; metrics get their own listener.
	var metricsSrv *http.Server
	if h := app.MetricsHandler(m); h != nil {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, h)
		metricsSrv = &http.Server{Addr: fmt.Sprintf(":%d", cfg.HTTP.Port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics listener failed", "error", err)
			}
		}()
	}

	<-ctx.Done()
	log.Info("Worker shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// Primero vaciar la suscripción; el pool sigue recibiendo hasta entonces.
	if err := sub.Stop(shutdownCtx); err != nil {
		log.Warn("drain subscription", "error", err)
	}
	pool.Stop()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return nil
}
