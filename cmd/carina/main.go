package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	exhortohttp "pjecz/carina/internal/adapters/http/exhorto"
	healthhttp "pjecz/carina/internal/adapters/http/health"
	tareahttp "pjecz/carina/internal/adapters/http/tarea"
	"pjecz/carina/internal/adapters/queue"
	"pjecz/carina/internal/app"
	apphealth "pjecz/carina/internal/application/health"
	"pjecz/carina/internal/application/tasks"
	"pjecz/carina/internal/core/task"
	"pjecz/carina/internal/infrastructure/config"
	"pjecz/carina/internal/infrastructure/http/middleware"
	"pjecz/carina/internal/infrastructure/http/server"
	"pjecz/carina/internal/infrastructure/logger"
	"pjecz/carina/internal/infrastructure/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "service stopped: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.App.Name, cfg.Log.Level, cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := app.NewMetrics(cfg.Metrics)
	a, err := app.New(ctx, cfg, m, log)
	if err != nil {
		return err
	}
	defer a.Close()

	checkers := []apphealth.Checker{apphealth.CheckFunc{Nombre: "database", Fn: a.Ping}}

	// Con broker las tareas van a carina-worker; sin él corren aquí mismo.
	var cola task.Queue
	if cfg.Queue.Enabled {
		nc, err := queue.Connect(ctx, cfg.Queue.URL, cfg.App.Name, cfg.Queue.ConnectRetries, log)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Drain()
		cola = queue.NewPublisher(nc, cfg.Queue.Subject)
		checkers = append(checkers, apphealth.CheckFunc{Nombre: "nats", Fn: func(context.Context) error {
			if nc.Status() != nats.CONNECTED {
				return fmt.Errorf("nats %s", nc.Status())
			}
			return nil
		}})
		log.Info("Task queue configured", "url", cfg.Queue.URL, "subject", cfg.Queue.Subject)
	} else {
		pool := tasks.NewWorkerPool(ctx, cfg.Queue.Workers, a.Runner, log)
		pool.Start()
		defer pool.Stop()
		cola = tasks.NewColaLocal(pool)
		log.Warn("Task queue disabled, tareas run in this process", "workers", cfg.Queue.Workers)
	}
	encolador := tasks.NewEncolador(a.Tareas, cola, log)

	if cfg.Scheduler.Enabled {
		sch := scheduler.New(log)
		jobs := []struct {
			nombre task.Nombre
			spec   string
		}{
			{task.EnviarExhortos, cfg.Scheduler.EnviarSpec},
			{task.ConsultarExhortos, cfg.Scheduler.ConsultarSpec},
			{task.ProbarEndpoints, cfg.Scheduler.ProbarSpec},
		}
		for _, j := range jobs {
			nombre := j.nombre
			if err := sch.Add(string(nombre), j.spec, func(ctx context.Context) error {
				_, err := encolador.Encolar(ctx, nombre, "")
				return err
			}); err != nil {
				return err
			}
		}
		sch.Start(ctx)
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer cancel()
			sch.Stop(stopCtx)
		}()
	}

	var auth *middleware.JWTAuthenticator
	if cfg.Auth.Enabled {
		auth, err = middleware.NewJWTAuthenticator(cfg.Auth, log)
		if err != nil {
			return fmt.Errorf("create authenticator: %w", err)
		}
	} else {
		log.Warn("Authentication DISABLED")
	}

	health := healthhttp.NewHandler(apphealth.NewService(apphealth.Metadata{
		Service:     cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
	}, checkers...), log)

	srv, err := server.New(server.Options{
		Config:         cfg,
		Logger:         log,
		HealthHandler:  http.HandlerFunc(health.Status),
		MetricsHandler: app.MetricsHandler(m),
		ExhortoHandler: exhortohttp.NewHandler(a.Exhortos, log).Routes(),
		TareaHandler:   tareahttp.NewHandler(encolador, log).Routes(),
		Authenticator:  auth,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer srv.Close()

	log.Info("Starting HTTP server", "port", cfg.HTTP.Port)
	return srv.Run(ctx)
}
