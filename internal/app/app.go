// Package app wires the carina components shared by the API, the worker and
// the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	auditpg "pjecz/carina/internal/adapters/audit/postgres"
	exhortopg "pjecz/carina/internal/adapters/exhorto/postgres"
	externopg "pjecz/carina/internal/adapters/externo/postgres"
	judicialhttp "pjecz/carina/internal/adapters/judicial/http"
	storagehttp "pjecz/carina/internal/adapters/storage/http"
	taskpg "pjecz/carina/internal/adapters/task/postgres"
	"pjecz/carina/internal/application/delivery"
	appexhorto "pjecz/carina/internal/application/exhorto"
	appexterno "pjecz/carina/internal/application/externo"
	"pjecz/carina/internal/application/polling"
	"pjecz/carina/internal/application/probe"
	"pjecz/carina/internal/application/tasks"
	"pjecz/carina/internal/core/exhorto"
	"pjecz/carina/internal/core/task"
	"pjecz/carina/internal/infrastructure/config"
	"pjecz/carina/internal/infrastructure/database"
	httpx "pjecz/carina/internal/infrastructure/http"
	"pjecz/carina/internal/infrastructure/metrics"
)

// App holds the wired services. Close releases the pool and waits for
// pending audit writes.
type App struct {
	Config  config.AppConfig
	Log     *slog.Logger
	Pool    *pgxpool.Pool
	Metrics *metrics.Metrics

	Exhortos *appexhorto.Service
	Registry *appexterno.Registry
	Engine   *delivery.Engine
	Poller   *polling.Poller
	Prober   *probe.Prober
	Runner   *tasks.Runner
	Tareas   task.Repository

	traced *httpx.TracedClient
}

// New connects to PostgreSQL, applies the migrations and builds every
// service. m may be nil when metrics are disabled.
func New(ctx context.Context, cfg config.AppConfig, m *metrics.Metrics, log *slog.Logger) (*App, error) {
	pool, err := database.NewPool(ctx, database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.Database,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnectRetries:  cfg.Database.ConnectRetries,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, log); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	log.Info("Database connection established", "database", cfg.Database.Database)

	a, err := build(cfg, pool, m, log)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return a, nil
}

func build(cfg config.AppConfig, pool *pgxpool.Pool, m *metrics.Metrics, log *slog.Logger) (*App, error) {
	recorder := auditpg.NewBitacoraRecorder(pool)

	traced := httpx.NewTracedClient(&httpx.TracedClientConfig{
		Timeout:         cfg.Exhortos.TimeoutLlamadas,
		AuditEnabled:    cfg.Audit.Enabled,
		LogRequestBody:  cfg.Audit.LogRequestBody,
		LogResponseBody: cfg.Audit.LogResponseBody,
		MaxBodySize:     cfg.Audit.MaxBodySize,
	}, log, auditpg.NewRepository(pool, log), "exhortos")
	client := judicialhttp.NewClient(traced, log)

	fetcher, err := storagehttp.NewFetcher(httpx.NewClient(&httpx.ClientConfig{
		Timeout:   cfg.Storage.Timeout,
		UserAgent: cfg.App.Name + "/" + cfg.App.Version,
	}), cfg.Storage.BaseURL, cfg.Storage.Token)
	if err != nil {
		return nil, err
	}

	exhortos := exhortopg.NewRepository(pool)
	registry := appexterno.NewRegistry(externopg.NewRepository(pool), recorder, cfg.Exhortos.CacheExternosTTL, log)

	engine := delivery.NewEngine(exhortos, registry, client, fetcher, recorder, m, delivery.Config{
		MaximoIntentos: cfg.Exhortos.MaximoIntentos,
		Politica: exhorto.PoliticaReintentos{
			Espera:      cfg.Exhortos.EsperaReintento,
			Exponencial: cfg.Exhortos.BackoffExponencial,
		},
		Pausa:    cfg.Exhortos.PausaLlamadas,
		LeaseTTL: cfg.Exhortos.LeaseTTL,
	}, log)
	poller := polling.NewPoller(exhortos, registry, client, recorder, m, polling.Config{
		Pausa:    cfg.Exhortos.PausaLlamadas,
		LeaseTTL: cfg.Exhortos.LeaseTTL,
	}, log)
	prober := probe.NewProber(registry, client, m, log)
	tareas := taskpg.NewRepository(pool)

	return &App{
		Config:   cfg,
		Log:      log,
		Pool:     pool,
		Metrics:  m,
		Exhortos: appexhorto.NewService(exhortos, recorder, log),
		Registry: registry,
		Engine:   engine,
		Poller:   poller,
		Prober:   prober,
		Runner:   tasks.NewRunner(engine, poller, prober, tareas, m, log),
		Tareas:   tareas,
		traced:   traced,
	}, nil
}

// Ping is the database health check.
func (a *App) Ping(ctx context.Context) error {
	return a.Pool.Ping(ctx)
}

func (a *App) Close() {
	a.traced.Wait()
	a.Pool.Close()
}

// NewMetrics returns nil when metrics are disabled; every recorder method
// accepts a nil receiver.
func NewMetrics(cfg config.MetricsSettings) *metrics.Metrics {
	if !cfg.Enabled {
		return nil
	}
	return metrics.New()
}

// MetricsHandler is nil when m is nil.
func MetricsHandler(m *metrics.Metrics) http.Handler {
	if m == nil {
		return nil
	}
	return m.Handler()
}
