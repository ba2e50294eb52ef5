package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pjecz/carina/internal/adapters/cli"
	"pjecz/carina/internal/app"
	"pjecz/carina/internal/infrastructure/config"
	"pjecz/carina/internal/infrastructure/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var a *app.App
	defer func() {
		if a != nil {
			a.Close()
		}
	}()

	cargar := func(ctx context.Context) (*cli.Servicios, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		// Los mensajes del comando van a stdout; el log a stderr.
		log := logger.NewWithWriter(os.Stderr, cfg.App.Name+"-cli", cfg.Log.Level, cfg.App.Environment)
		a, err = app.New(ctx, cfg, nil, log)
		if err != nil {
			return nil, err
		}
		return &cli.Servicios{
			Enviador:    a.Engine,
			Consultor:   a.Poller,
			Probador:    a.Prober,
			Alimentador: a.Registry,
		}, nil
	}

	if err := cli.NewRootCommand(cargar).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
