// Package tasks runs the named background operations and keeps their
// progress in the tarea table.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"pjecz/carina/internal/application/delivery"
	"pjecz/carina/internal/application/polling"
	"pjecz/carina/internal/application/probe"
	"pjecz/carina/internal/core/task"
	ctxutil "pjecz/carina/internal/infrastructure/context"
	"pjecz/carina/internal/infrastructure/metrics"
)

type Enviador interface {
	Enviar(ctx context.Context, opts delivery.Opciones) (delivery.Resumen, error)
}

type Consultor interface {
	Consultar(ctx context.Context, opts polling.Opciones) (polling.Resumen, error)
}

type Probador interface {
	Probar(ctx context.Context, clave string) (string, []probe.Prueba, error)
}

type Runner struct {
	enviador  Enviador
	consultor Consultor
	probador  Probador
	repo      task.Repository
	metrics   *metrics.Metrics
	log       *slog.Logger
}

func NewRunner(enviador Enviador, consultor Consultor, probador Probador, repo task.Repository, m *metrics.Metrics, log *slog.Logger) *Runner {
	return &Runner{
		enviador:  enviador,
		consultor: consultor,
		probador:  probador,
		repo:      repo,
		metrics:   m,
		log:       log.With("component", "tasks"),
	}
}

// Run executes t and returns its completion message. A tarea without ID
// runs without progress tracking.
func (r *Runner) Run(ctx context.Context, t task.Tarea) (string, error) {
	if !t.Nombre.Valido() {
		return "", fmt.Errorf("%w: %s", task.ErrUnknown, t.Nombre)
	}
	ctx, correlationID := ctxutil.EnsureCorrelationID(ctx)
	log := r.log.With("tarea_id", t.ID, "nombre", t.Nombre, "param", t.Param, "correlation_id", correlationID)
	inicio := time.Now()

	r.progreso(ctx, log, t.ID, 0, "Iniciando "+string(t.Nombre))
	mensaje, err := r.ejecutar(ctx, t)
	duracion := time.Since(inicio)

	if err != nil {
		r.metrics.Tarea(string(t.Nombre), metrics.ResultadoError, duracion)
		log.Error("tarea fallida", "error", err, "duration_ms", duracion.Milliseconds())
		if t.ID != "" {
			if serr := r.repo.SetError(context.WithoutCancel(ctx), t.ID, err.Error()); serr != nil {
				log.Warn("no se pudo guardar el error de la tarea", "error", serr)
			}
		}
		return "", err
	}

	r.metrics.Tarea(string(t.Nombre), metrics.ResultadoExito, duracion)
	r.progreso(ctx, log, t.ID, 100, mensaje)
	log.Info("tarea terminada", "mensaje", mensaje, "duration_ms", duracion.Milliseconds())
	return mensaje, nil
}

func (r *Runner) ejecutar(ctx context.Context, t task.Tarea) (string, error) {
	switch t.Nombre {
	case task.EnviarExhortos:
		resumen, err := r.enviador.Enviar(ctx, delivery.Opciones{ExhortoOrigenID: t.Param})
		if err != nil {
			return "", err
		}
		return resumen.Mensaje(), nil
	case task.ConsultarExhortos:
		resumen, err := r.consultor.Consultar(ctx, polling.Opciones{FolioSeguimiento: t.Param})
		if err != nil {
			return "", err
		}
		return resumen.Mensaje(), nil
	case task.ProbarEndpoints:
		mensaje, _, err := r.probador.Probar(ctx, t.Param)
		return mensaje, err
	}
	return "", fmt.Errorf("%w: %s", task.ErrUnknown, t.Nombre)
}

func (r *Runner) progreso(ctx context.Context, log *slog.Logger, id string, avance int, mensaje string) {
	if id == "" {
		return
	}
	if err := r.repo.SetProgress(context.WithoutCancel(ctx), id, avance, mensaje); err != nil && !errors.Is(err, task.ErrNotFound) {
		log.Warn("no se pudo guardar el avance de la tarea", "error", err)
	}
}
