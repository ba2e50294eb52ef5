package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"pjecz/carina/internal/core/task"
)

// Encolador registers a tarea and hands it to the queue.
type Encolador struct {
	repo    task.Repository
	queue   task.Queue
	log     *slog.Logger
	nuevoID func() string
}

func NewEncolador(repo task.Repository, queue task.Queue, log *slog.Logger) *Encolador {
	return &Encolador{
		repo:    repo,
		queue:   queue,
		log:     log.With("component", "tasks"),
		nuevoID: uuid.NewString,
	}
}

func (e *Encolador) Encolar(ctx context.Context, nombre task.Nombre, param string) (*task.Tarea, error) {
	if !nombre.Valido() {
		return nil, fmt.Errorf("%w: %s", task.ErrUnknown, nombre)
	}
	t := task.Tarea{
		ID:      e.nuevoID(),
		Nombre:  nombre,
		Param:   strings.TrimSpace(param),
		Mensaje: "Encolada",
	}
	if err := e.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("crear tarea: %w", err)
	}
	if err := e.queue.Enqueue(ctx, t); err != nil {
		if serr := e.repo.SetError(context.WithoutCancel(ctx), t.ID, "No se pudo encolar: "+err.Error()); serr != nil {
			e.log.Warn("no se pudo guardar el error de la tarea", "tarea_id", t.ID, "error", serr)
		}
		return nil, fmt.Errorf("encolar tarea %s: %w", t.ID, err)
	}
	e.log.Info("tarea encolada", "tarea_id", t.ID, "nombre", t.Nombre, "param", t.Param)
	return &t, nil
}

func (e *Encolador) Obtener(ctx context.Context, id string) (*task.Tarea, error) {
	return e.repo.FindByID(ctx, id)
}
