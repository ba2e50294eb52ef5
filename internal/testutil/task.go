package testutil

import (
	"context"
	"sync"
	"time"

	"pjecz/carina/internal/core/task"
)

// TareaRepository is an in-memory task.Repository.
type TareaRepository struct {
	mu     sync.Mutex
	tareas map[string]task.Tarea
}

func NewTareaRepository() *TareaRepository {
	return &TareaRepository{tareas: make(map[string]task.Tarea)}
}

func (r *TareaRepository) Create(ctx context.Context, t task.Tarea) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ahora := time.Now()
	t.CreadoEn = ahora
	t.ModificadoEn = ahora
	r.tareas[t.ID] = t
	return nil
}

func (r *TareaRepository) SetProgress(ctx context.Context, id string, progreso int, mensaje string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tareas[id]
	if !ok {
		return task.ErrNotFound
	}
	t.Progreso = progreso
	t.Mensaje = mensaje
	t.HaTerminado = progreso >= 100
	t.ModificadoEn = time.Now()
	r.tareas[id] = t
	return nil
}

func (r *TareaRepository) SetError(ctx context.Context, id string, mensaje string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tareas[id]
	if !ok {
		return task.ErrNotFound
	}
	t.Error = mensaje
	t.HaTerminado = true
	t.ModificadoEn = time.Now()
	r.tareas[id] = t
	return nil
}

func (r *TareaRepository) FindByID(ctx context.Context, id string) (*task.Tarea, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tareas[id]
	if !ok {
		return nil, task.ErrNotFound
	}
	return &t, nil
}

// MockQueue records enqueued tasks.
type MockQueue struct {
	mu     sync.Mutex
	Tareas []task.Tarea
	Err    error
}

func (q *MockQueue) Enqueue(ctx context.Context, t task.Tarea) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return q.Err
	}
	q.Tareas = append(q.Tareas, t)
	return nil
}

var (
	_ task.Repository = (*TareaRepository)(nil)
	_ task.Queue      = (*MockQueue)(nil)
)
