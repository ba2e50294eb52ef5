package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pjecz/carina/internal/core/task"
)

// Repository implements task.Repository using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) task.Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, t task.Tarea) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tareas (id, nombre, param, progreso, ha_terminado, mensaje)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, string(t.Nombre), t.Param, t.Progreso, t.HaTerminado, t.Mensaje)
	if err != nil {
		return fmt.Errorf("insert tarea: %w", err)
	}
	return nil
}

// SetProgress marks the tarea as finished once it reaches 100.
func (r *Repository) SetProgress(ctx context.Context, id string, progreso int, mensaje string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tareas
		SET progreso = $2, mensaje = $3, ha_terminado = ($2 >= 100), modificado = NOW()
		WHERE id = $1
	`, id, progreso, mensaje)
	if err != nil {
		return fmt.Errorf("update tarea: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return task.ErrNotFound
	}
	return nil
}

func (r *Repository) SetError(ctx context.Context, id string, mensaje string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tareas
		SET error = $2, ha_terminado = TRUE, modificado = NOW()
		WHERE id = $1
	`, id, mensaje)
	if err != nil {
		return fmt.Errorf("update tarea error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return task.ErrNotFound
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*task.Tarea, error) {
	var t task.Tarea
	var nombre string
	err := r.pool.QueryRow(ctx, `
		SELECT id, nombre, param, progreso, ha_terminado, mensaje, error, creado, modificado
		FROM tareas
		WHERE id = $1
	`, id).Scan(&t.ID, &nombre, &t.Param, &t.Progreso, &t.HaTerminado, &t.Mensaje, &t.Error, &t.CreadoEn, &t.ModificadoEn)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, task.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query tarea: %w", err)
	}
	t.Nombre = task.Nombre(nombre)
	return &t, nil
}
