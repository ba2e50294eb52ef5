package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pjecz/carina/internal/core/externo"
)

// Repository implements externo.Repository using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL registry repository.
func NewRepository(pool *pgxpool.Pool) externo.Repository {
	return &Repository{pool: pool}
}

// endpointColumns lists the endpoint columns in the order of externo.Endpoints.
func endpointColumns() []string {
	cols := make([]string, len(externo.Endpoints))
	for i, ep := range externo.Endpoints {
		cols[i] = string(ep)
	}
	return cols
}

func selectExterno() string {
	cols := endpointColumns()
	for i, c := range cols {
		cols[i] = "COALESCE(" + c + ", '')"
	}
	return `
		SELECT id, clave, descripcion, COALESCE(estado_id, 0), COALESCE(api_key, ''),
		       ` + strings.Join(cols, ", ") + `, estatus
		FROM exh_externos
	`
}

func scanExterno(row pgx.Row) (*externo.Externo, error) {
	var e externo.Externo
	urls := make([]string, len(externo.Endpoints))

	dest := []any{&e.ID, &e.Clave, &e.Descripcion, &e.EstadoID, &e.APIKey}
	for i := range urls {
		dest = append(dest, &urls[i])
	}
	dest = append(dest, &e.Estatus)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	e.URLs = make(map[externo.Endpoint]string, len(urls))
	for i, ep := range externo.Endpoints {
		if urls[i] != "" {
			e.URLs[ep] = urls[i]
		}
	}
	e.Estatus = strings.TrimSpace(e.Estatus)
	return &e, nil
}

func (r *Repository) findOne(ctx context.Context, where string, arg any) (*externo.Externo, error) {
	e, err := scanExterno(r.pool.QueryRow(ctx, selectExterno()+" WHERE "+where+" AND estatus = 'A' ORDER BY id LIMIT 1", arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, externo.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query externo: %w", err)
	}
	return e, nil
}

func (r *Repository) FindByClave(ctx context.Context, clave string) (*externo.Externo, error) {
	return r.findOne(ctx, "clave = $1", strings.ToUpper(strings.TrimSpace(clave)))
}

func (r *Repository) FindByEstadoID(ctx context.Context, estadoID int64) (*externo.Externo, error) {
	return r.findOne(ctx, "estado_id = $1", estadoID)
}

func (r *Repository) List(ctx context.Context) ([]externo.Externo, error) {
	rows, err := r.pool.Query(ctx, selectExterno()+" WHERE estatus = 'A' ORDER BY clave")
	if err != nil {
		return nil, fmt.Errorf("query externos: %w", err)
	}
	defer rows.Close()

	var externos []externo.Externo
	for rows.Next() {
		e, err := scanExterno(rows)
		if err != nil {
			return nil, fmt.Errorf("scan externo: %w", err)
		}
		externos = append(externos, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate externos: %w", err)
	}
	return externos, nil
}

// Upsert inserts or updates by clave. Empty endpoints are stored as NULL.
func (r *Repository) Upsert(ctx context.Context, e externo.Externo) (*externo.Externo, error) {
	e.Clave = strings.ToUpper(strings.TrimSpace(e.Clave))
	if e.Clave == "" {
		return nil, fmt.Errorf("upsert externo: clave es requerida")
	}

	cols := endpointColumns()
	args := []any{e.Clave, e.Descripcion, nullableID(e.EstadoID), nullableText(e.APIKey)}
	placeholders := []string{"$1", "$2", "$3", "$4"}
	updates := []string{
		"descripcion = EXCLUDED.descripcion",
		"estado_id = EXCLUDED.estado_id",
		"api_key = EXCLUDED.api_key",
	}
	for i, c := range cols {
		args = append(args, nullableText(e.URL(externo.Endpoints[i])))
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		updates = append(updates, c+" = EXCLUDED."+c)
	}
	updates = append(updates, "estatus = 'A'", "modificado = NOW()")

	query := `
		INSERT INTO exh_externos (clave, descripcion, estado_id, api_key, ` + strings.Join(cols, ", ") + `)
		VALUES (` + strings.Join(placeholders, ", ") + `)
		ON CONFLICT (clave) DO UPDATE SET ` + strings.Join(updates, ", ") + `
		RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&e.ID); err != nil {
		return nil, fmt.Errorf("upsert externo: %w", err)
	}
	e.Estatus = "A"
	return &e, nil
}

func nullableText(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return s
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
