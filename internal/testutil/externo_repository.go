package testutil

import (
	"context"
	"sort"
	"sync"

	"pjecz/carina/internal/core/externo"
)

// ExternoRepository is an in-memory externo.Repository.
type ExternoRepository struct {
	mu       sync.Mutex
	externos map[string]externo.Externo
	nextID   int64
	Lookups  int
}

func NewExternoRepository(es ...externo.Externo) *ExternoRepository {
	r := &ExternoRepository{externos: make(map[string]externo.Externo)}
	for _, e := range es {
		r.Upsert(context.Background(), e)
	}
	return r
}

func (r *ExternoRepository) FindByClave(ctx context.Context, clave string) (*externo.Externo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Lookups++
	e, ok := r.externos[clave]
	if !ok || e.Estatus == "B" {
		return nil, externo.ErrNotFound
	}
	return &e, nil
}

func (r *ExternoRepository) FindByEstadoID(ctx context.Context, estadoID int64) (*externo.Externo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Lookups++
	for _, e := range r.ordenados() {
		if e.EstadoID == estadoID && e.Estatus != "B" {
			return &e, nil
		}
	}
	return nil, externo.ErrNotFound
}

func (r *ExternoRepository) List(ctx context.Context) ([]externo.Externo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []externo.Externo
	for _, e := range r.ordenados() {
		if e.Estatus != "B" {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *ExternoRepository) Upsert(ctx context.Context, e externo.Externo) (*externo.Externo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if actual, ok := r.externos[e.Clave]; ok {
		e.ID = actual.ID
	} else {
		r.nextID++
		e.ID = r.nextID
	}
	if e.Estatus == "" {
		e.Estatus = "A"
	}
	urls := make(map[externo.Endpoint]string, len(e.URLs))
	for k, v := range e.URLs {
		urls[k] = v
	}
	e.URLs = urls
	r.externos[e.Clave] = e
	return &e, nil
}

func (r *ExternoRepository) ordenados() []externo.Externo {
	out := make([]externo.Externo, 0, len(r.externos))
	for _, e := range r.externos {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Clave < out[j].Clave })
	return out
}

var _ externo.Repository = (*ExternoRepository)(nil)
