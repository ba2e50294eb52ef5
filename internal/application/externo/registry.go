package externo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pjecz/carina/internal/core/audit"
	coreexterno "pjecz/carina/internal/core/externo"
	"pjecz/carina/internal/infrastructure/cache"
)

// Registry resolves destination jurisdictions to their registry entry.
// Lookups by jurisdiction are cached so a batch reads each destination once.
type Registry struct {
	repo      coreexterno.Repository
	recorder  audit.Recorder
	porEstado *cache.TTLCache[int64, coreexterno.Externo]
	log       *slog.Logger
}

func NewRegistry(repo coreexterno.Repository, recorder audit.Recorder, ttl time.Duration, log *slog.Logger) *Registry {
	return &Registry{
		repo:      repo,
		recorder:  recorder,
		porEstado: cache.NewTTLCache[int64, coreexterno.Externo](ttl),
		log:       log.With("component", "registry"),
	}
}

// PorEstado returns the entry serving estadoID. Misses are not cached.
func (r *Registry) PorEstado(ctx context.Context, estadoID int64) (*coreexterno.Externo, error) {
	if e, ok := r.porEstado.Get(estadoID); ok {
		return &e, nil
	}
	e, err := r.repo.FindByEstadoID(ctx, estadoID)
	if err != nil {
		return nil, err
	}
	r.porEstado.Set(estadoID, *e)
	return e, nil
}

func (r *Registry) PorClave(ctx context.Context, clave string) (*coreexterno.Externo, error) {
	return r.repo.FindByClave(ctx, strings.ToUpper(strings.TrimSpace(clave)))
}

func (r *Registry) Listar(ctx context.Context) ([]coreexterno.Externo, error) {
	return r.repo.List(ctx)
}

// Alimentar upserts entries by clave and drops cached lookups.
func (r *Registry) Alimentar(ctx context.Context, externos []coreexterno.Externo) (int, error) {
	defer r.porEstado.Clear()

	n := 0
	for _, e := range externos {
		if strings.TrimSpace(e.Clave) == "" {
			return n, fmt.Errorf("externo %d sin clave", n+1)
		}
		guardado, err := r.repo.Upsert(ctx, e)
		if err != nil {
			return n, fmt.Errorf("alimentar %s: %w", e.Clave, err)
		}
		n++
		r.log.Info("externo alimentado", "clave", guardado.Clave, "estado_id", guardado.EstadoID)
		if r.recorder != nil {
			if err := r.recorder.Record(ctx, audit.Bitacora{
				Modulo:      audit.ModuloExternos,
				Descripcion: "Alimentado Externo " + guardado.Clave,
				URL:         fmt.Sprintf("/exh_externos/%d", guardado.ID),
			}); err != nil {
				r.log.Warn("no se pudo registrar bitácora", "clave", guardado.Clave, "error", err)
			}
		}
	}
	return n, nil
}
