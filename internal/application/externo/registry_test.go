package externo

import (
	"context"
	"errors"
	"testing"
	"time"

	coreexterno "pjecz/carina/internal/core/externo"
	"pjecz/carina/internal/testutil"
)

func TestRegistry_PorEstado_Cached(t *testing.T) {
	repo := testutil.NewExternoRepository(coreexterno.Externo{Clave: "NL", EstadoID: 19, APIKey: "k"})
	r := NewRegistry(repo, nil, time.Minute, testutil.NewNullLogger())

	for i := 0; i < 3; i++ {
		e, err := r.PorEstado(context.Background(), 19)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if e.Clave != "NL" {
			t.Errorf("expected NL, got %s", e.Clave)
		}
	}
	if repo.Lookups != 1 {
		t.Errorf("expected 1 repository lookup, got %d", repo.Lookups)
	}
}

func TestRegistry_PorEstado_NotFoundNotCached(t *testing.T) {
	repo := testutil.NewExternoRepository()
	r := NewRegistry(repo, nil, time.Minute, testutil.NewNullLogger())

	for i := 0; i < 2; i++ {
		if _, err := r.PorEstado(context.Background(), 5); !errors.Is(err, coreexterno.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if repo.Lookups != 2 {
		t.Errorf("expected misses to reach the repository, got %d lookups", repo.Lookups)
	}
}

func TestRegistry_Alimentar(t *testing.T) {
	repo := testutil.NewExternoRepository(coreexterno.Externo{Clave: "NL", EstadoID: 19, Descripcion: "Viejo"})
	rec := &testutil.MockRecorder{}
	r := NewRegistry(repo, rec, time.Minute, testutil.NewNullLogger())

	if _, err := r.PorEstado(context.Background(), 19); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := r.Alimentar(context.Background(), []coreexterno.Externo{
		{Clave: "NL", EstadoID: 19, Descripcion: "Nuevo León"},
		{Clave: "DGO", EstadoID: 10, Descripcion: "Durango"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 upserts, got %d", n)
	}
	if rec.Total() != 2 || !rec.Contiene("Alimentado Externo DGO") {
		t.Errorf("expected bitácora entries, got %+v", rec.Entradas)
	}

	e, err := r.PorEstado(context.Background(), 19)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Descripcion != "Nuevo León" {
		t.Errorf("expected cache to be cleared, got %q", e.Descripcion)
	}
}

func TestRegistry_Alimentar_SinClave(t *testing.T) {
	r := NewRegistry(testutil.NewExternoRepository(), nil, time.Minute, testutil.NewNullLogger())
	if _, err := r.Alimentar(context.Background(), []coreexterno.Externo{{Descripcion: "sin clave"}}); err == nil {
		t.Fatal("expected error for entry without clave")
	}
}
