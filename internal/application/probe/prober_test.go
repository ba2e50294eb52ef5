package probe

import (
	"context"
	"errors"
	"testing"

	"pjecz/carina/internal/application/externo"
	coreexterno "pjecz/carina/internal/core/externo"
	"pjecz/carina/internal/core/judicial"
	"pjecz/carina/internal/testutil"
)

func entrada(clave string, estadoID int64, url string) coreexterno.Externo {
	urls := map[coreexterno.Endpoint]string{}
	if url != "" {
		urls[coreexterno.EndpointConsultarMaterias] = url
	}
	return coreexterno.Externo{Clave: clave, EstadoID: estadoID, APIKey: "k", URLs: urls}
}

func sinAPIKey(e coreexterno.Externo) coreexterno.Externo {
	e.APIKey = ""
	return e
}

func newProber(client *testutil.MockJudicialClient, es ...coreexterno.Externo) *Prober {
	registry := externo.NewRegistry(testutil.NewExternoRepository(es...), nil, 0, testutil.NewNullLogger())
	return NewProber(registry, client, nil, testutil.NewNullLogger())
}

func TestProbar(t *testing.T) {
	fallaZAC := func(ctx context.Context, d coreexterno.Externo) error {
		if d.Clave == "ZAC" {
			return &judicial.CommunicationError{Operacion: "consultar_materias", Status: 500}
		}
		return nil
	}

	tests := []struct {
		name        string
		externos    []coreexterno.Externo
		clave       string
		materias    func(context.Context, coreexterno.Externo) error
		wantMensaje string
		wantErr     error
		wantPruebas []string
	}{
		{
			name:        "una clave con éxito",
			externos:    []coreexterno.Externo{entrada("SLP", 24, "https://slp/materias")},
			clave:       "slp",
			wantMensaje: "Éxito en SLP a endpoint_consultar_materias",
			wantPruebas: []string{"SLP"},
		},
		{
			name:        "una clave con error",
			externos:    []coreexterno.Externo{entrada("ZAC", 32, "https://zac/materias")},
			clave:       "ZAC",
			materias:    fallaZAC,
			wantMensaje: "ERROR en ZAC a endpoint_consultar_materias: status 500",
			wantPruebas: []string{"ZAC"},
		},
		{
			name:        "sin endpoint no llama",
			externos:    []coreexterno.Externo{entrada("AGS", 1, "")},
			clave:       "AGS",
			wantMensaje: "Sin configuración en AGS: falta endpoint_consultar_materias",
			wantPruebas: []string{},
		},
		{
			name: "todos",
			externos: []coreexterno.Externo{
				entrada("SLP", 24, "https://slp/materias"),
				entrada("ZAC", 32, "https://zac/materias"),
				entrada("AGS", 1, ""),
			},
			materias:    fallaZAC,
			wantMensaje: "1 respuestas exitosas de 2",
			wantPruebas: []string{"SLP", "ZAC"},
		},
		{
			name: "api key vacía no cuenta en el total",
			externos: []coreexterno.Externo{
				entrada("SLP", 24, "https://slp/materias"),
				sinAPIKey(entrada("AGS", 1, "https://ags/materias")),
			},
			wantMensaje: "1 respuestas exitosas de 1",
			wantPruebas: []string{"SLP"},
		},
		{
			name:        "una clave sin api key",
			externos:    []coreexterno.Externo{sinAPIKey(entrada("AGS", 1, "https://ags/materias"))},
			clave:       "AGS",
			wantMensaje: "Sin configuración en AGS: falta api_key",
			wantPruebas: []string{},
		},
		{
			name:     "clave desconocida",
			externos: []coreexterno.Externo{entrada("SLP", 24, "https://slp/materias")},
			clave:    "XXX",
			wantErr:  coreexterno.ErrNotFound,
		},
		{
			name:    "registro vacío",
			wantErr: coreexterno.ErrEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &testutil.MockJudicialClient{ConsultarMateriasFunc: tt.materias}
			p := newProber(client, tt.externos...)

			mensaje, pruebas, err := p.Probar(context.Background(), tt.clave)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if client.Llamadas() != 0 {
					t.Errorf("expected no calls, got %d", client.Llamadas())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if mensaje != tt.wantMensaje {
				t.Errorf("mensaje = %q, want %q", mensaje, tt.wantMensaje)
			}
			// Los externos se listan ordenados por clave.
			got := client.Pruebas
			if len(got) != len(tt.wantPruebas) {
				t.Fatalf("expected pruebas %v, got %v", tt.wantPruebas, got)
			}
			if len(pruebas) != len(tt.wantPruebas) {
				t.Fatalf("expected results %v, got %+v", tt.wantPruebas, pruebas)
			}
			for i, pr := range pruebas {
				if pr.Clave != tt.wantPruebas[i] {
					t.Errorf("pruebas[%d] = %s, want %s", i, pr.Clave, tt.wantPruebas[i])
				}
			}
		})
	}
}
