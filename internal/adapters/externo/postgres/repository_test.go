package postgres

import (
	"strings"
	"testing"

	"pjecz/carina/internal/core/externo"
)

func TestRepositoryImplementsInterface(t *testing.T) {
	var _ externo.Repository = (*Repository)(nil)
}

func TestEndpointColumns_FollowEndpointOrder(t *testing.T) {
	cols := endpointColumns()
	if len(cols) != 9 {
		t.Fatalf("expected 9 endpoint columns, got %d", len(cols))
	}
	if cols[0] != "endpoint_consultar_materias" || cols[8] != "endpoint_recibir_promocion_archivo" {
		t.Errorf("unexpected column order: %v", cols)
	}
}

func TestSelectExterno_CoalescesEndpoints(t *testing.T) {
	q := selectExterno()
	for _, ep := range externo.Endpoints {
		if !strings.Contains(q, "COALESCE("+string(ep)+", '')") {
			t.Errorf("expected %s to be coalesced", ep)
		}
	}
}

func TestNullableText(t *testing.T) {
	if got := nullableText("   "); got != nil {
		t.Errorf("expected nil for blank text, got %v", got)
	}
	if got := nullableText(" https://destino.gob.mx "); got != "https://destino.gob.mx" {
		t.Errorf("expected trimmed text, got %v", got)
	}
	if got := nullableID(0); got != nil {
		t.Errorf("expected nil for zero id, got %v", got)
	}
}
