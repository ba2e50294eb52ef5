package testutil

import (
	"context"
	"sync"

	"pjecz/carina/internal/core/externo"
	"pjecz/carina/internal/core/judicial"
)

// ArchivoEnviado records one RecibirExhortoArchivo call.
type ArchivoEnviado struct {
	Destino         string
	ExhortoOrigenID string
	NombreArchivo   string
	Contenido       []byte
}

// MockJudicialClient is a mock judicial.Client that records every call.
// Without a Func set each operation succeeds.
type MockJudicialClient struct {
	RecibirExhortoFunc        func(ctx context.Context, destino externo.Externo, payload judicial.ExhortoPayload) (*judicial.Acuse, error)
	RecibirExhortoArchivoFunc func(ctx context.Context, destino externo.Externo, exhortoOrigenID, nombreArchivo string, contenido []byte) (*judicial.Acuse, error)
	ConsultarExhortoFunc      func(ctx context.Context, destino externo.Externo, folio string) (*judicial.ConsultaExhorto, error)
	ConsultarMateriasFunc     func(ctx context.Context, destino externo.Externo) error

	mu        sync.Mutex
	Payloads  []judicial.ExhortoPayload
	Archivos  []ArchivoEnviado
	Consultas []string
	Pruebas   []string
}

func (m *MockJudicialClient) RecibirExhorto(ctx context.Context, destino externo.Externo, payload judicial.ExhortoPayload) (*judicial.Acuse, error) {
	m.mu.Lock()
	m.Payloads = append(m.Payloads, payload)
	m.mu.Unlock()
	if m.RecibirExhortoFunc != nil {
		return m.RecibirExhortoFunc(ctx, destino, payload)
	}
	return &judicial.Acuse{ExhortoOrigenID: payload.ExhortoOrigenID}, nil
}

func (m *MockJudicialClient) RecibirExhortoArchivo(ctx context.Context, destino externo.Externo, exhortoOrigenID, nombreArchivo string, contenido []byte) (*judicial.Acuse, error) {
	m.mu.Lock()
	m.Archivos = append(m.Archivos, ArchivoEnviado{
		Destino:         destino.Clave,
		ExhortoOrigenID: exhortoOrigenID,
		NombreArchivo:   nombreArchivo,
		Contenido:       contenido,
	})
	m.mu.Unlock()
	if m.RecibirExhortoArchivoFunc != nil {
		return m.RecibirExhortoArchivoFunc(ctx, destino, exhortoOrigenID, nombreArchivo, contenido)
	}
	return &judicial.Acuse{ExhortoOrigenID: exhortoOrigenID}, nil
}

func (m *MockJudicialClient) ConsultarExhorto(ctx context.Context, destino externo.Externo, folio string) (*judicial.ConsultaExhorto, error) {
	m.mu.Lock()
	m.Consultas = append(m.Consultas, folio)
	m.mu.Unlock()
	if m.ConsultarExhortoFunc != nil {
		return m.ConsultarExhortoFunc(ctx, destino, folio)
	}
	return &judicial.ConsultaExhorto{FolioSeguimiento: folio}, nil
}

func (m *MockJudicialClient) ConsultarMaterias(ctx context.Context, destino externo.Externo) error {
	m.mu.Lock()
	m.Pruebas = append(m.Pruebas, destino.Clave)
	m.mu.Unlock()
	if m.ConsultarMateriasFunc != nil {
		return m.ConsultarMateriasFunc(ctx, destino)
	}
	return nil
}

// Llamadas counts every network call made through the mock.
func (m *MockJudicialClient) Llamadas() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Payloads) + len(m.Archivos) + len(m.Consultas) + len(m.Pruebas)
}

var _ judicial.Client = (*MockJudicialClient)(nil)
