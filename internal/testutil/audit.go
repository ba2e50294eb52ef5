package testutil

import (
	"context"
	"strings"
	"sync"

	"pjecz/carina/internal/core/audit"
)

// MockRecorder keeps bitácora entries in memory.
type MockRecorder struct {
	mu       sync.Mutex
	Entradas []audit.Bitacora
	Err      error
}

func (m *MockRecorder) Record(ctx context.Context, b audit.Bitacora) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Entradas = append(m.Entradas, b)
	return nil
}

// Contiene reports whether any entry description includes s.
func (m *MockRecorder) Contiene(s string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.Entradas {
		if strings.Contains(b.Descripcion, s) {
			return true
		}
	}
	return false
}

// Total returns the number of recorded entries.
func (m *MockRecorder) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Entradas)
}

var _ audit.Recorder = (*MockRecorder)(nil)
