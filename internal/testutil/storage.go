package testutil

import (
	"context"
	"fmt"
	"sync"

	"pjecz/carina/internal/core/storage"
)

// MockFetcher serves file bytes from a map keyed by URL. Unknown URLs fail
// with storage.ErrUnavailable.
type MockFetcher struct {
	mu       sync.Mutex
	Files    map[string][]byte
	Fetched  []string
	FetchErr error
}

func NewMockFetcher(files map[string][]byte) *MockFetcher {
	if files == nil {
		files = make(map[string][]byte)
	}
	return &MockFetcher{Files: files}
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Fetched = append(m.Fetched, url)
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	b, ok := m.Files[url]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrUnavailable, url)
	}
	return b, nil
}

var _ storage.Fetcher = (*MockFetcher)(nil)
