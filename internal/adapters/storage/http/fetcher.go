package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"pjecz/carina/internal/core/storage"
)

// maxArchivo acota la descarga; los documentos son PDF de algunos MB.
const maxArchivo = 64 << 20

// Fetcher downloads archivo bytes from the document store. Stored URLs may
// be absolute or relative to baseURL.
type Fetcher struct {
	client  *http.Client
	baseURL *url.URL
	token   string
}

func NewFetcher(client *http.Client, baseURL, token string) (*Fetcher, error) {
	f := &Fetcher{client: client, token: token}
	if strings.TrimSpace(baseURL) != "" {
		u, err := url.Parse(strings.TrimSpace(baseURL))
		if err != nil {
			return nil, fmt.Errorf("parse storage base url: %w", err)
		}
		f.baseURL = u
	}
	return f, nil
}

var _ storage.Fetcher = (*Fetcher)(nil)

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	target, err := f.resolve(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d para %s", storage.ErrUnavailable, resp.StatusCode, rawURL)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArchivo+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrUnavailable, err)
	}
	if len(data) > maxArchivo {
		return nil, fmt.Errorf("%w: %s excede el tamaño máximo", storage.ErrUnavailable, rawURL)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s está vacío", storage.ErrUnavailable, rawURL)
	}
	return data, nil
}

func (f *Fetcher) resolve(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("url vacía")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if f.baseURL == nil {
		return "", fmt.Errorf("url relativa %q sin STORAGE_BASE_URL", rawURL)
	}
	return f.baseURL.ResolveReference(u).String(), nil
}
