package storage

import (
	"context"
	"errors"
)

// ErrUnavailable se devuelve cuando el almacenamiento no entrega los bytes.
var ErrUnavailable = errors.New("almacenamiento no disponible")

// Fetcher obtiene el contenido de un archivo por su URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
