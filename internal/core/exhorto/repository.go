package exhorto

import (
	"context"
	"time"
)

// MutateFunc recibe el exhorto bloqueado, con sus partes y archivos, y lo
// modifica en memoria. Si devuelve error no se escribe nada.
type MutateFunc func(ex *Exhorto) error

// Repository defines the persistence contract for exhortos, their partes
// and their archivos.
type Repository interface {
	// Create persists a new exhorto and returns it with its ID.
	Create(ctx context.Context, ex Exhorto) (*Exhorto, error)

	// ExisteFolio reports whether a folio_seguimiento is already taken,
	// including soft-deleted records.
	ExisteFolio(ctx context.Context, folio string) (bool, error)

	// FindByID, FindByFolio and FindByOrigenID return ErrNotFound when the
	// record does not exist or is soft-deleted.
	FindByID(ctx context.Context, id int64) (*Exhorto, error)
	FindByFolio(ctx context.Context, folio string) (*Exhorto, error)
	FindByOrigenID(ctx context.Context, origenID string, remitente Remitente) (*Exhorto, error)

	// ListByEstado returns active exhortos in the given estado ordered by ID.
	ListByEstado(ctx context.Context, estado Estado) ([]Exhorto, error)

	// UpdateDatos writes the descriptive fields only. It and the parte and
	// archivo edits below lock the exhorto and return ErrNotEditable unless
	// it is still in an editable estado at write time.
	UpdateDatos(ctx context.Context, ex Exhorto) error

	// Mutate locks the row, applies fn and writes the lifecycle fields, the
	// remote data fields and any new archivo (ID == 0) in one transaction.
	Mutate(ctx context.Context, id int64, fn MutateFunc) (*Exhorto, error)

	// SetEstatus soft-deletes or recovers a record.
	SetEstatus(ctx context.Context, id int64, estatus Estatus) error

	AddParte(ctx context.Context, exhortoID int64, p Parte) (*Parte, error)
	SetParteEstatus(ctx context.Context, exhortoID, parteID int64, estatus Estatus) error
	AddArchivo(ctx context.Context, exhortoID int64, a Archivo) (*Archivo, error)
	SetArchivoEstatus(ctx context.Context, exhortoID, archivoID int64, estatus Estatus) error

	// AcquireLease takes the per-exhorto lease when free, expired or already
	// held by owner. It reports false when another owner holds it.
	AcquireLease(ctx context.Context, id int64, owner string, ttl time.Duration) (bool, error)
	ReleaseLease(ctx context.Context, id int64, owner string) error
}
