package audit

import (
	"context"
	"encoding/json"
	"time"
)

// ProviderAuditLog is the trace of one outbound call to a destination
// jurisdiction, with headers and bodies already sanitized.
type ProviderAuditLog struct {
	ID              int64
	CorrelationID   string
	Provider        string
	Operation       string
	RequestMethod   string
	RequestURL      string
	RequestHeaders  map[string]string
	RequestBody     json.RawMessage
	ResponseStatus  *int
	ResponseHeaders map[string]string
	ResponseBody    json.RawMessage
	DurationMs      int64
	ErrorMessage    string
	CreatedAt       time.Time
}

// Repository persists provider call traces.
type Repository interface {
	Save(ctx context.Context, log ProviderAuditLog) error
	FindByCorrelationID(ctx context.Context, correlationID string) ([]ProviderAuditLog, error)
}

// Modulos de la bitácora.
const (
	ModuloExhortos = "EXH EXHORTOS"
	ModuloExternos = "EXH EXTERNOS"
	ModuloTareas   = "TAREAS"
)

// Bitacora es la entrada de auditoría que acompaña cada cambio de estado.
type Bitacora struct {
	ID          int64
	Modulo      string
	Descripcion string
	URL         string
	Usuario     string
	CreadoEn    time.Time
}

// Recorder registra entradas de bitácora.
type Recorder interface {
	Record(ctx context.Context, b Bitacora) error
}
