package judicial

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pjecz/carina/internal/core/externo"
)

var (
	// ErrCommunication cubre conexión, tiempo agotado, status no 2xx y
	// acuses mal formados. Es transitorio.
	ErrCommunication = errors.New("falla de comunicación")
	// ErrRejected indica que el destino respondió success=false. Es definitivo.
	ErrRejected = errors.New("rechazado por el destino")
)

// CommunicationError detalla una falla de comunicación.
type CommunicationError struct {
	Operacion string
	Status    int
	Err       error
}

func (e *CommunicationError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s en %s: status %d", ErrCommunication, e.Operacion, e.Status)
	}
	return fmt.Sprintf("%s en %s: %v", ErrCommunication, e.Operacion, e.Err)
}

func (e *CommunicationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrCommunication}
	}
	return []error{ErrCommunication, e.Err}
}

// RejectionError lleva el mensaje y los errores devueltos por el destino.
type RejectionError struct {
	Operacion string
	Message   string
	Errors    []string
}

func (e *RejectionError) Error() string {
	detalle := e.Message
	if len(e.Errors) > 0 {
		detalle = strings.TrimSpace(detalle + " " + strings.Join(e.Errors, ", "))
	}
	return fmt.Sprintf("%s en %s: %s", ErrRejected, e.Operacion, detalle)
}

func (e *RejectionError) Unwrap() error { return ErrRejected }

// Acuse es la confirmación de recepción del destino.
type Acuse struct {
	ExhortoOrigenID    string `json:"exhortoOrigenId"`
	FechaHoraRecepcion *Fecha `json:"fechaHoraRecepcion,omitempty"`
	Message            string `json:"-"`
}

// ConsultaExhorto es el estado remoto de un exhorto enviado.
type ConsultaExhorto struct {
	ExhortoOrigenID        string           `json:"exhortoOrigenId"`
	FolioSeguimiento       string           `json:"folioSeguimiento"`
	EstadoDestinoID        int              `json:"estadoDestinoId"`
	MunicipioDestinoID     int              `json:"municipioDestinoId"`
	MunicipioTurnadoID     int              `json:"municipioTurnadoId"`
	MunicipioTurnadoNombre string           `json:"municipioTurnadoNombre"`
	AreaTurnadoID          string           `json:"areaTurnadoId"`
	AreaTurnadoNombre      string           `json:"areaTurnadoNombre"`
	NumeroExhorto          string           `json:"numeroExhorto"`
	URLInfo                string           `json:"urlInfo"`
	FechaHoraRecepcion     *Fecha           `json:"fechaHoraRecepcion,omitempty"`
	RespuestaOrigenID      string           `json:"respuestaOrigenId"`
	Archivos               []ArchivoPayload `json:"archivos"`
}

// Client is the port to a destination jurisdiction's exhorto API.
type Client interface {
	RecibirExhorto(ctx context.Context, destino externo.Externo, payload ExhortoPayload) (*Acuse, error)
	RecibirExhortoArchivo(ctx context.Context, destino externo.Externo, exhortoOrigenID, nombreArchivo string, contenido []byte) (*Acuse, error)
	ConsultarExhorto(ctx context.Context, destino externo.Externo, folioSeguimiento string) (*ConsultaExhorto, error)
	ConsultarMaterias(ctx context.Context, destino externo.Externo) error
}
