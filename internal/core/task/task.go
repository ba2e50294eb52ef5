package task

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnknown se devuelve para nombres de tarea no registrados.
	ErrUnknown = errors.New("tarea desconocida")
	// ErrNotFound se devuelve cuando no existe la tarea.
	ErrNotFound = errors.New("tarea no encontrada")
)

// Nombre identifica una operación en segundo plano.
type Nombre string

const (
	ConsultarExhortos Nombre = "exh_exhortos.consultar"
	EnviarExhortos    Nombre = "exh_exhortos.enviar"
	ProbarEndpoints   Nombre = "exh_externos.probar_endpoints"
)

// Nombres registrados.
var Nombres = []Nombre{ConsultarExhortos, EnviarExhortos, ProbarEndpoints}

// Valido indica si el nombre está registrado.
func (n Nombre) Valido() bool {
	for _, v := range Nombres {
		if v == n {
			return true
		}
	}
	return false
}

// Tarea es una ejecución de una operación en segundo plano. Param es el
// folio_seguimiento, el exhorto_origen_id o la clave, según la tarea.
type Tarea struct {
	ID           string    `json:"id"`
	Nombre       Nombre    `json:"nombre"`
	Param        string    `json:"param,omitempty"`
	Progreso     int       `json:"progreso"`
	HaTerminado  bool      `json:"ha_terminado"`
	Mensaje      string    `json:"mensaje,omitempty"`
	Error        string    `json:"error,omitempty"`
	CreadoEn     time.Time `json:"creado"`
	ModificadoEn time.Time `json:"modificado"`
}

// Queue entrega tareas a los trabajadores.
type Queue interface {
	Enqueue(ctx context.Context, t Tarea) error
}

// Repository guarda el avance de las tareas.
type Repository interface {
	Create(ctx context.Context, t Tarea) error
	SetProgress(ctx context.Context, id string, progreso int, mensaje string) error
	SetError(ctx context.Context, id string, mensaje string) error
	FindByID(ctx context.Context, id string) (*Tarea, error)
}
