package externo

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("externo no encontrado")
	ErrConfigurationGap = errors.New("externo sin configuración")
	ErrEmpty            = errors.New("no hay externos para probar")
)

// Endpoint nombra cada una de las URL que puede tener un externo.
type Endpoint string

const (
	EndpointConsultarMaterias              Endpoint = "endpoint_consultar_materias"
	EndpointRecibirExhorto                 Endpoint = "endpoint_recibir_exhorto"
	EndpointRecibirExhortoArchivo          Endpoint = "endpoint_recibir_exhorto_archivo"
	EndpointConsultarExhorto               Endpoint = "endpoint_consultar_exhorto"
	EndpointRecibirRespuestaExhorto        Endpoint = "endpoint_recibir_respuesta_exhorto"
	EndpointRecibirRespuestaExhortoArchivo Endpoint = "endpoint_recibir_respuesta_exhorto_archivo"
	EndpointActualizarExhorto              Endpoint = "endpoint_actualizar_exhorto"
	EndpointRecibirPromocion               Endpoint = "endpoint_recibir_promocion"
	EndpointRecibirPromocionArchivo        Endpoint = "endpoint_recibir_promocion_archivo"
)

// Endpoints en el orden de las columnas.
var Endpoints = []Endpoint{
	EndpointConsultarMaterias,
	EndpointRecibirExhorto,
	EndpointRecibirExhortoArchivo,
	EndpointConsultarExhorto,
	EndpointRecibirRespuestaExhorto,
	EndpointRecibirRespuestaExhortoArchivo,
	EndpointActualizarExhorto,
	EndpointRecibirPromocion,
	EndpointRecibirPromocionArchivo,
}

// Externo es la entrada del registro de una jurisdicción destino. Un
// endpoint o api key vacío significa "no integrado".
type Externo struct {
	ID          int64
	Clave       string
	Descripcion string
	EstadoID    int64
	APIKey      string
	URLs        map[Endpoint]string
	Estatus     string
}

// URL devuelve el endpoint sin espacios; vacío si no existe.
func (e Externo) URL(ep Endpoint) string {
	return strings.TrimSpace(e.URLs[ep])
}

// Requiere revisa que existan la api key y los endpoints indicados.
func (e Externo) Requiere(eps ...Endpoint) error {
	var faltantes []string
	if strings.TrimSpace(e.APIKey) == "" {
		faltantes = append(faltantes, "api_key")
	}
	for _, ep := range eps {
		if e.URL(ep) == "" {
			faltantes = append(faltantes, string(ep))
		}
	}
	if len(faltantes) > 0 {
		return &ConfigurationGapError{Clave: e.Clave, Faltantes: faltantes}
	}
	return nil
}

// ConfigurationGapError lista lo que falta configurar en un externo.
type ConfigurationGapError struct {
	Clave     string
	Faltantes []string
}

func (e *ConfigurationGapError) Error() string {
	if e.Clave == "" {
		return fmt.Sprintf("%s: %s", ErrConfigurationGap, strings.Join(e.Faltantes, ", "))
	}
	return fmt.Sprintf("%s %s: falta %s", ErrConfigurationGap, e.Clave, strings.Join(e.Faltantes, ", "))
}

func (e *ConfigurationGapError) Unwrap() error { return ErrConfigurationGap }

// Repository defines the registry persistence contract.
type Repository interface {
	// FindByClave returns ErrNotFound when the clave is unknown.
	FindByClave(ctx context.Context, clave string) (*Externo, error)
	// FindByEstadoID returns the entry serving a jurisdiction or ErrNotFound.
	FindByEstadoID(ctx context.Context, estadoID int64) (*Externo, error)
	// List returns the active entries ordered by clave.
	List(ctx context.Context) ([]Externo, error)
	// Upsert inserts or updates by clave.
	Upsert(ctx context.Context, e Externo) (*Externo, error)
}
