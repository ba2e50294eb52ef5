package exhorto

import (
	"strings"
	"time"
)

// TipoDocumento del archivo.
type TipoDocumento int

const (
	TipoDocumentoOficio  TipoDocumento = 1
	TipoDocumentoAcuerdo TipoDocumento = 2
	TipoDocumentoAnexo   TipoDocumento = 3
)

// EstadoArchivo de recepción del documento.
type EstadoArchivo string

const (
	EstadoArchivoPendiente EstadoArchivo = "PENDIENTE"
	EstadoArchivoRecibido  EstadoArchivo = "RECIBIDO"
)

// Archivo es la entrada del manifiesto de un documento. Nunca guarda los
// bytes; URL apunta al almacenamiento externo.
type Archivo struct {
	ID                 int64
	ExhortoID          int64
	NombreArchivo      string
	HashSha1           string
	HashSha256         string
	TipoDocumento      TipoDocumento
	URL                string
	Estado             EstadoArchivo
	Tamano             int64
	FechaHoraRecepcion time.Time
	EsRespuesta        bool
	Estatus            Estatus
}

func (a Archivo) Validar() error {
	var errs []string
	if strings.TrimSpace(a.NombreArchivo) == "" {
		errs = append(errs, "nombre_archivo es requerido")
	}
	if len(a.NombreArchivo) > MaxTexto {
		errs = append(errs, "nombre_archivo excede la longitud máxima")
	}
	if a.TipoDocumento < TipoDocumentoOficio || a.TipoDocumento > TipoDocumentoAnexo {
		errs = append(errs, "tipo_documento debe ser 1, 2 o 3")
	}
	if !a.EsRespuesta && strings.TrimSpace(a.URL) == "" {
		errs = append(errs, "url es requerido")
	}
	if a.Tamano < 0 {
		errs = append(errs, "tamano no puede ser negativo")
	}
	if len(errs) > 0 {
		return &ValidationError{Errores: errs}
	}
	return nil
}
