package exhorto

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Remitente distingue los exhortos elaborados aquí de los recibidos.
type Remitente string

const (
	RemitenteInterno Remitente = "INTERNO"
	RemitenteExterno Remitente = "EXTERNO"
)

// Estatus es la marca de borrado lógico, independiente del estado.
type Estatus string

const (
	EstatusActivo    Estatus = "A"
	EstatusEliminado Estatus = "B"
)

// Longitudes máximas de las columnas de texto.
const (
	MaxObservaciones = 1024
	MaxTexto         = 256
	MaxJuzgadoID     = 64
)

// Exhorto es la solicitud de colaboración judicial entre jurisdicciones.
type Exhorto struct {
	ID               int64
	FolioSeguimiento string
	ExhortoOrigenID  string

	AutoridadID        int64
	ExhAreaID          int64
	MateriaID          int64
	MunicipioOrigenID  int64
	EstadoDestinoID    int64
	MunicipioDestinoID int

	// Claves de catálogo leídas por join, usadas en el formato de intercambio.
	MateriaClave         string
	EstadoOrigenClave    int
	MunicipioOrigenClave int

	JuzgadoOrigenID          string
	JuzgadoOrigenNombre      string
	NumeroExpedienteOrigen   string
	NumeroOficioOrigen       string
	TipoJuicioAsuntoDelitos  string
	JuezExhortante           string
	Fojas                    int
	DiasResponder            int
	TipoDiligenciacionNombre string
	FechaOrigen              time.Time
	Observaciones            string

	Estado        Estado
	Remitente     Remitente
	Reintentos    Reintentos
	NumeroExhorto string

	// Datos que informa la jurisdicción destino.
	FechaHoraRecepcion     *time.Time
	MunicipioTurnadoID     int
	MunicipioTurnadoNombre string
	AreaTurnadoID          string
	AreaTurnadoNombre      string
	URLInfo                string
	RespuestaOrigenID      string

	Estatus      Estatus
	CreadoEn     time.Time
	ModificadoEn time.Time

	Partes   []Parte
	Archivos []Archivo
}

// PartesActivas devuelve las partes no eliminadas.
func (e Exhorto) PartesActivas() []Parte {
	activas := make([]Parte, 0, len(e.Partes))
	for _, p := range e.Partes {
		if p.Estatus != EstatusEliminado {
			activas = append(activas, p)
		}
	}
	return activas
}

// ArchivosParaEnviar devuelve los archivos activos propios, en orden, sin
// los recibidos en una respuesta.
func (e Exhorto) ArchivosParaEnviar() []Archivo {
	activos := make([]Archivo, 0, len(e.Archivos))
	for _, a := range e.Archivos {
		if a.Estatus != EstatusEliminado && !a.EsRespuesta {
			activos = append(activos, a)
		}
	}
	return activos
}

// Vencido indica si ya pasaron dias_responder desde la recepción.
// Sin días o sin fecha de recepción no hay plazo.
func (e Exhorto) Vencido(ahora time.Time) bool {
	if e.DiasResponder <= 0 || e.FechaHoraRecepcion == nil {
		return false
	}
	limite := e.FechaHoraRecepcion.Add(time.Duration(e.DiasResponder) * 24 * time.Hour)
	return ahora.After(limite)
}

// Validar revisa los campos descriptivos obligatorios y las longitudes.
func (e Exhorto) Validar() error {
	var errs []string
	requerido := func(campo, valor string) {
		if strings.TrimSpace(valor) == "" {
			errs = append(errs, campo+" es requerido")
		}
	}
	maximo := func(campo, valor string, n int) {
		if utf8.RuneCountInString(valor) > n {
			errs = append(errs, campo+" excede la longitud máxima")
		}
	}

	requerido("numero_expediente_origen", e.NumeroExpedienteOrigen)
	requerido("tipo_juicio_asunto_delitos", e.TipoJuicioAsuntoDelitos)
	if e.MateriaID <= 0 {
		errs = append(errs, "materia_id es requerido")
	}
	if e.MunicipioOrigenID <= 0 {
		errs = append(errs, "municipio_origen_id es requerido")
	}
	if e.EstadoDestinoID <= 0 {
		errs = append(errs, "estado_destino_id es requerido")
	}
	if e.MunicipioDestinoID <= 0 {
		errs = append(errs, "municipio_destino_id es requerido")
	}
	if e.Fojas < 0 {
		errs = append(errs, "fojas no puede ser negativo")
	}
	if e.DiasResponder < 0 {
		errs = append(errs, "dias_responder no puede ser negativo")
	}

	maximo("juzgado_origen_id", e.JuzgadoOrigenID, MaxJuzgadoID)
	maximo("juzgado_origen_nombre", e.JuzgadoOrigenNombre, MaxTexto)
	maximo("numero_expediente_origen", e.NumeroExpedienteOrigen, MaxTexto)
	maximo("numero_oficio_origen", e.NumeroOficioOrigen, MaxTexto)
	maximo("tipo_juicio_asunto_delitos", e.TipoJuicioAsuntoDelitos, MaxTexto)
	maximo("juez_exhortante", e.JuezExhortante, MaxTexto)
	maximo("tipo_diligenciacion_nombre", e.TipoDiligenciacionNombre, MaxTexto)
	maximo("observaciones", e.Observaciones, MaxObservaciones)

	if len(errs) > 0 {
		return &ValidationError{Errores: errs}
	}
	return nil
}
