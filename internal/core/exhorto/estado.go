package exhorto

import (
	"fmt"
	"strings"
	"time"
)

// Estado es el estado del ciclo de vida de un exhorto.
type Estado string

const (
	EstadoPendiente        Estado = "PENDIENTE"
	EstadoPorEnviar        Estado = "POR ENVIAR"
	EstadoRecibidoConExito Estado = "RECIBIDO CON EXITO"
	EstadoRechazado        Estado = "RECHAZADO"
	EstadoIntentosAgotados Estado = "INTENTOS AGOTADOS"
	EstadoRespondido       Estado = "RESPONDIDO"
	EstadoNoFueRespondido  Estado = "NO FUE RESPONDIDO"
	EstadoCancelado        Estado = "CANCELADO"

	// Estados de exhortos recibidos de otra jurisdicción. Se conservan y
	// se muestran, pero ningún proceso automático los mueve.
	EstadoRecibido      Estado = "RECIBIDO"
	EstadoTransfiriendo Estado = "TRANSFIRIENDO"
	EstadoProcesando    Estado = "PROCESANDO"
	EstadoDiligenciado  Estado = "DILIGENCIADO"
	EstadoContestado    Estado = "CONTESTADO"
)

var estadosValidos = map[Estado]string{
	EstadoPendiente:        "Pendiente",
	EstadoPorEnviar:        "Por enviar",
	EstadoRecibidoConExito: "Recibido con exito",
	EstadoRechazado:        "Rechazado",
	EstadoIntentosAgotados: "Intentos agotados",
	EstadoRespondido:       "Respondido",
	EstadoNoFueRespondido:  "No fue respondido",
	EstadoCancelado:        "Cancelado",
	EstadoRecibido:         "Recibido",
	EstadoTransfiriendo:    "Transfiriendo",
	EstadoProcesando:       "Procesando",
	EstadoDiligenciado:     "Diligenciado",
	EstadoContestado:       "Contestado",
}

// ParseEstado convierte texto en Estado; acepta minúsculas y espacios sobrantes.
func ParseEstado(s string) (Estado, error) {
	e := Estado(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := estadosValidos[e]; !ok {
		return "", fmt.Errorf("estado desconocido %q", s)
	}
	return e, nil
}

// Descripcion devuelve la etiqueta legible del estado.
func (e Estado) Descripcion() string {
	return estadosValidos[e]
}

func (e Estado) String() string { return string(e) }

// Editable indica si los campos descriptivos pueden modificarse.
func (e Estado) Editable() bool {
	return e == EstadoPendiente
}

// Evento es una acción, manual o automática, que intenta mover un exhorto
// de un estado a otro.
type Evento string

const (
	EventoEncolar           Evento = "ENCOLAR"
	EventoCancelar          Evento = "CANCELAR"
	EventoEntregado         Evento = "ENTREGADO"
	EventoRechazado         Evento = "RECHAZADO"
	EventoFalloComunicacion Evento = "FALLO_COMUNICACION"
	EventoReintentar        Evento = "REINTENTAR"
	EventoCorregir          Evento = "CORREGIR"
	EventoRespondido        Evento = "RESPONDIDO"
	EventoVencido           Evento = "VENCIDO"
)

// regla describe una arista de la tabla de transiciones. FALLO_COMUNICACION
// tiene dos destinos posibles; el que aplica lo decide el contador.
type regla struct {
	desde  Estado
	hacia  []Estado
	guarda func(ex *Exhorto, c Contexto) error
}

var transiciones = map[Evento]regla{
	EventoEncolar: {
		desde:  EstadoPendiente,
		hacia:  []Estado{EstadoPorEnviar},
		guarda: guardaEncolar,
	},
	EventoCancelar:          {desde: EstadoPendiente, hacia: []Estado{EstadoCancelado}},
	EventoEntregado:         {desde: EstadoPorEnviar, hacia: []Estado{EstadoRecibidoConExito}},
	EventoRechazado:         {desde: EstadoPorEnviar, hacia: []Estado{EstadoRechazado}},
	EventoFalloComunicacion: {desde: EstadoPorEnviar, hacia: []Estado{EstadoPorEnviar, EstadoIntentosAgotados}},
	EventoReintentar:        {desde: EstadoIntentosAgotados, hacia: []Estado{EstadoPorEnviar}},
	EventoCorregir:          {desde: EstadoRechazado, hacia: []Estado{EstadoPendiente}},
	EventoRespondido:        {desde: EstadoRecibidoConExito, hacia: []Estado{EstadoRespondido}},
	EventoVencido:           {desde: EstadoRecibidoConExito, hacia: []Estado{EstadoNoFueRespondido}},
}

// Contexto lleva los datos externos que las guardas necesitan.
type Contexto struct {
	Ahora           time.Time
	MaximoIntentos  int
	PartesActivas   int
	ArchivosActivos int
}

func guardaEncolar(_ *Exhorto, c Contexto) error {
	var faltantes []string
	if c.PartesActivas < 1 {
		faltantes = append(faltantes, "se requiere al menos una parte activa")
	}
	if c.ArchivosActivos < 1 {
		faltantes = append(faltantes, "se requiere al menos un archivo activo")
	}
	if len(faltantes) > 0 {
		return &ValidationError{Errores: faltantes}
	}
	return nil
}

// Permitida indica si la arista desde→hacia existe en la tabla.
func Permitida(desde, hacia Estado) bool {
	for _, r := range transiciones {
		if r.desde != desde {
			continue
		}
		for _, h := range r.hacia {
			if h == hacia {
				return true
			}
		}
	}
	return false
}

// Aplicar es el único punto donde cambian el estado y los reintentos de un
// exhorto. Si el evento no procede el exhorto queda intacto.
func Aplicar(ex *Exhorto, ev Evento, c Contexto) error {
	r, ok := transiciones[ev]
	if !ok || ex.Estado != r.desde {
		return &TransitionError{Estado: ex.Estado, Evento: ev}
	}
	if r.guarda != nil {
		if err := r.guarda(ex, c); err != nil {
			return err
		}
	}
	if c.Ahora.IsZero() {
		c.Ahora = time.Now()
	}

	switch ev {
	case EventoFalloComunicacion:
		ex.Reintentos.RegistrarFallo(c.Ahora)
		if ex.Reintentos.Agotados(c.MaximoIntentos) {
			ex.Estado = EstadoIntentosAgotados
		}
		return nil
	case EventoReintentar:
		ex.Reintentos.Reiniciar()
	case EventoCorregir:
		ex.Reintentos.Reiniciar()
	case EventoEntregado:
		if ex.FechaHoraRecepcion == nil {
			t := c.Ahora
			ex.FechaHoraRecepcion = &t
		}
	}
	ex.Estado = r.hacia[0]
	return nil
}
