// Package delivery sends exhortos in POR ENVIAR to their destination
// jurisdiction: metadata first, then each archivo in order.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"pjecz/carina/internal/core/audit"
	"pjecz/carina/internal/core/exhorto"
	"pjecz/carina/internal/core/externo"
	"pjecz/carina/internal/core/judicial"
	"pjecz/carina/internal/core/storage"
	ctxutil "pjecz/carina/internal/infrastructure/context"
	"pjecz/carina/internal/infrastructure/metrics"
)

// Resolver finds the registry entry serving a jurisdiction.
type Resolver interface {
	PorEstado(ctx context.Context, estadoID int64) (*externo.Externo, error)
}

type Config struct {
	MaximoIntentos int
	Politica       exhorto.PoliticaReintentos
	Pausa          time.Duration
	LeaseTTL       time.Duration
}

// Opciones of one run. ExhortoOrigenID limits the run to that exhorto;
// Probar prints the payloads to Salida and touches nothing.
type Opciones struct {
	ExhortoOrigenID string
	Probar          bool
	Salida          io.Writer
}

// Resumen counts the outcome of every candidate of a run.
type Resumen struct {
	Candidatos       int
	Recibidos        int
	Rechazados       int
	Reintentar       int
	Agotados         int
	Omitidos         int
	SinConfiguracion int
	Errores          int
}

func (r Resumen) Mensaje() string {
	if r.Candidatos == 0 {
		return "No hay exhortos por enviar."
	}
	return fmt.Sprintf("Se enviaron %d con éxito.", r.Recibidos)
}

func (r *Resumen) contar(resultado string) {
	switch resultado {
	case metrics.ResultadoRecibido:
		r.Recibidos++
	case metrics.ResultadoRechazado:
		r.Rechazados++
	case metrics.ResultadoReintentar:
		r.Reintentar++
	case metrics.ResultadoAgotado:
		r.Agotados++
	case metrics.ResultadoSinConfiguracion:
		r.SinConfiguracion++
	case metrics.ResultadoError:
		r.Errores++
	default:
		r.Omitidos++
	}
}

type Engine struct {
	repo     exhorto.Repository
	registry Resolver
	client   judicial.Client
	fetcher  storage.Fetcher
	recorder audit.Recorder
	metrics  *metrics.Metrics
	cfg      Config
	log      *slog.Logger
	owner    string
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewEngine(
	repo exhorto.Repository,
	registry Resolver,
	client judicial.Client,
	fetcher storage.Fetcher,
	recorder audit.Recorder,
	m *metrics.Metrics,
	cfg Config,
	log *slog.Logger,
) *Engine {
	return &Engine{
		repo:     repo,
		registry: registry,
		client:   client,
		fetcher:  fetcher,
		recorder: recorder,
		metrics:  m,
		cfg:      cfg,
		log:      log.With("component", "delivery"),
		owner:    "enviar-" + uuid.NewString(),
		now:      time.Now,
		sleep:    ctxutil.Sleep,
	}
}

// Enviar processes the candidates one after the other. Errors of a single
// exhorto are logged and counted; only lookup failures abort the run.
func (e *Engine) Enviar(ctx context.Context, opts Opciones) (Resumen, error) {
	candidatos, err := e.candidatos(ctx, opts.ExhortoOrigenID)
	if err != nil {
		return Resumen{}, err
	}

	resumen := Resumen{Candidatos: len(candidatos)}
	for i, ex := range candidatos {
		if err := ctx.Err(); err != nil {
			return resumen, err
		}
		if i > 0 {
			if err := e.sleep(ctx, e.cfg.Pausa); err != nil {
				return resumen, err
			}
		}

		var resultado string
		if opts.Probar {
			resultado = e.probar(ctx, ex, opts.Salida)
		} else {
			resultado = e.enviarUno(ctx, ex)
			e.metrics.Envio(resultado)
		}
		resumen.contar(resultado)
	}

	e.log.Info("envío terminado",
		"candidatos", resumen.Candidatos,
		"recibidos", resumen.Recibidos,
		"rechazados", resumen.Rechazados,
		"reintentar", resumen.Reintentar,
		"agotados", resumen.Agotados,
		"omitidos", resumen.Omitidos,
		"sin_configuracion", resumen.SinConfiguracion,
		"errores", resumen.Errores,
	)
	return resumen, nil
}

func (e *Engine) candidatos(ctx context.Context, origenID string) ([]exhorto.Exhorto, error) {
	origenID = strings.TrimSpace(origenID)
	if origenID == "" {
		return e.repo.ListByEstado(ctx, exhorto.EstadoPorEnviar)
	}
	ex, err := e.repo.FindByOrigenID(ctx, origenID, exhorto.RemitenteInterno)
	if err != nil {
		return nil, fmt.Errorf("exhorto %s: %w", origenID, err)
	}
	if ex.Estado != exhorto.EstadoPorEnviar {
		return nil, &exhorto.ValidationError{Errores: []string{
			fmt.Sprintf("el exhorto %s no está en estado %s", origenID, exhorto.EstadoPorEnviar),
		}}
	}
	return []exhorto.Exhorto{*ex}, nil
}

func (e *Engine) enviarUno(ctx context.Context, candidato exhorto.Exhorto) string {
	log := e.log.With(
		"folio_seguimiento", candidato.FolioSeguimiento,
		"exhorto_origen_id", candidato.ExhortoOrigenID,
	)

	ok, err := e.repo.AcquireLease(ctx, candidato.ID, e.owner, e.cfg.LeaseTTL)
	if err != nil {
		log.Error("no se pudo tomar el exhorto", "error", err)
		return metrics.ResultadoError
	}
	if !ok {
		log.Info("exhorto en proceso por otro trabajador", "resultado", metrics.ResultadoOmitido)
		return metrics.ResultadoOmitido
	}
	defer func() {
		if err := e.repo.ReleaseLease(context.WithoutCancel(ctx), candidato.ID, e.owner); err != nil {
			log.Warn("no se pudo liberar el exhorto", "error", err)
		}
	}()

	// La lista pudo envejecer mientras se procesaban los anteriores.
	ex, err := e.repo.FindByID(ctx, candidato.ID)
	if err != nil {
		log.Error("no se pudo leer el exhorto", "error", err)
		return metrics.ResultadoError
	}
	if ex.Estado != exhorto.EstadoPorEnviar {
		log.Info("exhorto ya no está por enviar", "estado", ex.Estado, "resultado", metrics.ResultadoOmitido)
		return metrics.ResultadoOmitido
	}

	ahora := e.now()
	if !ex.Reintentos.Elegible(ahora, e.cfg.Politica) {
		log.Debug("en espera de reintento",
			"intentos", ex.Reintentos.Intentos,
			"proximo_intento", ex.Reintentos.ProximoIntento(e.cfg.Politica),
			"resultado", metrics.ResultadoOmitido,
		)
		return metrics.ResultadoOmitido
	}

	destino, err := e.destino(ctx, *ex)
	if err != nil {
		if errors.Is(err, externo.ErrConfigurationGap) || errors.Is(err, externo.ErrNotFound) {
			log.Warn("destino sin configuración", "estado_destino_id", ex.EstadoDestinoID, "error", err, "resultado", metrics.ResultadoSinConfiguracion)
			return metrics.ResultadoSinConfiguracion
		}
		log.Error("no se pudo resolver el destino", "error", err)
		return metrics.ResultadoError
	}
	log = log.With("destino", destino.Clave)

	acuse, err := e.client.RecibirExhorto(ctx, *destino, judicial.NuevoPayload(*ex))
	if err != nil {
		if errors.Is(err, judicial.ErrRejected) {
			return e.rechazar(ctx, log, ex, destino, "el exhorto", err)
		}
		return e.fallo(ctx, log, ex, destino, err)
	}

	recepcion := ahora
	if acuse.FechaHoraRecepcion != nil && !acuse.FechaHoraRecepcion.Time().IsZero() {
		recepcion = acuse.FechaHoraRecepcion.Time()
	}
	log.Info("exhorto aceptado por el destino", "message", acuse.Message)

	for _, archivo := range ex.ArchivosParaEnviar() {
		if err := e.sleep(ctx, e.cfg.Pausa); err != nil {
			return e.rechazar(ctx, log, ex, destino, "el archivo "+archivo.NombreArchivo, err)
		}
		contenido, err := e.fetcher.Fetch(ctx, archivo.URL)
		if err != nil {
			return e.rechazar(ctx, log, ex, destino, "el archivo "+archivo.NombreArchivo, err)
		}
		if _, err := e.client.RecibirExhortoArchivo(ctx, *destino, ex.ExhortoOrigenID, archivo.NombreArchivo, contenido); err != nil {
			return e.rechazar(ctx, log, ex, destino, "el archivo "+archivo.NombreArchivo, err)
		}
		log.Info("archivo enviado", "nombre_archivo", archivo.NombreArchivo, "bytes", len(contenido))
	}

	actualizado, err := e.repo.Mutate(ctx, ex.ID, func(ex *exhorto.Exhorto) error {
		if ex.FechaHoraRecepcion == nil {
			ex.FechaHoraRecepcion = &recepcion
		}
		return exhorto.Aplicar(ex, exhorto.EventoEntregado, e.contexto())
	})
	if err != nil {
		log.Error("no se pudo guardar la entrega", "error", err)
		return metrics.ResultadoError
	}
	e.registrar(ctx, actualizado, fmt.Sprintf("Exhorto %s RECIBIDO CON EXITO por %s", actualizado.ExhortoOrigenID, destino.Clave))
	log.Info("exhorto enviado", "estado", actualizado.Estado, "resultado", metrics.ResultadoRecibido)
	return metrics.ResultadoRecibido
}

func (e *Engine) destino(ctx context.Context, ex exhorto.Exhorto) (*externo.Externo, error) {
	destino, err := e.registry.PorEstado(ctx, ex.EstadoDestinoID)
	if err != nil {
		return nil, err
	}
	if err := destino.Requiere(externo.EndpointRecibirExhorto, externo.EndpointRecibirExhortoArchivo); err != nil {
		return nil, err
	}
	return destino, nil
}

// rechazar is definitive: it consumes no retry.
func (e *Engine) rechazar(ctx context.Context, log *slog.Logger, ex *exhorto.Exhorto, destino *externo.Externo, que string, causa error) string {
	actualizado, err := e.repo.Mutate(ctx, ex.ID, func(ex *exhorto.Exhorto) error {
		return exhorto.Aplicar(ex, exhorto.EventoRechazado, e.contexto())
	})
	if err != nil {
		log.Error("no se pudo guardar el rechazo", "error", err, "causa", causa)
		return metrics.ResultadoError
	}
	detalle := Detalle(causa)
	e.registrar(ctx, actualizado, fmt.Sprintf("Exhorto %s RECHAZADO por %s al enviar %s: %s", actualizado.ExhortoOrigenID, destino.Clave, que, detalle))
	log.Warn("exhorto rechazado", "detalle", detalle, "estado", actualizado.Estado, "resultado", metrics.ResultadoRechazado)
	return metrics.ResultadoRechazado
}

func (e *Engine) fallo(ctx context.Context, log *slog.Logger, ex *exhorto.Exhorto, destino *externo.Externo, causa error) string {
	actualizado, err := e.repo.Mutate(ctx, ex.ID, func(ex *exhorto.Exhorto) error {
		return exhorto.Aplicar(ex, exhorto.EventoFalloComunicacion, e.contexto())
	})
	if err != nil {
		log.Error("no se pudo guardar el fallo", "error", err, "causa", causa)
		return metrics.ResultadoError
	}

	resultado := metrics.ResultadoReintentar
	descripcion := fmt.Sprintf("Falla de comunicación al enviar Exhorto %s a %s, intento %d", actualizado.ExhortoOrigenID, destino.Clave, actualizado.Reintentos.Intentos)
	if actualizado.Estado == exhorto.EstadoIntentosAgotados {
		resultado = metrics.ResultadoAgotado
		descripcion = fmt.Sprintf("Exhorto %s con INTENTOS AGOTADOS al enviar a %s", actualizado.ExhortoOrigenID, destino.Clave)
	}
	e.registrar(ctx, actualizado, descripcion)
	log.Warn("falla de comunicación",
		"error", causa,
		"intentos", actualizado.Reintentos.Intentos,
		"estado", actualizado.Estado,
		"resultado", resultado,
	)
	return resultado
}

// probar resolves the destination and prints the payload. It never
// contacts the destination nor writes.
func (e *Engine) probar(ctx context.Context, ex exhorto.Exhorto, salida io.Writer) string {
	log := e.log.With("folio_seguimiento", ex.FolioSeguimiento, "exhorto_origen_id", ex.ExhortoOrigenID)
	destino, err := e.destino(ctx, ex)
	if err != nil {
		log.Warn("destino sin configuración", "error", err)
		return metrics.ResultadoSinConfiguracion
	}

	payload, err := json.MarshalIndent(judicial.NuevoPayload(ex), "", "  ")
	if err != nil {
		log.Error("no se pudo armar el payload", "error", err)
		return metrics.ResultadoError
	}
	if salida != nil {
		fmt.Fprintf(salida, "Exhorto %s para %s\n%s\n", ex.ExhortoOrigenID, destino.Clave, payload)
	}
	log.Info("prueba de envío", "destino", destino.Clave, "archivos", len(ex.ArchivosParaEnviar()), "resultado", metrics.ResultadoOmitido)
	return metrics.ResultadoOmitido
}

func (e *Engine) contexto() exhorto.Contexto {
	return exhorto.Contexto{Ahora: e.now(), MaximoIntentos: e.cfg.MaximoIntentos}
}

func (e *Engine) registrar(ctx context.Context, ex *exhorto.Exhorto, descripcion string) {
	if e.recorder == nil {
		return
	}
	err := e.recorder.Record(context.WithoutCancel(ctx), audit.Bitacora{
		Modulo:      audit.ModuloExhortos,
		Descripcion: descripcion,
		URL:         fmt.Sprintf("/exh_exhortos/%d", ex.ID),
	})
	if err != nil {
		e.log.Warn("no se pudo registrar bitácora", "folio_seguimiento", ex.FolioSeguimiento, "error", err)
	}
}

// Detalle extracts the destination's message and errors from a rejection,
// or the plain error text otherwise.
func Detalle(err error) string {
	var rej *judicial.RejectionError
	if errors.As(err, &rej) {
		partes := []string{}
		if rej.Message != "" {
			partes = append(partes, rej.Message)
		}
		if len(rej.Errors) > 0 {
			partes = append(partes, strings.Join(rej.Errors, ", "))
		}
		if len(partes) > 0 {
			return strings.Join(partes, ": ")
		}
	}
	return err.Error()
}
