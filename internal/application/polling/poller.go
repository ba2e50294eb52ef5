// Package polling consults the destination of every delivered exhorto and
// reconciles the remote answer into the local record.
package polling

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
	ctxutil "pjecz/carina/internal/infrastructure/context"
	"pjecz/carina/internal/infrastructure/metrics"
)

// errSinCambios aborts a Mutate that has nothing to write.
var errSinCambios = errors.New("sin cambios")

type Resolver interface {
	PorEstado(ctx context.Context, estadoID int64) (*externo.Externo, error)
}

type Config struct {
	Pausa    time.Duration
	LeaseTTL time.Duration
}

// Opciones of one run. FolioSeguimiento limits the run to one exhorto.
type Opciones struct {
	FolioSeguimiento string
	Probar           bool
	Salida           io.Writer
}

type Resumen struct {
	Candidatos       int
	Respondidos      int
	NoRespondidos    int
	Actualizados     int
	SinCambios       int
	SinConfiguracion int
	Omitidos         int
	Errores          int
}

func (r Resumen) Mensaje() string {
	if r.Candidatos == 0 {
		return "No hay exhortos por consultar."
	}
	return fmt.Sprintf("Se consultaron %d con éxito.", r.Respondidos)
}

func (r *Resumen) contar(resultado string) {
	switch resultado {
	case metrics.ResultadoRespondido:
		r.Respondidos++
	case metrics.ResultadoNoRespondido:
		r.NoRespondidos++
	case metrics.ResultadoActualizado:
		r.Actualizados++
	case metrics.ResultadoSinCambios:
		r.SinCambios++
	case metrics.ResultadoSinConfiguracion:
		r.SinConfiguracion++
	case metrics.ResultadoError:
		r.Errores++
	default:
		r.Omitidos++
	}
}

type Poller struct {
	repo     exhorto.Repository
	registry Resolver
	client   judicial.Client
	recorder audit.Recorder
	metrics  *metrics.Metrics
	cfg      Config
	log      *slog.Logger
	owner    string
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewPoller(
	repo exhorto.Repository,
	registry Resolver,
	client judicial.Client,
	recorder audit.Recorder,
	m *metrics.Metrics,
	cfg Config,
	log *slog.Logger,
) *Poller {
	return &Poller{
		repo:     repo,
		registry: registry,
		client:   client,
		recorder: recorder,
		metrics:  m,
		cfg:      cfg,
		log:      log.With("component", "polling"),
		owner:    "consultar-" + uuid.NewString(),
		now:      time.Now,
		sleep:    ctxutil.Sleep,
	}
}

// Consultar runs one pass. Per exhorto failures are logged and counted;
// only the candidate lookup aborts the pass.
func (p *Poller) Consultar(ctx context.Context, opts Opciones) (Resumen, error) {
	candidatos, err := p.candidatos(ctx, opts.FolioSeguimiento)
	if err != nil {
		return Resumen{}, err
	}

	resumen := Resumen{Candidatos: len(candidatos)}
	for i, ex := range candidatos {
		if err := ctx.Err(); err != nil {
			return resumen, err
		}
		if i > 0 {
			if err := p.sleep(ctx, p.cfg.Pausa); err != nil {
				return resumen, err
			}
		}

		var resultado string
		if opts.Probar {
			resultado = p.probar(ctx, ex, opts.Salida)
		} else {
			resultado = p.consultarUno(ctx, ex)
			p.metrics.Consulta(resultado)
		}
		resumen.contar(resultado)
	}

	p.log.Info("consulta terminada",
		"candidatos", resumen.Candidatos,
		"respondidos", resumen.Respondidos,
		"no_respondidos", resumen.NoRespondidos,
		"actualizados", resumen.Actualizados,
		"sin_cambios", resumen.SinCambios,
		"sin_configuracion", resumen.SinConfiguracion,
		"omitidos", resumen.Omitidos,
		"errores", resumen.Errores,
	)
	return resumen, nil
}

func (p *Poller) candidatos(ctx context.Context, folio string) ([]exhorto.Exhorto, error) {
	folio = strings.TrimSpace(folio)
	if folio != "" {
		ex, err := p.repo.FindByFolio(ctx, folio)
		if err != nil {
			return nil, fmt.Errorf("exhorto %s: %w", folio, err)
		}
		if ex.Estado != exhorto.EstadoRecibidoConExito || ex.Remitente != exhorto.RemitenteInterno {
			return nil, &exhorto.ValidationError{Errores: []string{
				fmt.Sprintf("el exhorto %s no es un exhorto enviado en estado %s", folio, exhorto.EstadoRecibidoConExito),
			}}
		}
		return []exhorto.Exhorto{*ex}, nil
	}

	todos, err := p.repo.ListByEstado(ctx, exhorto.EstadoRecibidoConExito)
	if err != nil {
		return nil, err
	}
	enviados := todos[:0]
	for _, ex := range todos {
		if ex.Remitente == exhorto.RemitenteInterno {
			enviados = append(enviados, ex)
		}
	}
	return enviados, nil
}

func (p *Poller) consultarUno(ctx context.Context, candidato exhorto.Exhorto) string {
	log := p.log.With(
		"folio_seguimiento", candidato.FolioSeguimiento,
		"exhorto_origen_id", candidato.ExhortoOrigenID,
	)

	ok, err := p.repo.AcquireLease(ctx, candidato.ID, p.owner, p.cfg.LeaseTTL)
	if err != nil {
		log.Error("no se pudo tomar el exhorto", "error", err)
		return metrics.ResultadoError
	}
	if !ok {
		log.Info("exhorto en proceso por otro trabajador", "resultado", metrics.ResultadoOmitido)
		return metrics.ResultadoOmitido
	}
	defer func() {
		if err := p.repo.ReleaseLease(context.WithoutCancel(ctx), candidato.ID, p.owner); err != nil {
			log.Warn("no se pudo liberar el exhorto", "error", err)
		}
	}()

	destino, err := p.destino(ctx, candidato)
	if err != nil {
		if errors.Is(err, externo.ErrConfigurationGap) || errors.Is(err, externo.ErrNotFound) {
			log.Warn("destino sin configuración", "estado_destino_id", candidato.EstadoDestinoID, "error", err, "resultado", metrics.ResultadoSinConfiguracion)
			return metrics.ResultadoSinConfiguracion
		}
		log.Error("no se pudo resolver el destino", "error", err)
		return metrics.ResultadoError
	}
	log = log.With("destino", destino.Clave)

	consulta, err := p.client.ConsultarExhorto(ctx, *destino, candidato.FolioSeguimiento)
	if err != nil {
		// El estado no cambia; la siguiente pasada vuelve a intentar.
		log.Warn("no se pudo consultar el exhorto", "error", err, "resultado", metrics.ResultadoError)
		return metrics.ResultadoError
	}

	var resultado string
	actualizado, err := p.repo.Mutate(ctx, candidato.ID, func(ex *exhorto.Exhorto) error {
		if ex.Estado != exhorto.EstadoRecibidoConExito {
			resultado = metrics.ResultadoOmitido
			return errSinCambios
		}
		c := exhorto.Contexto{Ahora: p.now()}
		cambio := Fusionar(ex, consulta)
		switch {
		case Respondido(*ex):
			resultado = metrics.ResultadoRespondido
			return exhorto.Aplicar(ex, exhorto.EventoRespondido, c)
		case ex.Vencido(c.Ahora):
			resultado = metrics.ResultadoNoRespondido
			return exhorto.Aplicar(ex, exhorto.EventoVencido, c)
		case cambio:
			resultado = metrics.ResultadoActualizado
			return nil
		default:
			resultado = metrics.ResultadoSinCambios
			return errSinCambios
		}
	})
	if errors.Is(err, errSinCambios) {
		log.Info("exhorto consultado", "estado", candidato.Estado, "resultado", resultado)
		return resultado
	}
	if err != nil {
		log.Error("no se pudo guardar la consulta", "error", err)
		return metrics.ResultadoError
	}

	switch resultado {
	case metrics.ResultadoRespondido:
		p.registrar(ctx, actualizado, fmt.Sprintf("Exhorto %s RESPONDIDO por %s", actualizado.ExhortoOrigenID, destino.Clave))
	case metrics.ResultadoNoRespondido:
		p.registrar(ctx, actualizado, fmt.Sprintf("Exhorto %s NO FUE RESPONDIDO por %s en %d días", actualizado.ExhortoOrigenID, destino.Clave, actualizado.DiasResponder))
	}
	log.Info("exhorto consultado", "estado", actualizado.Estado, "resultado", resultado)
	return resultado
}

func (p *Poller) destino(ctx context.Context, ex exhorto.Exhorto) (*externo.Externo, error) {
	destino, err := p.registry.PorEstado(ctx, ex.EstadoDestinoID)
	if err != nil {
		return nil, err
	}
	if err := destino.Requiere(externo.EndpointConsultarExhorto); err != nil {
		return nil, err
	}
	return destino, nil
}

// probar asks the destination and prints its answer without writing.
func (p *Poller) probar(ctx context.Context, ex exhorto.Exhorto, salida io.Writer) string {
	log := p.log.With("folio_seguimiento", ex.FolioSeguimiento)
	destino, err := p.destino(ctx, ex)
	if err != nil {
		log.Warn("destino sin configuración", "error", err)
		return metrics.ResultadoSinConfiguracion
	}
	consulta, err := p.client.ConsultarExhorto(ctx, *destino, ex.FolioSeguimiento)
	if err != nil {
		log.Warn("no se pudo consultar el exhorto", "destino", destino.Clave, "error", err)
		return metrics.ResultadoError
	}
	b, err := json.MarshalIndent(consulta, "", "  ")
	if err != nil {
		return metrics.ResultadoError
	}
	if salida != nil {
		fmt.Fprintf(salida, "Exhorto %s en %s\n%s\n", ex.FolioSeguimiento, destino.Clave, b)
	}
	return metrics.ResultadoOmitido
}

func (p *Poller) registrar(ctx context.Context, ex *exhorto.Exhorto, descripcion string) {
	if p.recorder == nil {
		return
	}
	err := p.recorder.Record(context.WithoutCancel(ctx), audit.Bitacora{
		Modulo:      audit.ModuloExhortos,
		Descripcion: descripcion,
		URL:         fmt.Sprintf("/exh_exhortos/%d", ex.ID),
	})
	if err != nil {
		p.log.Warn("no se pudo registrar bitácora", "folio_seguimiento", ex.FolioSeguimiento, "error", err)
	}
}

// Respondido is true once the destination reported its answer: a
// respuesta origen id or response archivos.
func Respondido(ex exhorto.Exhorto) bool {
	if ex.RespuestaOrigenID != "" {
		return true
	}
	for _, a := range ex.Archivos {
		if a.EsRespuesta && a.Estatus != exhorto.EstatusEliminado {
			return true
		}
	}
	return false
}

// Fusionar copies the non-empty remote fields that differ and appends the
// response archivos not seen before. It reports whether anything changed.
func Fusionar(ex *exhorto.Exhorto, c *judicial.ConsultaExhorto) bool {
	cambio := false
	texto := func(local *string, remoto string) {
		remoto = strings.TrimSpace(remoto)
		if remoto != "" && remoto != *local {
			*local = remoto
			cambio = true
		}
	}
	entero := func(local *int, remoto int) {
		if remoto != 0 && remoto != *local {
			*local = remoto
			cambio = true
		}
	}

	texto(&ex.NumeroExhorto, c.NumeroExhorto)
	entero(&ex.MunicipioTurnadoID, c.MunicipioTurnadoID)
	texto(&ex.MunicipioTurnadoNombre, c.MunicipioTurnadoNombre)
	texto(&ex.AreaTurnadoID, c.AreaTurnadoID)
	texto(&ex.AreaTurnadoNombre, c.AreaTurnadoNombre)
	texto(&ex.URLInfo, c.URLInfo)
	texto(&ex.RespuestaOrigenID, c.RespuestaOrigenID)
	if c.FechaHoraRecepcion != nil && !c.FechaHoraRecepcion.Time().IsZero() {
		remota := c.FechaHoraRecepcion.Time()
		if ex.FechaHoraRecepcion == nil || !ex.FechaHoraRecepcion.Equal(remota) {
			ex.FechaHoraRecepcion = &remota
			cambio = true
		}
	}

	vistos := make(map[string]bool)
	for _, a := range ex.Archivos {
		if a.EsRespuesta {
			vistos[a.NombreArchivo] = true
		}
	}
	for _, a := range c.Archivos {
		nombre := strings.TrimSpace(a.NombreArchivo)
		if nombre == "" || vistos[nombre] {
			continue
		}
		vistos[nombre] = true
		tipo := exhorto.TipoDocumento(a.TipoDocumento)
		if tipo < exhorto.TipoDocumentoOficio || tipo > exhorto.TipoDocumentoAnexo {
			tipo = exhorto.TipoDocumentoAnexo
		}
		ex.Archivos = append(ex.Archivos, exhorto.Archivo{
			ExhortoID:     ex.ID,
			NombreArchivo: nombre,
			HashSha1:      a.HashSha1,
			HashSha256:    a.HashSha256,
			TipoDocumento: tipo,
			Estado:        exhorto.EstadoArchivoPendiente,
			EsRespuesta:   true,
			Estatus:       exhorto.EstatusActivo,
		})
		cambio = true
	}
	return cambio
}
