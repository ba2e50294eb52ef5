package exhorto

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"pjecz/carina/internal/core/audit"
	coreexhorto "pjecz/carina/internal/core/exhorto"
)

// intentosFolio bounds the search for an unused folio_seguimiento.
const intentosFolio = 3

// Service implements the record store use cases and the manual lifecycle
// actions. Every change leaves a bitácora entry.
type Service struct {
	repo     coreexhorto.Repository
	recorder audit.Recorder
	log      *slog.Logger
	now      func() time.Time
	nuevoID  func() string
}

func NewService(repo coreexhorto.Repository, recorder audit.Recorder, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		recorder: recorder,
		log:      log.With("component", "exhortos"),
		now:      time.Now,
		nuevoID:  uuid.NewString,
	}
}

// Crear validates and persists a new exhorto in PENDIENTE with a fresh
// folio_seguimiento. Partes and archivos may come along.
func (s *Service) Crear(ctx context.Context, ex coreexhorto.Exhorto) (*coreexhorto.Exhorto, error) {
	if err := validarConHijos(ex); err != nil {
		return nil, err
	}

	folio, err := s.folioLibre(ctx)
	if err != nil {
		return nil, err
	}

	ex.ID = 0
	ex.FolioSeguimiento = folio
	if strings.TrimSpace(ex.ExhortoOrigenID) == "" {
		ex.ExhortoOrigenID = s.nuevoID()
	}
	if ex.Remitente == "" {
		ex.Remitente = coreexhorto.RemitenteInterno
	}
	if ex.FechaOrigen.IsZero() {
		ex.FechaOrigen = s.now()
	}
	ex.Estado = coreexhorto.EstadoPendiente
	ex.Reintentos = coreexhorto.Reintentos{}
	ex.Estatus = coreexhorto.EstatusActivo
	ex.FechaHoraRecepcion = nil
	for i := range ex.Archivos {
		ex.Archivos[i].EsRespuesta = false
		if ex.Archivos[i].Estado == "" {
			ex.Archivos[i].Estado = coreexhorto.EstadoArchivoPendiente
		}
		if ex.Archivos[i].FechaHoraRecepcion.IsZero() {
			ex.Archivos[i].FechaHoraRecepcion = ex.FechaOrigen
		}
	}

	creado, err := s.repo.Create(ctx, ex)
	if err != nil {
		return nil, fmt.Errorf("crear exhorto: %w", err)
	}
	s.registrar(ctx, creado, "Nuevo Exhorto "+creado.ExhortoOrigenID)
	return creado, nil
}

func (s *Service) folioLibre(ctx context.Context) (string, error) {
	for i := 0; i < intentosFolio; i++ {
		folio := s.nuevoID()
		existe, err := s.repo.ExisteFolio(ctx, folio)
		if err != nil {
			return "", fmt.Errorf("revisar folio: %w", err)
		}
		if !existe {
			return folio, nil
		}
	}
	return "", errors.New("no se pudo generar un folio_seguimiento único")
}

func (s *Service) Obtener(ctx context.Context, id int64) (*coreexhorto.Exhorto, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) ObtenerPorFolio(ctx context.Context, folio string) (*coreexhorto.Exhorto, error) {
	return s.repo.FindByFolio(ctx, strings.TrimSpace(folio))
}

func (s *Service) ObtenerPorOrigen(ctx context.Context, origenID string) (*coreexhorto.Exhorto, error) {
	return s.repo.FindByOrigenID(ctx, strings.TrimSpace(origenID), coreexhorto.RemitenteInterno)
}

// Listar returns active exhortos; an empty estado lists all of them.
func (s *Service) Listar(ctx context.Context, estado coreexhorto.Estado) ([]coreexhorto.Exhorto, error) {
	return s.repo.ListByEstado(ctx, estado)
}

// Actualizar overwrites the descriptive fields. Only PENDIENTE exhortos
// accept edits; later states change through lifecycle actions only.
func (s *Service) Actualizar(ctx context.Context, cambios coreexhorto.Exhorto) (*coreexhorto.Exhorto, error) {
	actual, err := s.editable(ctx, cambios.ID)
	if err != nil {
		return nil, err
	}
	if err := cambios.Validar(); err != nil {
		return nil, err
	}
	if cambios.FechaOrigen.IsZero() {
		cambios.FechaOrigen = actual.FechaOrigen
	}
	if err := s.repo.UpdateDatos(ctx, cambios); err != nil {
		return nil, fmt.Errorf("actualizar exhorto: %w", err)
	}

	ex, err := s.repo.FindByID(ctx, cambios.ID)
	if err != nil {
		return nil, err
	}
	s.registrar(ctx, ex, "Editado Exhorto "+ex.ExhortoOrigenID)
	return ex, nil
}

func (s *Service) Eliminar(ctx context.Context, id int64) error {
	ex, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.SetEstatus(ctx, id, coreexhorto.EstatusEliminado); err != nil {
		return fmt.Errorf("eliminar exhorto: %w", err)
	}
	s.registrar(ctx, ex, "Eliminado Exhorto "+ex.ExhortoOrigenID)
	return nil
}

func (s *Service) Recuperar(ctx context.Context, id int64) (*coreexhorto.Exhorto, error) {
	if err := s.repo.SetEstatus(ctx, id, coreexhorto.EstatusActivo); err != nil {
		return nil, err
	}
	ex, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.registrar(ctx, ex, "Recuperado Exhorto "+ex.ExhortoOrigenID)
	return ex, nil
}

func (s *Service) AgregarParte(ctx context.Context, exhortoID int64, p coreexhorto.Parte) (*coreexhorto.Parte, error) {
	ex, err := s.editable(ctx, exhortoID)
	if err != nil {
		return nil, err
	}
	if err := p.Validar(); err != nil {
		return nil, err
	}
	p.ID = 0
	p.Estatus = coreexhorto.EstatusActivo
	nueva, err := s.repo.AddParte(ctx, exhortoID, p)
	if err != nil {
		return nil, fmt.Errorf("agregar parte: %w", err)
	}
	s.registrar(ctx, ex, fmt.Sprintf("Nueva Parte %s en Exhorto %s", nueva.NombreCompleto(), ex.ExhortoOrigenID))
	return nueva, nil
}

func (s *Service) EliminarParte(ctx context.Context, exhortoID, parteID int64) error {
	ex, err := s.editable(ctx, exhortoID)
	if err != nil {
		return err
	}
	if err := s.repo.SetParteEstatus(ctx, exhortoID, parteID, coreexhorto.EstatusEliminado); err != nil {
		return err
	}
	s.registrar(ctx, ex, fmt.Sprintf("Eliminada Parte %d en Exhorto %s", parteID, ex.ExhortoOrigenID))
	return nil
}

func (s *Service) AgregarArchivo(ctx context.Context, exhortoID int64, a coreexhorto.Archivo) (*coreexhorto.Archivo, error) {
	ex, err := s.editable(ctx, exhortoID)
	if err != nil {
		return nil, err
	}
	a.ID = 0
	a.EsRespuesta = false
	a.Estatus = coreexhorto.EstatusActivo
	if a.Estado == "" {
		a.Estado = coreexhorto.EstadoArchivoPendiente
	}
	if a.FechaHoraRecepcion.IsZero() {
		a.FechaHoraRecepcion = s.now()
	}
	if err := a.Validar(); err != nil {
		return nil, err
	}
	nuevo, err := s.repo.AddArchivo(ctx, exhortoID, a)
	if err != nil {
		return nil, fmt.Errorf("agregar archivo: %w", err)
	}
	s.registrar(ctx, ex, fmt.Sprintf("Nuevo Archivo %s en Exhorto %s", nuevo.NombreArchivo, ex.ExhortoOrigenID))
	return nuevo, nil
}

func (s *Service) EliminarArchivo(ctx context.Context, exhortoID, archivoID int64) error {
	ex, err := s.editable(ctx, exhortoID)
	if err != nil {
		return err
	}
	if err := s.repo.SetArchivoEstatus(ctx, exhortoID, archivoID, coreexhorto.EstatusEliminado); err != nil {
		return err
	}
	s.registrar(ctx, ex, fmt.Sprintf("Eliminado Archivo %d en Exhorto %s", archivoID, ex.ExhortoOrigenID))
	return nil
}

// Enviar queues a PENDIENTE exhorto for delivery (ENCOLAR).
func (s *Service) Enviar(ctx context.Context, id int64) (*coreexhorto.Exhorto, error) {
	return s.transicion(ctx, id, coreexhorto.EventoEncolar)
}

func (s *Service) Cancelar(ctx context.Context, id int64) (*coreexhorto.Exhorto, error) {
	return s.transicion(ctx, id, coreexhorto.EventoCancelar)
}

// Corregir returns a RECHAZADO exhorto to PENDIENTE for editing.
func (s *Service) Corregir(ctx context.Context, id int64) (*coreexhorto.Exhorto, error) {
	return s.transicion(ctx, id, coreexhorto.EventoCorregir)
}

// Reintentar puts an exhausted exhorto back in POR ENVIAR with a zeroed counter.
func (s *Service) Reintentar(ctx context.Context, id int64) (*coreexhorto.Exhorto, error) {
	return s.transicion(ctx, id, coreexhorto.EventoReintentar)
}

func (s *Service) transicion(ctx context.Context, id int64, ev coreexhorto.Evento) (*coreexhorto.Exhorto, error) {
	var anterior coreexhorto.Estado
	ex, err := s.repo.Mutate(ctx, id, func(ex *coreexhorto.Exhorto) error {
		anterior = ex.Estado
		return coreexhorto.Aplicar(ex, ev, coreexhorto.Contexto{
			Ahora:           s.now(),
			PartesActivas:   len(ex.PartesActivas()),
			ArchivosActivos: len(ex.ArchivosParaEnviar()),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("exhorto transition",
		"folio_seguimiento", ex.FolioSeguimiento,
		"evento", ev,
		"desde", anterior,
		"estado", ex.Estado,
	)
	s.registrar(ctx, ex, fmt.Sprintf("Exhorto %s pasa de %s a %s", ex.ExhortoOrigenID, anterior, ex.Estado))
	return ex, nil
}

func (s *Service) editable(ctx context.Context, id int64) (*coreexhorto.Exhorto, error) {
	ex, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ex.Estado.Editable() {
		return nil, fmt.Errorf("%w: estado %s", coreexhorto.ErrNotEditable, ex.Estado)
	}
	return ex, nil
}

func (s *Service) registrar(ctx context.Context, ex *coreexhorto.Exhorto, descripcion string) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.Record(ctx, audit.Bitacora{
		Modulo:      audit.ModuloExhortos,
		Descripcion: descripcion,
		URL:         fmt.Sprintf("/exh_exhortos/%d", ex.ID),
	})
	if err != nil {
		s.log.Warn("no se pudo registrar bitácora", "folio_seguimiento", ex.FolioSeguimiento, "error", err)
	}
}

func validarConHijos(ex coreexhorto.Exhorto) error {
	var errs []string
	agregar := func(prefijo string, err error) {
		var verr *coreexhorto.ValidationError
		if !errors.As(err, &verr) {
			return
		}
		for _, e := range verr.Errores {
			errs = append(errs, prefijo+e)
		}
	}
	agregar("", ex.Validar())
	for i, p := range ex.Partes {
		agregar(fmt.Sprintf("parte %d: ", i+1), p.Validar())
	}
	for i, a := range ex.Archivos {
		agregar(fmt.Sprintf("archivo %d: ", i+1), a.Validar())
	}
	if len(errs) > 0 {
		return &coreexhorto.ValidationError{Errores: errs}
	}
	return nil
}
