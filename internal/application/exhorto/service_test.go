package exhorto

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	coreexhorto "pjecz/carina/internal/core/exhorto"
	"pjecz/carina/internal/testutil"
)

var ahora = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestService() (*Service, *testutil.ExhortoRepository, *testutil.MockRecorder) {
	repo := testutil.NewExhortoRepository()
	rec := &testutil.MockRecorder{}
	s := NewService(repo, rec, testutil.NewNullLogger())
	s.now = func() time.Time { return ahora }
	n := 0
	s.nuevoID = func() string {
		n++
		return fmt.Sprintf("uuid-%d", n)
	}
	return s, repo, rec
}

func exhortoValido() coreexhorto.Exhorto {
	return coreexhorto.Exhorto{
		MateriaID:               1,
		MunicipioOrigenID:       30,
		EstadoDestinoID:         19,
		MunicipioDestinoID:      39,
		NumeroExpedienteOrigen:  "123/2024",
		TipoJuicioAsuntoDelitos: "Divorcio",
	}
}

func parteValida() coreexhorto.Parte {
	return coreexhorto.Parte{Nombre: "Juan", ApellidoPaterno: "Pérez", Genero: "M", TipoParte: coreexhorto.TipoParteActor}
}

func archivoValido() coreexhorto.Archivo {
	return coreexhorto.Archivo{NombreArchivo: "oficio.pdf", TipoDocumento: coreexhorto.TipoDocumentoOficio, URL: "https://storage/oficio.pdf"}
}

func TestCrear(t *testing.T) {
	s, _, rec := newTestService()

	ex, err := s.Crear(context.Background(), exhortoValido())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.FolioSeguimiento != "uuid-1" {
		t.Errorf("expected folio uuid-1, got %s", ex.FolioSeguimiento)
	}
	if ex.ExhortoOrigenID != "uuid-2" {
		t.Errorf("expected generated origen id, got %s", ex.ExhortoOrigenID)
	}
	if ex.Estado != coreexhorto.EstadoPendiente || ex.Reintentos.Intentos != 0 {
		t.Errorf("expected PENDIENTE with 0 intentos, got %s/%d", ex.Estado, ex.Reintentos.Intentos)
	}
	if ex.Remitente != coreexhorto.RemitenteInterno {
		t.Errorf("expected INTERNO, got %s", ex.Remitente)
	}
	if !ex.FechaOrigen.Equal(ahora) {
		t.Errorf("expected fecha origen to default to now, got %v", ex.FechaOrigen)
	}
	if !rec.Contiene("Nuevo Exhorto uuid-2") {
		t.Errorf("expected bitácora entry, got %+v", rec.Entradas)
	}
}

func TestCrear_FolioOcupado(t *testing.T) {
	s, repo, _ := newTestService()
	repo.Seed(coreexhorto.Exhorto{FolioSeguimiento: "uuid-1"})

	ex, err := s.Crear(context.Background(), exhortoValido())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.FolioSeguimiento != "uuid-2" {
		t.Errorf("expected next free folio, got %s", ex.FolioSeguimiento)
	}
}

func TestCrear_Validacion(t *testing.T) {
	s, _, _ := newTestService()
	ex := exhortoValido()
	ex.NumeroExpedienteOrigen = ""
	ex.Partes = []coreexhorto.Parte{{Nombre: ""}}

	_, err := s.Crear(context.Background(), ex)
	var verr *coreexhorto.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Errores) < 2 {
		t.Errorf("expected errors from exhorto and parte, got %v", verr.Errores)
	}
}

func TestCrear_ValidacionIndicaHijo(t *testing.T) {
	s, _, _ := newTestService()
	ex := exhortoValido()
	ex.Partes = []coreexhorto.Parte{parteValida(), {Nombre: "", TipoParte: coreexhorto.TipoParteActor}}
	ex.Archivos = []coreexhorto.Archivo{{TipoDocumento: coreexhorto.TipoDocumentoOficio}}

	_, err := s.Crear(context.Background(), ex)
	var verr *coreexhorto.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	var parte2, archivo1 bool
	for _, e := range verr.Errores {
		switch {
		case e == "parte 2: nombre es requerido":
			parte2 = true
		case strings.HasPrefix(e, "archivo 1: "):
			archivo1 = true
		case strings.HasPrefix(e, "parte 1: "):
			t.Errorf("valid parte reported: %q", e)
		}
	}
	if !parte2 || !archivo1 {
		t.Errorf("expected messages prefixed with the failing child, got %v", verr.Errores)
	}
}

func TestEdiciones_EncoladoAntesDeEscribir(t *testing.T) {
	tests := []struct {
		name   string
		editar func(s *Service, ex *coreexhorto.Exhorto) error
	}{
		{"actualizar", func(s *Service, ex *coreexhorto.Exhorto) error {
			cambios := exhortoValido()
			cambios.ID = ex.ID
			cambios.NumeroExpedienteOrigen = "999/2024"
			_, err := s.Actualizar(context.Background(), cambios)
			return err
		}},
		{"agregar parte", func(s *Service, ex *coreexhorto.Exhorto) error {
			_, err := s.AgregarParte(context.Background(), ex.ID, parteValida())
			return err
		}},
		{"eliminar parte", func(s *Service, ex *coreexhorto.Exhorto) error {
			return s.EliminarParte(context.Background(), ex.ID, ex.Partes[0].ID)
		}},
		{"agregar archivo", func(s *Service, ex *coreexhorto.Exhorto) error {
			_, err := s.AgregarArchivo(context.Background(), ex.ID, archivoValido())
			return err
		}},
		{"eliminar archivo", func(s *Service, ex *coreexhorto.Exhorto) error {
			return s.EliminarArchivo(context.Background(), ex.ID, ex.Archivos[0].ID)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, repo, _ := newTestService()
			base := exhortoValido()
			base.Estado = coreexhorto.EstadoPendiente
			base.NumeroExpedienteOrigen = "1/2024"
			base.Partes = []coreexhorto.Parte{parteValida()}
			base.Archivos = []coreexhorto.Archivo{archivoValido()}
			ex := repo.Seed(base)

			// El servicio ya leyó PENDIENTE; otro proceso encola antes de la escritura.
			encolado := false
			repo.BeforeEdit = func(id int64) {
				if encolado {
					return
				}
				encolado = true
				if _, err := s.Enviar(context.Background(), id); err != nil {
					t.Errorf("enviar: %v", err)
				}
			}

			if err := tt.editar(s, ex); !errors.Is(err, coreexhorto.ErrNotEditable) {
				t.Fatalf("expected ErrNotEditable, got %v", err)
			}

			stored, _ := repo.Get(ex.ID)
			if stored.Estado != coreexhorto.EstadoPorEnviar {
				t.Errorf("expected POR ENVIAR, got %s", stored.Estado)
			}
			if len(stored.PartesActivas()) != 1 || len(stored.ArchivosParaEnviar()) != 1 {
				t.Errorf("expected children untouched, got %d partes, %d archivos",
					len(stored.PartesActivas()), len(stored.ArchivosParaEnviar()))
			}
			if stored.NumeroExpedienteOrigen != "1/2024" {
				t.Errorf("expected fields untouched, got %s", stored.NumeroExpedienteOrigen)
			}
		})
	}
}

func TestActualizar_SoloPendiente(t *testing.T) {
	s, repo, _ := newTestService()
	pendiente := repo.Seed(coreexhorto.Exhorto{Estado: coreexhorto.EstadoPendiente, FolioSeguimiento: "F1"})
	porEnviar := repo.Seed(coreexhorto.Exhorto{Estado: coreexhorto.EstadoPorEnviar, FolioSeguimiento: "F2"})

	cambios := exhortoValido()
	cambios.ID = pendiente.ID
	cambios.Observaciones = "urgente"
	ex, err := s.Actualizar(context.Background(), cambios)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex.Observaciones != "urgente" || ex.FolioSeguimiento != "F1" {
		t.Errorf("unexpected update result %+v", ex)
	}

	cambios.ID = porEnviar.ID
	if _, err := s.Actualizar(context.Background(), cambios); !errors.Is(err, coreexhorto.ErrNotEditable) {
		t.Fatalf("expected ErrNotEditable, got %v", err)
	}
}

func TestEliminarRecuperar(t *testing.T) {
	s, repo, rec := newTestService()
	ex := repo.Seed(coreexhorto.Exhorto{Estado: coreexhorto.EstadoPendiente, ExhortoOrigenID: "O1"})

	if err := s.Eliminar(context.Background(), ex.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.Obtener(context.Background(), ex.ID); !errors.Is(err, coreexhorto.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Eliminar(context.Background(), ex.ID); !errors.Is(err, coreexhorto.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	recuperado, err := s.Recuperar(context.Background(), ex.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recuperado.Estatus != coreexhorto.EstatusActivo {
		t.Errorf("expected active, got %s", recuperado.Estatus)
	}
	if !rec.Contiene("Eliminado Exhorto O1") || !rec.Contiene("Recuperado Exhorto O1") {
		t.Errorf("expected bitácora entries, got %+v", rec.Entradas)
	}
}

func TestEnviar_RequierePartesYArchivos(t *testing.T) {
	s, repo, _ := newTestService()
	ex := repo.Seed(coreexhorto.Exhorto{Estado: coreexhorto.EstadoPendiente})

	_, err := s.Enviar(context.Background(), ex.ID)
	if !errors.Is(err, coreexhorto.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	stored, _ := repo.Get(ex.ID)
	if stored.Estado != coreexhorto.EstadoPendiente {
		t.Errorf("expected PENDIENTE, got %s", stored.Estado)
	}

	if _, err := s.AgregarParte(context.Background(), ex.ID, parteValida()); err != nil {
		t.Fatalf("agregar parte: %v", err)
	}
	if _, err := s.AgregarArchivo(context.Background(), ex.ID, archivoValido()); err != nil {
		t.Fatalf("agregar archivo: %v", err)
	}

	enviado, err := s.Enviar(context.Background(), ex.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if enviado.Estado != coreexhorto.EstadoPorEnviar {
		t.Errorf("expected POR ENVIAR, got %s", enviado.Estado)
	}

	if _, err := s.AgregarParte(context.Background(), ex.ID, parteValida()); !errors.Is(err, coreexhorto.ErrNotEditable) {
		t.Errorf("expected ErrNotEditable once queued, got %v", err)
	}
}

func TestEnviar_IgnoraEliminados(t *testing.T) {
	s, repo, _ := newTestService()
	p := parteValida()
	p.Estatus = coreexhorto.EstatusEliminado
	a := archivoValido()
	a.Estatus = coreexhorto.EstatusEliminado
	ex := repo.Seed(coreexhorto.Exhorto{
		Estado:   coreexhorto.EstadoPendiente,
		Partes:   []coreexhorto.Parte{p},
		Archivos: []coreexhorto.Archivo{a},
	})

	if _, err := s.Enviar(context.Background(), ex.ID); !errors.Is(err, coreexhorto.ErrValidation) {
		t.Fatalf("expected ErrValidation with only deleted children, got %v", err)
	}
}

func TestTransiciones(t *testing.T) {
	anterior := ahora.Add(-time.Hour)
	tests := []struct {
		name    string
		desde   coreexhorto.Estado
		accion  func(*Service, context.Context, int64) (*coreexhorto.Exhorto, error)
		want    coreexhorto.Estado
		wantErr error
	}{
		{"cancelar pendiente", coreexhorto.EstadoPendiente, (*Service).Cancelar, coreexhorto.EstadoCancelado, nil},
		{"cancelar por enviar", coreexhorto.EstadoPorEnviar, (*Service).Cancelar, coreexhorto.EstadoPorEnviar, coreexhorto.ErrInvalidTransition},
		{"corregir rechazado", coreexhorto.EstadoRechazado, (*Service).Corregir, coreexhorto.EstadoPendiente, nil},
		{"corregir recibido", coreexhorto.EstadoRecibidoConExito, (*Service).Corregir, coreexhorto.EstadoRecibidoConExito, coreexhorto.ErrInvalidTransition},
		{"reintentar agotado", coreexhorto.EstadoIntentosAgotados, (*Service).Reintentar, coreexhorto.EstadoPorEnviar, nil},
		{"reintentar pendiente", coreexhorto.EstadoPendiente, (*Service).Reintentar, coreexhorto.EstadoPendiente, coreexhorto.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, repo, rec := newTestService()
			ex := repo.Seed(coreexhorto.Exhorto{
				Estado:     tt.desde,
				Reintentos: coreexhorto.Reintentos{Intentos: 4, TiempoAnterior: &anterior},
			})

			_, err := tt.accion(s, context.Background(), ex.ID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if rec.Total() != 0 {
					t.Errorf("expected no bitácora on rejected transition")
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			stored, _ := repo.Get(ex.ID)
			if stored.Estado != tt.want {
				t.Errorf("expected %s, got %s", tt.want, stored.Estado)
			}
			if tt.wantErr == nil && (tt.want == coreexhorto.EstadoPendiente || tt.want == coreexhorto.EstadoPorEnviar) {
				if stored.Reintentos.Intentos != 0 || stored.Reintentos.TiempoAnterior != nil {
					t.Errorf("expected reset retries, got %+v", stored.Reintentos)
				}
			}
		})
	}
}

func TestEliminarParte(t *testing.T) {
	s, repo, _ := newTestService()
	ex := repo.Seed(coreexhorto.Exhorto{Estado: coreexhorto.EstadoPendiente, Partes: []coreexhorto.Parte{parteValida()}})
	parteID := ex.Partes[0].ID

	if err := s.EliminarParte(context.Background(), ex.ID, parteID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := repo.Get(ex.ID)
	if len(stored.PartesActivas()) != 0 {
		t.Errorf("expected no active partes, got %d", len(stored.PartesActivas()))
	}
	if err := s.EliminarParte(context.Background(), ex.ID, 999); !errors.Is(err, coreexhorto.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown parte, got %v", err)
	}
}
