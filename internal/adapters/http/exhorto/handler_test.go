package exhorto

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-chi/chi/v5"

	appexhorto "pjecz/carina/internal/application/exhorto"
	coreexhorto "pjecz/carina/internal/core/exhorto"
	"pjecz/carina/internal/testutil"
)

func setupRouter() (http.Handler, *testutil.ExhortoRepository, *testutil.MockRecorder) {
	repo := testutil.NewExhortoRepository()
	rec := &testutil.MockRecorder{}
	log := testutil.NewNullLogger()
	h := NewHandler(appexhorto.NewService(repo, rec, log), log)

	r := chi.NewRouter()
	r.Mount("/api/v1/exh_exhortos", h.Routes())
	return r, repo, rec
}

func requestValido() ExhortoRequest {
	return ExhortoRequest{
		MateriaID:               1,
		MunicipioOrigenID:       30,
		EstadoDestinoID:         19,
		MunicipioDestinoID:      39,
		NumeroExpedienteOrigen:  "123/2024",
		TipoJuicioAsuntoDelitos: "Divorcio",
		Partes: []ParteRequest{
			{Nombre: "Juan", ApellidoPaterno: "Pérez", Genero: "M", TipoParte: 1},
		},
		Archivos: []ArchivoRequest{
			{NombreArchivo: "oficio.pdf", TipoDocumento: 1, URL: "https://storage/oficio.pdf"},
		},
	}
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func ruta(id int64, sufijo string) string {
	return "/api/v1/exh_exhortos/" + strconv.FormatInt(id, 10) + sufijo
}

func TestCrear(t *testing.T) {
	router, _, rec := setupRouter()

	w := serve(router, testutil.CreateRequest(http.MethodPost, "/api/v1/exh_exhortos", requestValido(), nil))

	var resp ExhortoResponse
	testutil.ReadJSONResponse(t, w, http.StatusCreated, &resp)
	if resp.ID == 0 || resp.FolioSeguimiento == "" {
		t.Errorf("expected id and folio, got %+v", resp)
	}
	if resp.Estado != string(coreexhorto.EstadoPendiente) || resp.Remitente != "INTERNO" {
		t.Errorf("unexpected estado/remitente %s/%s", resp.Estado, resp.Remitente)
	}
	if len(resp.Partes) != 1 || resp.Partes[0].NombreCompleto != "Juan Pérez" {
		t.Errorf("unexpected partes %+v", resp.Partes)
	}
	if len(resp.Archivos) != 1 || resp.Archivos[0].Estado != "PENDIENTE" {
		t.Errorf("unexpected archivos %+v", resp.Archivos)
	}
	if rec.Total() == 0 {
		t.Error("expected bitácora entry")
	}
}

func TestCrear_Errores(t *testing.T) {
	invalido := requestValido()
	invalido.NumeroExpedienteOrigen = ""

	tests := []struct {
		name string
		body interface{}
	}{
		{"validación", invalido},
		{"campo desconocido", map[string]interface{}{"numero_expediente_origen": "1/2024", "inventado": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, _ := setupRouter()
			w := serve(router, testutil.CreateRequest(http.MethodPost, "/api/v1/exh_exhortos", tt.body, nil))

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			resp := testutil.ReadErrorResponse(t, w)
			if resp["message"] != "Error de Validación" {
				t.Errorf("unexpected message %v", resp["message"])
			}
		})
	}
}

func TestObtener(t *testing.T) {
	router, repo, _ := setupRouter()
	ex := repo.Seed(coreexhorto.Exhorto{FolioSeguimiento: "F-1", Estado: coreexhorto.EstadoPendiente})

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"por id", ruta(ex.ID, ""), http.StatusOK},
		{"por folio", "/api/v1/exh_exhortos/folio/F-1", http.StatusOK},
		{"inexistente", ruta(99, ""), http.StatusNotFound},
		{"folio inexistente", "/api/v1/exh_exhortos/folio/F-9", http.StatusNotFound},
		{"id inválido", "/api/v1/exh_exhortos/abc", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, testutil.CreateRequest(http.MethodGet, tt.path, nil, nil))
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestListar(t *testing.T) {
	router, repo, _ := setupRouter()
	repo.Seed(coreexhorto.Exhorto{FolioSeguimiento: "F-1", Estado: coreexhorto.EstadoPendiente})
	repo.Seed(coreexhorto.Exhorto{FolioSeguimiento: "F-2", Estado: coreexhorto.EstadoPorEnviar})

	var todos struct {
		Exhortos []ExhortoResponse `json:"exhortos"`
		Total    int               `json:"total"`
	}
	w := serve(router, testutil.CreateRequest(http.MethodGet, "/api/v1/exh_exhortos", nil, nil))
	testutil.ReadJSONResponse(t, w, http.StatusOK, &todos)
	if todos.Total != 2 {
		t.Errorf("expected 2 exhortos, got %d", todos.Total)
	}

	var porEnviar struct {
		Exhortos []ExhortoResponse `json:"exhortos"`
		Total    int               `json:"total"`
	}
	w = serve(router, testutil.CreateRequest(http.MethodGet, "/api/v1/exh_exhortos?estado=POR%20ENVIAR", nil, nil))
	testutil.ReadJSONResponse(t, w, http.StatusOK, &porEnviar)
	if porEnviar.Total != 1 || porEnviar.Exhortos[0].FolioSeguimiento != "F-2" {
		t.Errorf("expected only F-2, got %+v", porEnviar)
	}

	w = serve(router, testutil.CreateRequest(http.MethodGet, "/api/v1/exh_exhortos?estado=INVENTADO", nil, nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown estado, got %d", w.Code)
	}
}

func TestActualizar_NoEditable(t *testing.T) {
	router, repo, _ := setupRouter()
	ex := repo.Seed(coreexhorto.Exhorto{FolioSeguimiento: "F-1", Estado: coreexhorto.EstadoPorEnviar})

	w := serve(router, testutil.CreateRequest(http.MethodPut, ruta(ex.ID, ""), requestValido(), nil))
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestEliminarRecuperar(t *testing.T) {
	router, repo, _ := setupRouter()
	ex := repo.Seed(coreexhorto.Exhorto{FolioSeguimiento: "F-1", Estado: coreexhorto.EstadoPendiente})

	w := serve(router, testutil.CreateRequest(http.MethodDelete, ruta(ex.ID, ""), nil, nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	w = serve(router, testutil.CreateRequest(http.MethodGet, ruta(ex.ID, ""), nil, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}

	var resp ExhortoResponse
	w = serve(router, testutil.CreateRequest(http.MethodPost, ruta(ex.ID, "/recuperar"), nil, nil))
	testutil.ReadJSONResponse(t, w, http.StatusOK, &resp)
	if resp.Estatus != "A" {
		t.Errorf("expected estatus A, got %s", resp.Estatus)
	}
}

func TestPartesYArchivos(t *testing.T) {
	router, repo, _ := setupRouter()
	ex := repo.Seed(coreexhorto.Exhorto{FolioSeguimiento: "F-1", Estado: coreexhorto.EstadoPendiente})

	var parte ParteResponse
	w := serve(router, testutil.CreateRequest(http.MethodPost, ruta(ex.ID, "/partes"),
		ParteRequest{Nombre: "ACME SA", EsPersonaMoral: true, TipoParte: 2}, nil))
	testutil.ReadJSONResponse(t, w, http.StatusCreated, &parte)
	if parte.ID == 0 || parte.NombreCompleto != "ACME SA" {
		t.Errorf("unexpected parte %+v", parte)
	}

	var archivo ArchivoResponse
	w = serve(router, testutil.CreateRequest(http.MethodPost, ruta(ex.ID, "/archivos"),
		ArchivoRequest{NombreArchivo: "acuerdo.pdf", TipoDocumento: 2, URL: "https://storage/acuerdo.pdf"}, nil))
	testutil.ReadJSONResponse(t, w, http.StatusCreated, &archivo)
	if archivo.ID == 0 || archivo.EsRespuesta {
		t.Errorf("unexpected archivo %+v", archivo)
	}

	w = serve(router, testutil.CreateRequest(http.MethodDelete, ruta(ex.ID, "/partes/"+strconv.FormatInt(parte.ID, 10)), nil, nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 deleting parte, got %d", w.Code)
	}
	w = serve(router, testutil.CreateRequest(http.MethodDelete, ruta(ex.ID, "/archivos/"+strconv.FormatInt(archivo.ID, 10)), nil, nil))
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 deleting archivo, got %d", w.Code)
	}

	guardado, _ := repo.Get(ex.ID)
	if len(guardado.PartesActivas()) != 0 || len(guardado.ArchivosParaEnviar()) != 0 {
		t.Errorf("expected soft-deleted children, got %+v", guardado)
	}
}

func TestAcciones(t *testing.T) {
	completo := coreexhorto.Exhorto{
		Estado:   coreexhorto.EstadoPendiente,
		Partes:   []coreexhorto.Parte{{Nombre: "Juan", TipoParte: coreexhorto.TipoParteActor}},
		Archivos: []coreexhorto.Archivo{{NombreArchivo: "oficio.pdf", TipoDocumento: coreexhorto.TipoDocumentoOficio}},
	}

	tests := []struct {
		name       string
		exhorto    coreexhorto.Exhorto
		accion     string
		wantStatus int
		wantEstado coreexhorto.Estado
	}{
		{"enviar", completo, "/enviar", http.StatusOK, coreexhorto.EstadoPorEnviar},
		{"enviar sin partes", coreexhorto.Exhorto{Estado: coreexhorto.EstadoPendiente}, "/enviar", http.StatusBadRequest, coreexhorto.EstadoPendiente},
		{"cancelar", completo, "/cancelar", http.StatusOK, coreexhorto.EstadoCancelado},
		{"corregir", coreexhorto.Exhorto{Estado: coreexhorto.EstadoRechazado}, "/corregir", http.StatusOK, coreexhorto.EstadoPendiente},
		{"corregir pendiente", completo, "/corregir", http.StatusConflict, coreexhorto.EstadoPendiente},
		{"reintentar", coreexhorto.Exhorto{Estado: coreexhorto.EstadoIntentosAgotados, Reintentos: coreexhorto.Reintentos{Intentos: 4}}, "/reintentar", http.StatusOK, coreexhorto.EstadoPorEnviar},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, repo, _ := setupRouter()
			ex := repo.Seed(tt.exhorto)

			w := serve(router, testutil.CreateRequest(http.MethodPost, ruta(ex.ID, tt.accion), nil, nil))
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			guardado, _ := repo.Get(ex.ID)
			if guardado.Estado != tt.wantEstado {
				t.Errorf("expected %s, got %s", tt.wantEstado, guardado.Estado)
			}
			if tt.accion == "/reintentar" && guardado.Reintentos.Intentos != 0 {
				t.Errorf("expected zeroed intentos, got %d", guardado.Reintentos.Intentos)
			}
		})
	}
}
