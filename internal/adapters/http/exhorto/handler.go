package exhorto

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	appexhorto "pjecz/carina/internal/application/exhorto"
	coreexhorto "pjecz/carina/internal/core/exhorto"
	httpx "pjecz/carina/internal/infrastructure/http"
)

// Handler bridges HTTP traffic with the exhorto record store.
type Handler struct {
	service *appexhorto.Service
	log     *slog.Logger
}

func NewHandler(service *appexhorto.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Routes returns the router mounted at /api/v1/exh_exhortos.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Crear)
	r.Get("/", h.Listar)
	r.Get("/folio/{folio}", h.ObtenerPorFolio)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Obtener)
		r.Put("/", h.Actualizar)
		r.Delete("/", h.Eliminar)
		r.Post("/recuperar", h.Recuperar)
		r.Post("/partes", h.AgregarParte)
		r.Delete("/partes/{parteID}", h.EliminarParte)
		r.Post("/archivos", h.AgregarArchivo)
		r.Delete("/archivos/{archivoID}", h.EliminarArchivo)
		r.Post("/enviar", h.accion(h.service.Enviar))
		r.Post("/cancelar", h.accion(h.service.Cancelar))
		r.Post("/corregir", h.accion(h.service.Corregir))
		r.Post("/reintentar", h.accion(h.service.Reintentar))
	})
	return r
}

func (h *Handler) Crear(w http.ResponseWriter, r *http.Request) {
	var req ExhortoRequest
	if !h.decode(w, r, &req) {
		return
	}
	ex, err := h.service.Crear(r.Context(), req.toDomain())
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toResponse(ex), h.log)
}

func (h *Handler) Listar(w http.ResponseWriter, r *http.Request) {
	var estado coreexhorto.Estado
	if q := r.URL.Query().Get("estado"); q != "" {
		e, err := coreexhorto.ParseEstado(q)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "Error de Validación", []string{err.Error()}, h.log)
			return
		}
		estado = e
	}
	exhortos, err := h.service.Listar(r.Context(), estado)
	if err != nil {
		h.handleError(w, err)
		return
	}
	out := make([]ExhortoResponse, 0, len(exhortos))
	for i := range exhortos {
		out = append(out, toResponse(&exhortos[i]))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"exhortos": out, "total": len(out)}, h.log)
}

func (h *Handler) Obtener(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	ex, err := h.service.Obtener(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(ex), h.log)
}

func (h *Handler) ObtenerPorFolio(w http.ResponseWriter, r *http.Request) {
	ex, err := h.service.ObtenerPorFolio(r.Context(), chi.URLParam(r, "folio"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(ex), h.log)
}

func (h *Handler) Actualizar(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req ExhortoRequest
	if !h.decode(w, r, &req) {
		return
	}
	cambios := req.toDomain()
	cambios.ID = id
	ex, err := h.service.Actualizar(r.Context(), cambios)
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(ex), h.log)
}

func (h *Handler) Eliminar(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Eliminar(r.Context(), id); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Recuperar(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	ex, err := h.service.Recuperar(r.Context(), id)
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(ex), h.log)
}

func (h *Handler) AgregarParte(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req ParteRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.service.AgregarParte(r.Context(), id, req.toDomain())
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toParteResponse(*p), h.log)
}

func (h *Handler) EliminarParte(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	parteID, ok := h.pathID(w, r, "parteID")
	if !ok {
		return
	}
	if err := h.service.EliminarParte(r.Context(), id, parteID); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AgregarArchivo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req ArchivoRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.service.AgregarArchivo(r.Context(), id, req.toDomain())
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toArchivoResponse(*a), h.log)
}

func (h *Handler) EliminarArchivo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	archivoID, ok := h.pathID(w, r, "archivoID")
	if !ok {
		return
	}
	if err := h.service.EliminarArchivo(r.Context(), id, archivoID); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// accion adapts a lifecycle action of the service.
func (h *Handler) accion(fn func(ctx context.Context, id int64) (*coreexhorto.Exhorto, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.pathID(w, r, "id")
		if !ok {
			return
		}
		ex, err := fn(r.Context(), id)
		if err != nil {
			h.handleError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toResponse(ex), h.log)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Error de Validación", []string{"JSON inválido: " + err.Error()}, h.log)
		return false
	}
	return true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "Error de Validación", []string{param + " inválido"}, h.log)
		return 0, false
	}
	return id, true
}

// handleError maps domain errors to HTTP status codes.
func (h *Handler) handleError(w http.ResponseWriter, err error) {
	var verr *coreexhorto.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteError(w, http.StatusBadRequest, "Error de Validación", verr.Errores, h.log)
	case errors.Is(err, coreexhorto.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "No Encontrado", []string{err.Error()}, h.log)
	case errors.Is(err, coreexhorto.ErrInvalidTransition), errors.Is(err, coreexhorto.ErrNotEditable):
		httpx.WriteError(w, http.StatusConflict, "Conflicto de Estado", []string{err.Error()}, h.log)
	default:
		h.log.Error("exhorto request failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Error Interno del Servidor", []string{"Ha ocurrido un error interno"}, h.log)
	}
}
