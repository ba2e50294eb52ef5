package tarea

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pjecz/carina/internal/core/task"
	httpx "pjecz/carina/internal/infrastructure/http"
)

// Encolador is implemented by tasks.Encolador.
type Encolador interface {
	Encolar(ctx context.Context, nombre task.Nombre, param string) (*task.Tarea, error)
	Obtener(ctx context.Context, id string) (*task.Tarea, error)
}

type EncolarRequest struct {
	Param string `json:"param"`
}

type Handler struct {
	encolador Encolador
	log       *slog.Logger
}

func NewHandler(encolador Encolador, log *slog.Logger) *Handler {
	return &Handler{encolador: encolador, log: log}
}

// Routes returns the router mounted at /api/v1/tareas. The same segment
// carries the tarea name on POST and its id on GET.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/{tarea}", h.Encolar)
	r.Get("/{tarea}", h.Obtener)
	return r
}

func (h *Handler) Encolar(w http.ResponseWriter, r *http.Request) {
	var req EncolarRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httpx.WriteError(w, http.StatusBadRequest, "Error de Validación", []string{"JSON inválido: " + err.Error()}, h.log)
		return
	}
	if q := r.URL.Query().Get("param"); q != "" && req.Param == "" {
		req.Param = q
	}

	t, err := h.encolador.Encolar(r.Context(), task.Nombre(chi.URLParam(r, "tarea")), req.Param)
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, t, h.log)
}

func (h *Handler) Obtener(w http.ResponseWriter, r *http.Request) {
	t, err := h.encolador.Obtener(r.Context(), chi.URLParam(r, "tarea"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t, h.log)
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, task.ErrUnknown):
		httpx.WriteError(w, http.StatusBadRequest, "Error de Validación", []string{err.Error()}, h.log)
	case errors.Is(err, task.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "No Encontrado", []string{err.Error()}, h.log)
	default:
		h.log.Error("tarea request failed", "error", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "Servicio No Disponible", []string{"No se pudo encolar la tarea"}, h.log)
	}
}
