package health

import (
	"log/slog"
	"net/http"

	apphealth "pjecz/carina/internal/application/health"
	corehealth "pjecz/carina/internal/core/health"
	httpx "pjecz/carina/internal/infrastructure/http"
)

// Handler bridges HTTP traffic with the health application service.
type Handler struct {
	service *apphealth.Service
	log     *slog.Logger
}

func NewHandler(service *apphealth.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Status answers 200 when every dependency is up and 503 otherwise.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st := h.service.Status(r.Context())

	code := http.StatusOK
	if st.Status != corehealth.StatusUp {
		code = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, code, st, h.log)
}
