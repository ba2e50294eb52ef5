// Package metrics exposes the Prometheus collectors of deliveries, polls,
// probes and task runs. Every method is safe on a nil *Metrics so
// components can run without metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resultados usados como etiqueta.
const (
	ResultadoRecibido         = "recibido"
	ResultadoRechazado        = "rechazado"
	ResultadoReintentar       = "reintentar"
	ResultadoAgotado          = "agotado"
	ResultadoOmitido          = "omitido"
	ResultadoSinConfiguracion = "sin_configuracion"
	ResultadoRespondido       = "respondido"
	ResultadoNoRespondido     = "no_respondido"
	ResultadoActualizado      = "actualizado"
	ResultadoSinCambios       = "sin_cambios"
	ResultadoError            = "error"
	ResultadoExito            = "exito"
)

type Metrics struct {
	registry *prometheus.Registry

	envios        *prometheus.CounterVec
	consultas     *prometheus.CounterVec
	pruebas       *prometheus.CounterVec
	tareas        *prometheus.CounterVec
	tareasSeconds *prometheus.HistogramVec
}

// New builds a private registry with the Go and process collectors plus
// the carina collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		envios: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carina_exhortos_envios_total",
			Help: "Exhortos procesados por el envío, por resultado.",
		}, []string{"resultado"}),
		consultas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carina_exhortos_consultas_total",
			Help: "Exhortos consultados en su destino, por resultado.",
		}, []string{"resultado"}),
		pruebas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carina_externos_pruebas_total",
			Help: "Pruebas de endpoints de externos, por resultado.",
		}, []string{"resultado"}),
		tareas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carina_tareas_total",
			Help: "Tareas ejecutadas, por nombre y resultado.",
		}, []string{"nombre", "resultado"}),
		tareasSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carina_tareas_duracion_segundos",
			Help:    "Duración de las tareas.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"nombre"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.envios,
		m.consultas,
		m.pruebas,
		m.tareas,
		m.tareasSeconds,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Envio(resultado string) {
	if m == nil {
		return
	}
	m.envios.WithLabelValues(resultado).Inc()
}

func (m *Metrics) Consulta(resultado string) {
	if m == nil {
		return
	}
	m.consultas.WithLabelValues(resultado).Inc()
}

func (m *Metrics) Prueba(resultado string) {
	if m == nil {
		return
	}
	m.pruebas.WithLabelValues(resultado).Inc()
}

// Tarea records one finished task run.
func (m *Metrics) Tarea(nombre, resultado string, d time.Duration) {
	if m == nil {
		return
	}
	m.tareas.WithLabelValues(nombre, resultado).Inc()
	m.tareasSeconds.WithLabelValues(nombre).Observe(d.Seconds())
}
