// Package probe checks that registry entries answer on their materias
// endpoint. It never reads nor writes exhortos.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pjecz/carina/internal/core/externo"
	"pjecz/carina/internal/core/judicial"
	"pjecz/carina/internal/infrastructure/metrics"
)

type Registry interface {
	PorClave(ctx context.Context, clave string) (*externo.Externo, error)
	Listar(ctx context.Context) ([]externo.Externo, error)
}

// Prueba is the outcome for one entry.
type Prueba struct {
	Clave   string
	Exito   bool
	Detalle string
}

func (p Prueba) Mensaje() string {
	if p.Exito {
		return fmt.Sprintf("Éxito en %s a %s", p.Clave, externo.EndpointConsultarMaterias)
	}
	return fmt.Sprintf("ERROR en %s a %s: %s", p.Clave, externo.EndpointConsultarMaterias, p.Detalle)
}

type Prober struct {
	registry Registry
	client   judicial.Client
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func NewProber(registry Registry, client judicial.Client, m *metrics.Metrics, log *slog.Logger) *Prober {
	return &Prober{
		registry: registry,
		client:   client,
		metrics:  m,
		log:      log.With("component", "probe"),
	}
}

// Probar tests one entry when clave is given, otherwise every active
// entry, and returns the operator message. Entries without api key or
// materias endpoint are skipped and left out of the total.
func (p *Prober) Probar(ctx context.Context, clave string) (string, []Prueba, error) {
	externos, err := p.seleccionar(ctx, clave)
	if err != nil {
		return "", nil, err
	}

	pruebas := make([]Prueba, 0, len(externos))
	exitosos := 0
	var omitido error
	for _, e := range externos {
		if err := ctx.Err(); err != nil {
			return "", pruebas, err
		}
		if err := e.Requiere(externo.EndpointConsultarMaterias); err != nil {
			omitido = err
			p.metrics.Prueba(metrics.ResultadoSinConfiguracion)
			p.log.Warn("externo sin configuración, se omite", "clave", e.Clave, "error", err)
			continue
		}
		prueba := p.probarUno(ctx, e)
		if prueba.Exito {
			exitosos++
		}
		pruebas = append(pruebas, prueba)
	}

	if len(externos) == 1 {
		if len(pruebas) == 0 {
			return fmt.Sprintf("Sin configuración en %s: %s", externos[0].Clave, detalle(omitido)), pruebas, nil
		}
		return pruebas[0].Mensaje(), pruebas, nil
	}
	return fmt.Sprintf("%d respuestas exitosas de %d", exitosos, len(pruebas)), pruebas, nil
}

func (p *Prober) seleccionar(ctx context.Context, clave string) ([]externo.Externo, error) {
	if strings.TrimSpace(clave) != "" {
		e, err := p.registry.PorClave(ctx, clave)
		if err != nil {
			return nil, fmt.Errorf("externo %s: %w", clave, err)
		}
		return []externo.Externo{*e}, nil
	}
	externos, err := p.registry.Listar(ctx)
	if err != nil {
		return nil, err
	}
	if len(externos) == 0 {
		return nil, externo.ErrEmpty
	}
	return externos, nil
}

func (p *Prober) probarUno(ctx context.Context, e externo.Externo) Prueba {
	prueba := Prueba{Clave: e.Clave}
	if err := p.client.ConsultarMaterias(ctx, e); err != nil {
		prueba.Detalle = detalle(err)
		p.metrics.Prueba(metrics.ResultadoError)
		p.log.Warn("endpoint sin respuesta", "clave", e.Clave, "error", err)
		return prueba
	}
	prueba.Exito = true
	p.metrics.Prueba(metrics.ResultadoExito)
	p.log.Info("endpoint responde", "clave", e.Clave)
	return prueba
}

func detalle(err error) string {
	var gap *externo.ConfigurationGapError
	if errors.As(err, &gap) {
		return "falta " + strings.Join(gap.Faltantes, ", ")
	}
	var com *judicial.CommunicationError
	if errors.As(err, &com) && com.Status > 0 {
		return fmt.Sprintf("status %d", com.Status)
	}
	return err.Error()
}
