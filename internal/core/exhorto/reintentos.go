package exhorto

import "time"

// PoliticaReintentos define la espera mínima entre intentos de envío.
type PoliticaReintentos struct {
	Espera      time.Duration
	Exponencial bool
}

// Reintentos es la contabilidad de intentos fallidos de envío
// (por_enviar_intentos y por_enviar_tiempo_anterior).
type Reintentos struct {
	Intentos       int
	TiempoAnterior *time.Time
}

// RegistrarFallo suma un intento y sella la hora.
func (r *Reintentos) RegistrarFallo(ahora time.Time) {
	r.Intentos++
	t := ahora
	r.TiempoAnterior = &t
}

// Reiniciar deja el contador en cero y sin hora.
func (r *Reintentos) Reiniciar() {
	r.Intentos = 0
	r.TiempoAnterior = nil
}

// Agotados es verdadero cuando los intentos superan el máximo (estrictamente).
func (r Reintentos) Agotados(maximo int) bool {
	return r.Intentos > maximo
}

// ProximoIntento devuelve desde cuándo puede volver a intentarse.
// Sin intentos previos la respuesta es el tiempo cero.
func (r Reintentos) ProximoIntento(p PoliticaReintentos) time.Time {
	if r.TiempoAnterior == nil {
		return time.Time{}
	}
	espera := p.Espera
	if p.Exponencial && r.Intentos > 1 {
		for i := 1; i < r.Intentos; i++ {
			espera *= 2
		}
	}
	return r.TiempoAnterior.Add(espera)
}

// Elegible indica si ahora ya pasó la espera.
func (r Reintentos) Elegible(ahora time.Time, p PoliticaReintentos) bool {
	return !ahora.Before(r.ProximoIntento(p))
}
