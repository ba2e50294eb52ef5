package exhorto

import "strings"

// TipoParte: 1 actor/promovente/ofendido, 2 demandado/inculpado/imputado,
// 0 no definido (ver TipoParteNombre).
type TipoParte int

const (
	TipoParteNoDefinido TipoParte = 0
	TipoParteActor      TipoParte = 1
	TipoParteDemandado  TipoParte = 2
)

// Parte es una persona física o moral involucrada en el asunto.
type Parte struct {
	ID              int64
	ExhortoID       int64
	Nombre          string
	ApellidoPaterno string
	ApellidoMaterno string
	Genero          string // "M", "F" o vacío
	EsPersonaMoral  bool
	TipoParte       TipoParte
	TipoParteNombre string
	Estatus         Estatus
}

// NombreCompleto junta nombre y apellidos.
func (p Parte) NombreCompleto() string {
	if p.EsPersonaMoral {
		return p.Nombre
	}
	return strings.TrimSpace(strings.Join([]string{p.Nombre, p.ApellidoPaterno, p.ApellidoMaterno}, " "))
}

func (p Parte) Validar() error {
	var errs []string
	if strings.TrimSpace(p.Nombre) == "" {
		errs = append(errs, "nombre es requerido")
	}
	if len(p.Nombre) > MaxTexto || len(p.ApellidoPaterno) > MaxTexto || len(p.ApellidoMaterno) > MaxTexto || len(p.TipoParteNombre) > MaxTexto {
		errs = append(errs, "nombre o apellidos exceden la longitud máxima")
	}
	if p.Genero != "" && p.Genero != "M" && p.Genero != "F" {
		errs = append(errs, "genero debe ser M o F")
	}
	if p.EsPersonaMoral && (p.ApellidoPaterno != "" || p.ApellidoMaterno != "" || p.Genero != "") {
		errs = append(errs, "una persona moral no lleva apellidos ni genero")
	}
	switch p.TipoParte {
	case TipoParteNoDefinido:
		if strings.TrimSpace(p.TipoParteNombre) == "" {
			errs = append(errs, "tipo_parte_nombre es requerido cuando tipo_parte es 0")
		}
	case TipoParteActor, TipoParteDemandado:
	default:
		errs = append(errs, "tipo_parte debe ser 0, 1 o 2")
	}
	if len(errs) > 0 {
		return &ValidationError{Errores: errs}
	}
	return nil
}
