package exhorto

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound se devuelve cuando el exhorto no existe o está eliminado.
	ErrNotFound = errors.New("exhorto no encontrado")
	// ErrValidation agrupa los errores de datos de entrada.
	ErrValidation = errors.New("error de validación")
	// ErrInvalidTransition se devuelve cuando el evento no procede desde el estado actual.
	ErrInvalidTransition = errors.New("transición no permitida")
	// ErrLeaseHeld indica que otro trabajador procesa el exhorto.
	ErrLeaseHeld = errors.New("exhorto en proceso por otro trabajador")
	// ErrNotEditable se devuelve al editar datos fuera de PENDIENTE.
	ErrNotEditable = errors.New("exhorto no editable")
)

// ValidationError lista los problemas encontrados.
type ValidationError struct {
	Errores []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Errores, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransitionError describe un evento rechazado por la tabla de transiciones.
type TransitionError struct {
	Estado Estado
	Evento Evento
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s desde %s", ErrInvalidTransition, e.Evento, e.Estado)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
