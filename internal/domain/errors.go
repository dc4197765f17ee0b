package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// Layout
	ErrOrphan             = errors.New("el elemento padre no existe")
	ErrInvalidParent      = errors.New("tipo de padre no permitido para el elemento")
	ErrKindChange         = errors.New("no se puede cambiar el tipo de un elemento existente")
	ErrStaleVersion       = errors.New("versión desactualizada del elemento")
	ErrMutationNotPending = errors.New("la mutación no está pendiente")
	ErrPendingMutations   = errors.New("hay mutaciones pendientes de sincronizar")
	ErrNothingToUndo      = errors.New("no hay cambios para deshacer")
)
