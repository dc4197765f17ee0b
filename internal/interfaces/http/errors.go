package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Layout-api/internal/application/dto"
	"github.com/jhoicas/Layout-api/internal/domain"
)

// errorStatus traduce un error de dominio a código HTTP y código de error de la API.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidParent),
		errors.Is(err, domain.ErrOrphan),
		errors.Is(err, domain.ErrKindChange):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrPendingMutations):
		return fiber.StatusConflict, "PENDING_MUTATIONS"
	case errors.Is(err, domain.ErrStaleVersion):
		return fiber.StatusConflict, "STALE_VERSION"
	case errors.Is(err, domain.ErrNothingToUndo):
		return fiber.StatusConflict, "NOTHING_TO_UNDO"
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, "DUPLICATE"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	}
	return fiber.StatusInternalServerError, "INTERNAL"
}

// writeError responde con el cuerpo estándar {"code","message"}.
func writeError(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}
