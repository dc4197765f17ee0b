package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Layout-api/internal/application/dto"
	"github.com/jhoicas/Layout-api/pkg/logger"
)

// moduleChecker es el contrato mínimo que necesita el middleware para verificar módulos.
// Lo implementa *usecase.ModuleService; el uso de interfaz evita el import circular.
type moduleChecker interface {
	HasActiveModule(ctx context.Context, workspaceID, moduleName string) (bool, error)
}

// RequireModule devuelve un middleware Fiber que verifica si el workspace del token JWT
// tiene el módulo activo. Debe usarse DESPUÉS de AuthMiddleware (necesita LocalWorkspaceID).
//
// Comportamiento:
//   - 403 Forbidden  → módulo no contratado, vencido o workspace suspendido.
//   - 503 Service Unavailable → fallo de infraestructura al consultar la DB.
//   - Si no hay workspace_id en el contexto, responde 401.
func RequireModule(moduleName string, checker moduleChecker, log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		workspaceID := GetWorkspaceID(c)
		if workspaceID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "workspace_id no encontrado en el token",
			})
		}

		active, err := checker.HasActiveModule(c.Context(), workspaceID, moduleName)
		if err != nil {
			log.Error().Err(err).Str("workspace_id", workspaceID).Str("module", moduleName).Msg("verificar módulo")
			return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
				Code:    "MODULE_CHECK_FAILED",
				Message: "no se pudo verificar el módulo, intente más tarde",
			})
		}

		if !active {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "MODULE_DISABLED",
				Message: "el módulo '" + moduleName + "' no está activo para este workspace",
			})
		}

		return c.Next()
	}
}
