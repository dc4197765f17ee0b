package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Layout-api/internal/application/usecase"
)

// WorkspaceHandler expone el workspace del usuario autenticado.
type WorkspaceHandler struct {
	uc *usecase.WorkspaceUseCase
}

// NewWorkspaceHandler construye el handler.
func NewWorkspaceHandler(uc *usecase.WorkspaceUseCase) *WorkspaceHandler {
	return &WorkspaceHandler{uc: uc}
}

// Current godoc
// @Summary      Workspace actual
// @Tags         workspace
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.WorkspaceResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/workspace [get]
func (h *WorkspaceHandler) Current(c *fiber.Ctx) error {
	out, err := h.uc.Current(GetWorkspaceID(c), GetRole(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
