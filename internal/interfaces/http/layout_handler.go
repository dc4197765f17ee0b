package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Layout-api/internal/application/dto"
	"github.com/jhoicas/Layout-api/internal/application/editor"
)

// LayoutHandler expone el editor de layout de una bodega.
type LayoutHandler struct {
	sessions *editor.SessionManager
	io       *editor.LayoutIO
}

// NewLayoutHandler construye el handler.
func NewLayoutHandler(sessions *editor.SessionManager, io *editor.LayoutIO) *LayoutHandler {
	return &LayoutHandler{sessions: sessions, io: io}
}

func actorFrom(c *fiber.Ctx) editor.Actor {
	return editor.Actor{UserID: GetUserID(c), WorkspaceID: GetWorkspaceID(c)}
}

// mutationResult responde según el estado final: 202 pendiente, 409 revertida, 200 confirmada.
func mutationResult(c *fiber.Ctx, out *dto.LayoutMutationResponse) error {
	switch out.Status {
	case dto.MutationPending:
		return c.Status(fiber.StatusAccepted).JSON(out)
	case dto.MutationRolledBack:
		return c.Status(fiber.StatusConflict).JSON(out)
	}
	return c.JSON(out)
}

// Snapshot godoc
// @Summary      Estado actual del layout (incluye cambios optimistas)
// @Tags         layout
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la bodega"
// @Success      200  {object}  dto.LayoutSnapshotResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/warehouses/{id}/layout [get]
func (h *LayoutHandler) Snapshot(c *fiber.Ctx) error {
	out, err := h.sessions.Snapshot(c.UserContext(), GetWorkspaceID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Children godoc
// @Summary      Hijos de un elemento por tipo
// @Tags         layout
// @Security     Bearer
// @Produce      json
// @Param        id         path   string  true   "ID de la bodega"
// @Param        parent_id  query  string  false  "Padre (vacío = piso de la bodega)"
// @Param        kind       query  string  true   "zone, rack, shelf, bin, obstacle, entry_point"
// @Success      200  {object}  dto.LayoutChildrenResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/warehouses/{id}/layout/children [get]
func (h *LayoutHandler) Children(c *fiber.Ctx) error {
	out, err := h.sessions.Children(c.UserContext(), GetWorkspaceID(c), c.Params("id"), c.Query("parent_id"), c.Query("kind"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Apply godoc
// @Summary      Aplicar una mutación (create, update, delete)
// @Description  Se aplica de forma optimista y se sincroniza con el backend. Con async=true responde 202
// @Description  con estado pending; si no, espera el resultado (409 con estado rolled_back si falla).
// @Tags         layout
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id     path   string                     true   "ID de la bodega"
// @Param        async  query  bool                       false  "No esperar la confirmación"
// @Param        body   body   dto.LayoutMutationRequest  true   "Mutación"
// @Success      200  {object}  dto.LayoutMutationResponse
// @Success      202  {object}  dto.LayoutMutationResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.LayoutMutationResponse
// @Router       /api/warehouses/{id}/layout/mutations [post]
func (h *LayoutHandler) Apply(c *fiber.Ctx) error {
	var in dto.LayoutMutationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.sessions.Apply(c.UserContext(), actorFrom(c), c.Params("id"), in, c.QueryBool("async", false))
	if err != nil {
		return writeError(c, err)
	}
	return mutationResult(c, out)
}

// Pending godoc
// @Summary      Mutaciones pendientes de confirmar
// @Tags         layout
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la bodega"
// @Success      200  {object}  dto.PendingListResponse
// @Router       /api/warehouses/{id}/layout/pending [get]
func (h *LayoutHandler) Pending(c *fiber.Ctx) error {
	out, err := h.sessions.Pending(c.UserContext(), GetWorkspaceID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Undo godoc
// @Summary      Deshacer la última mutación confirmada
// @Tags         layout
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la bodega"
// @Success      200  {object}  dto.LayoutMutationResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/warehouses/{id}/layout/undo [post]
func (h *LayoutHandler) Undo(c *fiber.Ctx) error {
	out, err := h.sessions.Undo(c.UserContext(), actorFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return mutationResult(c, out)
}

// Refresh godoc
// @Summary      Recargar el layout desde el backend
// @Tags         layout
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la bodega"
// @Success      200  {object}  dto.LayoutSnapshotResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/warehouses/{id}/layout/refresh [post]
func (h *LayoutHandler) Refresh(c *fiber.Ctx) error {
	out, err := h.sessions.Refresh(c.UserContext(), GetWorkspaceID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Export godoc
// @Summary      Exportar el layout en XML
// @Description  El ETag es el SHA-256 de la forma canónica; If-None-Match coincidente responde 304.
// @Tags         layout
// @Security     Bearer
// @Produce      xml
// @Param        id   path  string  true  "ID de la bodega"
// @Success      200
// @Success      304
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/warehouses/{id}/layout/export.xml [get]
func (h *LayoutHandler) Export(c *fiber.Ctx) error {
	data, checksum, err := h.io.Export(c.UserContext(), GetWorkspaceID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	etag := `"` + checksum + `"`
	c.Set(fiber.HeaderETag, etag)
	if match := c.Get(fiber.HeaderIfNoneMatch); match != "" && etagMatches(match, etag) {
		return c.SendStatus(fiber.StatusNotModified)
	}
	c.Set(fiber.HeaderContentType, "application/xml; charset=utf-8")
	return c.Send(data)
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}

// Import godoc
// @Summary      Importar un layout XML (reemplaza el actual)
// @Tags         layout
// @Security     Bearer
// @Accept       xml
// @Produce      json
// @Param        id   path  string  true  "ID de la bodega"
// @Success      200  {object}  dto.LayoutImportResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/warehouses/{id}/layout/import [post]
func (h *LayoutHandler) Import(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "documento XML requerido"})
	}
	// fasthttp reutiliza el buffer del cuerpo
	data := append([]byte(nil), body...)
	out, err := h.io.Import(c.UserContext(), GetWorkspaceID(c), c.Params("id"), data)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Labels godoc
// @Summary      Hoja de etiquetas de bins (PDF)
// @Tags         layout
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la bodega"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/warehouses/{id}/layout/labels.pdf [get]
func (h *LayoutHandler) Labels(c *fiber.Ctx) error {
	id := c.Params("id")
	data, err := h.io.Labels(c.UserContext(), GetWorkspaceID(c), id)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="etiquetas-`+id+`.pdf"`)
	return c.Send(data)
}
