package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Layout-api/internal/application/editor"
	"github.com/jhoicas/Layout-api/internal/application/usecase"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
	"github.com/jhoicas/Layout-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	WorkspaceUC   *usecase.WorkspaceUseCase
	WarehouseUC   *usecase.WarehouseUseCase
	ModuleService moduleChecker
	Sessions      *editor.SessionManager
	LayoutIO      *editor.LayoutIO
	Log           *logger.Logger
	JWTSecret     string
	JWTIssuer     string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))
	writer := RequireRole(entity.RoleAdmin, entity.RoleEditor)

	workspaceHandler := NewWorkspaceHandler(deps.WorkspaceUC)
	protected.Get("/workspace", workspaceHandler.Current)

	// Warehouses
	warehouses := protected.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Post("/", writer, warehouseHandler.Create)
	warehouses.Get("/", warehouseHandler.List)
	warehouses.Get("/:id", warehouseHandler.GetByID)
	warehouses.Put("/:id", writer, warehouseHandler.Update)
	warehouses.Delete("/:id", writer, warehouseHandler.Delete)

	// Layout (módulo "layout")
	layout := warehouses.Group("/:id/layout", RequireModule(entity.ModuleLayout, deps.ModuleService, deps.Log))
	layoutHandler := NewLayoutHandler(deps.Sessions, deps.LayoutIO)
	layout.Get("/", layoutHandler.Snapshot)
	layout.Get("/children", layoutHandler.Children)
	layout.Get("/pending", layoutHandler.Pending)
	layout.Post("/mutations", writer, layoutHandler.Apply)
	layout.Post("/undo", writer, layoutHandler.Undo)
	layout.Post("/refresh", layoutHandler.Refresh)
	layout.Get("/export.xml", layoutHandler.Export)
	layout.Post("/import", writer, layoutHandler.Import)
	layout.Get("/labels.pdf", layoutHandler.Labels)
}
