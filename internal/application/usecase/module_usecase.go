package usecase

import (
	"context"
	"fmt"

	"github.com/jhoicas/Layout-api/internal/domain/repository"
)

// ModuleService verifica qué módulos SaaS tiene activos un workspace.
// Es el único punto de la aplicación que conoce la lógica de activación de módulos.
type ModuleService struct {
	workspaces repository.WorkspaceRepository
}

// NewModuleService construye el servicio de módulos.
func NewModuleService(workspaces repository.WorkspaceRepository) *ModuleService {
	return &ModuleService{workspaces: workspaces}
}

// HasActiveModule informa si el workspace tiene el módulo activo y sin vencer.
// Devuelve false (sin error) si no lo tiene contratado; error solo ante fallos de infraestructura.
func (s *ModuleService) HasActiveModule(ctx context.Context, workspaceID, moduleName string) (bool, error) {
	if workspaceID == "" || moduleName == "" {
		return false, fmt.Errorf("module: workspaceID y moduleName son obligatorios")
	}
	return s.workspaces.HasActiveModule(ctx, workspaceID, moduleName)
}
