package repository

import (
	"context"

	"github.com/jhoicas/Layout-api/internal/domain/entity"
)

// WorkspaceRepository define el puerto de lectura de workspaces y sus módulos.
// El alta de workspaces la hace el proveedor de identidad; aquí solo se consulta.
type WorkspaceRepository interface {
	GetByID(id string) (*entity.Workspace, error)
	HasActiveModule(ctx context.Context, workspaceID, moduleName string) (bool, error)
}
