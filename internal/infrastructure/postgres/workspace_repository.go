package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Layout-api/internal/domain/entity"
	"github.com/jhoicas/Layout-api/internal/domain/repository"
)

// Asegura que WorkspaceRepo implementa repository.WorkspaceRepository.
var _ repository.WorkspaceRepository = (*WorkspaceRepo)(nil)

// WorkspaceRepo lectura de workspaces y módulos sobre PostgreSQL.
type WorkspaceRepo struct {
	pool *pgxpool.Pool
}

// NewWorkspaceRepository construye el adaptador.
func NewWorkspaceRepository(pool *pgxpool.Pool) *WorkspaceRepo {
	return &WorkspaceRepo{pool: pool}
}

// GetByID obtiene un workspace por ID; nil, nil si no existe.
func (r *WorkspaceRepo) GetByID(id string) (*entity.Workspace, error) {
	query := `
		SELECT id, name, status, created_at, updated_at
		FROM workspaces WHERE id = $1`
	var ws entity.Workspace
	err := r.pool.QueryRow(context.Background(), query, id).Scan(
		&ws.ID, &ws.Name, &ws.Status, &ws.CreatedAt, &ws.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get workspace: %w", err)
	}
	return &ws, nil
}

// HasActiveModule informa si el workspace está activo y tiene el módulo sin vencer.
// Consulta directamente workspace_modules para una respuesta O(1) vía índice.
func (r *WorkspaceRepo) HasActiveModule(ctx context.Context, workspaceID, moduleName string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			  FROM workspace_modules m
			  JOIN workspaces w ON w.id = m.workspace_id
			 WHERE m.workspace_id = $1
			   AND m.module_name  = $2
			   AND m.is_active    = true
			   AND w.status       = 'active'
			   AND (m.expires_at IS NULL OR m.expires_at > now())
		)`
	var active bool
	if err := r.pool.QueryRow(ctx, query, workspaceID, moduleName).Scan(&active); err != nil {
		return false, fmt.Errorf("check module %s: %w", moduleName, err)
	}
	return active, nil
}
