package usecase

import (
	"fmt"

	"github.com/jhoicas/Layout-api/internal/application/dto"
	"github.com/jhoicas/Layout-api/internal/domain"
	"github.com/jhoicas/Layout-api/internal/domain/repository"
)

// WorkspaceUseCase consulta del workspace del usuario autenticado.
type WorkspaceUseCase struct {
	repo repository.WorkspaceRepository
}

// NewWorkspaceUseCase construye el caso de uso.
func NewWorkspaceUseCase(repo repository.WorkspaceRepository) *WorkspaceUseCase {
	return &WorkspaceUseCase{repo: repo}
}

// Current devuelve el workspace del token junto con el rol del usuario en él.
func (uc *WorkspaceUseCase) Current(workspaceID, role string) (*dto.WorkspaceResponse, error) {
	ws, err := uc.repo.GetByID(workspaceID)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, fmt.Errorf("%w: workspace %s", domain.ErrNotFound, workspaceID)
	}
	return &dto.WorkspaceResponse{
		ID:        ws.ID,
		Name:      ws.Name,
		Status:    ws.Status,
		Role:      role,
		CreatedAt: ws.CreatedAt,
	}, nil
}
