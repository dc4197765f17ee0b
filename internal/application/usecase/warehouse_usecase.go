package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Layout-api/internal/application/dto"
	"github.com/jhoicas/Layout-api/internal/domain"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
	"github.com/jhoicas/Layout-api/internal/domain/repository"
	"github.com/jhoicas/Layout-api/pkg/logger"
)

// sessionLocker bloquea el editor de una bodega mientras se escribe por fuera de la cola.
// Lo implementa *editor.SessionManager.
type sessionLocker interface {
	Exclusive(warehouseID string, fn func() error) error
}

// WarehouseUseCase casos de uso CRUD para bodegas, acotados al workspace del token.
type WarehouseUseCase struct {
	repo     repository.WarehouseRepository
	layouts  repository.LayoutRepository
	sessions sessionLocker
	log      *logger.Logger
	now      func() time.Time
}

// NewWarehouseUseCase construye el caso de uso.
func NewWarehouseUseCase(
	repo repository.WarehouseRepository,
	layouts repository.LayoutRepository,
	sessions sessionLocker,
	log *logger.Logger,
) *WarehouseUseCase {
	return &WarehouseUseCase{repo: repo, layouts: layouts, sessions: sessions, log: log, now: time.Now}
}

// Create crea una nueva bodega en el workspace.
func (uc *WarehouseUseCase) Create(workspaceID string, in dto.CreateWarehouseRequest) (*dto.WarehouseResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name es requerido", domain.ErrInvalidInput)
	}
	now := uc.now()
	warehouse := &entity.Warehouse{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		Name:        name,
		Address:     strings.TrimSpace(in.Address),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(warehouse); err != nil {
		return nil, err
	}
	uc.log.Info().Str("workspace_id", workspaceID).Str("warehouse_id", warehouse.ID).Msg("bodega creada")
	return toWarehouseResponse(warehouse), nil
}

// GetByID obtiene una bodega del workspace. Una bodega de otro workspace se reporta como inexistente.
func (uc *WarehouseUseCase) GetByID(workspaceID, id string) (*dto.WarehouseResponse, error) {
	warehouse, err := uc.owned(workspaceID, id)
	if err != nil {
		return nil, err
	}
	return toWarehouseResponse(warehouse), nil
}

// Update actualiza nombre y/o dirección.
func (uc *WarehouseUseCase) Update(workspaceID, id string, in dto.UpdateWarehouseRequest) (*dto.WarehouseResponse, error) {
	warehouse, err := uc.owned(workspaceID, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name no puede ser vacío", domain.ErrInvalidInput)
		}
		warehouse.Name = name
	}
	if in.Address != nil {
		warehouse.Address = strings.TrimSpace(*in.Address)
	}
	warehouse.UpdatedAt = uc.now()
	if err := uc.repo.Update(warehouse); err != nil {
		return nil, err
	}
	return toWarehouseResponse(warehouse), nil
}

// List lista bodegas del workspace con paginación.
func (uc *WarehouseUseCase) List(workspaceID string, limit, offset int) (*dto.WarehouseListResponse, error) {
	list, err := uc.repo.ListByWorkspace(workspaceID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := uc.repo.CountByWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}
	items := make([]dto.WarehouseResponse, 0, len(list))
	for _, w := range list {
		items = append(items, *toWarehouseResponse(w))
	}
	return &dto.WarehouseListResponse{
		Items: items,
		Page:  dto.NewPageResponse(limit, offset, total),
	}, nil
}

// Delete elimina una bodega vacía. Con layout → ErrConflict; con mutaciones pendientes → ErrPendingMutations.
func (uc *WarehouseUseCase) Delete(ctx context.Context, workspaceID, id string) error {
	if _, err := uc.owned(workspaceID, id); err != nil {
		return err
	}
	err := uc.sessions.Exclusive(id, func() error {
		n, err := uc.layouts.CountByWarehouse(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: la bodega tiene %d elementos de layout", domain.ErrConflict, n)
		}
		return uc.repo.Delete(id)
	})
	if err != nil {
		return err
	}
	uc.log.Info().Str("workspace_id", workspaceID).Str("warehouse_id", id).Msg("bodega eliminada")
	return nil
}

func (uc *WarehouseUseCase) owned(workspaceID, id string) (*entity.Warehouse, error) {
	warehouse, err := uc.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if warehouse == nil || warehouse.WorkspaceID != workspaceID {
		return nil, fmt.Errorf("%w: bodega %s", domain.ErrNotFound, id)
	}
	return warehouse, nil
}

func toWarehouseResponse(w *entity.Warehouse) *dto.WarehouseResponse {
	if w == nil {
		return nil
	}
	return &dto.WarehouseResponse{
		ID:          w.ID,
		WorkspaceID: w.WorkspaceID,
		Name:        w.Name,
		Address:     w.Address,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}
