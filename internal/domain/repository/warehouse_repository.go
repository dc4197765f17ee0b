package repository

import "github.com/jhoicas/Layout-api/internal/domain/entity"

// WarehouseRepository define el puerto de persistencia para Warehouse (DIP).
type WarehouseRepository interface {
	Create(warehouse *entity.Warehouse) error
	GetByID(id string) (*entity.Warehouse, error)
	Update(warehouse *entity.Warehouse) error
	ListByWorkspace(workspaceID string, limit, offset int) ([]*entity.Warehouse, error)
	CountByWorkspace(workspaceID string) (int, error)
	Delete(id string) error
}
