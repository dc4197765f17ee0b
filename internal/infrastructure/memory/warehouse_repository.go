package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jhoicas/Layout-api/internal/domain"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
	"github.com/jhoicas/Layout-api/internal/domain/repository"
)

var (
	_ repository.WarehouseRepository = (*WarehouseRepo)(nil)
	_ repository.WorkspaceRepository = (*WorkspaceRepo)(nil)
)

// WarehouseRepo bodegas en memoria.
type WarehouseRepo struct {
	mu    sync.RWMutex
	items map[string]entity.Warehouse
}

// NewWarehouseRepository construye el repositorio vacío.
func NewWarehouseRepository() *WarehouseRepo {
	return &WarehouseRepo{items: make(map[string]entity.Warehouse)}
}

// Create persiste una nueva bodega.
func (r *WarehouseRepo) Create(warehouse *entity.Warehouse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[warehouse.ID]; ok {
		return fmt.Errorf("%w: bodega %s", domain.ErrDuplicate, warehouse.ID)
	}
	r.items[warehouse.ID] = *warehouse
	return nil
}

// GetByID devuelve nil, nil si no existe (mismo contrato que PostgreSQL).
func (r *WarehouseRepo) GetByID(id string) (*entity.Warehouse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// Update actualiza nombre y dirección.
func (r *WarehouseRepo) Update(warehouse *entity.Warehouse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[warehouse.ID]; !ok {
		return domain.ErrNotFound
	}
	r.items[warehouse.ID] = *warehouse
	return nil
}

// ListByWorkspace lista por fecha de creación descendente.
func (r *WarehouseRepo) ListByWorkspace(workspaceID string, limit, offset int) ([]*entity.Warehouse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var list []*entity.Warehouse
	for _, w := range r.items {
		if w.WorkspaceID == workspaceID {
			w := w
			list = append(list, &w)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if offset >= len(list) {
		return nil, nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list, nil
}

// CountByWorkspace cuenta las bodegas del workspace.
func (r *WarehouseRepo) CountByWorkspace(workspaceID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, w := range r.items {
		if w.WorkspaceID == workspaceID {
			n++
		}
	}
	return n, nil
}

// Delete elimina la bodega.
func (r *WarehouseRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

// WorkspaceRepo workspaces y módulos activos en memoria.
type WorkspaceRepo struct {
	mu      sync.RWMutex
	items   map[string]entity.Workspace
	modules map[string]map[string]bool
}

// NewWorkspaceRepository construye el repositorio vacío.
func NewWorkspaceRepository() *WorkspaceRepo {
	return &WorkspaceRepo{
		items:   make(map[string]entity.Workspace),
		modules: make(map[string]map[string]bool),
	}
}

// Put registra o reemplaza un workspace con sus módulos activos.
func (r *WorkspaceRepo) Put(ws entity.Workspace, modules ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[ws.ID] = ws
	active := make(map[string]bool, len(modules))
	for _, m := range modules {
		active[m] = true
	}
	r.modules[ws.ID] = active
}

// GetByID devuelve nil, nil si no existe.
func (r *WorkspaceRepo) GetByID(id string) (*entity.Workspace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &ws, nil
}

// HasActiveModule informa si el workspace está activo y tiene el módulo.
func (r *WorkspaceRepo) HasActiveModule(ctx context.Context, workspaceID, moduleName string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws, ok := r.items[workspaceID]
	if !ok || ws.Status != entity.WorkspaceActive {
		return false, nil
	}
	return r.modules[workspaceID][moduleName], nil
}
