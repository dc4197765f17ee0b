// Package memory implementa los puertos de persistencia en memoria, para STORAGE_DRIVER=memory
// y para tests. Replica las reglas del adaptador PostgreSQL (versionado optimista, borrado lógico).
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/Layout-api/internal/domain"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
	"github.com/jhoicas/Layout-api/internal/domain/repository"
)

var _ repository.LayoutRepository = (*LayoutRepo)(nil)

type layoutRow struct {
	el      entity.LayoutElement
	deleted bool
}

// LayoutRepo layout de todas las bodegas en memoria.
type LayoutRepo struct {
	mu    sync.RWMutex
	rows  map[string]map[string]*layoutRow // warehouseID → elementID → fila
	audit map[string][]entity.LayoutMutation
}

// NewLayoutRepository construye el repositorio vacío.
func NewLayoutRepository() *LayoutRepo {
	return &LayoutRepo{
		rows:  make(map[string]map[string]*layoutRow),
		audit: make(map[string][]entity.LayoutMutation),
	}
}

// LoadWarehouse devuelve los elementos vivos de la bodega.
func (r *LayoutRepo) LoadWarehouse(ctx context.Context, warehouseID string) ([]entity.LayoutElement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.LayoutElement, 0, len(r.rows[warehouseID]))
	for _, row := range r.rows[warehouseID] {
		if !row.deleted {
			out = append(out, row.el.Clone())
		}
	}
	return out, nil
}

// ApplyMutation aplica la mutación de forma atómica: valida todo antes de escribir.
func (r *LayoutRepo) ApplyMutation(ctx context.Context, m *entity.LayoutMutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := r.rows[m.WarehouseID]
	if rows == nil {
		rows = make(map[string]*layoutRow)
		r.rows[m.WarehouseID] = rows
	}
	live := func(id string) (*layoutRow, bool) {
		row, ok := rows[id]
		if !ok || row.deleted {
			return nil, false
		}
		return row, true
	}
	parentOK := func(parentID string) error {
		if parentID == "" {
			return nil
		}
		if _, ok := live(parentID); !ok {
			return fmt.Errorf("%w: %s", domain.ErrOrphan, parentID)
		}
		return nil
	}

	switch m.Op {
	case entity.MutationCreate:
		if m.Element == nil {
			return domain.ErrInvalidInput
		}
		if _, exists := rows[m.EntityID]; exists {
			return fmt.Errorf("%w: elemento %s", domain.ErrDuplicate, m.EntityID)
		}
		if err := parentOK(m.Element.ParentID); err != nil {
			return err
		}
		el := m.Element.Clone()
		el.Version = 1
		rows[el.ID] = &layoutRow{el: el}

	case entity.MutationUpdate:
		if m.Element == nil {
			return domain.ErrInvalidInput
		}
		row, ok := live(m.EntityID)
		if !ok {
			return domain.ErrNotFound
		}
		if row.el.Version != m.BaseVersion {
			return fmt.Errorf("%w: versión %d, esperada %d", domain.ErrConflict, row.el.Version, m.BaseVersion)
		}
		if err := parentOK(m.Element.ParentID); err != nil {
			return err
		}
		el := m.Element.Clone()
		el.Version = m.BaseVersion + 1
		el.CreatedAt = row.el.CreatedAt
		row.el = el

	case entity.MutationDelete:
		row, ok := live(m.EntityID)
		if !ok {
			return domain.ErrNotFound
		}
		if row.el.Version != m.BaseVersion {
			return fmt.Errorf("%w: versión %d, esperada %d", domain.ErrConflict, row.el.Version, m.BaseVersion)
		}
		for _, id := range subtree(rows, m.EntityID) {
			rows[id].deleted = true
		}

	case entity.MutationRestore:
		if len(m.Elements) == 0 {
			return domain.ErrInvalidInput
		}
		restoring := make(map[string]struct{}, len(m.Elements))
		for _, el := range m.Elements {
			if _, ok := live(el.ID); ok {
				return fmt.Errorf("%w: elemento %s ya existe", domain.ErrConflict, el.ID)
			}
			if _, ok := restoring[el.ParentID]; !ok {
				if err := parentOK(el.ParentID); err != nil {
					return err
				}
			}
			restoring[el.ID] = struct{}{}
		}
		for _, el := range m.Elements {
			rows[el.ID] = &layoutRow{el: el.Clone()}
		}

	default:
		return fmt.Errorf("%w: op %q", domain.ErrInvalidInput, m.Op)
	}

	r.audit[m.WarehouseID] = append(r.audit[m.WarehouseID], *m)
	return nil
}

// ReplaceWarehouse reemplaza el layout completo de la bodega.
func (r *LayoutRepo) ReplaceWarehouse(ctx context.Context, warehouseID string, elements []entity.LayoutElement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := make(map[string]*layoutRow, len(elements))
	for _, el := range elements {
		if _, dup := rows[el.ID]; dup {
			return fmt.Errorf("%w: elemento %s", domain.ErrDuplicate, el.ID)
		}
		rows[el.ID] = &layoutRow{el: el.Clone()}
	}
	r.mu.Lock()
	r.rows[warehouseID] = rows
	r.mu.Unlock()
	return nil
}

// CountByWarehouse cuenta los elementos vivos.
func (r *LayoutRepo) CountByWarehouse(ctx context.Context, warehouseID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, row := range r.rows[warehouseID] {
		if !row.deleted {
			n++
		}
	}
	return n, nil
}

// Mutations devuelve el registro de auditoría de la bodega.
func (r *LayoutRepo) Mutations(warehouseID string) []entity.LayoutMutation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]entity.LayoutMutation(nil), r.audit[warehouseID]...)
}

// subtree IDs vivos de id y sus descendientes.
func subtree(rows map[string]*layoutRow, id string) []string {
	out := []string{id}
	for i := 0; i < len(out); i++ {
		for childID, row := range rows {
			if !row.deleted && row.el.ParentID == out[i] {
				out = append(out, childID)
			}
		}
	}
	return out
}
