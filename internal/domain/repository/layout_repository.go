package repository

import (
	"context"

	"github.com/jhoicas/Layout-api/internal/domain/entity"
)

// LayoutRepository define el puerto remoto del editor de layout: es la fuente de verdad contra la
// que se confirman (o revierten) las mutaciones optimistas.
type LayoutRepository interface {
	// LoadWarehouse devuelve los elementos vivos (no eliminados) de la bodega.
	LoadWarehouse(ctx context.Context, warehouseID string) ([]entity.LayoutElement, error)
	// ApplyMutation aplica la mutación de forma atómica. Devuelve domain.ErrConflict si la
	// versión base no coincide y domain.ErrNotFound si el elemento no existe.
	ApplyMutation(ctx context.Context, m *entity.LayoutMutation) error
	// ReplaceWarehouse reemplaza el layout completo (importación).
	ReplaceWarehouse(ctx context.Context, warehouseID string, elements []entity.LayoutElement) error
	// CountByWarehouse cuenta los elementos vivos de la bodega.
	CountByWarehouse(ctx context.Context, warehouseID string) (int, error)
}
