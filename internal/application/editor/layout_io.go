package editor

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/Layout-api/internal/application/dto"
	"github.com/jhoicas/Layout-api/internal/domain"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
	domlayout "github.com/jhoicas/Layout-api/internal/domain/layout"
	"github.com/jhoicas/Layout-api/internal/domain/repository"
	"github.com/jhoicas/Layout-api/pkg/logger"
)

// LayoutIO exportación e importación del layout y hoja de etiquetas. Trabaja sobre el estado
// confirmado del backend, no sobre las sesiones.
type LayoutIO struct {
	layouts    repository.LayoutRepository
	warehouses repository.WarehouseRepository
	sessions   *SessionManager
	codec      LayoutCodec
	labels     LabelRenderer
	log        *logger.Logger
}

// NewLayoutIO construye el servicio.
func NewLayoutIO(
	layouts repository.LayoutRepository,
	warehouses repository.WarehouseRepository,
	sessions *SessionManager,
	codec LayoutCodec,
	labels LabelRenderer,
	log *logger.Logger,
) *LayoutIO {
	return &LayoutIO{layouts: layouts, warehouses: warehouses, sessions: sessions, codec: codec, labels: labels, log: log}
}

func (uc *LayoutIO) warehouse(workspaceID, warehouseID string) (*entity.Warehouse, error) {
	w, err := uc.warehouses.GetByID(warehouseID)
	if err != nil {
		return nil, err
	}
	if w == nil || w.WorkspaceID != workspaceID {
		return nil, domain.ErrNotFound
	}
	return w, nil
}

// Export devuelve el documento XML del layout y su checksum.
func (uc *LayoutIO) Export(ctx context.Context, workspaceID, warehouseID string) ([]byte, string, error) {
	w, err := uc.warehouse(workspaceID, warehouseID)
	if err != nil {
		return nil, "", err
	}
	elements, err := uc.layouts.LoadWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, "", fmt.Errorf("cargar layout: %w", err)
	}
	store, err := domlayout.Load(elements)
	if err != nil {
		return nil, "", err
	}
	return uc.codec.Encode(w, store.All())
}

// Import reemplaza el layout completo con el documento. Se rechaza si la bodega tiene
// mutaciones sin sincronizar; el editor queda bloqueado durante el reemplazo y la sesión se
// recarga en la próxima lectura.
func (uc *LayoutIO) Import(ctx context.Context, workspaceID, warehouseID string, data []byte) (*dto.LayoutImportResponse, error) {
	if _, err := uc.warehouse(workspaceID, warehouseID); err != nil {
		return nil, err
	}
	elements, checksum, err := uc.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	for i := range elements {
		elements[i].WarehouseID = warehouseID
		if elements[i].Version == 0 {
			elements[i].Version = 1
		}
	}
	// valida jerarquía y huérfanos antes de tocar el backend
	store, err := domlayout.Load(elements)
	if err != nil {
		return nil, err
	}
	ordered := store.All()
	err = uc.sessions.Exclusive(warehouseID, func() error {
		if err := uc.layouts.ReplaceWarehouse(ctx, warehouseID, ordered); err != nil {
			return fmt.Errorf("reemplazar layout: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("warehouse_id", warehouseID).Int("elements", len(ordered)).Msg("layout importado")
	return &dto.LayoutImportResponse{WarehouseID: warehouseID, Elements: len(ordered), Checksum: checksum}, nil
}

// Labels genera el PDF de etiquetas de todos los bins, ordenados por ruta.
func (uc *LayoutIO) Labels(ctx context.Context, workspaceID, warehouseID string) ([]byte, error) {
	w, err := uc.warehouse(workspaceID, warehouseID)
	if err != nil {
		return nil, err
	}
	elements, err := uc.layouts.LoadWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("cargar layout: %w", err)
	}
	store, err := domlayout.Load(elements)
	if err != nil {
		return nil, err
	}
	return uc.labels.RenderBinLabels(w, BinLabels(store))
}

// BinLabels arma las etiquetas de los bins recorriendo el store en orden jerárquico.
func BinLabels(store *domlayout.Store) []BinLabel {
	var out []BinLabel
	for _, el := range store.All() {
		if el.Kind != entity.KindBin {
			continue
		}
		chain := store.Ancestors(el.ID)
		parts := make([]string, 0, len(chain))
		for _, a := range chain {
			parts = append(parts, labelOf(a))
		}
		out = append(out, BinLabel{
			ElementID: el.ID,
			Code:      labelOf(el),
			Name:      el.Name,
			Path:      strings.Join(parts, " / "),
		})
	}
	return out
}

func labelOf(el entity.LayoutElement) string {
	if el.Code != "" {
		return el.Code
	}
	return el.Name
}
