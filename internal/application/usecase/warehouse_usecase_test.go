package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Layout-api/internal/application/dto"
	"github.com/jhoicas/Layout-api/internal/application/usecase"
	"github.com/jhoicas/Layout-api/internal/domain"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
	"github.com/jhoicas/Layout-api/internal/infrastructure/memory"
	"github.com/jhoicas/Layout-api/pkg/logger"
)

type fakeSessions struct {
	locked []string
	err    error
}

func (f *fakeSessions) Exclusive(warehouseID string, fn func() error) error {
	if f.err != nil {
		return f.err
	}
	f.locked = append(f.locked, warehouseID)
	return fn()
}

func newWarehouseUC() (*usecase.WarehouseUseCase, *memory.LayoutRepo, *fakeSessions) {
	layouts := memory.NewLayoutRepository()
	sessions := &fakeSessions{}
	uc := usecase.NewWarehouseUseCase(memory.NewWarehouseRepository(), layouts, sessions, logger.Nop())
	return uc, layouts, sessions
}

// ────────────────────────────────────────────────────────────────────────────
// CRUD acotado al workspace
// ────────────────────────────────────────────────────────────────────────────

func TestWarehouse_CreateYGet(t *testing.T) {
	uc, _, _ := newWarehouseUC()

	out, err := uc.Create("ws-1", dto.CreateWarehouseRequest{Name: "  Central ", Address: "Calle 1"})
	require.NoError(t, err)
	assert.Equal(t, "Central", out.Name)
	assert.Equal(t, "ws-1", out.WorkspaceID)

	got, err := uc.GetByID("ws-1", out.ID)
	require.NoError(t, err)
	assert.Equal(t, out.ID, got.ID)
}

func TestWarehouse_CreateSinNombre(t *testing.T) {
	uc, _, _ := newWarehouseUC()
	_, err := uc.Create("ws-1", dto.CreateWarehouseRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWarehouse_OtroWorkspaceEsNotFound(t *testing.T) {
	uc, _, _ := newWarehouseUC()
	out, err := uc.Create("ws-1", dto.CreateWarehouseRequest{Name: "Central"})
	require.NoError(t, err)

	_, err = uc.GetByID("ws-2", out.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	name := "Robada"
	_, err = uc.Update("ws-2", out.ID, dto.UpdateWarehouseRequest{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWarehouse_UpdateParcial(t *testing.T) {
	uc, _, _ := newWarehouseUC()
	out, err := uc.Create("ws-1", dto.CreateWarehouseRequest{Name: "Central", Address: "Calle 1"})
	require.NoError(t, err)

	addr := "Calle 2"
	upd, err := uc.Update("ws-1", out.ID, dto.UpdateWarehouseRequest{Address: &addr})
	require.NoError(t, err)
	assert.Equal(t, "Central", upd.Name)
	assert.Equal(t, "Calle 2", upd.Address)
}

func TestWarehouse_ListSoloDelWorkspace(t *testing.T) {
	uc, _, _ := newWarehouseUC()
	_, err := uc.Create("ws-1", dto.CreateWarehouseRequest{Name: "A"})
	require.NoError(t, err)
	_, err = uc.Create("ws-1", dto.CreateWarehouseRequest{Name: "B"})
	require.NoError(t, err)
	_, err = uc.Create("ws-2", dto.CreateWarehouseRequest{Name: "C"})
	require.NoError(t, err)

	out, err := uc.List("ws-1", 20, 0)
	require.NoError(t, err)
	assert.Len(t, out.Items, 2)
	assert.Equal(t, 2, out.Page.Total)
	assert.False(t, out.Page.HasMore)

	out, err = uc.List("ws-1", 1, 0)
	require.NoError(t, err)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, 2, out.Page.Total, "el total no depende de la página")
	assert.True(t, out.Page.HasMore)
}

func TestPageRequest_Normalize(t *testing.T) {
	p := dto.PageRequest{Limit: 500, Offset: -3}
	p.Normalize()
	assert.Equal(t, dto.MaxPageLimit, p.Limit)
	assert.Equal(t, 0, p.Offset)

	p = dto.PageRequest{}
	p.Normalize()
	assert.Equal(t, 20, p.Limit)
}

// ────────────────────────────────────────────────────────────────────────────
// Delete
// ────────────────────────────────────────────────────────────────────────────

func TestWarehouse_DeleteConLayoutEsConflicto(t *testing.T) {
	uc, layouts, sessions := newWarehouseUC()
	out, err := uc.Create("ws-1", dto.CreateWarehouseRequest{Name: "Central"})
	require.NoError(t, err)
	require.NoError(t, layouts.ReplaceWarehouse(context.Background(), out.ID, []entity.LayoutElement{
		{ID: "z1", WarehouseID: out.ID, Kind: entity.KindZone, Version: 1, CreatedAt: time.Now()},
	}))

	err = uc.Delete(context.Background(), "ws-1", out.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, []string{out.ID}, sessions.locked, "el conteo se hace con el editor bloqueado")

	_, err = uc.GetByID("ws-1", out.ID)
	assert.NoError(t, err)
}

func TestWarehouse_DeleteVacia(t *testing.T) {
	uc, _, sessions := newWarehouseUC()
	out, err := uc.Create("ws-1", dto.CreateWarehouseRequest{Name: "Central"})
	require.NoError(t, err)

	require.NoError(t, uc.Delete(context.Background(), "ws-1", out.ID))
	assert.Equal(t, []string{out.ID}, sessions.locked)

	_, err = uc.GetByID("ws-1", out.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWarehouse_DeleteConPendientes(t *testing.T) {
	uc, _, sessions := newWarehouseUC()
	out, err := uc.Create("ws-1", dto.CreateWarehouseRequest{Name: "Central"})
	require.NoError(t, err)
	sessions.err = domain.ErrPendingMutations

	err = uc.Delete(context.Background(), "ws-1", out.ID)
	assert.ErrorIs(t, err, domain.ErrPendingMutations)

	_, err = uc.GetByID("ws-1", out.ID)
	assert.NoError(t, err)
}
