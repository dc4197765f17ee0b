package layout_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Layout-api/internal/domain"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
	"github.com/jhoicas/Layout-api/internal/domain/layout"
)

func createMut(id string, e entity.LayoutElement) entity.LayoutMutation {
	return entity.LayoutMutation{ID: id, WarehouseID: testWarehouseID, EntityID: e.ID, Op: entity.MutationCreate, Element: &e}
}

func updateMut(id string, e entity.LayoutElement, base int64) entity.LayoutMutation {
	return entity.LayoutMutation{ID: id, WarehouseID: testWarehouseID, EntityID: e.ID, Op: entity.MutationUpdate, Element: &e, BaseVersion: base}
}

func deleteMut(id, entityID string, base int64) entity.LayoutMutation {
	return entity.LayoutMutation{ID: id, WarehouseID: testWarehouseID, EntityID: entityID, Op: entity.MutationDelete, BaseVersion: base}
}

func TestSyncQueue_EnqueueAplicaYGuardaFoto(t *testing.T) {
	s := buildTree(t)
	q := layout.NewSyncQueue(s)

	renamed := el("r1", entity.KindRack, "z1")
	renamed.Name = "Rack norte"
	pm, err := q.Enqueue(updateMut("m1", renamed, 1))
	require.NoError(t, err)

	got, _ := s.Get("r1")
	assert.Equal(t, "Rack norte", got.Name, "el cambio se ve antes de confirmar")
	assert.Equal(t, int64(2), got.Version)
	require.Len(t, pm.Previous, 1)
	assert.Equal(t, "elemento r1", pm.Previous[0].Name)
	assert.Equal(t, uint64(1), pm.Seq)
	assert.Equal(t, 1, q.Len())
}

func TestSyncQueue_EnqueueValidaVersionBase(t *testing.T) {
	q := layout.NewSyncQueue(buildTree(t))

	_, err := q.Enqueue(updateMut("m1", el("r1", entity.KindRack, "z1"), 7))
	assert.ErrorIs(t, err, domain.ErrStaleVersion)
	_, err = q.Enqueue(deleteMut("m2", "r1", 3))
	assert.ErrorIs(t, err, domain.ErrStaleVersion)
	_, err = q.Enqueue(updateMut("m3", el("nada", entity.KindRack, "z1"), 1))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = q.Enqueue(createMut("m4", el("z1", entity.KindZone, "")))
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	_, err = q.Enqueue(createMut("m5", el("b9", entity.KindBin, "z1")))
	assert.ErrorIs(t, err, domain.ErrInvalidParent)
	assert.Equal(t, 0, q.Len(), "las mutaciones inválidas no quedan pendientes")
}

// Confirmar quita exactamente una entrada y deja las demás intactas.
func TestSyncQueue_ConfirmQuitaSoloUna(t *testing.T) {
	s := buildTree(t)
	q := layout.NewSyncQueue(s)

	_, err := q.Enqueue(createMut("m1", el("r2", entity.KindRack, "z1")))
	require.NoError(t, err)
	_, err = q.Enqueue(createMut("m2", el("r3", entity.KindRack, "z1")))
	require.NoError(t, err)
	_, err = q.Enqueue(updateMut("m3", el("r2", entity.KindRack, "z1"), 1))
	require.NoError(t, err)

	pm, err := q.Confirm("m2")
	require.NoError(t, err)
	assert.Equal(t, "m2", pm.Mutation.ID)

	ids := []string{}
	for _, p := range q.Pending() {
		ids = append(ids, p.Mutation.ID)
	}
	assert.Equal(t, []string{"m1", "m3"}, ids)
	assert.Len(t, q.PendingFor("r2"), 2)

	_, err = q.Confirm("m2")
	assert.ErrorIs(t, err, domain.ErrMutationNotPending)
	assert.Equal(t, 2, q.Len())
}

// Revertir restaura la foto exacta; revertir dos veces no tiene efecto adicional.
func TestSyncQueue_RollbackExactoEIdempotente(t *testing.T) {
	s := buildTree(t)
	q := layout.NewSyncQueue(s)
	before := s.All()

	_, err := q.Enqueue(deleteMut("m1", "r1", 1))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	rolled, err := q.Rollback("m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, rolled)
	assert.Equal(t, before, s.All())
	require.NoError(t, s.CheckIntegrity())

	rolled, err = q.Rollback("m1")
	require.NoError(t, err)
	assert.Empty(t, rolled)
	assert.Equal(t, before, s.All())
}

func TestSyncQueue_RollbackDeCreateYUpdate(t *testing.T) {
	s := buildTree(t)
	q := layout.NewSyncQueue(s)
	before := s.All()

	_, err := q.Enqueue(createMut("m1", el("r2", entity.KindRack, "z1")))
	require.NoError(t, err)
	moved := el("s1", entity.KindShelf, "r2")
	_, err = q.Enqueue(updateMut("m2", moved, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, s.GetChildren("r2", entity.KindShelf))

	// distintas entidades: se revierte cada una por separado, la más nueva primero
	_, err = q.Rollback("m2")
	require.NoError(t, err)
	_, err = q.Rollback("m1")
	require.NoError(t, err)

	assert.Equal(t, before, s.All())
	assert.Equal(t, 0, q.Len())
}

// FIFO por entidad: revertir una mutación revierte también las posteriores sobre la misma entidad.
func TestSyncQueue_RollbackArrastraPosterioresDeLaEntidad(t *testing.T) {
	s := buildTree(t)
	q := layout.NewSyncQueue(s)
	original, _ := s.Get("r1")

	first := el("r1", entity.KindRack, "z1")
	first.Name = "v2"
	_, err := q.Enqueue(updateMut("m1", first, 1))
	require.NoError(t, err)
	second := el("r1", entity.KindRack, "z1")
	second.Name = "v3"
	_, err = q.Enqueue(updateMut("m2", second, 2))
	require.NoError(t, err)
	_, err = q.Enqueue(createMut("m3", el("z2", entity.KindZone, "")))
	require.NoError(t, err)

	rolled, err := q.Rollback("m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m1"}, rolled)

	got, _ := s.Get("r1")
	assert.Equal(t, original, got)
	assert.True(t, q.IsPending("m3"), "otras entidades no se tocan")
	assert.Equal(t, 1, q.Len())
}

func TestSyncQueue_RollbackConPadreDesaparecido(t *testing.T) {
	s := buildTree(t)
	q := layout.NewSyncQueue(s)

	renamed := el("s1", entity.KindShelf, "r1")
	renamed.Name = "estante"
	_, err := q.Enqueue(updateMut("m1", renamed, 1))
	require.NoError(t, err)
	_, err = q.Enqueue(deleteMut("m2", "z1", 1))
	require.NoError(t, err)

	// el estante ya no existe: la foto no se puede reaplicar pero la entrada se retira
	_, err = q.Rollback("m1")
	assert.ErrorIs(t, err, domain.ErrOrphan)
	assert.False(t, q.IsPending("m1"))
	require.NoError(t, s.CheckIntegrity())

	// revertir el delete repone la zona con el estante como estaba antes de m1
	_, err = q.Rollback("m2")
	require.NoError(t, err)
	got, ok := s.Get("s1")
	require.True(t, ok)
	assert.Equal(t, "elemento s1", got.Name)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, 7, s.Len())
	require.NoError(t, s.CheckIntegrity())
}

func TestSyncQueue_RollbackDeDeleteVuelveALaFotoDelAncestro(t *testing.T) {
	s := buildTree(t)
	q := layout.NewSyncQueue(s)

	_, err := q.Enqueue(deleteMut("m1", "s1", 1))
	require.NoError(t, err)
	_, err = q.Enqueue(deleteMut("m2", "r1", 1))
	require.NoError(t, err)

	_, err = q.Rollback("m1")
	assert.ErrorIs(t, err, domain.ErrOrphan)

	_, err = q.Rollback("m2")
	require.NoError(t, err)
	for _, id := range []string{"r1", "s1", "b1", "b2"} {
		_, ok := s.Get(id)
		assert.True(t, ok, id)
	}
	assert.Equal(t, 7, s.Len())
	require.NoError(t, s.CheckIntegrity())
}

func TestSyncQueue_CreateRevertidoSaleDeLaFotoDelDelete(t *testing.T) {
	s := buildTree(t)
	q := layout.NewSyncQueue(s)

	_, err := q.Enqueue(createMut("m1", el("b3", entity.KindBin, "s1")))
	require.NoError(t, err)
	pm, err := q.Enqueue(deleteMut("m2", "r1", 1))
	require.NoError(t, err)
	require.Len(t, pm.Previous, 5)

	_, err = q.Rollback("m1")
	require.NoError(t, err)
	got, ok := q.Get("m2")
	require.True(t, ok)
	assert.Len(t, got.Previous, 4)

	_, err = q.Rollback("m2")
	require.NoError(t, err)
	_, ok = s.Get("b3")
	assert.False(t, ok, "el create revertido no vuelve con el subárbol")
	assert.Equal(t, 7, s.Len())
	require.NoError(t, s.CheckIntegrity())
}

func TestSyncQueue_RestoreReinsertaSubarbol(t *testing.T) {
	s := buildTree(t)
	q := layout.NewSyncQueue(s)
	before := s.All()

	pm, err := q.Enqueue(deleteMut("m1", "r1", 1))
	require.NoError(t, err)
	_, err = q.Confirm("m1")
	require.NoError(t, err)

	_, err = q.Enqueue(entity.LayoutMutation{
		ID: "m2", WarehouseID: testWarehouseID, EntityID: "r1",
		Op: entity.MutationRestore, Elements: pm.Previous,
	})
	require.NoError(t, err)
	assert.Equal(t, before, s.All())

	_, err = q.Rollback("m2")
	require.NoError(t, err)
	_, ok := s.Get("r1")
	assert.False(t, ok)
	assert.Equal(t, 3, s.Len())
	require.NoError(t, s.CheckIntegrity())
}
