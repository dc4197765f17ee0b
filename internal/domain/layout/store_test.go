package layout_test

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Layout-api/internal/domain"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
	"github.com/jhoicas/Layout-api/internal/domain/layout"
)

const testWarehouseID = "wh-1"

func el(id string, kind entity.ElementKind, parentID string) entity.LayoutElement {
	return entity.LayoutElement{
		ID:          id,
		WarehouseID: testWarehouseID,
		Kind:        kind,
		ParentID:    parentID,
		Code:        id,
		Name:        "elemento " + id,
		Geometry: entity.Geometry{
			X:     decimal.NewFromInt(1),
			Y:     decimal.NewFromInt(2),
			Width: decimal.NewFromInt(3),
			Depth: decimal.NewFromInt(4),
		},
		Version: 1,
	}
}

// buildTree zona z1 → rack r1 → estante s1 → bins b1, b2; obstáculo o1 en z1; acceso e1 en el piso.
func buildTree(t *testing.T) *layout.Store {
	t.Helper()
	s := layout.NewStore()
	for _, e := range []entity.LayoutElement{
		el("z1", entity.KindZone, ""),
		el("r1", entity.KindRack, "z1"),
		el("s1", entity.KindShelf, "r1"),
		el("b1", entity.KindBin, "s1"),
		el("b2", entity.KindBin, "s1"),
		el("o1", entity.KindObstacle, "z1"),
		el("e1", entity.KindEntryPoint, ""),
	} {
		require.NoError(t, s.Upsert(e), "upsert %s", e.ID)
	}
	require.NoError(t, s.CheckIntegrity())
	return s
}

func TestStore_UpsertIndexaHijosPorTipo(t *testing.T) {
	s := buildTree(t)

	assert.Equal(t, []string{"r1"}, s.GetChildren("z1", entity.KindRack))
	assert.Equal(t, []string{"o1"}, s.GetChildren("z1", entity.KindObstacle))
	assert.Equal(t, []string{"b1", "b2"}, s.GetChildren("s1", entity.KindBin))
	assert.Equal(t, []string{"z1"}, s.GetChildren("", entity.KindZone))
	assert.Equal(t, []string{"e1"}, s.GetChildren("", entity.KindEntryPoint))
	assert.Empty(t, s.GetChildren("b1", entity.KindBin))
	assert.Equal(t, 7, s.Len())
}

func TestStore_UpsertRechazaHuerfano(t *testing.T) {
	s := buildTree(t)

	err := s.Upsert(el("r9", entity.KindRack, "no-existe"))
	assert.ErrorIs(t, err, domain.ErrOrphan)
	_, ok := s.Get("r9")
	assert.False(t, ok, "un huérfano no debe quedar en el mapa")
	require.NoError(t, s.CheckIntegrity())
}

func TestStore_UpsertRechazaPadreDeTipoInvalido(t *testing.T) {
	s := buildTree(t)

	cases := []entity.LayoutElement{
		el("x1", entity.KindBin, "r1"),   // bin bajo rack
		el("x2", entity.KindRack, ""),    // rack en el piso
		el("x3", entity.KindZone, "z1"),  // zona anidada
		el("x4", entity.KindShelf, "o1"), // estante bajo obstáculo
	}
	for _, c := range cases {
		assert.ErrorIs(t, s.Upsert(c), domain.ErrInvalidParent, c.ID)
	}
	assert.Equal(t, 7, s.Len())
}

func TestStore_UpsertNoCambiaTipo(t *testing.T) {
	s := buildTree(t)
	assert.ErrorIs(t, s.Upsert(el("r1", entity.KindObstacle, "z1")), domain.ErrKindChange)
}

func TestStore_UpsertMueveEntrePadres(t *testing.T) {
	s := buildTree(t)
	require.NoError(t, s.Upsert(el("r2", entity.KindRack, "z1")))
	require.NoError(t, s.Upsert(el("s2", entity.KindShelf, "r2")))

	moved := el("b1", entity.KindBin, "s2")
	require.NoError(t, s.Upsert(moved))

	assert.Equal(t, []string{"b2"}, s.GetChildren("s1", entity.KindBin))
	assert.Equal(t, []string{"b1"}, s.GetChildren("s2", entity.KindBin))
	require.NoError(t, s.CheckIntegrity())
}

func TestStore_RemoveEliminaSubarbolYPoda(t *testing.T) {
	s := buildTree(t)

	removed, err := s.Remove("r1")
	require.NoError(t, err)

	ids := make([]string, 0, len(removed))
	for _, e := range removed {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"r1", "s1", "b1", "b2"}, ids, "subárbol en preorden")
	assert.Empty(t, s.GetChildren("z1", entity.KindRack))
	assert.Empty(t, s.GetChildren("s1", entity.KindBin))
	assert.Equal(t, 3, s.Len())
	require.NoError(t, s.CheckIntegrity())

	_, err = s.Remove("r1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_GetDevuelveCopia(t *testing.T) {
	s := layout.NewStore()
	z := el("z1", entity.KindZone, "")
	z.Attributes = []byte(`{"color":"red"}`)
	require.NoError(t, s.Upsert(z))

	got, ok := s.Get("z1")
	require.True(t, ok)
	got.Attributes[2] = 'X'
	got.Name = "otro"

	again, _ := s.Get("z1")
	assert.JSONEq(t, `{"color":"red"}`, string(again.Attributes))
	assert.Equal(t, "elemento z1", again.Name)
}

func TestStore_LoadOrdenaPorProfundidad(t *testing.T) {
	// orden inverso: hijos antes que padres
	s, err := layout.Load([]entity.LayoutElement{
		el("b1", entity.KindBin, "s1"),
		el("s1", entity.KindShelf, "r1"),
		el("r1", entity.KindRack, "z1"),
		el("z1", entity.KindZone, ""),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, s.Len())
	require.NoError(t, s.CheckIntegrity())

	_, err = layout.Load([]entity.LayoutElement{el("r1", entity.KindRack, "z-falta")})
	assert.ErrorIs(t, err, domain.ErrOrphan)
}

func TestStore_AllYAncestors(t *testing.T) {
	s := buildTree(t)

	all := s.All()
	require.Len(t, all, 7)
	pos := make(map[string]int, len(all))
	for i, e := range all {
		pos[e.ID] = i
	}
	for _, e := range all {
		if e.ParentID != "" {
			assert.Less(t, pos[e.ParentID], pos[e.ID], "padre antes que %s", e.ID)
		}
	}

	chain := s.Ancestors("b2")
	require.Len(t, chain, 3)
	assert.Equal(t, "z1", chain[0].ID)
	assert.Equal(t, "r1", chain[1].ID)
	assert.Equal(t, "s1", chain[2].ID)
}

// Para cualquier secuencia de upsert/remove el índice no deja referencias colgantes.
func TestStore_IntegridadTrasSecuenciaMixta(t *testing.T) {
	s := layout.NewStore()
	for z := 0; z < 3; z++ {
		zid := fmt.Sprintf("z%d", z)
		require.NoError(t, s.Upsert(el(zid, entity.KindZone, "")))
		for r := 0; r < 3; r++ {
			rid := fmt.Sprintf("%s-r%d", zid, r)
			require.NoError(t, s.Upsert(el(rid, entity.KindRack, zid)))
			for sh := 0; sh < 2; sh++ {
				sid := fmt.Sprintf("%s-s%d", rid, sh)
				require.NoError(t, s.Upsert(el(sid, entity.KindShelf, rid)))
				require.NoError(t, s.Upsert(el(sid+"-b", entity.KindBin, sid)))
			}
		}
	}
	require.NoError(t, s.CheckIntegrity())

	steps := []func() error{
		func() error { _, err := s.Remove("z0-r1"); return err },
		func() error { return s.Upsert(el("z1-r0", entity.KindRack, "z2")) },
		func() error { _, err := s.Remove("z2-r2-s0"); return err },
		func() error { _, err := s.Remove("z1"); return err },
		func() error { return s.Upsert(el("z2-r0-s1-b", entity.KindBin, "z2-r1-s0")) },
		func() error { _, err := s.Remove("z2"); return err },
	}
	for i, step := range steps {
		require.NoError(t, step(), "paso %d", i)
		require.NoError(t, s.CheckIntegrity(), "integridad tras paso %d", i)
	}
	// queda solo z0 con dos racks de 2 estantes y 2 bins cada uno
	assert.Equal(t, 1+2*(1+2*2), s.Len())
}
