package editor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Layout-api/internal/application/editor"
	"github.com/jhoicas/Layout-api/internal/domain"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
	domlayout "github.com/jhoicas/Layout-api/internal/domain/layout"
	"github.com/jhoicas/Layout-api/internal/infrastructure/layoutxml"
	"github.com/jhoicas/Layout-api/internal/infrastructure/memory"
	"github.com/jhoicas/Layout-api/pkg/logger"
)

// capturedLabels renderizador que guarda las etiquetas recibidas.
type capturedLabels struct {
	got []editor.BinLabel
}

func (c *capturedLabels) RenderBinLabels(_ *entity.Warehouse, labels []editor.BinLabel) ([]byte, error) {
	c.got = labels
	return []byte("%PDF-"), nil
}

func newLayoutIO(t *testing.T, f *fixture, labels editor.LabelRenderer) *editor.LayoutIO {
	t.Helper()
	warehouses := memory.NewWarehouseRepository()
	require.NoError(t, warehouses.Create(&entity.Warehouse{ID: testWarehouseID, WorkspaceID: testWorkspaceID, Name: "Principal"}))
	return editor.NewLayoutIO(f.remote, warehouses, f.manager, layoutxml.NewCodec(), labels, logger.Nop())
}

func TestBinLabels_RutaDesdeLaZona(t *testing.T) {
	store, err := domlayout.Load([]entity.LayoutElement{
		seedElement("b1", entity.KindBin, "s1"),
		seedElement("s1", entity.KindShelf, "r1"),
		seedElement("r1", entity.KindRack, "z1"),
		seedElement("z1", entity.KindZone, ""),
		seedElement("o1", entity.KindObstacle, "z1"),
	})
	require.NoError(t, err)

	labels := editor.BinLabels(store)
	require.Len(t, labels, 1)
	assert.Equal(t, "b1", labels[0].Code)
	assert.Equal(t, "z1 / r1 / s1", labels[0].Path)
}

func TestLayoutIO_ExportaEImporta(t *testing.T) {
	f := newFixture(t)
	layoutIO := newLayoutIO(t, f, &capturedLabels{})
	ctx := context.Background()

	doc, sum, err := layoutIO.Export(ctx, testWorkspaceID, testWarehouseID)
	require.NoError(t, err)
	require.NotEmpty(t, doc)

	out, err := layoutIO.Import(ctx, testWorkspaceID, testWarehouseID, doc)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Elements)
	assert.Equal(t, sum, out.Checksum)
	assert.Equal(t, 4, f.remoteCount(t))
}

func TestLayoutIO_ImportRechazadoConPendientes(t *testing.T) {
	f := newFixture(t)
	layoutIO := newLayoutIO(t, f, &capturedLabels{})
	ctx := context.Background()

	doc, _, err := layoutIO.Export(ctx, testWorkspaceID, testWarehouseID)
	require.NoError(t, err)

	gate := f.remote.hold()
	_, err = f.manager.Apply(ctx, testActor, testWarehouseID, createReq("r2", entity.KindRack, "z1"), true)
	require.NoError(t, err)

	_, err = layoutIO.Import(ctx, testWorkspaceID, testWarehouseID, doc)
	assert.ErrorIs(t, err, domain.ErrPendingMutations)

	close(gate)
	f.manager.Wait()
	assert.Equal(t, 5, f.remoteCount(t), "el backend conserva la mutación sincronizada")
}

func TestLayoutIO_BodegaDeOtroWorkspace(t *testing.T) {
	f := newFixture(t)
	layoutIO := newLayoutIO(t, f, &capturedLabels{})

	_, _, err := layoutIO.Export(context.Background(), "ws-otro", testWarehouseID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLayoutIO_EtiquetasSoloDeBins(t *testing.T) {
	f := newFixture(t)
	labels := &capturedLabels{}
	layoutIO := newLayoutIO(t, f, labels)

	pdf, err := layoutIO.Labels(context.Background(), testWorkspaceID, testWarehouseID)
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	require.Len(t, labels.got, 1)
	assert.Equal(t, "b1", labels.got[0].ElementID)
}

func TestLayoutIO_ImportRechazaMedidasNegativas(t *testing.T) {
	f := newFixture(t)
	layoutIO := newLayoutIO(t, f, &capturedLabels{})
	doc := `<WarehouseLayout xmlns="urn:layout-api:layout:1" warehouseId="` + testWarehouseID + `">` +
		`<Element id="z9" kind="zone"><Geometry width="-2" depth="3"/></Element>` +
		`</WarehouseLayout>`

	_, err := layoutIO.Import(context.Background(), testWorkspaceID, testWarehouseID, []byte(doc))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 4, f.remoteCount(t), "el layout no se reemplaza")
}
