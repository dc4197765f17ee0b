package layoutxml_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Layout-api/internal/domain/entity"
	"github.com/jhoicas/Layout-api/internal/infrastructure/layoutxml"
)

func sampleLayout() (*entity.Warehouse, []entity.LayoutElement) {
	w := &entity.Warehouse{ID: "wh-1", WorkspaceID: "ws-1", Name: "Bodega Norte"}
	zone := entity.LayoutElement{
		ID: "z1", Kind: entity.KindZone, Code: "A", Name: "Zona A",
		Geometry: entity.Geometry{Width: decimal.RequireFromString("20.5"), Depth: decimal.NewFromInt(10)},
	}
	rack := entity.LayoutElement{
		ID: "r1", Kind: entity.KindRack, ParentID: "z1", Code: "A-01", Name: "Rack 1",
		Geometry: entity.Geometry{X: decimal.NewFromInt(2), Y: decimal.NewFromInt(3), Width: decimal.NewFromInt(4), Rotation: decimal.NewFromInt(90)},
	}
	shelf := entity.LayoutElement{ID: "s1", Kind: entity.KindShelf, ParentID: "r1", Code: "A-01-1", Name: "Nivel 1"}
	bin := entity.LayoutElement{
		ID: "b1", Kind: entity.KindBin, ParentID: "s1", Code: "A-01-1-01", Name: "Bin 1",
		Capacity: decimal.RequireFromString("150.25"), Attributes: []byte(`{"temp":"frio"}`),
	}
	door := entity.LayoutElement{ID: "e1", Kind: entity.KindEntryPoint, Name: "Muelle"}
	return w, []entity.LayoutElement{zone, door, rack, shelf, bin}
}

func TestCodec_IdaYVuelta(t *testing.T) {
	c := layoutxml.NewCodec()
	w, elements := sampleLayout()

	data, sum, err := c.Encode(w, elements)
	require.NoError(t, err)
	assert.Len(t, sum, 64)
	assert.Contains(t, string(data), `xmlns="urn:layout-api:layout:1"`)

	got, sum2, err := c.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, sum, sum2, "el checksum del documento exportado coincide al reimportarlo")
	require.Len(t, got, 5)

	byID := make(map[string]entity.LayoutElement, len(got))
	for _, el := range got {
		byID[el.ID] = el
	}
	assert.Equal(t, "s1", byID["b1"].ParentID)
	assert.Equal(t, "", byID["e1"].ParentID)
	assert.True(t, decimal.RequireFromString("150.25").Equal(byID["b1"].Capacity))
	assert.True(t, decimal.NewFromInt(90).Equal(byID["r1"].Geometry.Rotation))
	assert.JSONEq(t, `{"temp":"frio"}`, string(byID["b1"].Attributes))
	assert.Equal(t, "A-01-1-01", byID["b1"].Code)
}

func TestCodec_ChecksumCambiaConElContenido(t *testing.T) {
	c := layoutxml.NewCodec()
	w, elements := sampleLayout()
	_, sum1, err := c.Encode(w, elements)
	require.NoError(t, err)

	elements[2].Name = "Rack renombrado"
	_, sum2, err := c.Encode(w, elements)
	require.NoError(t, err)
	assert.NotEqual(t, sum1, sum2)
}

func TestCodec_DecodeLatin1(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>" +
		"<WarehouseLayout xmlns=\"urn:layout-api:layout:1\" warehouseId=\"wh-1\" name=\"Bodega\">" +
		"<Element id=\"z1\" kind=\"zone\" name=\"Zona Ba\xf1os\"/>" +
		"</WarehouseLayout>"

	got, _, err := layoutxml.NewCodec().Decode([]byte(doc))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Zona Baños", got[0].Name)
}

func TestCodec_DecodeRechazaDocumentosInvalidos(t *testing.T) {
	c := layoutxml.NewCodec()
	cases := map[string]string{
		"raiz":               `<Otro/>`,
		"sin id":             `<WarehouseLayout><Element kind="zone"/></WarehouseLayout>`,
		"kind":               `<WarehouseLayout><Element id="x" kind="pasillo"/></WarehouseLayout>`,
		"geometria":          `<WarehouseLayout><Element id="x" kind="zone"><Geometry x="abc"/></Element></WarehouseLayout>`,
		"atributos":          `<WarehouseLayout><Element id="x" kind="zone"><Attributes>{no</Attributes></Element></WarehouseLayout>`,
		"ancho negativo":     `<WarehouseLayout><Element id="x" kind="zone"><Geometry width="-1"/></Element></WarehouseLayout>`,
		"capacidad negativa": `<WarehouseLayout><Element id="x" kind="zone"><Capacity>-5</Capacity></Element></WarehouseLayout>`,
	}
	for name, doc := range cases {
		_, _, err := c.Decode([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestCodec_EncodeExigePadresPrimero(t *testing.T) {
	w, elements := sampleLayout()
	reversed := []entity.LayoutElement{elements[4], elements[3], elements[2], elements[0]}
	_, _, err := layoutxml.NewCodec().Encode(w, reversed)
	assert.Error(t, err)
}
