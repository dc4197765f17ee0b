// Package pdf genera la hoja de etiquetas físicas de los bins de una bodega.
//
// Página A4, una etiqueta por fila:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Bodega + fecha de impresión │ total de etiquetas   │
//	│  ─────────────────────────────────────────────────────────  │
//	│  [QR] │ CÓDIGO DEL BIN                      │ código barras │
//	│       │ Nombre                              │               │
//	│       │ Zona / Rack / Estante               │               │
//	│  ─────────────────────────────────────────────────────────  │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"fmt"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jhoicas/Layout-api/internal/application/editor"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

var _ editor.LabelRenderer = (*LabelPDFGenerator)(nil)

// LabelPDFGenerator implementa editor.LabelRenderer usando Maroto v2.
type LabelPDFGenerator struct {
	now func() time.Time
}

// NewLabelPDFGenerator construye el generador.
func NewLabelPDFGenerator() *LabelPDFGenerator { return &LabelPDFGenerator{now: time.Now} }

// RenderBinLabels genera el PDF y devuelve sus bytes.
func (g *LabelPDFGenerator) RenderBinLabels(warehouse *entity.Warehouse, labels []editor.BinLabel) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Etiquetas de ubicaciones", true).
		WithAuthor(warehouse.Name, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(headerRow(warehouse, len(labels), g.now()))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))

	if len(labels) == 0 {
		m.AddRows(row.New(10).Add(col.New(12).Add(
			text.New("La bodega no tiene bins en su layout.", props.Text{
				Size: 9, Align: align.Center, Color: colorGray, Top: 3,
			}),
		)))
	}
	for _, l := range labels {
		m.AddRows(labelRow(warehouse.ID, l))
		m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.2}))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar etiquetas: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(warehouse *entity.Warehouse, total int, printedAt time.Time) core.Row {
	return row.New(16).Add(
		col.New(8).Add(
			text.New(warehouse.Name, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Impreso: "+printedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(4).Add(
			text.New("ETIQUETAS DE BINS", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("%d etiquetas", total), props.Text{
				Size: 9, Align: align.Right, Top: 8,
			}),
		),
	)
}

// labelRow: QR con la referencia del bin, datos legibles y código de barras del código físico.
func labelRow(warehouseID string, l editor.BinLabel) core.Row {
	return row.New(32).Add(
		col.New(3).Add(code.NewQr(QRPayload(warehouseID, l.ElementID), props.Rect{
			Percent: 90,
			Center:  true,
		})),
		col.New(5).Add(
			text.New(l.Code, props.Text{
				Style: fontstyle.Bold, Size: 16, Top: 3, Left: 2,
			}),
			text.New(nonEmpty(l.Name, "—"), props.Text{
				Size: 9, Top: 13, Left: 2,
			}),
			text.New(nonEmpty(l.Path, "—"), props.Text{
				Size: 8, Top: 20, Left: 2, Color: colorGray,
			}),
		),
		col.New(4).Add(code.NewBar(l.Code, props.Barcode{
			Percent: 80,
			Center:  true,
		})),
	)
}

// QRPayload contenido del QR: identifica el bin sin depender de su código visible.
func QRPayload(warehouseID, elementID string) string {
	return "layout:" + warehouseID + ":" + elementID
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
