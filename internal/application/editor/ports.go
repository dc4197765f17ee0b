package editor

import "github.com/jhoicas/Layout-api/internal/domain/entity"

// LayoutCodec serializa el layout de una bodega al formato de intercambio.
type LayoutCodec interface {
	// Encode devuelve el documento y su checksum sobre la forma canónica.
	Encode(warehouse *entity.Warehouse, elements []entity.LayoutElement) ([]byte, string, error)
	// Decode devuelve los elementos del documento y el checksum de su forma canónica.
	Decode(data []byte) ([]entity.LayoutElement, string, error)
}

// BinLabel datos de una etiqueta física de bin.
type BinLabel struct {
	ElementID string
	Code      string
	Name      string
	Path      string // códigos de zona / rack / estante
}

// LabelRenderer genera la hoja de etiquetas de bins.
type LabelRenderer interface {
	RenderBinLabels(warehouse *entity.Warehouse, labels []BinLabel) ([]byte, error)
}
