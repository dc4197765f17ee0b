package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ElementKind tipo de elemento del layout de una bodega.
type ElementKind string

// Tipos de elemento del layout.
const (
	KindZone       ElementKind = "zone"
	KindRack       ElementKind = "rack"
	KindShelf      ElementKind = "shelf"
	KindBin        ElementKind = "bin"
	KindObstacle   ElementKind = "obstacle"
	KindEntryPoint ElementKind = "entry_point"
)

// ElementKinds en orden jerárquico (padres antes que hijos).
var ElementKinds = []ElementKind{KindZone, KindObstacle, KindEntryPoint, KindRack, KindShelf, KindBin}

// Valid informa si el tipo es uno de los conocidos.
func (k ElementKind) Valid() bool {
	switch k {
	case KindZone, KindRack, KindShelf, KindBin, KindObstacle, KindEntryPoint:
		return true
	}
	return false
}

// AllowsParent informa si un elemento de tipo k puede colgar de un padre de tipo parent.
// parent vacío significa el piso de la bodega (sin padre).
func (k ElementKind) AllowsParent(parent ElementKind) bool {
	switch k {
	case KindZone:
		return parent == ""
	case KindRack:
		return parent == KindZone
	case KindShelf:
		return parent == KindRack
	case KindBin:
		return parent == KindShelf
	case KindObstacle, KindEntryPoint:
		return parent == "" || parent == KindZone
	}
	return false
}

// Geometry posición y dimensiones en metros sobre el plano de la bodega; Rotation en grados.
type Geometry struct {
	X        decimal.Decimal `json:"x"`
	Y        decimal.Decimal `json:"y"`
	Width    decimal.Decimal `json:"width"`
	Depth    decimal.Decimal `json:"depth"`
	Height   decimal.Decimal `json:"height"`
	Rotation decimal.Decimal `json:"rotation"`
}

// LayoutElement nodo del grafo de ubicaciones (zona, rack, estante, bin, obstáculo o acceso).
// La relación con el padre se guarda solo como ParentID; los hijos se resuelven por índice.
type LayoutElement struct {
	ID          string
	WarehouseID string
	Kind        ElementKind
	ParentID    string // vacío = piso de la bodega
	Code        string // etiqueta física, ej. A-01-03
	Name        string
	Geometry    Geometry
	Capacity    decimal.Decimal // capacidad de carga (bins)
	Attributes  json.RawMessage
	Deleted     bool
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Clone devuelve una copia independiente (Attributes incluido).
func (e LayoutElement) Clone() LayoutElement {
	if e.Attributes != nil {
		attrs := make(json.RawMessage, len(e.Attributes))
		copy(attrs, e.Attributes)
		e.Attributes = attrs
	}
	return e
}

// HasNegativeMeasures informa si alguna dimensión o la capacidad es negativa.
func (e LayoutElement) HasNegativeMeasures() bool {
	g := e.Geometry
	return g.Width.IsNegative() || g.Depth.IsNegative() || g.Height.IsNegative() || e.Capacity.IsNegative()
}

// Operaciones de mutación del layout.
const (
	MutationCreate  = "create"
	MutationUpdate  = "update"
	MutationDelete  = "delete"
	MutationRestore = "restore" // reinserta un subárbol eliminado (deshacer un delete)
)

// LayoutMutation cambio sobre un elemento, aplicado localmente antes de confirmarse en el backend.
type LayoutMutation struct {
	ID          string
	WarehouseID string
	EntityID    string
	Op          string
	Element     *LayoutElement  // create/update: estado resultante
	Elements    []LayoutElement // restore: subárbol, padres primero
	BaseVersion int64           // versión esperada antes de aplicar (update/delete)
	CreatedBy   string
	CreatedAt   time.Time
}
