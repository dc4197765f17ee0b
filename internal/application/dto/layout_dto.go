package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// GeometryDTO posición y dimensiones en metros; rotación en grados.
type GeometryDTO struct {
	X        decimal.Decimal `json:"x"`
	Y        decimal.Decimal `json:"y"`
	Width    decimal.Decimal `json:"width"`
	Depth    decimal.Decimal `json:"depth"`
	Height   decimal.Decimal `json:"height"`
	Rotation decimal.Decimal `json:"rotation"`
}

// LayoutElementInput estado deseado de un elemento en create/update.
type LayoutElementInput struct {
	ID         string          `json:"id,omitempty"` // create: opcional, se genera si viene vacío
	Kind       string          `json:"kind" validate:"required,oneof=zone rack shelf bin obstacle entry_point"`
	ParentID   string          `json:"parent_id"`
	Code       string          `json:"code" validate:"max=50"`
	Name       string          `json:"name" validate:"max=200"`
	Geometry   GeometryDTO     `json:"geometry"`
	Capacity   decimal.Decimal `json:"capacity"`
	Attributes json.RawMessage `json:"attributes,omitempty" swaggertype:"object"`
}

// LayoutMutationRequest mutación enviada por el editor.
type LayoutMutationRequest struct {
	Op          string              `json:"op" validate:"required,oneof=create update delete"`
	EntityID    string              `json:"entity_id"`    // update/delete
	BaseVersion int64               `json:"base_version"` // update/delete: versión sobre la que se editó
	Element     *LayoutElementInput `json:"element"`      // create/update
}

// Estados de una mutación en la respuesta.
const (
	MutationPending    = "pending"
	MutationConfirmed  = "confirmed"
	MutationRolledBack = "rolled_back"
)

// LayoutMutationResponse resultado de aplicar una mutación.
type LayoutMutationResponse struct {
	MutationID string `json:"mutation_id"`
	EntityID   string `json:"entity_id"`
	Op         string `json:"op"`
	Seq        uint64 `json:"seq"`
	Status     string `json:"status"` // pending | confirmed | rolled_back
	Version    int64  `json:"version"`
	Error      string `json:"error,omitempty"`
}

// LayoutElementResponse salida de un elemento del layout.
type LayoutElementResponse struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	ParentID   string          `json:"parent_id,omitempty"`
	Code       string          `json:"code"`
	Name       string          `json:"name"`
	Geometry   GeometryDTO     `json:"geometry"`
	Capacity   decimal.Decimal `json:"capacity"`
	Attributes json.RawMessage `json:"attributes,omitempty" swaggertype:"object"`
	Version    int64           `json:"version"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// LayoutSnapshotResponse vista completa del layout de una bodega (padres antes que hijos).
type LayoutSnapshotResponse struct {
	WarehouseID string                  `json:"warehouse_id"`
	Elements    []LayoutElementResponse `json:"elements"`
	Pending     int                     `json:"pending"`
}

// LayoutChildrenResponse IDs de los hijos de un tipo bajo un padre.
type LayoutChildrenResponse struct {
	ParentID string   `json:"parent_id"`
	Kind     string   `json:"kind"`
	IDs      []string `json:"ids"`
}

// PendingMutationResponse mutación aún sin confirmar.
type PendingMutationResponse struct {
	MutationID string    `json:"mutation_id"`
	EntityID   string    `json:"entity_id"`
	Op         string    `json:"op"`
	Seq        uint64    `json:"seq"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// PendingListResponse mutaciones pendientes en orden de encolado.
type PendingListResponse struct {
	Items []PendingMutationResponse `json:"items"`
}

// LayoutImportResponse resultado de importar un layout en XML.
type LayoutImportResponse struct {
	WarehouseID string `json:"warehouse_id"`
	Elements    int    `json:"elements"`
	Checksum    string `json:"checksum"`
}
