package editor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Layout-api/internal/application/dto"
	"github.com/jhoicas/Layout-api/internal/domain"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
	domlayout "github.com/jhoicas/Layout-api/internal/domain/layout"
)

func newID() string { return uuid.New().String() }

// buildMutation valida la petición y arma la mutación con IDs nuevos.
func buildMutation(actor Actor, warehouseID string, in dto.LayoutMutationRequest, now time.Time) (entity.LayoutMutation, error) {
	m := entity.LayoutMutation{
		ID:          newID(),
		WarehouseID: warehouseID,
		Op:          strings.ToLower(strings.TrimSpace(in.Op)),
		BaseVersion: in.BaseVersion,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
	}
	switch m.Op {
	case entity.MutationCreate:
		if in.Element == nil {
			return m, fmt.Errorf("%w: element es obligatorio", domain.ErrInvalidInput)
		}
		id := in.Element.ID
		if id == "" {
			id = newID()
		}
		el, err := toElement(warehouseID, id, *in.Element, now)
		if err != nil {
			return m, err
		}
		el.CreatedAt = now
		m.EntityID = id
		m.Element = &el
		m.BaseVersion = 0
	case entity.MutationUpdate:
		if in.EntityID == "" || in.Element == nil {
			return m, fmt.Errorf("%w: entity_id y element son obligatorios", domain.ErrInvalidInput)
		}
		if in.Element.ID != "" && in.Element.ID != in.EntityID {
			return m, fmt.Errorf("%w: element.id no coincide con entity_id", domain.ErrInvalidInput)
		}
		el, err := toElement(warehouseID, in.EntityID, *in.Element, now)
		if err != nil {
			return m, err
		}
		m.EntityID = in.EntityID
		m.Element = &el
	case entity.MutationDelete:
		if in.EntityID == "" {
			return m, fmt.Errorf("%w: entity_id es obligatorio", domain.ErrInvalidInput)
		}
		m.EntityID = in.EntityID
	default:
		return m, fmt.Errorf("%w: op %q no soportada", domain.ErrInvalidInput, in.Op)
	}
	return m, nil
}

func toElement(warehouseID, id string, in dto.LayoutElementInput, now time.Time) (entity.LayoutElement, error) {
	kind := entity.ElementKind(in.Kind)
	if !kind.Valid() {
		return entity.LayoutElement{}, fmt.Errorf("%w: kind %q", domain.ErrInvalidInput, in.Kind)
	}
	if len(in.Attributes) > 0 && !json.Valid(in.Attributes) {
		return entity.LayoutElement{}, fmt.Errorf("%w: attributes no es JSON válido", domain.ErrInvalidInput)
	}
	el := entity.LayoutElement{
		ID:          id,
		WarehouseID: warehouseID,
		Kind:        kind,
		ParentID:    in.ParentID,
		Code:        strings.TrimSpace(in.Code),
		Name:        strings.TrimSpace(in.Name),
		Geometry: entity.Geometry{
			X:        in.Geometry.X,
			Y:        in.Geometry.Y,
			Width:    in.Geometry.Width,
			Depth:    in.Geometry.Depth,
			Height:   in.Geometry.Height,
			Rotation: in.Geometry.Rotation,
		},
		Capacity:   in.Capacity,
		Attributes: in.Attributes,
		UpdatedAt:  now,
	}
	if el.HasNegativeMeasures() {
		return entity.LayoutElement{}, fmt.Errorf("%w: dimensiones y capacidad no pueden ser negativas", domain.ErrInvalidInput)
	}
	return el, nil
}

func toElementResponse(el entity.LayoutElement) dto.LayoutElementResponse {
	return dto.LayoutElementResponse{
		ID:       el.ID,
		Kind:     string(el.Kind),
		ParentID: el.ParentID,
		Code:     el.Code,
		Name:     el.Name,
		Geometry: dto.GeometryDTO{
			X:        el.Geometry.X,
			Y:        el.Geometry.Y,
			Width:    el.Geometry.Width,
			Depth:    el.Geometry.Depth,
			Height:   el.Geometry.Height,
			Rotation: el.Geometry.Rotation,
		},
		Capacity:   el.Capacity,
		Attributes: el.Attributes,
		Version:    el.Version,
		UpdatedAt:  el.UpdatedAt,
	}
}

func toMutationResponse(pm domlayout.PendingMutation) *dto.LayoutMutationResponse {
	resp := &dto.LayoutMutationResponse{
		MutationID: pm.Mutation.ID,
		EntityID:   pm.Mutation.EntityID,
		Op:         pm.Mutation.Op,
		Seq:        pm.Seq,
	}
	switch {
	case pm.Mutation.Element != nil:
		resp.Version = pm.Mutation.Element.Version
	case len(pm.Mutation.Elements) > 0:
		resp.Version = pm.Mutation.Elements[0].Version
	}
	return resp
}
