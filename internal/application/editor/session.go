package editor

import (
	"sync"
	"time"

	"github.com/jhoicas/Layout-api/internal/domain/entity"
	domlayout "github.com/jhoicas/Layout-api/internal/domain/layout"
	"github.com/jhoicas/Layout-api/pkg/logger"
)

// Session estado de edición de una bodega: store normalizado, cola optimista e historial.
// Todo acceso a store y cola pasa por mu; las llamadas remotas se hacen fuera del lock.
type Session struct {
	workspaceID string
	warehouseID string
	log         *logger.Logger

	mu       sync.Mutex
	store    *domlayout.Store
	queue    *domlayout.SyncQueue
	lanes    map[string]chan struct{} // entityID → done de la última mutación despachada
	history  []entity.LayoutMutation  // inversas de las mutaciones confirmadas, la más nueva al final
	epoch    uint64                   // cambia con cada encolado o recarga
	closed   bool                     // descartada por Exclusive; no admite mutaciones
	lastUsed time.Time
}

func newSession(workspaceID, warehouseID string, store *domlayout.Store, log *logger.Logger, now time.Time) *Session {
	return &Session{
		workspaceID: workspaceID,
		warehouseID: warehouseID,
		log:         log.WithWarehouse(workspaceID, warehouseID),
		store:       store,
		queue:       domlayout.NewSyncQueue(store),
		lanes:       make(map[string]chan struct{}),
		lastUsed:    now,
	}
}

// replace cambia el store por uno recién cargado. Requiere mu y cola vacía.
func (s *Session) replace(store *domlayout.Store) {
	s.store = store
	s.queue = domlayout.NewSyncQueue(store)
	s.history = nil
	s.epoch++
}

// busy informa si hay mutaciones pendientes o llamadas remotas en vuelo. Requiere mu.
func (s *Session) busy() bool {
	return s.queue.Len() > 0 || len(s.lanes) > 0
}

// waitsFor canales que la mutación debe esperar antes de ir al backend: la última mutación
// de la misma entidad y la de su padre (un hijo no se crea antes que su padre). En un delete
// también espera a todo el subárbol eliminado. Requiere mu.
func (s *Session) waitsFor(pm domlayout.PendingMutation) []chan struct{} {
	ids := map[string]struct{}{pm.Mutation.EntityID: {}}
	if el := pm.Mutation.Element; el != nil && el.ParentID != "" {
		ids[el.ParentID] = struct{}{}
	}
	for _, prev := range pm.Previous {
		ids[prev.ID] = struct{}{}
		if prev.ParentID != "" {
			ids[prev.ParentID] = struct{}{}
		}
	}
	for _, el := range pm.Mutation.Elements {
		if el.ParentID != "" {
			ids[el.ParentID] = struct{}{}
		}
	}
	var out []chan struct{}
	for id := range ids {
		if ch, ok := s.lanes[id]; ok {
			out = append(out, ch)
		}
	}
	return out
}

// pushHistory guarda la inversa de una mutación confirmada. Requiere mu.
func (s *Session) pushHistory(pm domlayout.PendingMutation, limit int) {
	inv, ok := inverse(pm)
	if !ok {
		return
	}
	s.history = append(s.history, inv)
	if limit > 0 && len(s.history) > limit {
		s.history = append([]entity.LayoutMutation(nil), s.history[len(s.history)-limit:]...)
	}
}

// popHistory saca la última inversa. Requiere mu.
func (s *Session) popHistory() (entity.LayoutMutation, bool) {
	if len(s.history) == 0 {
		return entity.LayoutMutation{}, false
	}
	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	return last, true
}

// rebase lleva la base de la inversa a la versión actual del elemento. Los deshacer anteriores
// sobre la misma entidad avanzaron su versión después de guardarse la inversa. Requiere mu.
func (s *Session) rebase(inv *entity.LayoutMutation) {
	if inv.Op != entity.MutationUpdate && inv.Op != entity.MutationDelete {
		return
	}
	if current, ok := s.store.Get(inv.EntityID); ok {
		inv.BaseVersion = current.Version
	}
}

// inverse construye la mutación que deshace pm, con la versión que dejó pm como base.
// ID y autor se asignan al deshacer.
func inverse(pm domlayout.PendingMutation) (entity.LayoutMutation, bool) {
	m := pm.Mutation
	inv := entity.LayoutMutation{WarehouseID: m.WarehouseID, EntityID: m.EntityID}
	switch m.Op {
	case entity.MutationCreate:
		inv.Op = entity.MutationDelete
		inv.BaseVersion = m.Element.Version
	case entity.MutationUpdate:
		if len(pm.Previous) == 0 {
			return inv, false
		}
		prev := pm.Previous[0].Clone()
		inv.Op = entity.MutationUpdate
		inv.Element = &prev
		inv.BaseVersion = m.Element.Version
	case entity.MutationDelete:
		inv.Op = entity.MutationRestore
		inv.Elements = make([]entity.LayoutElement, 0, len(pm.Previous))
		for _, el := range pm.Previous {
			inv.Elements = append(inv.Elements, el.Clone())
		}
	case entity.MutationRestore:
		inv.Op = entity.MutationDelete
		inv.BaseVersion = m.Elements[0].Version
	default:
		return inv, false
	}
	return inv, true
}
