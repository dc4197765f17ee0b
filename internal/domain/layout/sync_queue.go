package layout

import (
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/Layout-api/internal/domain"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
)

// PendingMutation mutación aplicada localmente que espera confirmación del backend.
type PendingMutation struct {
	Mutation   entity.LayoutMutation
	Seq        uint64
	Previous   []entity.LayoutElement // estado previo; vacío si el elemento no existía
	EnqueuedAt time.Time
}

// SyncQueue cola de mutaciones optimistas sobre un Store.
// El orden se garantiza por entidad (FIFO), no globalmente.
type SyncQueue struct {
	store    *Store
	seq      uint64
	pending  map[string]*PendingMutation
	byEntity map[string][]string // entityID → IDs de mutación en orden de encolado
	now      func() time.Time
}

// NewSyncQueue crea la cola sobre el store indicado.
func NewSyncQueue(store *Store) *SyncQueue {
	return &SyncQueue{
		store:    store,
		pending:  make(map[string]*PendingMutation),
		byEntity: make(map[string][]string),
		now:      time.Now,
	}
}

// Store devuelve el store sobre el que opera la cola.
func (q *SyncQueue) Store() *Store { return q.store }

// Enqueue valida la mutación, la aplica al store y la registra como pendiente junto con la
// foto del estado previo. Ajusta las versiones: create deja 1, update deja BaseVersion+1.
func (q *SyncQueue) Enqueue(m entity.LayoutMutation) (PendingMutation, error) {
	if m.ID == "" || m.EntityID == "" {
		return PendingMutation{}, domain.ErrInvalidInput
	}
	if _, dup := q.pending[m.ID]; dup {
		return PendingMutation{}, fmt.Errorf("%w: mutación %s", domain.ErrDuplicate, m.ID)
	}
	current, exists := q.store.Get(m.EntityID)

	var previous []entity.LayoutElement
	switch m.Op {
	case entity.MutationCreate:
		if m.Element == nil || m.Element.ID != m.EntityID {
			return PendingMutation{}, domain.ErrInvalidInput
		}
		if exists {
			return PendingMutation{}, fmt.Errorf("%w: elemento %s", domain.ErrDuplicate, m.EntityID)
		}
		el := m.Element.Clone()
		el.Version = 1
		if err := q.store.Upsert(el); err != nil {
			return PendingMutation{}, err
		}
		m.Element = &el

	case entity.MutationUpdate:
		if m.Element == nil || m.Element.ID != m.EntityID {
			return PendingMutation{}, domain.ErrInvalidInput
		}
		if !exists {
			return PendingMutation{}, domain.ErrNotFound
		}
		if m.BaseVersion != current.Version {
			return PendingMutation{}, domain.ErrStaleVersion
		}
		el := m.Element.Clone()
		el.Version = m.BaseVersion + 1
		if err := q.store.Upsert(el); err != nil {
			return PendingMutation{}, err
		}
		m.Element = &el
		previous = []entity.LayoutElement{current}

	case entity.MutationDelete:
		if !exists {
			return PendingMutation{}, domain.ErrNotFound
		}
		if m.BaseVersion != current.Version {
			return PendingMutation{}, domain.ErrStaleVersion
		}
		removed, err := q.store.Remove(m.EntityID)
		if err != nil {
			return PendingMutation{}, err
		}
		previous = removed

	case entity.MutationRestore:
		if len(m.Elements) == 0 || m.Elements[0].ID != m.EntityID {
			return PendingMutation{}, domain.ErrInvalidInput
		}
		if exists {
			return PendingMutation{}, fmt.Errorf("%w: elemento %s", domain.ErrDuplicate, m.EntityID)
		}
		restored := make([]entity.LayoutElement, 0, len(m.Elements))
		for _, el := range m.Elements {
			if err := q.store.Upsert(el); err != nil {
				// la raíz arrastra lo ya insertado
				_, _ = q.store.Remove(m.EntityID)
				return PendingMutation{}, err
			}
			restored = append(restored, el.Clone())
		}
		m.Elements = restored

	default:
		return PendingMutation{}, domain.ErrInvalidInput
	}

	q.seq++
	pm := &PendingMutation{
		Mutation:   m,
		Seq:        q.seq,
		Previous:   previous,
		EnqueuedAt: q.now(),
	}
	q.pending[m.ID] = pm
	q.byEntity[m.EntityID] = append(q.byEntity[m.EntityID], m.ID)
	return *pm, nil
}

// Confirm quita la mutación del conjunto pendiente tras el acuse del backend.
// Las demás mutaciones pendientes no se tocan.
func (q *SyncQueue) Confirm(id string) (PendingMutation, error) {
	pm, ok := q.pending[id]
	if !ok {
		return PendingMutation{}, domain.ErrMutationNotPending
	}
	delete(q.pending, id)
	q.dropFromLane(pm.Mutation.EntityID, id)
	return *pm, nil
}

// Rollback restaura el estado previo de la mutación y la retira. Las mutaciones posteriores
// sobre la misma entidad se construyeron encima de ella, así que se revierten antes, de la más
// nueva a la más vieja. Devuelve los IDs revertidos en ese orden.
//
// Revertir un ID que ya no está pendiente no tiene efecto. Si una foto previa no puede volver a
// aplicarse (su padre desapareció), la mutación se retira igual y se devuelve el primer error.
func (q *SyncQueue) Rollback(id string) ([]string, error) {
	pm, ok := q.pending[id]
	if !ok {
		return nil, nil
	}
	entityID := pm.Mutation.EntityID
	lane := q.byEntity[entityID]
	idx := indexOf(lane, id)
	if idx < 0 {
		delete(q.pending, id)
		err := q.restore(pm)
		q.carryRestored(pm)
		return []string{id}, err
	}

	var firstErr error
	rolled := make([]string, 0, len(lane)-idx)
	for i := len(lane) - 1; i >= idx; i-- {
		p := q.pending[lane[i]]
		if err := q.restore(p); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(q.pending, p.Mutation.ID)
		q.carryRestored(p)
		rolled = append(rolled, p.Mutation.ID)
	}
	if idx == 0 {
		delete(q.byEntity, entityID)
	} else {
		q.byEntity[entityID] = lane[:idx]
	}
	return rolled, firstErr
}

// Get devuelve una mutación pendiente.
func (q *SyncQueue) Get(id string) (PendingMutation, bool) {
	pm, ok := q.pending[id]
	if !ok {
		return PendingMutation{}, false
	}
	return *pm, true
}

// IsPending informa si la mutación sigue pendiente.
func (q *SyncQueue) IsPending(id string) bool {
	_, ok := q.pending[id]
	return ok
}

// Len número de mutaciones pendientes.
func (q *SyncQueue) Len() int { return len(q.pending) }

// LastSeq secuencia de la última mutación encolada.
func (q *SyncQueue) LastSeq() uint64 { return q.seq }

// Pending devuelve las mutaciones pendientes en orden de encolado.
func (q *SyncQueue) Pending() []PendingMutation {
	out := make([]PendingMutation, 0, len(q.pending))
	for _, pm := range q.pending {
		out = append(out, *pm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// PendingFor devuelve las mutaciones pendientes de una entidad en orden FIFO.
func (q *SyncQueue) PendingFor(entityID string) []PendingMutation {
	lane := q.byEntity[entityID]
	out := make([]PendingMutation, 0, len(lane))
	for _, id := range lane {
		out = append(out, *q.pending[id])
	}
	return out
}

func (q *SyncQueue) restore(pm *PendingMutation) error {
	if len(pm.Previous) == 0 {
		if _, ok := q.store.Get(pm.Mutation.EntityID); ok {
			_, err := q.store.Remove(pm.Mutation.EntityID)
			return err
		}
		return nil
	}
	for _, el := range pm.Previous {
		if err := q.store.Upsert(el); err != nil {
			return fmt.Errorf("revertir %s: %w", pm.Mutation.ID, err)
		}
	}
	return nil
}

// carryRestored lleva el estado restaurado por la mutación revertida a las fotos de los delete
// encolados después. Esas fotos capturaron el subárbol con la mutación revertida aplicada; sin
// el ajuste, revertir el delete traería de vuelta un valor que el backend nunca aceptó.
func (q *SyncQueue) carryRestored(rolled *PendingMutation) {
	for _, pm := range q.pending {
		if pm.Seq <= rolled.Seq || pm.Mutation.Op != entity.MutationDelete || len(pm.Previous) == 0 {
			continue
		}
		pm.Previous = patchSubtree(pm.Previous, rolled)
	}
}

// patchSubtree aplica a la foto de un subárbol el estado previo de la mutación revertida: los
// elementos restaurados reemplazan o se suman a la foto, un create revertido sale de ella, y lo
// que ya no cuelga de la raíz se descarta. Devuelve la foto con los padres primero.
func patchSubtree(snapshot []entity.LayoutElement, rolled *PendingMutation) []entity.LayoutElement {
	rootID := snapshot[0].ID
	byID := make(map[string]entity.LayoutElement, len(snapshot))
	order := make([]string, 0, len(snapshot))
	for _, el := range snapshot {
		byID[el.ID] = el
		order = append(order, el.ID)
	}

	if len(rolled.Previous) == 0 {
		delete(byID, rolled.Mutation.EntityID)
	}
	for _, el := range rolled.Previous {
		_, present := byID[el.ID]
		_, parentPresent := byID[el.ParentID]
		switch {
		case present:
			byID[el.ID] = el.Clone()
		case parentPresent && el.ID != rootID:
			byID[el.ID] = el.Clone()
			order = append(order, el.ID)
		}
	}
	root, ok := byID[rootID]
	if !ok {
		return nil
	}

	children := make(map[string][]string)
	for _, id := range order {
		el, ok := byID[id]
		if !ok || id == rootID {
			continue
		}
		children[el.ParentID] = append(children[el.ParentID], id)
	}
	out := []entity.LayoutElement{root}
	for i := 0; i < len(out); i++ {
		for _, id := range children[out[i].ID] {
			out = append(out, byID[id])
		}
	}
	return out
}

func (q *SyncQueue) dropFromLane(entityID, id string) {
	lane := q.byEntity[entityID]
	idx := indexOf(lane, id)
	if idx < 0 {
		return
	}
	lane = append(lane[:idx:idx], lane[idx+1:]...)
	if len(lane) == 0 {
		delete(q.byEntity, entityID)
		return
	}
	q.byEntity[entityID] = lane
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
