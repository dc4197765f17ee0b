// Package layout implementa el estado normalizado del editor de layout de una bodega:
// mapa de elementos por ID, índice padre → tipo → hijos y la cola de mutaciones optimistas.
//
// Ninguna estructura del paquete es segura para uso concurrente: el llamador serializa
// todas las mutaciones (un escritor, aplicación síncrona).
package layout

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jhoicas/Layout-api/internal/domain"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
)

// ErrIntegrity indica un índice de relaciones inconsistente con el mapa de elementos.
var ErrIntegrity = errors.New("layout: índice inconsistente")

// floor es la clave del índice para los elementos sin padre.
const floor = ""

// Store mapa de elementos + índice de relaciones. El índice nunca referencia un ID ausente
// del mapa y todo elemento con padre está indexado bajo un padre existente.
type Store struct {
	elements map[string]entity.LayoutElement
	children map[string]map[entity.ElementKind]map[string]struct{}
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		elements: make(map[string]entity.LayoutElement),
		children: make(map[string]map[entity.ElementKind]map[string]struct{}),
	}
}

// Load construye un store a partir de una lista sin orden (p. ej. la lectura del repositorio).
// Falla con domain.ErrOrphan si algún elemento referencia un padre ausente.
func Load(elements []entity.LayoutElement) (*Store, error) {
	byID := make(map[string]entity.LayoutElement, len(elements))
	for _, el := range elements {
		if _, dup := byID[el.ID]; dup {
			return nil, fmt.Errorf("%w: id %s repetido", domain.ErrDuplicate, el.ID)
		}
		byID[el.ID] = el
	}
	depth := make(map[string]int, len(byID))
	var depthOf func(id string, hops int) (int, error)
	depthOf = func(id string, hops int) (int, error) {
		if d, ok := depth[id]; ok {
			return d, nil
		}
		if hops > len(byID) {
			return 0, fmt.Errorf("%w: ciclo en %s", domain.ErrInvalidParent, id)
		}
		el := byID[id]
		if el.ParentID == floor {
			depth[id] = 0
			return 0, nil
		}
		if _, ok := byID[el.ParentID]; !ok {
			return 0, fmt.Errorf("%w: %s (padre de %s)", domain.ErrOrphan, el.ParentID, id)
		}
		d, err := depthOf(el.ParentID, hops+1)
		if err != nil {
			return 0, err
		}
		depth[id] = d + 1
		return d + 1, nil
	}
	ordered := make([]entity.LayoutElement, 0, len(byID))
	for id := range byID {
		if _, err := depthOf(id, 0); err != nil {
			return nil, err
		}
		ordered = append(ordered, byID[id])
	}
	sort.Slice(ordered, func(i, j int) bool {
		di, dj := depth[ordered[i].ID], depth[ordered[j].ID]
		if di != dj {
			return di < dj
		}
		return ordered[i].ID < ordered[j].ID
	})

	s := NewStore()
	for _, el := range ordered {
		if err := s.Upsert(el); err != nil {
			return nil, fmt.Errorf("cargar %s: %w", el.ID, err)
		}
	}
	return s, nil
}

// Upsert inserta o reemplaza el elemento y actualiza el índice en una sola transición:
// si devuelve error, el store queda intacto.
func (s *Store) Upsert(el entity.LayoutElement) error {
	if el.ID == "" || !el.Kind.Valid() {
		return domain.ErrInvalidInput
	}
	if el.ParentID == el.ID {
		return domain.ErrInvalidParent
	}
	existing, exists := s.elements[el.ID]
	if exists && existing.Kind != el.Kind {
		return domain.ErrKindChange
	}
	var parentKind entity.ElementKind
	if el.ParentID != floor {
		parent, ok := s.elements[el.ParentID]
		if !ok {
			return domain.ErrOrphan
		}
		parentKind = parent.Kind
	}
	if !el.Kind.AllowsParent(parentKind) {
		return domain.ErrInvalidParent
	}

	if exists && existing.ParentID != el.ParentID {
		s.unlink(existing.ParentID, existing.Kind, existing.ID)
	}
	s.elements[el.ID] = el.Clone()
	s.link(el.ParentID, el.Kind, el.ID)
	return nil
}

// Remove elimina el elemento y todos sus descendientes, podando cada entrada del índice que los
// referencia como hijo o como padre. Devuelve el subárbol eliminado, padres primero.
func (s *Store) Remove(id string) ([]entity.LayoutElement, error) {
	if _, ok := s.elements[id]; !ok {
		return nil, domain.ErrNotFound
	}
	removed := s.Subtree(id)
	for i := len(removed) - 1; i >= 0; i-- {
		el := removed[i]
		s.unlink(el.ParentID, el.Kind, el.ID)
		delete(s.children, el.ID)
		delete(s.elements, el.ID)
	}
	return removed, nil
}

// Get devuelve una copia del elemento.
func (s *Store) Get(id string) (entity.LayoutElement, bool) {
	el, ok := s.elements[id]
	if !ok {
		return entity.LayoutElement{}, false
	}
	return el.Clone(), true
}

// GetChildren devuelve los IDs (ordenados) de los hijos de un tipo. parentID vacío = piso.
func (s *Store) GetChildren(parentID string, kind entity.ElementKind) []string {
	set := s.children[parentID][kind]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len número de elementos.
func (s *Store) Len() int { return len(s.elements) }

// Subtree devuelve el elemento y sus descendientes en preorden (padres primero).
func (s *Store) Subtree(id string) []entity.LayoutElement {
	root, ok := s.elements[id]
	if !ok {
		return nil
	}
	out := []entity.LayoutElement{root.Clone()}
	for _, kind := range entity.ElementKinds {
		for _, child := range s.GetChildren(id, kind) {
			out = append(out, s.Subtree(child)...)
		}
	}
	return out
}

// All devuelve todos los elementos en preorden desde el piso.
func (s *Store) All() []entity.LayoutElement {
	out := make([]entity.LayoutElement, 0, len(s.elements))
	for _, kind := range entity.ElementKinds {
		for _, id := range s.GetChildren(floor, kind) {
			out = append(out, s.Subtree(id)...)
		}
	}
	return out
}

// Ancestors devuelve la cadena de padres del elemento, desde el piso hacia abajo (sin incluirlo).
func (s *Store) Ancestors(id string) []entity.LayoutElement {
	var chain []entity.LayoutElement
	el, ok := s.elements[id]
	for ok && el.ParentID != floor {
		el, ok = s.elements[el.ParentID]
		if ok {
			chain = append([]entity.LayoutElement{el.Clone()}, chain...)
		}
	}
	return chain
}

// CheckIntegrity verifica que índice y mapa sean consistentes en ambos sentidos.
func (s *Store) CheckIntegrity() error {
	indexed := 0
	for parentID, byKind := range s.children {
		if parentID != floor {
			if _, ok := s.elements[parentID]; !ok {
				return fmt.Errorf("%w: padre %s indexado pero ausente", ErrIntegrity, parentID)
			}
		}
		for kind, set := range byKind {
			for id := range set {
				el, ok := s.elements[id]
				if !ok {
					return fmt.Errorf("%w: hijo %s indexado pero ausente", ErrIntegrity, id)
				}
				if el.ParentID != parentID || el.Kind != kind {
					return fmt.Errorf("%w: %s indexado bajo %s/%s", ErrIntegrity, id, parentID, kind)
				}
				indexed++
			}
		}
	}
	if indexed != len(s.elements) {
		return fmt.Errorf("%w: %d indexados de %d elementos", ErrIntegrity, indexed, len(s.elements))
	}
	return nil
}

func (s *Store) link(parentID string, kind entity.ElementKind, id string) {
	byKind, ok := s.children[parentID]
	if !ok {
		byKind = make(map[entity.ElementKind]map[string]struct{})
		s.children[parentID] = byKind
	}
	set, ok := byKind[kind]
	if !ok {
		set = make(map[string]struct{})
		byKind[kind] = set
	}
	set[id] = struct{}{}
}

func (s *Store) unlink(parentID string, kind entity.ElementKind, id string) {
	byKind, ok := s.children[parentID]
	if !ok {
		return
	}
	delete(byKind[kind], id)
	if len(byKind[kind]) == 0 {
		delete(byKind, kind)
	}
	if len(byKind) == 0 {
		delete(s.children, parentID)
	}
}
