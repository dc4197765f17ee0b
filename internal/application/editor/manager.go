// Package editor coordina la edición concurrente del layout de las bodegas: mantiene una sesión
// por bodega (store normalizado + cola optimista) y sincroniza cada mutación con el backend.
package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/Layout-api/internal/application/dto"
	"github.com/jhoicas/Layout-api/internal/domain"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
	domlayout "github.com/jhoicas/Layout-api/internal/domain/layout"
	"github.com/jhoicas/Layout-api/internal/domain/repository"
	"github.com/jhoicas/Layout-api/pkg/logger"
)

// errWarehouseLocked la bodega está siendo reemplazada o eliminada por fuera del editor.
var errWarehouseLocked = fmt.Errorf("%w: bodega bloqueada por una importación o eliminación en curso", domain.ErrConflict)

// Options parámetros de las sesiones de edición.
type Options struct {
	SyncTimeout  time.Duration
	SessionIdle  time.Duration
	HistoryLimit int
	MaxPending   int
}

// Actor usuario que origina una mutación.
type Actor struct {
	UserID      string
	WorkspaceID string
}

// SessionManager mantiene las sesiones de edición por bodega.
type SessionManager struct {
	layouts    repository.LayoutRepository
	warehouses repository.WarehouseRepository
	log        *logger.Logger
	metrics    *Metrics
	opts       Options
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	locked   map[string]struct{} // bodegas dentro de Exclusive
	loads    singleflight.Group
	inflight sync.WaitGroup
}

// NewSessionManager construye el gestor. metrics puede ser nil.
func NewSessionManager(
	layouts repository.LayoutRepository,
	warehouses repository.WarehouseRepository,
	log *logger.Logger,
	metrics *Metrics,
	opts Options,
) *SessionManager {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &SessionManager{
		layouts:    layouts,
		warehouses: warehouses,
		log:        log,
		metrics:    metrics,
		opts:       opts,
		now:        time.Now,
		sessions:   make(map[string]*Session),
		locked:     make(map[string]struct{}),
	}
}

// session devuelve la sesión de la bodega, cargándola si hace falta. Las cargas concurrentes de
// la misma bodega se colapsan en una sola lectura del repositorio.
func (m *SessionManager) session(ctx context.Context, workspaceID, warehouseID string) (*Session, error) {
	w, err := m.warehouses.GetByID(warehouseID)
	if err != nil {
		return nil, err
	}
	if w == nil || w.WorkspaceID != workspaceID {
		return nil, domain.ErrNotFound
	}

	m.mu.Lock()
	_, locked := m.locked[warehouseID]
	s, ok := m.sessions[warehouseID]
	m.mu.Unlock()
	if locked {
		return nil, errWarehouseLocked
	}
	if ok {
		return s, nil
	}

	v, err, _ := m.loads.Do(warehouseID, func() (interface{}, error) {
		m.mu.Lock()
		if s, ok := m.sessions[warehouseID]; ok {
			m.mu.Unlock()
			return s, nil
		}
		m.mu.Unlock()

		store, err := m.loadStore(ctx, warehouseID)
		if err != nil {
			return nil, err
		}
		s := newSession(workspaceID, warehouseID, store, m.log, m.now())

		m.mu.Lock()
		if _, locked := m.locked[warehouseID]; locked {
			// la lectura pudo cruzarse con la escritura en curso
			m.mu.Unlock()
			return nil, errWarehouseLocked
		}
		m.sessions[warehouseID] = s
		m.metrics.sessions.Set(float64(len(m.sessions)))
		m.mu.Unlock()
		s.log.Debug().Int("elements", store.Len()).Msg("sesión de layout cargada")
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *SessionManager) loadStore(ctx context.Context, warehouseID string) (*domlayout.Store, error) {
	elements, err := m.layouts.LoadWarehouse(ctx, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("cargar layout %s: %w", warehouseID, err)
	}
	store, err := domlayout.Load(elements)
	if err != nil {
		return nil, fmt.Errorf("layout %s inconsistente: %w", warehouseID, err)
	}
	return store, nil
}

// Snapshot devuelve el layout visible (incluye mutaciones aún pendientes).
func (m *SessionManager) Snapshot(ctx context.Context, workspaceID, warehouseID string) (*dto.LayoutSnapshotResponse, error) {
	s, err := m.session(ctx, workspaceID, warehouseID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = m.now()

	all := s.store.All()
	items := make([]dto.LayoutElementResponse, 0, len(all))
	for _, el := range all {
		items = append(items, toElementResponse(el))
	}
	return &dto.LayoutSnapshotResponse{
		WarehouseID: warehouseID,
		Elements:    items,
		Pending:     s.queue.Len(),
	}, nil
}

// Children devuelve los IDs de los hijos de un tipo. parentID vacío es el piso de la bodega.
func (m *SessionManager) Children(ctx context.Context, workspaceID, warehouseID, parentID, kind string) (*dto.LayoutChildrenResponse, error) {
	k := entity.ElementKind(kind)
	if !k.Valid() {
		return nil, domain.ErrInvalidInput
	}
	s, err := m.session(ctx, workspaceID, warehouseID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = m.now()

	if parentID != "" {
		if _, ok := s.store.Get(parentID); !ok {
			return nil, domain.ErrNotFound
		}
	}
	return &dto.LayoutChildrenResponse{ParentID: parentID, Kind: kind, IDs: s.store.GetChildren(parentID, k)}, nil
}

// Pending lista las mutaciones pendientes de la bodega.
func (m *SessionManager) Pending(ctx context.Context, workspaceID, warehouseID string) (*dto.PendingListResponse, error) {
	s, err := m.session(ctx, workspaceID, warehouseID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.queue.Pending()
	items := make([]dto.PendingMutationResponse, 0, len(pending))
	for _, pm := range pending {
		items = append(items, dto.PendingMutationResponse{
			MutationID: pm.Mutation.ID,
			EntityID:   pm.Mutation.EntityID,
			Op:         pm.Mutation.Op,
			Seq:        pm.Seq,
			EnqueuedAt: pm.EnqueuedAt,
		})
	}
	return &dto.PendingListResponse{Items: items}, nil
}

// Apply aplica la mutación de forma optimista y la envía al backend. En modo síncrono espera el
// resultado (confirmed o rolled_back); en modo asíncrono responde pending y termina en segundo plano.
func (m *SessionManager) Apply(ctx context.Context, actor Actor, warehouseID string, in dto.LayoutMutationRequest, async bool) (*dto.LayoutMutationResponse, error) {
	mut, err := buildMutation(actor, warehouseID, in, m.now())
	if err != nil {
		return nil, err
	}
	s, err := m.session(ctx, actor.WorkspaceID, warehouseID)
	if err != nil {
		return nil, err
	}
	return m.submit(ctx, s, mut, async, true)
}

// Undo deshace la última mutación confirmada aplicando su inversa por el mismo camino optimista.
// La inversa no entra al historial.
func (m *SessionManager) Undo(ctx context.Context, actor Actor, warehouseID string) (*dto.LayoutMutationResponse, error) {
	s, err := m.session(ctx, actor.WorkspaceID, warehouseID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errWarehouseLocked
	}
	inv, ok := s.popHistory()
	if ok {
		s.rebase(&inv)
	}
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrNothingToUndo
	}
	now := m.now()
	inv.ID = newID()
	inv.CreatedBy = actor.UserID
	inv.CreatedAt = now
	if inv.Element != nil {
		inv.Element.UpdatedAt = now
	}
	return m.submit(ctx, s, inv, false, false)
}

// Refresh recarga el layout desde el backend. Se rechaza con mutaciones pendientes; si mientras
// se leía llegó una mutación nueva, el resultado se descarta por obsoleto.
func (m *SessionManager) Refresh(ctx context.Context, workspaceID, warehouseID string) (*dto.LayoutSnapshotResponse, error) {
	s, err := m.session(ctx, workspaceID, warehouseID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.busy() {
		s.mu.Unlock()
		return nil, domain.ErrPendingMutations
	}
	epoch := s.epoch
	s.mu.Unlock()

	store, err := m.loadStore(ctx, warehouseID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errWarehouseLocked
	}
	if s.epoch != epoch || s.busy() {
		s.mu.Unlock()
		s.log.Info().Msg("recarga descartada: el layout cambió mientras se leía")
		return nil, fmt.Errorf("%w: recarga obsoleta", domain.ErrConflict)
	}
	s.replace(store)
	s.lastUsed = m.now()
	s.mu.Unlock()

	return m.Snapshot(ctx, workspaceID, warehouseID)
}

// Exclusive ejecuta fn con la bodega bloqueada para el editor. Descarta la sesión (se rechaza
// con domain.ErrPendingMutations si tiene trabajo sin sincronizar) y, mientras fn corre, no se
// cargan sesiones nuevas ni la sesión descartada acepta mutaciones. Lo usan la importación y la
// eliminación de bodegas, que escriben el layout por fuera de la cola.
func (m *SessionManager) Exclusive(warehouseID string, fn func() error) error {
	m.mu.Lock()
	if _, ok := m.locked[warehouseID]; ok {
		m.mu.Unlock()
		return errWarehouseLocked
	}
	if s, ok := m.sessions[warehouseID]; ok {
		s.mu.Lock()
		if s.busy() {
			s.mu.Unlock()
			m.mu.Unlock()
			return domain.ErrPendingMutations
		}
		s.closed = true
		s.mu.Unlock()
		delete(m.sessions, warehouseID)
		m.metrics.sessions.Set(float64(len(m.sessions)))
	}
	m.locked[warehouseID] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.locked, warehouseID)
		m.mu.Unlock()
	}()
	return fn()
}

// EvictIdle descarta las sesiones sin uso desde hace más de SessionIdle y sin trabajo pendiente.
func (m *SessionManager) EvictIdle() int {
	if m.opts.SessionIdle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.opts.SessionIdle)
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := !s.busy() && s.lastUsed.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			evicted++
		}
	}
	m.metrics.sessions.Set(float64(len(m.sessions)))
	return evicted
}

// Wait bloquea hasta que terminen las sincronizaciones en segundo plano.
func (m *SessionManager) Wait() {
	m.inflight.Wait()
}

func (m *SessionManager) submit(ctx context.Context, s *Session, mut entity.LayoutMutation, async, record bool) (*dto.LayoutMutationResponse, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errWarehouseLocked
	}
	if m.opts.MaxPending > 0 && s.queue.Len() >= m.opts.MaxPending {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: demasiadas mutaciones pendientes", domain.ErrConflict)
	}
	if mut.Op == entity.MutationUpdate && mut.Element != nil {
		if current, ok := s.store.Get(mut.EntityID); ok {
			mut.Element.CreatedAt = current.CreatedAt
		}
	}
	pm, err := s.queue.Enqueue(mut)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	waits := s.waitsFor(pm)
	done := make(chan struct{})
	s.lanes[mut.EntityID] = done
	s.epoch++
	s.lastUsed = m.now()
	s.mu.Unlock()

	m.metrics.applied.WithLabelValues(mut.Op).Inc()
	m.metrics.pending.Inc()

	resp := toMutationResponse(pm)
	if async {
		resp.Status = dto.MutationPending
		m.inflight.Add(1)
		go func() {
			defer m.inflight.Done()
			bg, cancel := m.withTimeout(context.Background())
			defer cancel()
			_, _ = m.dispatch(bg, s, pm, waits, done, record)
		}()
		return resp, nil
	}

	rctx, cancel := m.withTimeout(ctx)
	defer cancel()
	status, err := m.dispatch(rctx, s, pm, waits, done, record)
	resp.Status = status
	if err != nil {
		resp.Error = err.Error()
	}
	return resp, nil
}

// dispatch envía la mutación al backend cuando terminan sus predecesoras y confirma o revierte.
func (m *SessionManager) dispatch(ctx context.Context, s *Session, pm domlayout.PendingMutation, waits []chan struct{}, done chan struct{}, record bool) (string, error) {
	defer close(done)
	mut := pm.Mutation

	var err error
	for _, w := range waits {
		select {
		case <-w:
		case <-ctx.Done():
			err = fmt.Errorf("esperando mutación previa: %w", ctx.Err())
		}
		if err != nil {
			break
		}
	}

	if err == nil {
		s.mu.Lock()
		pending := s.queue.IsPending(mut.ID)
		s.mu.Unlock()
		if !pending {
			// revertida junto con una mutación anterior de la misma entidad
			m.releaseLane(s, mut.EntityID, done)
			return dto.MutationRolledBack, errors.New("revertida por una mutación anterior fallida")
		}

		start := time.Now()
		err = m.layouts.ApplyMutation(ctx, &mut)
		result := "ok"
		if err != nil {
			result = "error"
		}
		m.metrics.remote.WithLabelValues(mut.Op, result).Observe(time.Since(start).Seconds())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lanes[mut.EntityID] == done {
		delete(s.lanes, mut.EntityID)
	}

	if err == nil {
		if _, cerr := s.queue.Confirm(mut.ID); cerr != nil {
			return dto.MutationRolledBack, cerr
		}
		if record {
			s.pushHistory(pm, m.opts.HistoryLimit)
		}
		m.metrics.confirmed.WithLabelValues(mut.Op).Inc()
		m.metrics.pending.Dec()
		return dto.MutationConfirmed, nil
	}

	ops := make(map[string]string)
	for _, p := range s.queue.PendingFor(mut.EntityID) {
		ops[p.Mutation.ID] = p.Mutation.Op
	}
	rolled, rbErr := s.queue.Rollback(mut.ID)
	for _, id := range rolled {
		op, ok := ops[id]
		if !ok {
			op = mut.Op
		}
		m.metrics.rolledBack.WithLabelValues(op).Inc()
		m.metrics.pending.Dec()
	}
	ev := s.log.Warn().
		Err(err).
		Str("mutation_id", mut.ID).
		Str("entity_id", mut.EntityID).
		Str("op", mut.Op).
		Strs("rolled_back", rolled)
	if rbErr != nil {
		ev = ev.AnErr("rollback_error", rbErr)
	}
	ev.Msg("mutación revertida")
	return dto.MutationRolledBack, err
}

func (m *SessionManager) releaseLane(s *Session, entityID string, done chan struct{}) {
	s.mu.Lock()
	if s.lanes[entityID] == done {
		delete(s.lanes, entityID)
	}
	s.mu.Unlock()
}

func (m *SessionManager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.opts.SyncTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.opts.SyncTimeout)
}
