package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/Layout-api/internal/domain"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
	"github.com/jhoicas/Layout-api/internal/domain/repository"
)

var _ repository.LayoutRepository = (*LayoutRepo)(nil)

// LayoutRepo layout de bodegas sobre PostgreSQL. Los borrados son lógicos (deleted_at) para que
// deshacer un delete pueda reinsertar el subárbol con los mismos IDs.
type LayoutRepo struct {
	pool *pgxpool.Pool
	tx   *TxRunner
}

// NewLayoutRepository construye el adaptador.
func NewLayoutRepository(pool *pgxpool.Pool) *LayoutRepo {
	return &LayoutRepo{pool: pool, tx: NewTxRunner(pool)}
}

const elementColumns = `id, warehouse_id, kind, COALESCE(parent_id::text, ''), code, name,
	x, y, width, depth, height, rotation, capacity, attributes, version, created_at, updated_at`

const insertElement = `
	INSERT INTO layout_elements (id, warehouse_id, kind, parent_id, code, name,
		x, y, width, depth, height, rotation, capacity, attributes, version, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

func elementArgs(el *entity.LayoutElement) []any {
	return []any{
		el.ID, el.WarehouseID, string(el.Kind), nullIfEmpty(el.ParentID), el.Code, el.Name,
		el.Geometry.X, el.Geometry.Y, el.Geometry.Width, el.Geometry.Depth, el.Geometry.Height, el.Geometry.Rotation,
		el.Capacity, jsonOrNil(el.Attributes), el.Version, el.CreatedAt, el.UpdatedAt,
	}
}

func scanElement(row pgx.Row) (entity.LayoutElement, error) {
	var el entity.LayoutElement
	var kind string
	err := row.Scan(
		&el.ID, &el.WarehouseID, &kind, &el.ParentID, &el.Code, &el.Name,
		&el.Geometry.X, &el.Geometry.Y, &el.Geometry.Width, &el.Geometry.Depth, &el.Geometry.Height, &el.Geometry.Rotation,
		&el.Capacity, &el.Attributes, &el.Version, &el.CreatedAt, &el.UpdatedAt,
	)
	el.Kind = entity.ElementKind(kind)
	return el, err
}

// LoadWarehouse devuelve los elementos vivos de la bodega.
func (r *LayoutRepo) LoadWarehouse(ctx context.Context, warehouseID string) ([]entity.LayoutElement, error) {
	query := `SELECT ` + elementColumns + `
		FROM layout_elements WHERE warehouse_id = $1 AND deleted_at IS NULL
		ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, query, warehouseID)
	if err != nil {
		return nil, fmt.Errorf("load layout: %w", err)
	}
	defer rows.Close()
	var out []entity.LayoutElement
	for rows.Next() {
		el, err := scanElement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan layout element: %w", err)
		}
		out = append(out, el)
	}
	return out, rows.Err()
}

// ApplyMutation aplica la mutación y su registro de auditoría en una sola transacción.
func (r *LayoutRepo) ApplyMutation(ctx context.Context, m *entity.LayoutMutation) error {
	return r.tx.Run(ctx, func(q Querier) error {
		var err error
		switch m.Op {
		case entity.MutationCreate:
			err = createElement(ctx, q, m)
		case entity.MutationUpdate:
			err = updateElement(ctx, q, m)
		case entity.MutationDelete:
			err = deleteSubtree(ctx, q, m)
		case entity.MutationRestore:
			err = restoreSubtree(ctx, q, m)
		default:
			err = fmt.Errorf("%w: op %q", domain.ErrInvalidInput, m.Op)
		}
		if err != nil {
			return err
		}
		return insertAudit(ctx, q, m)
	})
}

func createElement(ctx context.Context, q Querier, m *entity.LayoutMutation) error {
	if m.Element == nil {
		return domain.ErrInvalidInput
	}
	if err := checkParent(ctx, q, m.WarehouseID, m.Element.ParentID); err != nil {
		return err
	}
	el := *m.Element
	el.Version = 1
	if _, err := q.Exec(ctx, insertElement, elementArgs(&el)...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: elemento %s", domain.ErrDuplicate, el.ID)
		}
		return fmt.Errorf("insert layout element: %w", err)
	}
	return nil
}

func updateElement(ctx context.Context, q Querier, m *entity.LayoutMutation) error {
	if m.Element == nil {
		return domain.ErrInvalidInput
	}
	if err := checkParent(ctx, q, m.WarehouseID, m.Element.ParentID); err != nil {
		return err
	}
	el := m.Element
	const query = `
		UPDATE layout_elements
		   SET parent_id = $4, code = $5, name = $6,
		       x = $7, y = $8, width = $9, depth = $10, height = $11, rotation = $12,
		       capacity = $13, attributes = $14, updated_at = $15, version = version + 1
		 WHERE id = $1 AND warehouse_id = $2 AND version = $3 AND deleted_at IS NULL`
	cmd, err := q.Exec(ctx, query,
		m.EntityID, m.WarehouseID, m.BaseVersion, nullIfEmpty(el.ParentID), el.Code, el.Name,
		el.Geometry.X, el.Geometry.Y, el.Geometry.Width, el.Geometry.Depth, el.Geometry.Height, el.Geometry.Rotation,
		el.Capacity, jsonOrNil(el.Attributes), el.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update layout element: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return versionMismatch(ctx, q, m)
	}
	return nil
}

func deleteSubtree(ctx context.Context, q Querier, m *entity.LayoutMutation) error {
	var version int64
	err := q.QueryRow(ctx, `
		SELECT version FROM layout_elements
		 WHERE id = $1 AND warehouse_id = $2 AND deleted_at IS NULL
		 FOR UPDATE`, m.EntityID, m.WarehouseID).Scan(&version)
	if err != nil {
		if isNoRows(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lock layout element: %w", err)
	}
	if version != m.BaseVersion {
		return fmt.Errorf("%w: versión %d, esperada %d", domain.ErrConflict, version, m.BaseVersion)
	}
	const query = `
		WITH RECURSIVE subtree AS (
			SELECT id FROM layout_elements
			 WHERE id = $1 AND warehouse_id = $2 AND deleted_at IS NULL
			UNION ALL
			SELECT e.id FROM layout_elements e
			  JOIN subtree s ON e.parent_id = s.id
			 WHERE e.deleted_at IS NULL
		)
		UPDATE layout_elements SET deleted_at = now()
		 WHERE id IN (SELECT id FROM subtree)`
	if _, err := q.Exec(ctx, query, m.EntityID, m.WarehouseID); err != nil {
		return fmt.Errorf("delete layout subtree: %w", err)
	}
	return nil
}

// restoreSubtree reinserta el subárbol (padres primero). Falla con conflicto si alguno está vivo.
func restoreSubtree(ctx context.Context, q Querier, m *entity.LayoutMutation) error {
	if len(m.Elements) == 0 {
		return domain.ErrInvalidInput
	}
	if err := checkParent(ctx, q, m.WarehouseID, m.Elements[0].ParentID); err != nil {
		return err
	}
	query := insertElement + `
		ON CONFLICT (id) DO UPDATE SET
			parent_id = EXCLUDED.parent_id, code = EXCLUDED.code, name = EXCLUDED.name,
			x = EXCLUDED.x, y = EXCLUDED.y, width = EXCLUDED.width, depth = EXCLUDED.depth,
			height = EXCLUDED.height, rotation = EXCLUDED.rotation, capacity = EXCLUDED.capacity,
			attributes = EXCLUDED.attributes, version = EXCLUDED.version,
			updated_at = EXCLUDED.updated_at, deleted_at = NULL
		WHERE layout_elements.deleted_at IS NOT NULL
		  AND layout_elements.warehouse_id = EXCLUDED.warehouse_id`
	for i := range m.Elements {
		cmd, err := q.Exec(ctx, query, elementArgs(&m.Elements[i])...)
		if err != nil {
			return fmt.Errorf("restore layout element: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return fmt.Errorf("%w: elemento %s ya existe", domain.ErrConflict, m.Elements[i].ID)
		}
	}
	return nil
}

func checkParent(ctx context.Context, q Querier, warehouseID, parentID string) error {
	if parentID == "" {
		return nil
	}
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM layout_elements
		 WHERE id = $1 AND warehouse_id = $2 AND deleted_at IS NULL)`, parentID, warehouseID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check parent: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrOrphan, parentID)
	}
	return nil
}

// versionMismatch distingue elemento inexistente de versión desactualizada.
func versionMismatch(ctx context.Context, q Querier, m *entity.LayoutMutation) error {
	var version int64
	err := q.QueryRow(ctx, `
		SELECT version FROM layout_elements
		 WHERE id = $1 AND warehouse_id = $2 AND deleted_at IS NULL`, m.EntityID, m.WarehouseID).Scan(&version)
	if err != nil {
		if isNoRows(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("read version: %w", err)
	}
	return fmt.Errorf("%w: versión %d, esperada %d", domain.ErrConflict, version, m.BaseVersion)
}

func insertAudit(ctx context.Context, q Querier, m *entity.LayoutMutation) error {
	payload, err := json.Marshal(struct {
		Element  *entity.LayoutElement `json:"element,omitempty"`
		Elements []entity.LayoutElement `json:"elements,omitempty"`
	}{m.Element, m.Elements})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}
	_, err = q.Exec(ctx, `
		INSERT INTO layout_mutations (id, warehouse_id, entity_id, op, base_version, payload, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.WarehouseID, m.EntityID, m.Op, m.BaseVersion, string(payload), m.CreatedBy, m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: mutación %s ya aplicada", domain.ErrDuplicate, m.ID)
		}
		return fmt.Errorf("insert layout mutation: %w", err)
	}
	return nil
}

// ReplaceWarehouse reemplaza el layout completo en una transacción (importación).
// elements debe venir con los padres antes que los hijos.
func (r *LayoutRepo) ReplaceWarehouse(ctx context.Context, warehouseID string, elements []entity.LayoutElement) error {
	return r.tx.Run(ctx, func(q Querier) error {
		if _, err := q.Exec(ctx, `DELETE FROM layout_elements WHERE warehouse_id = $1`, warehouseID); err != nil {
			return fmt.Errorf("clear layout: %w", err)
		}
		if len(elements) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for i := range elements {
			el := elements[i]
			el.WarehouseID = warehouseID
			batch.Queue(insertElement, elementArgs(&el)...)
		}
		br := q.SendBatch(ctx, batch)
		for i := range elements {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				if isUniqueViolation(err) {
					return fmt.Errorf("%w: elemento %s", domain.ErrDuplicate, elements[i].ID)
				}
				return fmt.Errorf("insert layout element %s: %w", elements[i].ID, err)
			}
		}
		return br.Close()
	})
}

// CountByWarehouse cuenta los elementos vivos.
func (r *LayoutRepo) CountByWarehouse(ctx context.Context, warehouseID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM layout_elements WHERE warehouse_id = $1 AND deleted_at IS NULL`, warehouseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count layout: %w", err)
	}
	return n, nil
}

// jsonOrNil convierte atributos vacíos en NULL.
func jsonOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
