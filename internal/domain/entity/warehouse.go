package entity

import "time"

// Warehouse representa una bodega física de un workspace; es la raíz del layout.
type Warehouse struct {
	ID          string
	WorkspaceID string
	Name        string
	Address     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
