package entity

import "time"

// Workspace representa una organización/tenant: frontera de todos los datos de bodega.
type Workspace struct {
	ID        string
	Name      string
	Status    string // active, suspended
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Estados de Workspace.
const (
	WorkspaceActive    = "active"
	WorkspaceSuspended = "suspended"
)

// Módulos SaaS disponibles (deben coincidir con el CHECK de la tabla workspace_modules).
const (
	ModuleLayout    = "layout"
	ModuleInventory = "inventory"
)

// WorkspaceModule representa la activación de un módulo SaaS en un workspace.
type WorkspaceModule struct {
	ID          string
	WorkspaceID string
	ModuleName  string // ver constantes Module*
	IsActive    bool
	ActivatedAt time.Time
	ExpiresAt   *time.Time // nil = sin vencimiento
}

// Roles que emite el proveedor de identidad en el claim "role".
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)
