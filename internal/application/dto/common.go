package dto

// MaxPageLimit tope de elementos por página en los listados del workspace.
const MaxPageLimit = 100

// PageRequest paginación para listados del workspace (?limit=&offset=).
type PageRequest struct {
	Limit  int `query:"limit" validate:"min=1,max=100"`
	Offset int `query:"offset" validate:"min=0"`
}

// Normalize aplica el límite por defecto, el tope y descarta offsets negativos.
func (p *PageRequest) Normalize() {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// PageResponse metadatos de página. Total cuenta todos los registros del workspace, no solo
// los de la página.
type PageResponse struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
	HasMore bool `json:"has_more"`
}

// NewPageResponse arma los metadatos a partir del total del workspace.
func NewPageResponse(limit, offset, total int) PageResponse {
	return PageResponse{Limit: limit, Offset: offset, Total: total, HasMore: offset+limit < total}
}

// ErrorResponse cuerpo de error HTTP. Code es estable (VALIDATION, NOT_FOUND, STALE_VERSION...),
// Message es legible y puede cambiar.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
