package dto

import (
	"time"

	"github.com/campus360/incidencias-service/internal/domain"
)

// CreateIncidenciaRequest payload.
type CreateIncidenciaRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    *string `json:"priority,omitempty"`
	Category    *string `json:"category,omitempty"`
	LocationID  *string `json:"location_id,omitempty"`
}

// UpdateIncidenciaRequest payload. Absent fields are left untouched.
type UpdateIncidenciaRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	LocationID  *string `json:"location_id,omitempty"`
	Priority    *string `json:"priority,omitempty"`
}

// AssignResponsibleRequest payload.
type AssignResponsibleRequest struct {
	ResponsibleID string `json:"responsible_id"`
}

// ChangeStateRequest payload.
type ChangeStateRequest struct {
	State string `json:"state"`
}

// IncidenciaResponse is the wire representation of an incidencia.
type IncidenciaResponse struct {
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	State         domain.StateCode     `json:"state"`
	Priority      domain.PriorityCode  `json:"priority"`
	Category      *domain.CategoryCode `json:"category,omitempty"`
	ReporterID    string               `json:"reporter_id"`
	ResponsibleID *string              `json:"responsible_id,omitempty"`
	LocationID    *string              `json:"location_id,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     *time.Time           `json:"updated_at,omitempty"`
	ResolvedAt    *time.Time           `json:"resolved_at,omitempty"`
}

// HistoryEntryResponse is the wire representation of an audit record.
type HistoryEntryResponse struct {
	ID        string               `json:"id"`
	Action    domain.HistoryAction `json:"action"`
	ActorID   string               `json:"actor_id"`
	OldValue  map[string]any       `json:"old_value,omitempty"`
	NewValue  map[string]any       `json:"new_value,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}
