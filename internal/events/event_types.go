package events

import (
	"time"

	"github.com/campus360/incidencias-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIncidenciaCreated   EventType = "incidencia_created"
	EventResponsibleAssigned EventType = "responsible_assigned"
	EventStateChanged        EventType = "state_changed"
	EventIncidenciaUpdated   EventType = "incidencia_updated"
	EventCommentAdded        EventType = "comment_added"
	EventAttachmentAdded     EventType = "attachment_added"
	EventIncidenciaDeleted   EventType = "incidencia_deleted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID           string       `json:"id"`
	Type         EventType    `json:"type"`
	IncidenciaID string       `json:"incidencia_id"`
	Actor        domain.Actor `json:"actor"`
	Timestamp    time.Time    `json:"timestamp"`
	Payload      interface{}  `json:"payload"`
}

// IncidenciaCreatedPayload payload.
type IncidenciaCreatedPayload struct {
	Title    string               `json:"title"`
	Priority domain.PriorityCode  `json:"priority"`
	Category *domain.CategoryCode `json:"category,omitempty"`
}

// ResponsibleAssignedPayload payload.
type ResponsibleAssignedPayload struct {
	OldResponsibleID *string `json:"old_responsible_id,omitempty"`
	NewResponsibleID string  `json:"new_responsible_id"`
}

// StateChangedPayload payload.
type StateChangedPayload struct {
	OldState domain.StateCode `json:"old_state"`
	NewState domain.StateCode `json:"new_state"`
}

// IncidenciaUpdatedPayload payload.
type IncidenciaUpdatedPayload struct {
	ChangedFields []string `json:"changed_fields"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID string `json:"comment_id"`
	Internal  bool   `json:"internal"`
}

// AttachmentAddedPayload payload.
type AttachmentAddedPayload struct {
	AttachmentID string `json:"attachment_id"`
	FileName     string `json:"file_name"`
}

// IncidenciaDeletedPayload payload.
type IncidenciaDeletedPayload struct {
	HistoryRemoved bool `json:"history_removed"`
}
