package domain

import "time"

// HistoryAction labels what a history entry documents.
type HistoryAction string

const (
	ActionCreated             HistoryAction = "created"
	ActionAssignedResponsible HistoryAction = "assigned_responsible"
	ActionStateChanged        HistoryAction = "state_changed"
	ActionCommentAdded        HistoryAction = "comment_added"
	ActionAttachmentAdded     HistoryAction = "attachment_added"
	ActionTitleUpdated        HistoryAction = "title_updated"
	ActionDescriptionUpdated  HistoryAction = "description_updated"
	ActionCategoryUpdated     HistoryAction = "category_updated"
	ActionLocationUpdated     HistoryAction = "location_updated"
	ActionPriorityUpdated     HistoryAction = "priority_updated"
	ActionDeleted             HistoryAction = "deleted"
)

// HistoryEntry is an immutable audit record. OldValue/NewValue are structured
// snapshots of the changed fields and may be nil.
type HistoryEntry struct {
	ID           string
	IncidenciaID string
	Action       HistoryAction
	ActorID      string
	OldValue     map[string]any
	NewValue     map[string]any
	CreatedAt    time.Time
}
