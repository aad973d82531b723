package domain

import "time"

// Comment belongs to one incidencia. Internal comments are visible to
// administrators only.
type Comment struct {
	ID           string
	IncidenciaID string
	AuthorID     string
	Content      string
	Internal     bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
