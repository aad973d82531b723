package domain

import "time"

// Incidencia is the aggregate for reported issues. Reporter, responsible and
// location ids are opaque references owned by external services.
type Incidencia struct {
	ID            string
	Title         string
	Description   string
	State         StateCode
	Priority      PriorityCode
	Category      *CategoryCode
	ReporterID    string
	ResponsibleID *string
	LocationID    *string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
	ResolvedAt    *time.Time
}
