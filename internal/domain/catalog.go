package domain

import "time"

// StateCode enumerates lifecycle states for incidencias.
type StateCode string

const (
	StatePendiente StateCode = "pendiente"
	StateAsignada  StateCode = "asignada"
	StateEnProceso StateCode = "en_proceso"
	StateResuelta  StateCode = "resuelta"
	StateCerrada   StateCode = "cerrada"
	StateCancelada StateCode = "cancelada"
)

// Terminal reports whether no further transitions leave the state.
func (s StateCode) Terminal() bool {
	return s == StateCerrada || s == StateCancelada
}

// ResolvedAtApplies reports whether resolved_at must be set while in this state.
func (s StateCode) ResolvedAtApplies() bool {
	return s == StateResuelta || s == StateCerrada
}

// PriorityCode enumerates urgency levels.
type PriorityCode string

const (
	PriorityBaja    PriorityCode = "baja"
	PriorityMedia   PriorityCode = "media"
	PriorityAlta    PriorityCode = "alta"
	PriorityUrgente PriorityCode = "urgente"
)

// CategoryCode classifies an incidencia. The catalog is open-ended; codes are
// validated against the catalog store, not against a compile-time list.
type CategoryCode string

// State is a catalog entry for a lifecycle state.
type State struct {
	ID          int32
	Code        StateCode
	Name        string
	Description *string
	Order       int32
	Active      bool
	CreatedAt   time.Time
}

// Priority is a catalog entry for an urgency level.
type Priority struct {
	ID          int32
	Code        PriorityCode
	Name        string
	Description *string
	Level       int32
	Color       *string
	Active      bool
	CreatedAt   time.Time
}

// Category is a catalog entry for an incidencia classification.
type Category struct {
	ID          int32
	Code        CategoryCode
	Name        string
	Description *string
	Active      bool
	CreatedAt   time.Time
}
