package dto

import "github.com/campus360/incidencias-service/internal/domain"

// StateResponse is the wire representation of a state catalog entry.
type StateResponse struct {
	Code        domain.StateCode `json:"code"`
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	Order       int32            `json:"order"`
}

// PriorityResponse is the wire representation of a priority catalog entry.
type PriorityResponse struct {
	Code        domain.PriorityCode `json:"code"`
	Name        string              `json:"name"`
	Description *string             `json:"description,omitempty"`
	Level       int32               `json:"level"`
	Color       *string             `json:"color,omitempty"`
}

// CategoryResponse is the wire representation of a category catalog entry.
type CategoryResponse struct {
	Code        domain.CategoryCode `json:"code"`
	Name        string              `json:"name"`
	Description *string             `json:"description,omitempty"`
}
