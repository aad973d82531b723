package service

import (
	"context"

	"github.com/campus360/incidencias-service/internal/authz"
	"github.com/campus360/incidencias-service/internal/domain"
	"github.com/campus360/incidencias-service/internal/repository"
)

// IncidenciaListInput carries caller-supplied listing filters. ReporterID and
// ResponsibleID are honored for administrators only.
type IncidenciaListInput struct {
	StateCode     *domain.StateCode
	PriorityCode  *domain.PriorityCode
	CategoryCode  *domain.CategoryCode
	ReporterID    *string
	ResponsibleID *string
	Limit         int
	Offset        int
}

// QueryBuilder composes the final listing predicate from caller filters and
// the actor's visibility scope. The reporter constraint for non-administrators
// is applied here and cannot be relaxed by any caller input.
type QueryBuilder struct {
	catalogs *CatalogService
}

// NewQueryBuilder constructs the builder.
func NewQueryBuilder(catalogs *CatalogService) *QueryBuilder {
	return &QueryBuilder{catalogs: catalogs}
}

// BuildIncidenciaFilter validates filter codes and merges the visibility
// scope. Unknown codes fail before any listing query runs.
func (b *QueryBuilder) BuildIncidenciaFilter(ctx context.Context, actor domain.Actor, input IncidenciaListInput) (repository.IncidenciaFilter, error) {
	filter := repository.IncidenciaFilter{
		Limit:  input.Limit,
		Offset: input.Offset,
	}

	if input.StateCode != nil {
		if _, err := b.catalogs.GetState(ctx, *input.StateCode); err != nil {
			return repository.IncidenciaFilter{}, err
		}
		filter.StateCode = input.StateCode
	}
	if input.PriorityCode != nil {
		if _, err := b.catalogs.GetPriority(ctx, *input.PriorityCode); err != nil {
			return repository.IncidenciaFilter{}, err
		}
		filter.PriorityCode = input.PriorityCode
	}
	if input.CategoryCode != nil {
		if _, err := b.catalogs.GetCategory(ctx, *input.CategoryCode); err != nil {
			return repository.IncidenciaFilter{}, err
		}
		filter.CategoryCode = input.CategoryCode
	}

	visibility := authz.VisibilityFor(actor)
	if visibility.Unrestricted() {
		filter.ReporterID = input.ReporterID
		filter.ResponsibleID = input.ResponsibleID
	} else {
		// Forced ownership scope; admin-only filters are dropped.
		filter.ReporterID = visibility.ReporterID
	}
	return filter, nil
}
