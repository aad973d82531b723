package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus360/incidencias-service/internal/domain"
)

// CatalogRepository reads the state/priority/category catalogs. Lookups by
// code resolve active entries only.
type CatalogRepository interface {
	GetStateByCode(ctx context.Context, code domain.StateCode) (*domain.State, error)
	GetPriorityByCode(ctx context.Context, code domain.PriorityCode) (*domain.Priority, error)
	GetCategoryByCode(ctx context.Context, code domain.CategoryCode) (*domain.Category, error)
	ListStates(ctx context.Context) ([]domain.State, error)
	ListPriorities(ctx context.Context) ([]domain.Priority, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type catalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository instantiates repository.
func NewCatalogRepository(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepository{pool: pool}
}

func (r *catalogRepository) GetStateByCode(ctx context.Context, code domain.StateCode) (*domain.State, error) {
	const query = `
        SELECT id, code, name, description, sort_order, active, created_at
        FROM states WHERE code=$1 AND active`
	var state domain.State
	if err := querier(ctx, r.pool).QueryRow(ctx, query, code).Scan(
		&state.ID,
		&state.Code,
		&state.Name,
		&state.Description,
		&state.Order,
		&state.Active,
		&state.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *catalogRepository) GetPriorityByCode(ctx context.Context, code domain.PriorityCode) (*domain.Priority, error) {
	const query = `
        SELECT id, code, name, description, level, color, active, created_at
        FROM priorities WHERE code=$1 AND active`
	var priority domain.Priority
	if err := querier(ctx, r.pool).QueryRow(ctx, query, code).Scan(
		&priority.ID,
		&priority.Code,
		&priority.Name,
		&priority.Description,
		&priority.Level,
		&priority.Color,
		&priority.Active,
		&priority.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &priority, nil
}

func (r *catalogRepository) GetCategoryByCode(ctx context.Context, code domain.CategoryCode) (*domain.Category, error) {
	const query = `
        SELECT id, code, name, description, active, created_at
        FROM categories WHERE code=$1 AND active`
	var category domain.Category
	if err := querier(ctx, r.pool).QueryRow(ctx, query, code).Scan(
		&category.ID,
		&category.Code,
		&category.Name,
		&category.Description,
		&category.Active,
		&category.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *catalogRepository) ListStates(ctx context.Context) ([]domain.State, error) {
	const query = `
        SELECT id, code, name, description, sort_order, active, created_at
        FROM states WHERE active ORDER BY sort_order`
	rows, err := querier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.State
	for rows.Next() {
		var state domain.State
		if err := rows.Scan(
			&state.ID,
			&state.Code,
			&state.Name,
			&state.Description,
			&state.Order,
			&state.Active,
			&state.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, state)
	}
	return result, rows.Err()
}

func (r *catalogRepository) ListPriorities(ctx context.Context) ([]domain.Priority, error) {
	const query = `
        SELECT id, code, name, description, level, color, active, created_at
        FROM priorities WHERE active ORDER BY level`
	rows, err := querier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Priority
	for rows.Next() {
		var priority domain.Priority
		if err := rows.Scan(
			&priority.ID,
			&priority.Code,
			&priority.Name,
			&priority.Description,
			&priority.Level,
			&priority.Color,
			&priority.Active,
			&priority.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, priority)
	}
	return result, rows.Err()
}

func (r *catalogRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	const query = `
        SELECT id, code, name, description, active, created_at
        FROM categories WHERE active ORDER BY name`
	rows, err := querier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(
			&category.ID,
			&category.Code,
			&category.Name,
			&category.Description,
			&category.Active,
			&category.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}
