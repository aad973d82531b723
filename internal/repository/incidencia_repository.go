package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus360/incidencias-service/internal/domain"
)

// IncidenciaFilter captures listing predicates. Codes are assumed validated
// against the catalog before they reach the repository.
type IncidenciaFilter struct {
	ReporterID    *string
	ResponsibleID *string
	StateCode     *domain.StateCode
	PriorityCode  *domain.PriorityCode
	CategoryCode  *domain.CategoryCode
	Limit         int
	Offset        int
}

// IncidenciaRepository encapsulates incidencia persistence.
type IncidenciaRepository interface {
	Create(ctx context.Context, incidencia *domain.Incidencia) error
	GetByID(ctx context.Context, id string) (*domain.Incidencia, error)
	// UpdateFieldsIf writes the caller-editable columns only (title,
	// description, category, location, priority) and only while the row still
	// holds the expected state, so a concurrent transition or assignment is
	// never overwritten. Returns false when no row matched.
	UpdateFieldsIf(ctx context.Context, incidencia *domain.Incidencia, expected domain.StateCode) (bool, error)
	// UpdateStateIf applies a state transition only when the row still holds
	// the expected state. Returns false when no row matched.
	UpdateStateIf(ctx context.Context, id string, expected, next domain.StateCode, resolvedAt *time.Time) (bool, error)
	// AssignIf sets the responsible party and moves the row to the next state
	// only while the row still holds one of the expected states.
	AssignIf(ctx context.Context, id, responsibleID string, expected []domain.StateCode, next domain.StateCode) (bool, error)
	ListWithFilter(ctx context.Context, filter IncidenciaFilter) ([]domain.Incidencia, error)
	Delete(ctx context.Context, id string) error
}

type incidenciaRepository struct {
	pool *pgxpool.Pool
}

// NewIncidenciaRepository instantiates repository.
func NewIncidenciaRepository(pool *pgxpool.Pool) IncidenciaRepository {
	return &incidenciaRepository{pool: pool}
}

const incidenciaColumns = `
        i.id, i.title, i.description, s.code, p.code, c.code,
        i.reporter_id, i.responsible_id, i.location_id,
        i.created_at, i.updated_at, i.resolved_at`

const incidenciaFrom = `
        FROM incidencias i
        JOIN states s ON s.id = i.state_id
        JOIN priorities p ON p.id = i.priority_id
        LEFT JOIN categories c ON c.id = i.category_id`

func (r *incidenciaRepository) Create(ctx context.Context, incidencia *domain.Incidencia) error {
	const query = `
        INSERT INTO incidencias (title, description, state_id, priority_id, category_id, reporter_id, responsible_id, location_id)
        VALUES ($1, $2,
            (SELECT id FROM states WHERE code=$3),
            (SELECT id FROM priorities WHERE code=$4),
            (SELECT id FROM categories WHERE code=$5),
            $6, $7, $8)
        RETURNING id, created_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		incidencia.Title,
		incidencia.Description,
		incidencia.State,
		incidencia.Priority,
		incidencia.Category,
		incidencia.ReporterID,
		incidencia.ResponsibleID,
		incidencia.LocationID,
	).Scan(&incidencia.ID, &incidencia.CreatedAt)
}

func (r *incidenciaRepository) GetByID(ctx context.Context, id string) (*domain.Incidencia, error) {
	query := `SELECT` + incidenciaColumns + incidenciaFrom + ` WHERE i.id=$1`
	row := querier(ctx, r.pool).QueryRow(ctx, query, id)
	return scanIncidencia(row)
}

func (r *incidenciaRepository) UpdateFieldsIf(ctx context.Context, incidencia *domain.Incidencia, expected domain.StateCode) (bool, error) {
	const query = `
        UPDATE incidencias SET
            title=$1, description=$2,
            category_id=(SELECT id FROM categories WHERE code=$3),
            location_id=$4,
            priority_id=(SELECT id FROM priorities WHERE code=$5),
            updated_at=NOW()
        WHERE id=$6 AND state_id=(SELECT id FROM states WHERE code=$7)`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query,
		incidencia.Title,
		incidencia.Description,
		incidencia.Category,
		incidencia.LocationID,
		incidencia.Priority,
		incidencia.ID,
		expected,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *incidenciaRepository) UpdateStateIf(ctx context.Context, id string, expected, next domain.StateCode, resolvedAt *time.Time) (bool, error) {
	const query = `
        UPDATE incidencias SET
            state_id=(SELECT id FROM states WHERE code=$1),
            resolved_at=$2, updated_at=NOW()
        WHERE id=$3 AND state_id=(SELECT id FROM states WHERE code=$4)`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query, next, resolvedAt, id, expected)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *incidenciaRepository) AssignIf(ctx context.Context, id, responsibleID string, expected []domain.StateCode, next domain.StateCode) (bool, error) {
	const query = `
        UPDATE incidencias SET
            responsible_id=$1,
            state_id=(SELECT id FROM states WHERE code=$2),
            updated_at=NOW()
        WHERE id=$3 AND state_id IN (SELECT id FROM states WHERE code = ANY($4))`
	codes := make([]string, len(expected))
	for i, code := range expected {
		codes[i] = string(code)
	}
	cmd, err := querier(ctx, r.pool).Exec(ctx, query, responsibleID, next, id, codes)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *incidenciaRepository) ListWithFilter(ctx context.Context, filter IncidenciaFilter) ([]domain.Incidencia, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		clauses = append(clauses, fmt.Sprintf("i.reporter_id=$%d", len(args)))
	}
	if filter.ResponsibleID != nil {
		args = append(args, *filter.ResponsibleID)
		clauses = append(clauses, fmt.Sprintf("i.responsible_id=$%d", len(args)))
	}
	if filter.StateCode != nil {
		args = append(args, *filter.StateCode)
		clauses = append(clauses, fmt.Sprintf("s.code=$%d", len(args)))
	}
	if filter.PriorityCode != nil {
		args = append(args, *filter.PriorityCode)
		clauses = append(clauses, fmt.Sprintf("p.code=$%d", len(args)))
	}
	if filter.CategoryCode != nil {
		args = append(args, *filter.CategoryCode)
		clauses = append(clauses, fmt.Sprintf("c.code=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY i.created_at DESC LIMIT %d OFFSET %d`,
		incidenciaColumns, incidenciaFrom, strings.Join(clauses, " AND "), limit, offset)

	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Incidencia
	for rows.Next() {
		incidencia, err := scanIncidencia(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *incidencia)
	}
	return result, rows.Err()
}

func (r *incidenciaRepository) Delete(ctx context.Context, id string) error {
	cmd, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM incidencias WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanIncidencia(row pgx.Row) (*domain.Incidencia, error) {
	var incidencia domain.Incidencia
	var category *string
	if err := row.Scan(
		&incidencia.ID,
		&incidencia.Title,
		&incidencia.Description,
		&incidencia.State,
		&incidencia.Priority,
		&category,
		&incidencia.ReporterID,
		&incidencia.ResponsibleID,
		&incidencia.LocationID,
		&incidencia.CreatedAt,
		&incidencia.UpdatedAt,
		&incidencia.ResolvedAt,
	); err != nil {
		return nil, err
	}
	if category != nil {
		code := domain.CategoryCode(*category)
		incidencia.Category = &code
	}
	return &incidencia, nil
}
