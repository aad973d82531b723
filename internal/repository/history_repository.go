package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus360/incidencias-service/internal/domain"
)

// HistoryRepository stores the append-only audit trail. Entries are never
// updated; deletion only happens through DeleteByIncidencia when the cascade
// policy is enabled.
type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.HistoryEntry) error
	ListByIncidencia(ctx context.Context, incidenciaID string) ([]domain.HistoryEntry, error)
	DeleteByIncidencia(ctx context.Context, incidenciaID string) error
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	const query = `
        INSERT INTO history_entries (incidencia_id, action, actor_id, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		entry.IncidenciaID,
		entry.Action,
		entry.ActorID,
		entry.OldValue,
		entry.NewValue,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *historyRepository) ListByIncidencia(ctx context.Context, incidenciaID string) ([]domain.HistoryEntry, error) {
	const query = `
        SELECT id, incidencia_id, action, actor_id, old_value, new_value, created_at
        FROM history_entries WHERE incidencia_id=$1 ORDER BY created_at ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query, incidenciaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		var entry domain.HistoryEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.IncidenciaID,
			&entry.Action,
			&entry.ActorID,
			&entry.OldValue,
			&entry.NewValue,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *historyRepository) DeleteByIncidencia(ctx context.Context, incidenciaID string) error {
	_, err := querier(ctx, r.pool).Exec(ctx, `DELETE FROM history_entries WHERE incidencia_id=$1`, incidenciaID)
	return err
}
