package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus360/incidencias-service/internal/domain"
)

// CommentRepository persists incidencia comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	// ListByIncidencia returns comments ordered by creation time. Internal
	// comments are excluded unless includeInternal is set.
	ListByIncidencia(ctx context.Context, incidenciaID string, includeInternal bool) ([]domain.Comment, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository instantiates repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO comments (incidencia_id, author_id, content, internal)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		comment.IncidenciaID,
		comment.AuthorID,
		comment.Content,
		comment.Internal,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) ListByIncidencia(ctx context.Context, incidenciaID string, includeInternal bool) ([]domain.Comment, error) {
	query := `
        SELECT id, incidencia_id, author_id, content, internal, created_at, updated_at
        FROM comments WHERE incidencia_id=$1`
	if !includeInternal {
		query += ` AND NOT internal`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := querier(ctx, r.pool).Query(ctx, query, incidenciaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.IncidenciaID,
			&comment.AuthorID,
			&comment.Content,
			&comment.Internal,
			&comment.CreatedAt,
			&comment.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
