package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus360/incidencias-service/internal/domain"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	ListByIncidencia(ctx context.Context, incidenciaID string) ([]domain.Attachment, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO attachments (incidencia_id, file_name, mime_type, size_bytes, storage_path, uploader_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		attachment.IncidenciaID,
		attachment.FileName,
		attachment.MimeType,
		attachment.SizeBytes,
		attachment.StoragePath,
		attachment.UploaderID,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) ListByIncidencia(ctx context.Context, incidenciaID string) ([]domain.Attachment, error) {
	const query = `
        SELECT id, incidencia_id, file_name, mime_type, size_bytes, storage_path, uploader_id, created_at
        FROM attachments WHERE incidencia_id=$1 ORDER BY created_at ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query, incidenciaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.IncidenciaID,
			&attachment.FileName,
			&attachment.MimeType,
			&attachment.SizeBytes,
			&attachment.StoragePath,
			&attachment.UploaderID,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}
