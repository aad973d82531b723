package domain

import "time"

// Attachment stores file metadata for an incidencia. StoragePath is opaque to
// this service; the file itself lives elsewhere.
type Attachment struct {
	ID           string
	IncidenciaID string
	FileName     string
	MimeType     *string
	SizeBytes    *int64
	StoragePath  string
	UploaderID   string
	CreatedAt    time.Time
}
