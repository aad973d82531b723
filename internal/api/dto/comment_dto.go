package dto

import "time"

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content  string `json:"content"`
	Internal bool   `json:"internal"`
}

// CommentResponse is the wire representation of a comment.
type CommentResponse struct {
	ID        string     `json:"id"`
	AuthorID  string     `json:"author_id"`
	Content   string     `json:"content"`
	Internal  bool       `json:"internal"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// CreateAttachmentRequest registers attachment metadata.
type CreateAttachmentRequest struct {
	FileName    string  `json:"file_name"`
	MimeType    *string `json:"mime_type,omitempty"`
	SizeBytes   *int64  `json:"size_bytes,omitempty"`
	StoragePath string  `json:"storage_path"`
}

// AttachmentResponse is the wire representation of attachment metadata.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	MimeType   *string   `json:"mime_type,omitempty"`
	SizeBytes  *int64    `json:"size_bytes,omitempty"`
	UploaderID string    `json:"uploader_id"`
	CreatedAt  time.Time `json:"created_at"`
}
