package document

import (
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/core/common/validation"
	"github.com/google/uuid"
)

// UploadDTO is the non-file part of the multipart upload form.
type UploadDTO struct {
	UserID   string
	FileName string
}

func (d UploadDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("user_id", d.UserID).Required().Custom(func(interface{}) *internal.AppError {
		if _, err := uuid.Parse(d.UserID); err != nil {
			return internal.NewValidationFieldError("user_id", "user_id must be a valid UUID", internal.ErrCodeValidationFailed)
		}
		return nil
	})
	v.Field("file", d.FileName).Required().MaxLength(255)
	return v.Validate()
}

type DocumentResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	FileName   string    `json:"file_name"`
	FileType   string    `json:"file_type"`
	FileURL    string    `json:"file_url"`
	SizeBytes  int64     `json:"size_bytes"`
	UploadedBy string    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type DocumentsResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

func ToResponse(d *Document) DocumentResponse {
	return DocumentResponse{
		ID:         d.ID,
		UserID:     d.OwnerID,
		FileName:   d.FileName,
		FileType:   d.FileType,
		FileURL:    d.FileURL,
		SizeBytes:  d.SizeBytes,
		UploadedBy: d.UploadedBy,
		CreatedAt:  d.CreatedAt,
	}
}

func ToListResponse(rows []*Document) DocumentsResponse {
	out := DocumentsResponse{Documents: make([]DocumentResponse, len(rows))}
	for i, d := range rows {
		out.Documents[i] = ToResponse(d)
	}
	return out
}
