package document

import (
	"time"

	"github.com/frahmantamala/employee-management/internal"
	documentDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/document"
)

// Document is a file an admin stored on behalf of an employee.
type Document struct {
	ID         string
	OwnerID    string
	FileName   string
	FileType   string
	FileURL    string
	StorageKey string
	SizeBytes  int64
	UploadedBy string
	CreatedAt  time.Time
}

// DownloadPath is where clients fetch the content; files are never served
// from storage directly.
func DownloadPath(id string) string {
	return "/api/v1/documents/" + id + "/download"
}

// CanBeReadBy reports whether the session may see or download the document:
// its owner, or any admin/hr.
func (d *Document) CanBeReadBy(session internal.Session) bool {
	return session.IsReviewer() || d.OwnerID == session.UserID
}

func ToDataModel(d *Document) *documentDatamodel.Document {
	return &documentDatamodel.Document{
		ID:         d.ID,
		UserID:     d.OwnerID,
		FileName:   d.FileName,
		FileType:   d.FileType,
		FileURL:    d.FileURL,
		StorageKey: d.StorageKey,
		SizeBytes:  d.SizeBytes,
		UploadedBy: d.UploadedBy,
		CreatedAt:  d.CreatedAt,
	}
}

func FromDataModel(m *documentDatamodel.Document) *Document {
	return &Document{
		ID:         m.ID,
		OwnerID:    m.UserID,
		FileName:   m.FileName,
		FileType:   m.FileType,
		FileURL:    m.FileURL,
		StorageKey: m.StorageKey,
		SizeBytes:  m.SizeBytes,
		UploadedBy: m.UploadedBy,
		CreatedAt:  m.CreatedAt,
	}
}

func FromDataModelSlice(rows []*documentDatamodel.Document) []*Document {
	out := make([]*Document, len(rows))
	for i, m := range rows {
		out[i] = FromDataModel(m)
	}
	return out
}
