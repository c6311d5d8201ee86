package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/employee-management/internal"
	documentDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/document"
	"github.com/frahmantamala/employee-management/internal/document"
	"gorm.io/gorm"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) document.Repository {
	return &DocumentRepository{db: db}
}

// Create stores d. An owner without a profile yields ErrProfileNotFound.
func (r *DocumentRepository) Create(ctx context.Context, d *documentDatamodel.Document) error {
	err := r.db.WithContext(ctx).Create(d).Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return internal.ErrProfileNotFound
	}
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*documentDatamodel.Document, error) {
	var d documentDatamodel.Document
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrDocumentNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]*documentDatamodel.Document, error) {
	var rows []*documentDatamodel.Document
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *DocumentRepository) ListAll(ctx context.Context) ([]*documentDatamodel.Document, error) {
	var rows []*documentDatamodel.Document
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error
	return rows, err
}
