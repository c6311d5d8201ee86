package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	profileDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/profile"
	"github.com/frahmantamala/employee-management/internal/profile"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const uniqueViolation = "23505"

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) profile.Repository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) withRole(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("profiles").
		Select("profiles.*, COALESCE(user_roles.role, '') AS role").
		Joins("LEFT JOIN user_roles ON user_roles.user_id = profiles.id")
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*profileDatamodel.ProfileWithRole, error) {
	var rows []*profileDatamodel.ProfileWithRole
	if err := r.withRole(ctx).Where("profiles.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, internal.ErrProfileNotFound
	}
	return rows[0], nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]*profileDatamodel.ProfileWithRole, error) {
	var rows []*profileDatamodel.ProfileWithRole
	err := r.withRole(ctx).Order("profiles.full_name ASC").Scan(&rows).Error
	return rows, err
}

func (r *ProfileRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&profileDatamodel.Profile{}).
		Where("LOWER(email) = LOWER(?)", email).
		Count(&count).Error
	return count > 0, err
}

func (r *ProfileRepository) Create(ctx context.Context, p *profileDatamodel.Profile, role *profileDatamodel.UserRole) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return tx.Create(role).Error
	})
	if isUniqueViolation(err) {
		return internal.ErrEmailTaken
	}
	return err
}

func (r *ProfileRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&profileDatamodel.Profile{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrProfileNotFound
	}
	return nil
}

// SetRole replaces the user's single role row.
func (r *ProfileRepository) SetRole(ctx context.Context, userID string, role string) error {
	res := r.db.WithContext(ctx).
		Model(&profileDatamodel.UserRole{}).
		Where("user_id = ?", userID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&profileDatamodel.UserRole{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}).Error
}

func (r *ProfileRepository) DisplayNames(ctx context.Context, ids []string) (map[string]string, error) {
	var rows []struct {
		ID       string
		FullName string
	}
	err := r.db.WithContext(ctx).
		Model(&profileDatamodel.Profile{}).
		Select("id, full_name").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(rows))
	for _, row := range rows {
		if row.FullName != "" {
			names[row.ID] = row.FullName
		}
	}
	return names, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
