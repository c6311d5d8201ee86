package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/auth"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

const credentialsQuery = `SELECT p.id, p.email, p.password_hash, p.is_active, COALESCE(ur.role, '')
	FROM profiles p
	LEFT JOIN user_roles ur ON ur.user_id = p.id`

func (r *Repository) scan(ctx context.Context, where string, arg interface{}) (*auth.Credentials, error) {
	var (
		c    auth.Credentials
		role string
	)
	row := r.db.WithContext(ctx).Raw(credentialsQuery+" WHERE "+where, arg).Row()
	if err := row.Scan(&c.UserID, &c.Email, &c.PasswordHash, &c.IsActive, &role); err != nil {
		return nil, err
	}
	c.Role = internal.Role(role)
	return &c, nil
}

func (r *Repository) GetCredentialsByEmail(ctx context.Context, email string) (*auth.Credentials, error) {
	c, err := r.scan(ctx, "LOWER(p.email) = LOWER(?)", email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrInvalidCredentials
		}
		return nil, err
	}
	return c, nil
}

func (r *Repository) GetSessionUser(ctx context.Context, userID string) (*auth.Credentials, error) {
	c, err := r.scan(ctx, "p.id = ?", userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal.ErrInvalidToken
		}
		return nil, err
	}
	return c, nil
}
