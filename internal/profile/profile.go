package profile

import (
	"time"

	"github.com/frahmantamala/employee-management/internal"
	profileDatamodel "github.com/frahmantamala/employee-management/internal/core/datamodel/profile"
)

// Profile is an employee record together with the one role it holds.
type Profile struct {
	ID            string
	Email         string
	FullName      string
	Phone         *string
	DateOfBirth   *time.Time
	ProfilePicURL *string
	PasswordHash  string
	Role          internal.Role
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func ToDataModel(p *Profile) *profileDatamodel.Profile {
	return &profileDatamodel.Profile{
		ID:            p.ID,
		Email:         p.Email,
		FullName:      p.FullName,
		Phone:         p.Phone,
		DateOfBirth:   p.DateOfBirth,
		ProfilePicURL: p.ProfilePicURL,
		PasswordHash:  p.PasswordHash,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func FromDataModel(m *profileDatamodel.ProfileWithRole) *Profile {
	role := internal.Role(m.Role)
	if !role.Valid() {
		role = internal.RoleEmployee
	}
	return &Profile{
		ID:            m.ID,
		Email:         m.Email,
		FullName:      m.FullName,
		Phone:         m.Phone,
		DateOfBirth:   m.DateOfBirth,
		ProfilePicURL: m.ProfilePicURL,
		PasswordHash:  m.PasswordHash,
		Role:          role,
		IsActive:      m.IsActive,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*profileDatamodel.ProfileWithRole) []*Profile {
	out := make([]*Profile, len(rows))
	for i, r := range rows {
		out[i] = FromDataModel(r)
	}
	return out
}
