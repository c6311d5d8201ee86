package profile

import (
	"strings"
	"time"

	"github.com/frahmantamala/employee-management/internal"
	"github.com/frahmantamala/employee-management/internal/core/common/validation"
)

type UpdateProfileDTO struct {
	FullName    *string `json:"full_name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	DateOfBirth *string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (d UpdateProfileDTO) Validate() *internal.AppError {
	return validation.Struct(d)
}

type CreateEmployeeDTO struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8,max=72"`
	FullName    string  `json:"full_name" validate:"required,min=2,max=100"`
	Role        string  `json:"role" validate:"required,oneof=admin hr employee"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	DateOfBirth *string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (d *CreateEmployeeDTO) Validate() *internal.AppError {
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.FullName = strings.TrimSpace(d.FullName)
	return validation.Struct(d)
}

// RegisterDTO is the self-service signup body. There is no role field; new
// accounts are always employees.
type RegisterDTO struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	FullName    string  `json:"full_name"`
	Phone       *string `json:"phone,omitempty"`
	DateOfBirth *string `json:"date_of_birth,omitempty"`
}

func (d RegisterDTO) toCreate() CreateEmployeeDTO {
	return CreateEmployeeDTO{
		Email:       d.Email,
		Password:    d.Password,
		FullName:    d.FullName,
		Role:        string(internal.RoleEmployee),
		Phone:       d.Phone,
		DateOfBirth: d.DateOfBirth,
	}
}

type UpdateEmployeeDTO struct {
	FullName    *string `json:"full_name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,max=30"`
	DateOfBirth *string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Role        *string `json:"role,omitempty" validate:"omitempty,oneof=admin hr employee"`
}

func (d UpdateEmployeeDTO) Validate() *internal.AppError {
	return validation.Struct(d)
}

// fieldUpdates turns the optional fields into a column map. An empty phone clears it.
func fieldUpdates(fullName, phone, dateOfBirth *string) map[string]interface{} {
	updates := map[string]interface{}{}
	if fullName != nil && strings.TrimSpace(*fullName) != "" {
		updates["full_name"] = strings.TrimSpace(*fullName)
	}
	if phone != nil {
		if p := strings.TrimSpace(*phone); p == "" {
			updates["phone"] = nil
		} else {
			updates["phone"] = p
		}
	}
	if dateOfBirth != nil {
		if dob, err := validation.ParseDate(*dateOfBirth); err == nil {
			updates["date_of_birth"] = dob
		}
	}
	return updates
}

type ProfileResponse struct {
	ID            string        `json:"id"`
	Email         string        `json:"email"`
	FullName      string        `json:"full_name"`
	Phone         *string       `json:"phone"`
	DateOfBirth   *string       `json:"date_of_birth"`
	ProfilePicURL *string       `json:"profile_pic_url"`
	Role          internal.Role `json:"role"`
	IsActive      bool          `json:"is_active"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type EmployeesResponse struct {
	Employees []ProfileResponse `json:"employees"`
}

func ToResponse(p *Profile) ProfileResponse {
	var dob *string
	if p.DateOfBirth != nil {
		s := p.DateOfBirth.Format(validation.DateLayout)
		dob = &s
	}
	return ProfileResponse{
		ID:            p.ID,
		Email:         p.Email,
		FullName:      p.FullName,
		Phone:         p.Phone,
		DateOfBirth:   dob,
		ProfilePicURL: p.ProfilePicURL,
		Role:          p.Role,
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func ToEmployeesResponse(rows []*Profile) EmployeesResponse {
	out := EmployeesResponse{Employees: make([]ProfileResponse, len(rows))}
	for i, p := range rows {
		out.Employees[i] = ToResponse(p)
	}
	return out
}
