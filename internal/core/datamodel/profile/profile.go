package profile

import "time"

type Profile struct {
	ID            string     `gorm:"column:id;primaryKey;type:uuid"`
	Email         string     `gorm:"column:email;uniqueIndex;not null"`
	FullName      string     `gorm:"column:full_name;not null"`
	Phone         *string    `gorm:"column:phone"`
	DateOfBirth   *time.Time `gorm:"column:date_of_birth;type:date"`
	ProfilePicURL *string    `gorm:"column:profile_pic_url"`
	PasswordHash  string     `gorm:"column:password_hash;not null"`
	IsActive      bool       `gorm:"column:is_active;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

type UserRole struct {
	ID        string    `gorm:"column:id;primaryKey;type:uuid"`
	UserID    string    `gorm:"column:user_id;type:uuid;uniqueIndex;not null"`
	Role      string    `gorm:"column:role;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

// ProfileWithRole is the read shape for the employee directory.
type ProfileWithRole struct {
	Profile `gorm:"embedded"`
	Role    string `gorm:"column:role"`
}
