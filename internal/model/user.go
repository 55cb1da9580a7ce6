package model

import "fmt"

// Role is the authorization level of a user
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
	RoleUser  Role = "user"
)

// ParseRole converts a string into a Role
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleStaff, RoleUser:
		return r, nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// IsStaff reports whether r may run counter operations (staff or admin)
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleStaff
}

// User represents a library account
type User struct {
	BaseModel
	Username     string `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`
	FullName     string `gorm:"type:varchar(128)" json:"fullName"`
	Email        string `gorm:"type:varchar(128)" json:"email"`
	Role         Role   `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	Active       bool   `gorm:"not null" json:"active"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
