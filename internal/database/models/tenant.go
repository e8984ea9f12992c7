package models

import (
	"time"

	"github.com/google/uuid"
)

// Membership roles. Flat, no hierarchy: an admin does not implicitly
// satisfy a faculty check.
const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
)

// ValidRole reports whether role is one of the known membership roles.
func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleFaculty || role == RoleAdmin
}

type Tenant struct {
	Base
	Name string `gorm:"not null" json:"name"`

	// Soft-delete marker. Kept as a plain column rather than gorm.DeletedAt
	// so visibility rules stay explicit in query logic.
	DeletedAt *time.Time `gorm:"index" json:"deleted_at"`

	// Relationships
	Memberships  []Membership  `gorm:"foreignKey:TenantID" json:"-"`
	ChatMessages []ChatMessage `gorm:"foreignKey:TenantID" json:"-"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// IsDeleted reports whether the tenant has been soft-deleted.
func (t *Tenant) IsDeleted() bool {
	return t.DeletedAt != nil
}

type Membership struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey" json:"tenant_id"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Role      string    `gorm:"not null;default:'student'" json:"role"`
	CreatedAt time.Time `json:"created_at"`

	// Relationships
	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Membership) TableName() string {
	return "memberships"
}
