package models

import "github.com/google/uuid"

type User struct {
	Base
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name"`

	// Empty hash marks an unusable credential: invited users cannot log in
	// by password until they set one.
	PasswordHash string `json:"-"`

	// Weak reference to the tenant the user is currently operating in.
	// Re-validated lazily on every tenant-scoped operation.
	CurrentTenantID *uuid.UUID `gorm:"type:uuid;index" json:"current_tenant_id"`

	// Relationships
	CurrentTenant *Tenant `gorm:"foreignKey:CurrentTenantID" json:"current_tenant,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// HasUsablePassword reports whether the user can authenticate by password.
func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != ""
}
