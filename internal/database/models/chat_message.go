package models

import "github.com/google/uuid"

// Chat message roles.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is an append-only record of one turn in a tenant-scoped
// conversation. User turns are written before the completion call; assistant
// turns only after the stream completed in full.
type ChatMessage struct {
	Base
	TenantID uuid.UUID `gorm:"type:uuid;index;not null" json:"tenant_id"`
	UserID   uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Role     string    `gorm:"not null" json:"role"`
	Content  string    `gorm:"not null" json:"content"`

	// Relationships
	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
