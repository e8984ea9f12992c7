package tasks

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeInviteEmail = "email:invite"
)

// InviteEmailPayload contains the data for an invitation email task.
type InviteEmailPayload struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	TenantName string    `json:"tenant_name"`
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	Role       string    `json:"role"`
	InviterID  uuid.UUID `json:"inviter_id"`
}

func NewInviteEmailTask(payload InviteEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeInviteEmail, data, asynq.Queue("mail")), nil
}
