package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/campuschat/internal/database/models"
	"github.com/hugh/campuschat/internal/metrics"
	"github.com/hugh/campuschat/internal/tenant"
	"gorm.io/gorm"
)

var (
	ErrEmptyMessage  = errors.New("message must not be empty")
	ErrNotConfigured = errors.New("chat service not configured")
	ErrUpstream      = errors.New("completion stream failed")
)

// Sink is the caller-facing output channel: append-only, no retraction.
// A Send error means the caller is gone and the stream must abort.
type Sink interface {
	Send(token string) error
}

// Relay drives one chat turn: authorize, persist the user turn, pull tokens
// from the completion source while pushing them to the sink, then persist the
// assistant turn only when the source was exhausted normally.
type Relay struct {
	db      *gorm.DB
	tenants *tenant.Service
	source  Source
	logger  *slog.Logger
}

func NewRelay(db *gorm.DB, tenants *tenant.Service, source Source, logger *slog.Logger) *Relay {
	return &Relay{db: db, tenants: tenants, source: source, logger: logger}
}

// Respond handles a single chat turn for the user's current tenant. All
// roles may chat. The user's message is durable before the upstream call
// starts; the assistant message is written only after normal exhaustion of
// the stream, never for a partial one.
func (r *Relay) Respond(ctx context.Context, userID uuid.UUID, message string, sink Sink) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}

	// Fail before any persistence when the provider cannot be called.
	if !r.source.Configured() {
		return ErrNotConfigured
	}

	t, err := r.tenants.ResolveCurrentTenant(ctx, userID)
	if err != nil {
		return err
	}
	if _, err := r.tenants.RequireMembership(ctx, userID, t.ID); err != nil {
		return err
	}

	userTurn := models.ChatMessage{
		TenantID: t.ID,
		UserID:   userID,
		Role:     models.ChatRoleUser,
		Content:  message,
	}
	if err := r.db.WithContext(ctx).Create(&userTurn).Error; err != nil {
		return err
	}

	stream, err := r.source.Stream(ctx, message)
	if err != nil {
		metrics.ChatStreams.WithLabelValues("aborted").Inc()
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer stream.Close()

	var acc strings.Builder
	var streamErr error
	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			streamErr = err
			break
		}

		// Forward first: the caller sees tokens as they arrive. Once sent
		// they cannot be recalled, even if the stream aborts later.
		if err := sink.Send(token); err != nil {
			streamErr = err
			break
		}
		acc.WriteString(token)
		metrics.ChatTokensStreamed.Inc()
	}

	return r.finalize(ctx, t.ID, userID, acc.String(), streamErr)
}

// finalize is the single terminal transition: persist the full reply on
// COMPLETE, discard the partial accumulator on ABORT.
func (r *Relay) finalize(ctx context.Context, tenantID, userID uuid.UUID, accumulated string, streamErr error) error {
	if streamErr != nil {
		metrics.ChatStreams.WithLabelValues("aborted").Inc()
		r.logger.Warn("chat stream aborted",
			"tenant_id", tenantID,
			"user_id", userID,
			"discarded_bytes", len(accumulated),
			"error", streamErr,
		)
		return fmt.Errorf("%w: %v", ErrUpstream, streamErr)
	}

	reply := strings.TrimSpace(accumulated)
	if reply == "" {
		metrics.ChatStreams.WithLabelValues("empty").Inc()
		return nil
	}

	assistantTurn := models.ChatMessage{
		TenantID: tenantID,
		UserID:   userID,
		Role:     models.ChatRoleAssistant,
		Content:  reply,
	}
	if err := r.db.WithContext(ctx).Create(&assistantTurn).Error; err != nil {
		return err
	}

	metrics.ChatStreams.WithLabelValues("completed").Inc()
	return nil
}
