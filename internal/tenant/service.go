package tenant

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/hugh/campuschat/internal/auth"
	"github.com/hugh/campuschat/internal/database/models"
	"github.com/hugh/campuschat/internal/tasks"
	"gorm.io/gorm"
)

type Service struct {
	db     *gorm.DB
	logger *slog.Logger
	queue  *asynq.Client // nil when Redis is unavailable
}

func NewService(db *gorm.DB, logger *slog.Logger, queue *asynq.Client) *Service {
	return &Service{db: db, logger: logger, queue: queue}
}

type SelectInput struct {
	TenantID *uuid.UUID
	Name     string
}

// Validate enforces that exactly one selector is supplied. Runs before any
// state mutation.
func (in SelectInput) Validate() error {
	if (in.TenantID != nil) == (strings.TrimSpace(in.Name) != "") {
		return ErrTenantSelector
	}
	return nil
}

// Select switches the user into an existing tenant by id, or creates a new
// tenant by name with the user as its admin. Either way the user's current
// tenant pointer is updated.
func (s *Service) Select(ctx context.Context, userID uuid.UUID, input SelectInput) (*models.Tenant, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	if input.TenantID != nil {
		return s.selectByID(ctx, userID, *input.TenantID)
	}
	return s.createByName(ctx, userID, strings.TrimSpace(input.Name))
}

// setCurrentTenant points the user's current tenant at the given tenant.
func (s *Service) setCurrentTenant(ctx context.Context, db *gorm.DB, userID, tenantID uuid.UUID) error {
	return db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("current_tenant_id", tenantID).Error
}

func (s *Service) selectByID(ctx context.Context, userID, tenantID uuid.UUID) (*models.Tenant, error) {
	var t models.Tenant
	err := s.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", tenantID).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}

	if _, err := s.RequireMembership(ctx, userID, t.ID); err != nil {
		return nil, err
	}

	if err := s.setCurrentTenant(ctx, s.db, userID, t.ID); err != nil {
		return nil, err
	}

	return &t, nil
}

func (s *Service) createByName(ctx context.Context, userID uuid.UUID, name string) (*models.Tenant, error) {
	t := models.Tenant{Name: name}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&t).Error; err != nil {
			return err
		}

		membership := models.Membership{
			TenantID: t.ID,
			UserID:   userID,
			Role:     models.RoleAdmin,
		}
		if err := tx.Create(&membership).Error; err != nil {
			return err
		}

		return s.setCurrentTenant(ctx, tx, userID, t.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tenant created", "tenant_id", t.ID, "name", t.Name, "admin", userID)
	return &t, nil
}

// Delete soft-deletes the user's current tenant. Only an admin may delete,
// and only the tenant they are currently in. Every user pointing at the
// tenant has their current tenant pointer cleared in the same transaction.
func (s *Service) Delete(ctx context.Context, userID, tenantID uuid.UUID) error {
	var t models.Tenant
	if err := s.db.WithContext(ctx).First(&t, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTenantNotFound
		}
		return err
	}

	if t.IsDeleted() {
		return ErrTenantDeleted
	}

	if _, err := s.RequireRole(ctx, userID, t.ID, models.RoleAdmin); err != nil {
		return err
	}

	current, err := s.ResolveCurrentTenant(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrCurrentTenantUnset) {
			return ErrNotCurrentTenant
		}
		return err
	}
	if current.ID != t.ID {
		return ErrNotCurrentTenant
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&models.Tenant{}).
			Where("id = ?", t.ID).
			Update("deleted_at", now).Error; err != nil {
			return err
		}

		// Batch invalidation: every user pointing here, not just the caller.
		return tx.Model(&models.User{}).
			Where("current_tenant_id = ?", t.ID).
			Update("current_tenant_id", nil).Error
	})
	if err != nil {
		return err
	}

	s.logger.Info("tenant deleted", "tenant_id", t.ID, "by", userID)
	return nil
}

type InviteInput struct {
	Email     string
	FirstName string
	LastName  string
	Role      string
}

// Invite adds a user to the caller's current tenant. Unknown emails get a new
// user with a derived username and an unusable credential. Inviting an
// existing member is rejected, not upserted.
func (s *Service) Invite(ctx context.Context, userID uuid.UUID, input InviteInput) (*models.Membership, error) {
	role := input.Role
	if role == "" {
		role = models.RoleStudent
	}
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	t, err := s.ResolveCurrentTenant(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.RequireRole(ctx, userID, t.ID, models.RoleAdmin); err != nil {
		return nil, err
	}

	var membership models.Membership
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invitee models.User
		err := tx.Where("email = ?", input.Email).First(&invitee).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			username, derr := auth.UniqueUsernameFromEmail(ctx, tx, input.Email)
			if derr != nil {
				return derr
			}
			invitee = models.User{
				Username:  username,
				Email:     input.Email,
				FirstName: input.FirstName,
				LastName:  input.LastName,
				// PasswordHash stays empty: unusable until the user sets one.
			}
			if cerr := tx.Create(&invitee).Error; cerr != nil {
				return cerr
			}
		} else if err != nil {
			return err
		}

		var existing models.Membership
		err = tx.Where("tenant_id = ? AND user_id = ?", t.ID, invitee.ID).
			First(&existing).Error
		if err == nil {
			return ErrAlreadyMember
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		membership = models.Membership{
			TenantID: t.ID,
			UserID:   invitee.ID,
			Role:     role,
		}
		if err := tx.Create(&membership).Error; err != nil {
			// Composite PK backs up the application-level check: a
			// concurrent invite for the same pair loses here.
			return ErrAlreadyMember
		}
		membership.User = &invitee
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.enqueueInviteEmail(t, &membership, userID, input.FirstName)

	return &membership, nil
}

func (s *Service) enqueueInviteEmail(t *models.Tenant, m *models.Membership, inviterID uuid.UUID, firstName string) {
	if s.queue == nil {
		return
	}

	task, err := tasks.NewInviteEmailTask(tasks.InviteEmailPayload{
		TenantID:   t.ID,
		TenantName: t.Name,
		UserID:     m.UserID,
		Email:      m.User.Email,
		FirstName:  firstName,
		Role:       m.Role,
		InviterID:  inviterID,
	})
	if err != nil {
		s.logger.Error("failed to build invite email task", "error", err)
		return
	}

	// The membership write is authoritative; a lost email is logged, not
	// surfaced to the caller.
	if _, err := s.queue.Enqueue(task); err != nil {
		s.logger.Error("failed to enqueue invite email", "error", err, "email", m.User.Email)
	}
}

// UpdateMemberRole overwrites the target member's role in the caller's
// current tenant. Nothing stops an admin demoting themself.
func (s *Service) UpdateMemberRole(ctx context.Context, userID, targetUserID uuid.UUID, newRole string) (*models.Membership, error) {
	if !models.ValidRole(newRole) {
		return nil, ErrInvalidRole
	}

	t, err := s.ResolveCurrentTenant(ctx, userID)
	if err != nil {
		return nil, err
	}

	if _, err := s.RequireRole(ctx, userID, t.ID, models.RoleAdmin); err != nil {
		return nil, err
	}

	var m models.Membership
	err = s.db.WithContext(ctx).
		Preload("User").
		Where("tenant_id = ? AND user_id = ?", t.ID, targetUserID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("tenant_id = ? AND user_id = ?", t.ID, targetUserID).
		Update("role", newRole).Error; err != nil {
		return nil, err
	}

	m.Role = newRole
	return &m, nil
}

// ListForUser returns the non-deleted tenants the user belongs to, ordered
// by name for a stable listing.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := s.db.WithContext(ctx).
		Joins("JOIN memberships ON memberships.tenant_id = tenants.id").
		Where("memberships.user_id = ? AND tenants.deleted_at IS NULL", userID).
		Order("tenants.name ASC").
		Find(&tenants).Error
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

type MemberList struct {
	Tenant     *models.Tenant
	ViewerRole string
	Members    []models.Membership
}

// ListMembers returns all memberships of the caller's current tenant. Any
// member may list; the caller's own role is reported as the viewer role.
func (s *Service) ListMembers(ctx context.Context, userID uuid.UUID) (*MemberList, error) {
	t, err := s.ResolveCurrentTenant(ctx, userID)
	if err != nil {
		return nil, err
	}

	viewer, err := s.RequireMembership(ctx, userID, t.ID)
	if err != nil {
		return nil, err
	}

	var members []models.Membership
	err = s.db.WithContext(ctx).
		Preload("User").
		Where("tenant_id = ?", t.ID).
		Order("user_id ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}

	return &MemberList{
		Tenant:     t,
		ViewerRole: viewer.Role,
		Members:    members,
	}, nil
}
