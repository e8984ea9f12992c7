package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hugh/campuschat/internal/database/models"
	"gorm.io/gorm"
)

// ResolveCurrentTenant returns the tenant the user is currently operating in.
// A pointer at a soft-deleted tenant is repaired here: the pointer is cleared
// and the call fails with ErrCurrentTenantUnset, same as a null pointer. The
// repair is idempotent, so every tenant-scoped operation can call this first.
func (s *Service) ResolveCurrentTenant(ctx context.Context, userID uuid.UUID) (*models.Tenant, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return nil, err
	}

	if user.CurrentTenantID == nil {
		return nil, ErrCurrentTenantUnset
	}

	var t models.Tenant
	err := s.db.WithContext(ctx).First(&t, *user.CurrentTenantID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) || t.IsDeleted() {
		if err := s.db.WithContext(ctx).
			Model(&models.User{}).
			Where("id = ?", userID).
			Update("current_tenant_id", nil).Error; err != nil {
			return nil, err
		}
		return nil, ErrCurrentTenantUnset
	}

	return &t, nil
}

// RequireMembership returns the user's membership in the tenant, or
// ErrNotAMember when no row exists.
func (s *Service) RequireMembership(ctx context.Context, userID, tenantID uuid.UUID) (*models.Membership, error) {
	var m models.Membership
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAMember
		}
		return nil, err
	}
	return &m, nil
}

// RequireRole checks membership and compares the role by exact equality.
// Roles are flat: admin does not satisfy a faculty check.
func (s *Service) RequireRole(ctx context.Context, userID, tenantID uuid.UUID, role string) (*models.Membership, error) {
	m, err := s.RequireMembership(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	if m.Role != role {
		return nil, ErrInsufficientRole
	}
	return m, nil
}
