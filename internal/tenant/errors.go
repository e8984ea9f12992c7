package tenant

import "errors"

var (
	// Not-found class
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrCurrentTenantUnset = errors.New("current tenant not set")
	ErrMembershipNotFound = errors.New("membership not found")

	// Permission-denied class
	ErrNotAMember       = errors.New("user does not belong to this tenant")
	ErrInsufficientRole = errors.New("insufficient permission")
	ErrNotCurrentTenant = errors.New("tenant is not the current tenant")

	// Validation class
	ErrTenantSelector = errors.New("provide exactly one of tenant_id or name")
	ErrInvalidRole    = errors.New("invalid role")

	// Conflict class
	ErrTenantDeleted = errors.New("tenant already deleted")
	ErrAlreadyMember = errors.New("user is already a member of this tenant")
)
