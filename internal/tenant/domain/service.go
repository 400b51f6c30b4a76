package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ResolveRequest carries the request attributes tenancy is derived from.
type ResolveRequest struct {
	// Host is the value of the HTTP Host header.
	Host string
	// TenantHeader is the explicit tenant-identifier header value, if any.
	TenantHeader string
	// BearerToken is the raw bearer token, if the request carried one.
	BearerToken string
}

// Resolution is the outcome of tenant resolution. A nil Tenant means
// the central admin context; that is a valid outcome, not an error.
type Resolution struct {
	Tenant *Tenant
	// DB is the tenant's data store handle, established as part of
	// resolution. Nil in the central context.
	DB *gorm.DB
}

// Central reports whether the request runs in the central context.
func (r Resolution) Central() bool { return r.Tenant == nil }

type Service interface {
	// Resolve determines the tenant context for a request.
	Resolve(ctx context.Context, req ResolveRequest) (Resolution, error)

	// Signup registers a new tenant in pending state.
	Signup(ctx context.Context, req SignupRequest) (*Tenant, error)

	// UpdateStatus applies an admin-triggered status change.
	UpdateStatus(ctx context.Context, id string, status Status) (*Tenant, error)

	// MarkProvisioned records the outcome of database provisioning.
	MarkProvisioned(ctx context.Context, id string, outcome ProvisioningStatus) (*Tenant, error)
}

type SignupRequest struct {
	Subdomain string `json:"subdomain"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

var (
	// ErrTenantNotFound covers both unknown identifiers and tenants
	// that are not in active status.
	ErrTenantNotFound = errors.New("tenant_not_found")
	// ErrSubscriptionExpired means the tenant has no currently valid
	// subscription.
	ErrSubscriptionExpired = errors.New("subscription_expired")
	// ErrProvisioningPending means the tenant's data store is not ready.
	ErrProvisioningPending = errors.New("provisioning_pending")

	ErrInvalidSubdomain = errors.New("invalid_subdomain")
	ErrSubdomainTaken   = errors.New("subdomain_taken")
	ErrInvalidTenantID  = errors.New("invalid_tenant_id")
	ErrInvalidStatus    = errors.New("invalid_status")
)
