// Package tenantctx carries the resolved tenant through a request's
// context. Absence of a tenant means the central admin context.
package tenantctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type tenantKey struct{}

// Identity is the request-scoped view of a resolved tenant.
type Identity struct {
	ID        snowflake.ID
	Subdomain string
}

// WithTenant stores the resolved tenant identity in the context.
func WithTenant(ctx context.Context, id snowflake.ID, subdomain string) context.Context {
	return context.WithValue(ctx, tenantKey{}, Identity{ID: id, Subdomain: subdomain})
}

// FromContext returns the tenant identity, if a tenant was resolved.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	identity, ok := ctx.Value(tenantKey{}).(Identity)
	if !ok || identity.ID == 0 {
		return Identity{}, false
	}
	return identity, true
}

// TenantID returns the tenant ID from context, or 0 for central context.
func TenantID(ctx context.Context) snowflake.ID {
	identity, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return identity.ID
}
