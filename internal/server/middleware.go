package server

import (
	"strings"

	"github.com/gin-gonic/gin"
	tenantdomain "github.com/workstack/hrsuite/internal/tenant/domain"
	"github.com/workstack/hrsuite/internal/tenantctx"
	"gorm.io/gorm"
)

const (
	// HeaderTenant explicitly names the tenant, overriding the host.
	HeaderTenant = "X-Tenant-ID"

	sessionCookieName = "hrsuite_session"

	contextTenantSubdomainKey = "tenant_subdomain"
	contextTenantDBKey        = "tenant_db"
)

// TenantContext resolves the tenant for each request and stores it in
// the request context. Central requests pass through unmarked.
func (s *Server) TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		resolution, err := s.tenantSvc.Resolve(c.Request.Context(), tenantdomain.ResolveRequest{
			Host:         c.Request.Host,
			TenantHeader: c.GetHeader(HeaderTenant),
			BearerToken:  bearerToken(c.GetHeader("Authorization")),
		})
		if err != nil {
			AbortWithError(c, err)
			return
		}

		scope := "central"
		if !resolution.Central() {
			tenant := resolution.Tenant
			scope = tenant.Subdomain

			ctx := tenantctx.WithTenant(c.Request.Context(), tenant.ID, tenant.Subdomain)
			c.Request = c.Request.WithContext(ctx)
			c.Set(contextTenantSubdomainKey, tenant.Subdomain)
			c.Set(contextTenantDBKey, resolution.DB)
		}

		// A session carried across scopes is dropped rather than
		// reinterpreted in the new one.
		if s.sessions != nil {
			if sid, err := c.Cookie(sessionCookieName); err == nil && strings.TrimSpace(sid) != "" {
				s.sessions.EnsureScope(c.Request.Context(), sid, scope)
			}
		}

		c.Next()
	}
}

// RequireModule gates a route group behind module access for the
// request's context.
func (s *Server) RequireModule(module string) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := s.gate.Check(c.Request.Context(), module)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !decision.Allowed {
			AbortWithError(c, &ModuleAccessError{Reason: decision.Reason})
			return
		}
		c.Next()
	}
}

// TenantDB returns the tenant's data store handle established by
// TenantContext. Nil in the central context. Downstream handlers use
// this instead of the central connection for tenant-scoped data.
func TenantDB(c *gin.Context) *gorm.DB {
	if v, ok := c.Get(contextTenantDBKey); ok {
		if handle, ok := v.(*gorm.DB); ok {
			return handle
		}
	}
	return nil
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
