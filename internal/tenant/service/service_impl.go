package service

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/workstack/hrsuite/internal/cache"
	"github.com/workstack/hrsuite/internal/clock"
	"github.com/workstack/hrsuite/internal/config"
	subscriptiondomain "github.com/workstack/hrsuite/internal/subscription/domain"
	tenantdomain "github.com/workstack/hrsuite/internal/tenant/domain"
	"github.com/workstack/hrsuite/internal/tenantdb"
	"github.com/workstack/hrsuite/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const resolveCacheTTL = 30 * time.Second

// tenantClaim is the JWT claim carrying the tenant subdomain.
const tenantClaim = "tenant"

var subdomainRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// reservedSubdomains never resolve to a tenant.
var reservedSubdomains = map[string]struct{}{
	"www":     {},
	"admin":   {},
	"api":     {},
	"app":     {},
	"mail":    {},
	"central": {},
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	cfg     config.Config
	genID   *snowflake.Node
	clock   clock.Clock
	handles *tenantdb.Manager
	cache   cache.Cache[string, *tenantdomain.Tenant]

	repo             tenantdomain.Repository
	subscriptionRepo subscriptiondomain.Repository
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Cfg     config.Config
	GenID   *snowflake.Node
	Clock   clock.Clock
	Handles *tenantdb.Manager

	Repo             tenantdomain.Repository
	SubscriptionRepo subscriptiondomain.Repository
}

func NewService(p ServiceParam) tenantdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("tenant.service"),

		cfg:     p.Cfg,
		genID:   p.GenID,
		clock:   p.Clock,
		handles: p.Handles,
		cache:   cache.NewTTLCache[string, *tenantdomain.Tenant](),

		repo:             p.Repo,
		subscriptionRepo: p.SubscriptionRepo,
	}
}

// Resolve implements domain.Service. Identification sources are tried
// in priority order: explicit header, token claim, then host. The
// central context is the fallback, never an error.
func (s *Service) Resolve(ctx context.Context, req tenantdomain.ResolveRequest) (tenantdomain.Resolution, error) {
	if subdomain := normalizeSubdomain(req.TenantHeader); subdomain != "" {
		tenant, err := s.findBySubdomain(ctx, subdomain)
		if err != nil {
			return tenantdomain.Resolution{}, err
		}
		if tenant == nil {
			return tenantdomain.Resolution{}, tenantdomain.ErrTenantNotFound
		}
		return s.admit(ctx, tenant)
	}

	if subdomain := s.subdomainFromToken(req.BearerToken); subdomain != "" {
		tenant, err := s.findBySubdomain(ctx, subdomain)
		if err != nil {
			return tenantdomain.Resolution{}, err
		}
		if tenant == nil {
			return tenantdomain.Resolution{}, tenantdomain.ErrTenantNotFound
		}
		return s.admit(ctx, tenant)
	}

	return s.resolveHost(ctx, req.Host)
}

func (s *Service) resolveHost(ctx context.Context, rawHost string) (tenantdomain.Resolution, error) {
	host := normalizeHost(rawHost)
	base := strings.ToLower(s.cfg.BaseDomain)
	if host == "" || host == base {
		return tenantdomain.Resolution{}, nil
	}

	if label, ok := strings.CutSuffix(host, "."+base); ok {
		subdomain := normalizeSubdomain(label)
		// Empty, reserved and purely numeric labels are not tenant
		// subdomains; those hosts run in the central context.
		if subdomain == "" || numericLabel(subdomain) {
			return tenantdomain.Resolution{}, nil
		}
		if _, reserved := reservedSubdomains[subdomain]; reserved {
			return tenantdomain.Resolution{}, nil
		}

		tenant, err := s.findBySubdomain(ctx, subdomain)
		if err != nil {
			return tenantdomain.Resolution{}, err
		}
		if tenant == nil {
			// The host may be a custom domain that happens to sit
			// under the base domain.
			tenant, err = s.findByCustomDomain(ctx, host)
			if err != nil {
				return tenantdomain.Resolution{}, err
			}
		}
		if tenant == nil {
			return tenantdomain.Resolution{}, tenantdomain.ErrTenantNotFound
		}
		return s.admit(ctx, tenant)
	}

	// Host outside the base domain: a mapped custom domain resolves to
	// its tenant, anything else is the central context.
	tenant, err := s.findByCustomDomain(ctx, host)
	if err != nil {
		return tenantdomain.Resolution{}, err
	}
	if tenant == nil {
		return tenantdomain.Resolution{}, nil
	}
	return s.admit(ctx, tenant)
}

// admit runs the gate checks on an identified tenant and opens its
// data store handle.
func (s *Service) admit(ctx context.Context, tenant *tenantdomain.Tenant) (tenantdomain.Resolution, error) {
	if tenant.Status != tenantdomain.StatusActive {
		// Non-active tenants are indistinguishable from unknown ones.
		return tenantdomain.Resolution{}, tenantdomain.ErrTenantNotFound
	}

	subscription, err := s.subscriptionRepo.FindLiveByTenantID(ctx, s.db, tenant.ID)
	if err != nil {
		return tenantdomain.Resolution{}, err
	}
	if subscription == nil || !subscription.ValidAt(s.clock.Now()) {
		return tenantdomain.Resolution{}, tenantdomain.ErrSubscriptionExpired
	}

	if tenant.ProvisioningStatus != tenantdomain.ProvisioningProvisioned {
		return tenantdomain.Resolution{}, tenantdomain.ErrProvisioningPending
	}

	handle, err := s.handles.Get(ctx, tenant.DatabaseName)
	if err != nil {
		return tenantdomain.Resolution{}, err
	}

	return tenantdomain.Resolution{Tenant: tenant, DB: handle}, nil
}

func (s *Service) findBySubdomain(ctx context.Context, subdomain string) (*tenantdomain.Tenant, error) {
	key := "subdomain:" + subdomain
	if tenant, ok := s.cache.Get(key); ok {
		return tenant, nil
	}

	tenant, err := s.repo.FindBySubdomain(ctx, s.db, subdomain)
	if err != nil {
		return nil, err
	}
	if tenant != nil {
		s.cache.Set(key, tenant, resolveCacheTTL)
	}
	return tenant, nil
}

func (s *Service) findByCustomDomain(ctx context.Context, host string) (*tenantdomain.Tenant, error) {
	key := "domain:" + host
	if tenant, ok := s.cache.Get(key); ok {
		return tenant, nil
	}

	tenant, err := s.repo.FindByCustomDomain(ctx, s.db, host)
	if err != nil {
		return nil, err
	}
	if tenant != nil {
		s.cache.Set(key, tenant, resolveCacheTTL)
	}
	return tenant, nil
}

// subdomainFromToken extracts the tenant claim from a bearer token.
// Invalid tokens fall through to host resolution; authentication is
// enforced elsewhere.
func (s *Service) subdomainFromToken(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || s.cfg.AuthJWTSecret == "" {
		return ""
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.AuthJWTSecret), nil
	})
	if err != nil || !token.Valid {
		return ""
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	subdomain, _ := claims[tenantClaim].(string)
	return normalizeSubdomain(subdomain)
}

// Signup implements domain.Service.
func (s *Service) Signup(ctx context.Context, req tenantdomain.SignupRequest) (*tenantdomain.Tenant, error) {
	subdomain := normalizeSubdomain(req.Subdomain)
	if !validSubdomain(subdomain) {
		return nil, tenantdomain.ErrInvalidSubdomain
	}

	existing, err := s.repo.FindBySubdomain(ctx, s.db, subdomain)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, tenantdomain.ErrSubdomainTaken
	}

	now := s.clock.Now()
	tenant := &tenantdomain.Tenant{
		ID:                 s.genID.Generate(),
		Subdomain:          subdomain,
		Name:               strings.TrimSpace(req.Name),
		Email:              strings.ToLower(strings.TrimSpace(req.Email)),
		Status:             tenantdomain.StatusPending,
		DatabaseName:       databaseName(subdomain),
		ProvisioningStatus: tenantdomain.ProvisioningPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repo.Insert(ctx, s.db, tenant); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, tenantdomain.ErrSubdomainTaken
		}
		return nil, err
	}

	s.log.Info("tenant signed up",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("subdomain", tenant.Subdomain),
	)
	return tenant, nil
}

// UpdateStatus implements domain.Service.
func (s *Service) UpdateStatus(ctx context.Context, id string, status tenantdomain.Status) (*tenantdomain.Tenant, error) {
	if _, ok := tenantdomain.ParseStatus(string(status)); !ok {
		return nil, tenantdomain.ErrInvalidStatus
	}

	tenant, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, s.db, tenant.ID, status); err != nil {
		return nil, err
	}
	tenant.Status = status
	s.invalidate(tenant)

	s.log.Info("tenant status updated",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("status", string(status)),
	)
	return tenant, nil
}

// MarkProvisioned implements domain.Service.
func (s *Service) MarkProvisioned(ctx context.Context, id string, outcome tenantdomain.ProvisioningStatus) (*tenantdomain.Tenant, error) {
	if outcome != tenantdomain.ProvisioningProvisioned && outcome != tenantdomain.ProvisioningFailed {
		return nil, tenantdomain.ErrInvalidStatus
	}

	tenant, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateProvisioning(ctx, s.db, tenant.ID, outcome); err != nil {
		return nil, err
	}
	tenant.ProvisioningStatus = outcome
	s.invalidate(tenant)

	s.log.Info("tenant provisioning updated",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("provisioning_status", string(outcome)),
	)
	return tenant, nil
}

func (s *Service) load(ctx context.Context, id string) (*tenantdomain.Tenant, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || tenantID == 0 {
		return nil, tenantdomain.ErrInvalidTenantID
	}

	tenant, err := s.repo.FindByID(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant == nil {
		return nil, tenantdomain.ErrTenantNotFound
	}
	return tenant, nil
}

func (s *Service) invalidate(tenant *tenantdomain.Tenant) {
	s.cache.Delete("subdomain:" + tenant.Subdomain)
	if tenant.CustomDomain != nil {
		s.cache.Delete("domain:" + *tenant.CustomDomain)
	}
}

func normalizeHost(raw string) string {
	host := strings.ToLower(strings.TrimSpace(raw))
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}

func normalizeSubdomain(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func numericLabel(label string) bool {
	for _, r := range label {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(label) > 0
}

func validSubdomain(subdomain string) bool {
	if !subdomainRe.MatchString(subdomain) {
		return false
	}
	// Numeric labels never resolve as subdomains, so they cannot be
	// registered either.
	if numericLabel(subdomain) {
		return false
	}
	if _, reserved := reservedSubdomains[subdomain]; reserved {
		return false
	}
	return true
}

func databaseName(subdomain string) string {
	return "tenant_" + strings.ReplaceAll(subdomain, "-", "_")
}
