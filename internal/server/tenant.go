package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	tenantdomain "github.com/workstack/hrsuite/internal/tenant/domain"
)

type tenantResponse struct {
	ID                 string `json:"id"`
	Subdomain          string `json:"subdomain"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Status             string `json:"status"`
	ProvisioningStatus string `json:"provisioning_status"`
}

func toTenantResponse(tenant *tenantdomain.Tenant) tenantResponse {
	return tenantResponse{
		ID:                 tenant.ID.String(),
		Subdomain:          tenant.Subdomain,
		Name:               tenant.Name,
		Email:              tenant.Email,
		Status:             string(tenant.Status),
		ProvisioningStatus: string(tenant.ProvisioningStatus),
	}
}

func (s *Server) Signup(c *gin.Context) {
	var req tenantdomain.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	tenant, err := s.tenantSvc.Signup(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": toTenantResponse(tenant)})
}

func (s *Server) UpdateTenantStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	status, ok := tenantdomain.ParseStatus(req.Status)
	if !ok {
		AbortWithError(c, tenantdomain.ErrInvalidStatus)
		return
	}

	tenant, err := s.tenantSvc.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toTenantResponse(tenant)})
}

func (s *Server) MarkTenantProvisioned(c *gin.Context) {
	var req struct {
		Failed bool `json:"failed"`
	}
	// An empty body means success.
	_ = c.ShouldBindJSON(&req)

	outcome := tenantdomain.ProvisioningProvisioned
	if req.Failed {
		outcome = tenantdomain.ProvisioningFailed
	}

	tenant, err := s.tenantSvc.MarkProvisioned(c.Request.Context(), c.Param("id"), outcome)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": toTenantResponse(tenant)})
}
