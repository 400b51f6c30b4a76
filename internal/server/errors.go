package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/workstack/hrsuite/internal/moduleaccess"
	paymentdomain "github.com/workstack/hrsuite/internal/payment/domain"
	plandomain "github.com/workstack/hrsuite/internal/plan/domain"
	subscriptiondomain "github.com/workstack/hrsuite/internal/subscription/domain"
	tenantdomain "github.com/workstack/hrsuite/internal/tenant/domain"
	"github.com/workstack/hrsuite/pkg/db/pagination"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid_request")
)

// ModuleAccessError carries the gate's denial reason into the response
// so callers can tell a system-only module from a plan gap.
type ModuleAccessError struct {
	Reason moduleaccess.DenyReason
}

func (e *ModuleAccessError) Error() string { return "module_access_denied" }

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	var denied *ModuleAccessError
	if errors.As(err, &denied) {
		return http.StatusForbidden, errorPayload{
			Type:    "module_access_denied",
			Message: "module access denied",
			Reason:  string(denied.Reason),
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, tenantdomain.ErrSubscriptionExpired):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "subscription_expired",
			Message: "subscription expired",
		}
	case errors.Is(err, tenantdomain.ErrProvisioningPending):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "provisioning_pending",
			Message: "tenant workspace is being prepared",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, tenantdomain.ErrInvalidSubdomain),
		errors.Is(err, tenantdomain.ErrInvalidTenantID),
		errors.Is(err, tenantdomain.ErrInvalidStatus),
		errors.Is(err, plandomain.ErrInvalidID),
		errors.Is(err, subscriptiondomain.ErrInvalidTenant),
		errors.Is(err, subscriptiondomain.ErrInvalidPlan),
		errors.Is(err, subscriptiondomain.ErrPaymentMethodRequired),
		errors.Is(err, subscriptiondomain.ErrPaymentMethodUnknown),
		errors.Is(err, paymentdomain.ErrInvalidID),
		errors.Is(err, paymentdomain.ErrReasonRequired),
		errors.Is(err, pagination.ErrInvalidToken):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, tenantdomain.ErrTenantNotFound),
		errors.Is(err, plandomain.ErrNotFound),
		errors.Is(err, subscriptiondomain.ErrPlanNotFound),
		errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound),
		errors.Is(err, paymentdomain.ErrNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, tenantdomain.ErrSubdomainTaken),
		errors.Is(err, subscriptiondomain.ErrPlanChangeInProgress),
		errors.Is(err, paymentdomain.ErrNotOpen),
		errors.Is(err, paymentdomain.ErrNotCompleted):
		return true
	default:
		return false
	}
}
