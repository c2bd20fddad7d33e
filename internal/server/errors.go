package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	areadomain "github.com/smallbiznis/deskhive/internal/area/domain"
	"github.com/smallbiznis/deskhive/internal/authorization"
	bookingdomain "github.com/smallbiznis/deskhive/internal/booking/domain"
	customerdomain "github.com/smallbiznis/deskhive/internal/customer/domain"
	partnerdomain "github.com/smallbiznis/deskhive/internal/partner/domain"
	paymentdomain "github.com/smallbiznis/deskhive/internal/payment/domain"
	pricingdomain "github.com/smallbiznis/deskhive/internal/pricing/domain"
	spacedomain "github.com/smallbiznis/deskhive/internal/space/domain"
	walletdomain "github.com/smallbiznis/deskhive/internal/wallet/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrTooManyRequests    = errors.New("too_many_requests")
)

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
		c.Header("Content-Type", "application/json")
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
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}

	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: "unauthorized"}

	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, spacedomain.ErrNotSpaceOwner),
		errors.Is(err, bookingdomain.ErrNotBookingOwner):
		return http.StatusForbidden, errorPayload{Type: "forbidden", Message: "forbidden"}

	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{Type: "too_many_requests", Message: "too many requests"}

	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: err.Error()}

	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "not found"}

	case errors.Is(err, ErrConflict),
		errors.Is(err, partnerdomain.ErrDuplicatePartner),
		errors.Is(err, partnerdomain.ErrAlreadyReviewed),
		errors.Is(err, bookingdomain.ErrNotPending),
		errors.Is(err, bookingdomain.ErrInvalidTransition),
		errors.Is(err, spacedomain.ErrSpaceDeactivated):
		return http.StatusConflict, errorPayload{Type: "conflict", Message: err.Error()}

	// Retryable data-layer failures. The guard fails closed and asks the
	// caller to come back.
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, bookingdomain.ErrOccupancyQuery),
		errors.Is(err, bookingdomain.ErrCapacityRace):
		return http.StatusServiceUnavailable, errorPayload{Type: "service_unavailable", Message: "service unavailable"}

	// A malformed stored rule is a server-side defect, not a caller error.
	case errors.Is(err, pricingdomain.ErrMalformedRule):
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}

	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, pricingdomain.ErrNoPrice),
		errors.Is(err, pricingdomain.ErrInvalidContext),
		errors.Is(err, pricingdomain.ErrInvalidArea),
		errors.Is(err, bookingdomain.ErrInvalidBooking),
		errors.Is(err, spacedomain.ErrInvalidSpace),
		errors.Is(err, spacedomain.ErrSpaceInactive),
		errors.Is(err, areadomain.ErrInvalidArea),
		errors.Is(err, areadomain.ErrAreaInactive),
		errors.Is(err, areadomain.ErrZeroCapacity),
		errors.Is(err, partnerdomain.ErrInvalidPartner),
		errors.Is(err, partnerdomain.ErrInvalidDecision),
		errors.Is(err, customerdomain.ErrInvalidCustomer),
		errors.Is(err, paymentdomain.ErrMalformedEvent),
		errors.Is(err, paymentdomain.ErrUnsupportedEventType),
		errors.Is(err, walletdomain.ErrInvalidAmount):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, bookingdomain.ErrBookingNotFound),
		errors.Is(err, spacedomain.ErrSpaceNotFound),
		errors.Is(err, areadomain.ErrAreaNotFound),
		errors.Is(err, partnerdomain.ErrPartnerNotFound),
		errors.Is(err, customerdomain.ErrCustomerNotFound),
		errors.Is(err, pricingdomain.ErrRuleNotFound),
		errors.Is(err, walletdomain.ErrWalletNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog keeps expected client errors out of the error log.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	switch {
	case isValidationError(err), isNotFoundError(err):
		return "client", err.Error()
	case errors.Is(err, ErrUnauthorized), errors.Is(err, authorization.ErrForbidden):
		return "auth", err.Error()
	default:
		return "server", err.Error()
	}
}
