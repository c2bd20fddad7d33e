package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	bookingdomain "github.com/smallbiznis/deskhive/internal/booking/domain"
	paymentdomain "github.com/smallbiznis/deskhive/internal/payment/domain"
)

const headerWebhookSignature = "X-Webhook-Signature"

// HandlePaymentWebhook answers the processor's delivery contract: 200
// when the event is settled (confirmed, review, duplicate), 400 when the
// payload can never be processed, 503 when a retry might succeed.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	if provider == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.paymentSvc.Ingest(c.Request.Context(), provider, body, c.GetHeader(headerWebhookSignature))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"outcome": string(result.Outcome)}})

	case errors.Is(err, paymentdomain.ErrEventAlreadyProcessed):
		c.JSON(http.StatusOK, gin.H{"data": gin.H{"outcome": "already_processed"}})

	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: errorPayload{
			Type: "invalid_signature", Message: "invalid signature",
		}})

	case errors.Is(err, paymentdomain.ErrMalformedEvent),
		errors.Is(err, paymentdomain.ErrUnsupportedEventType):
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: errorPayload{
			Type: "malformed_event", Message: err.Error(),
		}})

	case errors.Is(err, bookingdomain.ErrBookingNotFound):
		// The booking may not be visible yet; ask the processor to retry.
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: errorPayload{
			Type: "booking_not_ready", Message: "booking not found, retry later",
		}})

	default:
		// Occupancy failures and other data errors are retryable; the
		// booking stays pending and was never confirmed.
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorResponse{Error: errorPayload{
			Type: "service_unavailable", Message: "temporary failure, retry later",
		}})
	}
}
