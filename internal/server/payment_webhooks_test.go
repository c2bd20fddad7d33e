package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingdomain "github.com/smallbiznis/deskhive/internal/booking/domain"
	paymentdomain "github.com/smallbiznis/deskhive/internal/payment/domain"
)

type paymentStub struct {
	result *paymentdomain.IngestResult
	err    error

	gotProvider  string
	gotBody      []byte
	gotSignature string
}

func (s *paymentStub) Ingest(_ context.Context, provider string, body []byte, signature string) (*paymentdomain.IngestResult, error) {
	s.gotProvider = provider
	s.gotBody = body
	s.gotSignature = signature
	return s.result, s.err
}

func newWebhookRouter(stub *paymentStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	srv := &Server{engine: engine, paymentSvc: stub}
	engine.POST("/api/payments/webhooks/:provider", srv.HandlePaymentWebhook)
	return engine
}

func deliver(t *testing.T, engine *gin.Engine, provider, body, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhooks/"+provider, bytes.NewBufferString(body))
	req.Header.Set(headerWebhookSignature, signature)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHandlePaymentWebhook_Settled(t *testing.T) {
	stub := &paymentStub{result: &paymentdomain.IngestResult{Outcome: bookingdomain.OutcomeConfirmed}}
	engine := newWebhookRouter(stub)

	rec := deliver(t, engine, "stripe", `{"id":"evt_1"}`, "sig-value")
	assert.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		Data struct {
			Outcome string `json:"outcome"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "confirmed", payload.Data.Outcome)

	// The handler hands the raw body and header through untouched.
	assert.Equal(t, "stripe", stub.gotProvider)
	assert.Equal(t, `{"id":"evt_1"}`, string(stub.gotBody))
	assert.Equal(t, "sig-value", stub.gotSignature)
}

func TestHandlePaymentWebhook_Duplicate(t *testing.T) {
	stub := &paymentStub{
		result: &paymentdomain.IngestResult{},
		err:    paymentdomain.ErrEventAlreadyProcessed,
	}
	engine := newWebhookRouter(stub)

	rec := deliver(t, engine, "stripe", `{}`, "sig")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "already_processed")
}

func TestHandlePaymentWebhook_ErrorContract(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantType string
	}{
		{"bad signature", paymentdomain.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
		{"malformed event", paymentdomain.ErrMalformedEvent, http.StatusBadRequest, "malformed_event"},
		{"unsupported type", paymentdomain.ErrUnsupportedEventType, http.StatusBadRequest, "malformed_event"},
		{"booking not visible yet", bookingdomain.ErrBookingNotFound, http.StatusServiceUnavailable, "booking_not_ready"},
		{"occupancy query failure", fmt.Errorf("%w: timeout", bookingdomain.ErrOccupancyQuery), http.StatusServiceUnavailable, "service_unavailable"},
		{"capacity race", bookingdomain.ErrCapacityRace, http.StatusServiceUnavailable, "service_unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &paymentStub{err: tt.err}
			engine := newWebhookRouter(stub)

			rec := deliver(t, engine, "stripe", `{}`, "sig")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantType)
		})
	}
}

func TestHandlePaymentWebhook_MissingProvider(t *testing.T) {
	stub := &paymentStub{}
	engine := newWebhookRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhooks/%20", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, stub.gotBody, "no dispatch without a provider")
}
