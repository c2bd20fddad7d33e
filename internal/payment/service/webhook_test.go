package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	bookingdomain "github.com/smallbiznis/deskhive/internal/booking/domain"
	"github.com/smallbiznis/deskhive/internal/clock"
	"github.com/smallbiznis/deskhive/internal/config"
	"github.com/smallbiznis/deskhive/internal/payment/domain"
)

const testSecret = "whsec_test"

// bookingStub records ConfirmFromPayment calls and plays back scripted
// outcomes.
type bookingStub struct {
	calls    int
	outcomes []bookingdomain.Outcome
	errs     []error
	lastEvt  bookingdomain.PaymentEvent
}

func (s *bookingStub) ConfirmFromPayment(ctx context.Context, bookingID snowflake.ID, evt bookingdomain.PaymentEvent) (bookingdomain.Outcome, error) {
	idx := s.calls
	s.calls++
	s.lastEvt = evt
	var err error
	if idx < len(s.errs) {
		err = s.errs[idx]
	}
	var outcome bookingdomain.Outcome
	if idx < len(s.outcomes) {
		outcome = s.outcomes[idx]
	}
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func (s *bookingStub) Create(context.Context, bookingdomain.CreateInput) (*bookingdomain.Booking, error) {
	return nil, nil
}
func (s *bookingStub) Get(context.Context, snowflake.ID) (*bookingdomain.Booking, error) {
	return nil, nil
}
func (s *bookingStub) ListByCustomer(context.Context, snowflake.ID) ([]*bookingdomain.Booking, error) {
	return nil, nil
}
func (s *bookingStub) ListByPartner(context.Context, snowflake.ID) ([]*bookingdomain.Booking, error) {
	return nil, nil
}
func (s *bookingStub) Approve(context.Context, snowflake.ID, snowflake.ID) (bookingdomain.Outcome, error) {
	return "", nil
}
func (s *bookingStub) Reject(context.Context, snowflake.ID, snowflake.ID) error  { return nil }
func (s *bookingStub) Cancel(context.Context, snowflake.ID, snowflake.ID) error   { return nil }
func (s *bookingStub) CheckIn(context.Context, snowflake.ID, snowflake.ID) error  { return nil }
func (s *bookingStub) CheckOut(context.Context, snowflake.ID, snowflake.ID) error { return nil }
func (s *bookingStub) ExpireDue(context.Context) (int64, error)                   { return 0, nil }
func (s *bookingStub) SettleFinished(context.Context) (int64, error)              { return 0, nil }

func newWebhookService(t *testing.T, secret string, stub *bookingStub) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.EventRecord{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	svc := New(Params{
		DB:      conn,
		Log:     zap.NewNop(),
		GenID:   node,
		Clock:   clock.NewFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)),
		Config:  config.Config{PaymentWebhookSecret: secret},
		Booking: stub,
	})
	return svc, conn
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func eventBody(eventID string, bookingID snowflake.ID, amount int64) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"type":"payment.succeeded","booking_id":%q,"amount":%d,"currency":"usd"}`,
		eventID, bookingID.String(), amount,
	))
}

func TestIngest_SignatureVerification(t *testing.T) {
	stub := &bookingStub{}
	svc, _ := newWebhookService(t, testSecret, stub)
	node, _ := snowflake.NewNode(3)
	body := eventBody("evt_1", node.Generate(), 2000)

	_, err := svc.Ingest(context.Background(), "stripe", body, "deadbeef")
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	// Signature over a different body does not transfer.
	_, err = svc.Ingest(context.Background(), "stripe", body, sign(testSecret, []byte("other")))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	// Surrounding whitespace on the header value is tolerated.
	stub2 := &bookingStub{outcomes: []bookingdomain.Outcome{bookingdomain.OutcomeConfirmed}}
	svc2, _ := newWebhookService(t, testSecret, stub2)
	result, err := svc2.Ingest(context.Background(), "stripe", body, "  "+sign(testSecret, body)+"\n")
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.OutcomeConfirmed, result.Outcome)

	assert.Zero(t, stub.calls, "unverified deliveries must never reach the booking flow")
}

func TestIngest_MissingSecretRejectsEverything(t *testing.T) {
	stub := &bookingStub{}
	svc, _ := newWebhookService(t, "", stub)
	node, _ := snowflake.NewNode(3)
	body := eventBody("evt_1", node.Generate(), 2000)

	_, err := svc.Ingest(context.Background(), "stripe", body, sign("", body))
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	assert.Zero(t, stub.calls)
}

func TestIngest_MalformedEvents(t *testing.T) {
	stub := &bookingStub{}
	svc, _ := newWebhookService(t, testSecret, stub)
	ctx := context.Background()

	tests := []struct {
		name string
		body string
		want error
	}{
		{"broken json", `{"id":`, domain.ErrMalformedEvent},
		{"missing event id", `{"type":"payment.succeeded","booking_id":"123","amount":100,"currency":"usd"}`, domain.ErrMalformedEvent},
		{"missing booking id", `{"id":"evt_1","type":"payment.succeeded","amount":100,"currency":"usd"}`, domain.ErrMalformedEvent},
		{"negative amount", `{"id":"evt_1","type":"payment.succeeded","booking_id":"123","amount":-1,"currency":"usd"}`, domain.ErrMalformedEvent},
		{"missing currency", `{"id":"evt_1","type":"payment.succeeded","booking_id":"123","amount":100}`, domain.ErrMalformedEvent},
		{"unparsable booking id", `{"id":"evt_1","type":"payment.succeeded","booking_id":"not-a-number","amount":100,"currency":"usd"}`, domain.ErrMalformedEvent},
		{"unsupported type", `{"id":"evt_1","type":"payment.refunded","booking_id":"123","amount":100,"currency":"usd"}`, domain.ErrUnsupportedEventType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(tt.body)
			_, err := svc.Ingest(ctx, "stripe", body, sign(testSecret, body))
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, stub.calls)
}

func TestIngest_MetadataApprovalForms(t *testing.T) {
	// Processors disagree on metadata typing: some send the approval flag
	// as a JSON boolean, others stringify it. Both spellings must land.
	node, _ := snowflake.NewNode(3)
	bookingID := node.Generate()
	bodyFor := func(eventID, metadata string) []byte {
		return []byte(fmt.Sprintf(
			`{"id":%q,"type":"payment.succeeded","booking_id":%q,"amount":2000,"currency":"usd","metadata":{"requires_host_approval":%s}}`,
			eventID, bookingID.String(), metadata,
		))
	}

	tests := []struct {
		name     string
		metadata string
		want     bool
	}{
		{"bare boolean", `true`, true},
		{"stringified true", `"true"`, true},
		{"stringified false", `"false"`, false},
		{"null", `null`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &bookingStub{outcomes: []bookingdomain.Outcome{bookingdomain.OutcomeConfirmed}}
			svc, _ := newWebhookService(t, testSecret, stub)
			body := bodyFor("evt_meta", tt.metadata)
			_, err := svc.Ingest(context.Background(), "stripe", body, sign(testSecret, body))
			require.NoError(t, err)
			require.Equal(t, 1, stub.calls)
			assert.Equal(t, tt.want, stub.lastEvt.RequiresHostApproval)
		})
	}

	t.Run("unrecognized string", func(t *testing.T) {
		stub := &bookingStub{}
		svc, _ := newWebhookService(t, testSecret, stub)
		body := bodyFor("evt_meta", `"yes"`)
		_, err := svc.Ingest(context.Background(), "stripe", body, sign(testSecret, body))
		assert.ErrorIs(t, err, domain.ErrMalformedEvent)
		assert.Zero(t, stub.calls)
	})
}

func TestIngest_DispatchAndRedelivery(t *testing.T) {
	stub := &bookingStub{outcomes: []bookingdomain.Outcome{bookingdomain.OutcomeConfirmed}}
	svc, conn := newWebhookService(t, testSecret, stub)
	ctx := context.Background()
	node, _ := snowflake.NewNode(3)
	bookingID := node.Generate()
	body := eventBody("evt_42", bookingID, 2000)
	sig := sign(testSecret, body)

	result, err := svc.Ingest(ctx, "stripe", body, sig)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.OutcomeConfirmed, result.Outcome)
	require.NotNil(t, result.Event.ProcessedAt)
	assert.Equal(t, 1, stub.calls)
	assert.Equal(t, "USD", stub.lastEvt.Currency)
	assert.Equal(t, int64(2000), stub.lastEvt.AmountCents)
	assert.Equal(t, "evt_42", stub.lastEvt.ProviderEventID)

	// Redelivery short-circuits on the processed record.
	result, err = svc.Ingest(ctx, "stripe", body, sig)
	assert.ErrorIs(t, err, domain.ErrEventAlreadyProcessed)
	require.NotNil(t, result)
	require.NotNil(t, result.Event.ProcessedAt)
	assert.Equal(t, 1, stub.calls, "processed events are not dispatched again")

	// Exactly one durable record for the delivery.
	var n int64
	require.NoError(t, conn.Model(&domain.EventRecord{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestIngest_SameEventIDFromAnotherProviderIsDistinct(t *testing.T) {
	stub := &bookingStub{outcomes: []bookingdomain.Outcome{bookingdomain.OutcomeConfirmed, bookingdomain.OutcomeAlreadyHandled}}
	svc, conn := newWebhookService(t, testSecret, stub)
	ctx := context.Background()
	node, _ := snowflake.NewNode(3)
	body := eventBody("evt_shared", node.Generate(), 2000)
	sig := sign(testSecret, body)

	_, err := svc.Ingest(ctx, "stripe", body, sig)
	require.NoError(t, err)
	_, err = svc.Ingest(ctx, "adyen", body, sig)
	require.NoError(t, err)

	var n int64
	require.NoError(t, conn.Model(&domain.EventRecord{}).Count(&n).Error)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 2, stub.calls)
}

func TestIngest_FailedDispatchStaysRetryable(t *testing.T) {
	stub := &bookingStub{
		errs:     []error{fmt.Errorf("%w: timeout", bookingdomain.ErrOccupancyQuery), nil},
		outcomes: []bookingdomain.Outcome{"", bookingdomain.OutcomeConfirmed},
	}
	svc, conn := newWebhookService(t, testSecret, stub)
	ctx := context.Background()
	node, _ := snowflake.NewNode(3)
	body := eventBody("evt_retry", node.Generate(), 2000)
	sig := sign(testSecret, body)

	_, err := svc.Ingest(ctx, "stripe", body, sig)
	assert.ErrorIs(t, err, bookingdomain.ErrOccupancyQuery)

	// The event row exists but is unprocessed, so redelivery dispatches again.
	var record domain.EventRecord
	require.NoError(t, conn.Where("provider_event_id = ?", "evt_retry").First(&record).Error)
	assert.Nil(t, record.ProcessedAt)

	result, err := svc.Ingest(ctx, "stripe", body, sig)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.OutcomeConfirmed, result.Outcome)
	assert.NotNil(t, result.Event.ProcessedAt)
	assert.Equal(t, 2, stub.calls)
}
