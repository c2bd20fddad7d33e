package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	bookingdomain "github.com/smallbiznis/deskhive/internal/booking/domain"
	"github.com/smallbiznis/deskhive/internal/clock"
	"github.com/smallbiznis/deskhive/internal/config"
	"github.com/smallbiznis/deskhive/internal/observability/metrics"
	"github.com/smallbiznis/deskhive/internal/payment/domain"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Config  config.Config
	Booking bookingdomain.Service
	Metrics *metrics.BookingMetrics `optional:"true"`
}

type webhookService struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	secret  []byte
	booking bookingdomain.Service
	metrics *metrics.BookingMetrics
}

func New(p Params) domain.Service {
	return &webhookService{
		db:      p.DB,
		log:     p.Log.Named("payment.webhook"),
		genID:   p.GenID,
		clock:   p.Clock,
		secret:  []byte(p.Config.PaymentWebhookSecret),
		booking: p.Booking,
		metrics: p.Metrics,
	}
}

// wireEvent is the canonical processor payload.
type wireEvent struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Booking  string `json:"booking_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Metadata struct {
		RequiresHostApproval wireBool `json:"requires_host_approval"`
	} `json:"metadata"`
}

// wireBool accepts both JSON booleans and the quoted "true"/"false"
// strings processors put in metadata maps.
type wireBool bool

func (b *wireBool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", `"true"`:
		*b = true
	case "false", `"false"`, "null", `""`:
		*b = false
	default:
		return fmt.Errorf("requires_host_approval: invalid value %s", data)
	}
	return nil
}

func (s *webhookService) Ingest(ctx context.Context, provider string, body []byte, signature string) (*domain.IngestResult, error) {
	result, err := s.ingest(ctx, provider, body, signature)
	if s.metrics != nil {
		s.metrics.RecordWebhook(provider, webhookResult(result, err))
	}
	return result, err
}

func (s *webhookService) ingest(ctx context.Context, provider string, body []byte, signature string) (*domain.IngestResult, error) {
	if err := s.verify(body, signature); err != nil {
		return nil, err
	}

	var evt wireEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	if evt.ID == "" || evt.Booking == "" || evt.Currency == "" || evt.Amount < 0 {
		return nil, domain.ErrMalformedEvent
	}
	if evt.Type != domain.EventTypePaymentSucceeded {
		return nil, domain.ErrUnsupportedEventType
	}
	bookingID, err := snowflake.ParseString(evt.Booking)
	if err != nil {
		return nil, fmt.Errorf("%w: bad booking id", domain.ErrMalformedEvent)
	}

	record, err := s.insertOrLoad(ctx, provider, evt, bookingID, body)
	if err != nil {
		return nil, err
	}
	if record.ProcessedAt != nil {
		return &domain.IngestResult{Event: record}, domain.ErrEventAlreadyProcessed
	}

	outcome, err := s.booking.ConfirmFromPayment(ctx, bookingID, bookingdomain.PaymentEvent{
		Provider:             provider,
		ProviderEventID:      evt.ID,
		BookingID:            bookingID,
		AmountCents:          evt.Amount,
		Currency:             strings.ToUpper(evt.Currency),
		RequiresHostApproval: bool(evt.Metadata.RequiresHostApproval),
	})
	if err != nil {
		// Processed stays unset so the processor redelivers.
		return nil, err
	}

	now := s.clock.Now().UTC()
	if err := s.db.WithContext(ctx).
		Model(&domain.EventRecord{}).
		Where("id = ? AND processed_at IS NULL", record.ID).
		Update("processed_at", now).Error; err != nil {
		s.log.Warn("failed to mark event processed", zap.String("event_id", evt.ID), zap.Error(err))
	}
	record.ProcessedAt = &now

	return &domain.IngestResult{Event: record, Outcome: outcome}, nil
}

// verify checks the hex HMAC-SHA256 of the raw body in constant time.
func (s *webhookService) verify(body []byte, signature string) error {
	if len(s.secret) == 0 {
		return domain.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature))) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// insertOrLoad persists the delivery once; a redelivery loads the row the
// first delivery wrote.
func (s *webhookService) insertOrLoad(ctx context.Context, provider string, evt wireEvent, bookingID snowflake.ID, body []byte) (*domain.EventRecord, error) {
	record := &domain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        provider,
		ProviderEventID: evt.ID,
		EventType:       evt.Type,
		BookingID:       bookingID,
		AmountCents:     evt.Amount,
		Currency:        strings.ToUpper(evt.Currency),
		Payload:         body,
		ReceivedAt:      s.clock.Now().UTC(),
	}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(record)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		return record, nil
	}

	var existing domain.EventRecord
	if err := s.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", provider, evt.ID).
		First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

func webhookResult(result *domain.IngestResult, err error) string {
	switch {
	case err == nil && result != nil:
		return string(result.Outcome)
	case err == domain.ErrEventAlreadyProcessed:
		return "duplicate"
	case err == domain.ErrInvalidSignature:
		return "bad_signature"
	default:
		return "error"
	}
}
