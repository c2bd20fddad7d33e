package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"

	bookingdomain "github.com/smallbiznis/deskhive/internal/booking/domain"
)

// EventRecord is the durable copy of a processor webhook delivery. The
// (provider, provider_event_id) index is what makes redelivery safe.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event,priority:1"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event,priority:2"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	BookingID       snowflake.ID   `json:"booking_id" gorm:"not null;index"`
	AmountCents     int64          `json:"amount_cents" gorm:"not null"`
	Currency        string         `json:"currency" gorm:"type:varchar(3);not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at,omitempty"`
}

func (EventRecord) TableName() string { return "payment_events" }

const EventTypePaymentSucceeded = "payment.succeeded"

var (
	ErrInvalidSignature      = errors.New("invalid_webhook_signature")
	ErrMalformedEvent        = errors.New("malformed_webhook_event")
	ErrUnsupportedEventType  = errors.New("unsupported_event_type")
	ErrEventAlreadyProcessed = errors.New("event_already_processed")
)

// IngestResult reports what a delivery did end to end.
type IngestResult struct {
	Event   *EventRecord
	Outcome bookingdomain.Outcome
}

type Service interface {
	// Ingest verifies, dedupes and dispatches one webhook delivery. The raw
	// body is verified against the shared secret before any parsing.
	Ingest(ctx context.Context, provider string, body []byte, signature string) (*IngestResult, error)
}
