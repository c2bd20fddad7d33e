package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusRejected   Status = "rejected"
	StatusExpired    Status = "expired"
	StatusCancelled  Status = "cancelled"
	StatusCheckedIn  Status = "checkedin"
	StatusCheckedOut Status = "checkedout"
	StatusCompleted  Status = "completed"
	StatusNoShow     Status = "noshow"
)

// OccupyingStatuses are the statuses that hold seats against an area's
// capacity. A pending booking reserves its seats until it resolves.
var OccupyingStatuses = []Status{StatusPending, StatusConfirmed, StatusCheckedIn}

// ConfirmedStatuses are the statuses a confirmed seat can be in; used for
// the post-write occupancy re-check.
var ConfirmedStatuses = []Status{StatusConfirmed, StatusCheckedIn}

// Booking snapshots price, capacity and approval policy at creation time
// so later rule or area edits never change what the guard decides.
type Booking struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	SpaceID          snowflake.ID `json:"space_id" gorm:"not null;index"`
	AreaID           snowflake.ID `json:"area_id" gorm:"not null;index"`
	CustomerID       snowflake.ID `json:"customer_id" gorm:"not null;index"`
	PartnerID        snowflake.ID `json:"partner_id" gorm:"not null;index"`
	GuestCount       int          `json:"guest_count" gorm:"not null"`
	Hours            float64      `json:"hours" gorm:"not null"`
	StartAt          time.Time    `json:"start_at" gorm:"not null;index"`
	EndAt            time.Time    `json:"end_at" gorm:"not null;index"`
	PriceCents       int64        `json:"price_cents" gorm:"not null"`
	Currency         string       `json:"currency" gorm:"type:varchar(3);not null"`
	AreaMaxCapacity  int          `json:"area_max_capacity" gorm:"not null"`
	RequiresApproval bool         `json:"requires_approval" gorm:"not null"`
	MatchedCondition *string      `json:"matched_condition,omitempty" gorm:"type:text"`
	Status           Status       `json:"status" gorm:"type:varchar(20);not null;index"`
	ExpiresAt        time.Time    `json:"expires_at" gorm:"not null;index"`
	CreatedAt        time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Booking) TableName() string { return "bookings" }

var (
	ErrBookingNotFound = errors.New("booking_not_found")
	ErrInvalidBooking  = errors.New("invalid_booking")
	ErrNotPending      = errors.New("booking_not_pending")
	ErrNotBookingOwner = errors.New("not_booking_owner")

	// ErrInvalidTransition rejects a lifecycle action against a booking
	// that is not in the status the action expects.
	ErrInvalidTransition = errors.New("invalid_booking_transition")

	// ErrOccupancyQuery wraps data-layer failures during occupancy counting.
	// The guard fails closed: a booking is never confirmed on a failed count.
	ErrOccupancyQuery = errors.New("occupancy_query_failed")

	// ErrCapacityRace marks a confirm aborted by the optimistic re-check
	// after a concurrent winner filled the area.
	ErrCapacityRace = errors.New("capacity_race_detected")
)

type CreateInput struct {
	AreaID     snowflake.ID
	CustomerID snowflake.ID
	GuestCount int
	Hours      float64
	StartAt    time.Time
}

// PaymentEvent is the canonical payment notification handed to the guard.
type PaymentEvent struct {
	Provider             string
	ProviderEventID      string
	BookingID            snowflake.ID
	AmountCents          int64
	Currency             string
	RequiresHostApproval bool
}

type Outcome string

const (
	OutcomeConfirmed      Outcome = "confirmed"
	OutcomeManualReview   Outcome = "manual_review"
	OutcomeAlreadyHandled Outcome = "already_handled"
)

type Service interface {
	Create(ctx context.Context, input CreateInput) (*Booking, error)
	Get(ctx context.Context, id snowflake.ID) (*Booking, error)
	ListByCustomer(ctx context.Context, customerID snowflake.ID) ([]*Booking, error)
	ListByPartner(ctx context.Context, partnerID snowflake.ID) ([]*Booking, error)

	// ConfirmFromPayment runs the capacity guard for a successful payment.
	// Safe to call repeatedly for the same booking: redeliveries resolve to
	// OutcomeAlreadyHandled without repeating side effects.
	ConfirmFromPayment(ctx context.Context, bookingID snowflake.ID, evt PaymentEvent) (Outcome, error)

	// Approve resolves a manual-review booking in the host's favor. The
	// capacity check still applies; approval does not override a full area.
	Approve(ctx context.Context, partnerID, bookingID snowflake.ID) (Outcome, error)
	Reject(ctx context.Context, partnerID, bookingID snowflake.ID) error

	Cancel(ctx context.Context, customerID, bookingID snowflake.ID) error

	// CheckIn and CheckOut are host actions on site: confirmed → checkedin
	// and checkedin → checkedout.
	CheckIn(ctx context.Context, partnerID, bookingID snowflake.ID) error
	CheckOut(ctx context.Context, partnerID, bookingID snowflake.ID) error

	// ExpireDue transitions pending bookings past their ExpiresAt to expired
	// and returns how many were expired.
	ExpireDue(ctx context.Context) (int64, error)

	// SettleFinished closes out bookings past their end: checkedout becomes
	// completed, confirmed-but-never-arrived becomes noshow.
	SettleFinished(ctx context.Context) (int64, error)
}
