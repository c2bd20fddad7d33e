package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Kind string

const (
	KindBookingConfirmed      Kind = "booking_confirmed"
	KindBookingReviewRequired Kind = "booking_review_required"
	KindBookingRejected       Kind = "booking_rejected"
	KindBookingExpired        Kind = "booking_expired"
	KindVerificationApproved  Kind = "verification_approved"
	KindVerificationRejected  Kind = "verification_rejected"
)

type SubjectType string

const (
	SubjectBooking SubjectType = "booking"
	SubjectPartner SubjectType = "partner"
)

type RecipientRole string

const (
	RoleCustomer RecipientRole = "customer"
	RolePartner  RecipientRole = "partner"
)

// Notification is a persisted side effect consumed by delivery surfaces.
// The unique index over (subject_type, subject_id, kind, recipient_id) is
// the at-most-once guarantee; the pre-insert existence check is only an
// optimization on top of it.
type Notification struct {
	ID            snowflake.ID  `json:"id" gorm:"primaryKey"`
	SubjectType   SubjectType   `json:"subject_type" gorm:"type:text;not null;uniqueIndex:ux_notifications_dedupe,priority:1"`
	SubjectID     snowflake.ID  `json:"subject_id" gorm:"not null;uniqueIndex:ux_notifications_dedupe,priority:2"`
	Kind          Kind          `json:"kind" gorm:"type:text;not null;uniqueIndex:ux_notifications_dedupe,priority:3"`
	RecipientID   snowflake.ID  `json:"recipient_id" gorm:"not null;uniqueIndex:ux_notifications_dedupe,priority:4"`
	RecipientRole RecipientRole `json:"recipient_role" gorm:"type:text;not null"`
	Body          string        `json:"body" gorm:"type:text;not null"`
	ReadAt        *time.Time    `json:"read_at"`
	CreatedAt     time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Notification) TableName() string { return "notifications" }

var (
	ErrInvalidNotification = errors.New("invalid_notification")
)

type Recipient struct {
	ID    snowflake.ID
	Role  RecipientRole
	Email string
}

type Service interface {
	// EnsureCreated inserts the notification unless an identical one
	// already exists. Safe to call from retried webhook deliveries.
	EnsureCreated(ctx context.Context, subjectType SubjectType, subjectID snowflake.ID, kind Kind, recipient Recipient, body string) (bool, error)

	ListForRecipient(ctx context.Context, recipientID snowflake.ID, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, id, recipientID snowflake.ID) error

	// WithTrx returns a copy bound to tx so notifications commit atomically
	// with the state change that caused them.
	WithTrx(tx *gorm.DB) Service
}
