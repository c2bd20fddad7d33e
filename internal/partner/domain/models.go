package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending_verification"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// Partner is a host organization listing spaces on the marketplace.
type Partner struct {
	ID        snowflake.ID       `json:"id" gorm:"primaryKey"`
	AuthID    string             `json:"auth_id" gorm:"type:text;not null;uniqueIndex"`
	Name      string             `json:"name" gorm:"type:text;not null"`
	Email     string             `json:"email" gorm:"type:text;not null"`
	Status    VerificationStatus `json:"status" gorm:"type:text;not null;default:'pending_verification'"`
	CreatedAt time.Time          `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time          `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Partner) TableName() string { return "partners" }

var (
	ErrPartnerNotFound  = errors.New("partner_not_found")
	ErrInvalidPartner   = errors.New("invalid_partner")
	ErrAlreadyReviewed  = errors.New("partner_already_reviewed")
	ErrNotVerified      = errors.New("partner_not_verified")
	ErrInvalidDecision  = errors.New("invalid_verification_decision")
	ErrDuplicatePartner = errors.New("partner_already_registered")
)

type RegisterInput struct {
	AuthID string
	Name   string
	Email  string
}

type Service interface {
	Register(ctx context.Context, input RegisterInput) (*Partner, error)
	GetByAuthID(ctx context.Context, authID string) (*Partner, error)
	Get(ctx context.Context, id snowflake.ID) (*Partner, error)
	ListPendingVerification(ctx context.Context) ([]*Partner, error)

	// Review resolves a pending verification. Approve or reject; the
	// decision notifies the partner exactly once.
	Review(ctx context.Context, id snowflake.ID, approve bool) (*Partner, error)
}
