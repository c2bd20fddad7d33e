package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer is a thin profile keyed by the external auth provider's subject.
// Authentication itself lives outside this service.
type Customer struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	AuthID    string       `json:"auth_id" gorm:"type:text;not null;uniqueIndex"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Email     string       `json:"email" gorm:"type:text;not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Customer) TableName() string { return "customers" }

var (
	ErrCustomerNotFound = errors.New("customer_not_found")
	ErrInvalidCustomer  = errors.New("invalid_customer")
)

type Service interface {
	// Ensure upserts the profile for an externally authenticated subject.
	Ensure(ctx context.Context, authID, name, email string) (*Customer, error)
	GetByAuthID(ctx context.Context, authID string) (*Customer, error)
	Get(ctx context.Context, id snowflake.ID) (*Customer, error)
}
