package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

// Space is a partner-owned venue grouping bookable areas.
type Space struct {
	ID          snowflake.ID   `json:"id" gorm:"primaryKey"`
	PartnerID   snowflake.ID   `json:"partner_id" gorm:"not null;index"`
	Name        string         `json:"name" gorm:"type:text;not null"`
	Slug        string         `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Description string         `json:"description" gorm:"type:text"`
	City        string         `json:"city" gorm:"type:text;not null"`
	Address     string         `json:"address" gorm:"type:text"`
	Amenities   pq.StringArray `json:"amenities" gorm:"type:text[]"`
	Active      bool           `json:"active" gorm:"not null;default:true;index"`
	CreatedAt   time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Space) TableName() string { return "spaces" }

var (
	ErrSpaceNotFound    = errors.New("space_not_found")
	ErrInvalidSpace     = errors.New("invalid_space")
	ErrSpaceInactive    = errors.New("space_inactive")
	ErrNotSpaceOwner    = errors.New("not_space_owner")
	ErrSpaceDeactivated = errors.New("space_already_deactivated")
)

type CreateSpaceInput struct {
	Name        string
	Description string
	City        string
	Address     string
	Amenities   []string
}

type Service interface {
	Create(ctx context.Context, partnerID snowflake.ID, input CreateSpaceInput) (*Space, error)
	Update(ctx context.Context, partnerID, spaceID snowflake.ID, input CreateSpaceInput) (*Space, error)
	Get(ctx context.Context, id snowflake.ID) (*Space, error)
	GetBySlug(ctx context.Context, slug string) (*Space, error)
	List(ctx context.Context, city string) ([]*Space, error)
	ListByPartner(ctx context.Context, partnerID snowflake.ID) ([]*Space, error)

	// Deactivate takes a space off the marketplace. Existing bookings are
	// untouched; new bookings are blocked.
	Deactivate(ctx context.Context, spaceID snowflake.ID) error
}
