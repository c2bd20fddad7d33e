package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Area is a bookable unit inside a space: a hot desk zone, a meeting
// room, a private office. Capacity and approval policy live here.
type Area struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	SpaceID          snowflake.ID `json:"space_id" gorm:"not null;index"`
	Name             string       `json:"name" gorm:"type:text;not null"`
	Kind             string       `json:"kind" gorm:"type:text;not null"`
	MaxCapacity      int          `json:"max_capacity" gorm:"not null"`
	RequiresApproval bool         `json:"requires_approval" gorm:"not null;default:false"`
	Active           bool         `json:"active" gorm:"not null;default:true;index"`
	CreatedAt        time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Area) TableName() string { return "areas" }

var (
	ErrAreaNotFound  = errors.New("area_not_found")
	ErrInvalidArea   = errors.New("invalid_area")
	ErrAreaInactive  = errors.New("area_inactive")
	ErrZeroCapacity  = errors.New("area_capacity_must_be_positive")
	ErrNotAreaOwner  = errors.New("not_area_owner")
)

type CreateAreaInput struct {
	SpaceID          snowflake.ID
	Name             string
	Kind             string
	MaxCapacity      int
	RequiresApproval bool
}

type Service interface {
	Create(ctx context.Context, input CreateAreaInput) (*Area, error)
	Get(ctx context.Context, id snowflake.ID) (*Area, error)
	ListBySpace(ctx context.Context, spaceID snowflake.ID) ([]*Area, error)
	SetApprovalRequired(ctx context.Context, id snowflake.ID, required bool) error
	Deactivate(ctx context.Context, id snowflake.ID) error
}
