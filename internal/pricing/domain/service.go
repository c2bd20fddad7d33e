package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type CreateRuleInput struct {
	BaseRateCents *int64
	Unit          Unit
	Currency      string
	Conditions    []Condition
}

type Service interface {
	// Quote prices a prospective booking against the area's active rule.
	Quote(ctx context.Context, areaID snowflake.ID, bctx Context) (Result, error)

	// CreateRule validates and inserts a new active rule version for the
	// area, deactivating the previous version.
	CreateRule(ctx context.Context, partnerID, areaID snowflake.ID, input CreateRuleInput) (*PriceRule, error)

	GetActiveRule(ctx context.Context, areaID snowflake.ID) (*PriceRule, error)
	ListRules(ctx context.Context, areaID snowflake.ID) ([]*PriceRule, error)
}
