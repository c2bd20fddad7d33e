package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Unit is the billing cadence a base rate applies to.
type Unit string

const (
	UnitHour Unit = "hour"
	UnitDay  Unit = "day"
	UnitWeek Unit = "week"
)

// Hours returns how many booking hours one billing unit covers.
func (u Unit) Hours() float64 {
	switch u {
	case UnitHour:
		return 1
	case UnitDay:
		return 24
	case UnitWeek:
		return 168
	}
	return 0
}

func (u Unit) Valid() bool {
	return u.Hours() > 0
}

// ConditionKind is the closed set of condition variants a rule may use.
type ConditionKind string

const (
	KindMinHours  ConditionKind = "min_hours"
	KindDayOfWeek ConditionKind = "day_of_week"
	KindTimeOfDay ConditionKind = "time_of_day"
)

// Condition is one entry of a rule's ordered condition list. Evaluation is
// first-match-wins in list order. Exactly one of PriceCents or PercentOff
// must carry the price outcome.
type Condition struct {
	ID   string        `json:"id"`
	Kind ConditionKind `json:"kind"`

	// min_hours
	MinHours *float64 `json:"min_hours,omitempty"`

	// day_of_week: lowercase three-letter day names ("mon".."sun").
	Days []string `json:"days,omitempty"`

	// time_of_day: half-open [From, To) clock range, "HH:MM".
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	PriceCents *int64   `json:"price_cents,omitempty"`
	PercentOff *float64 `json:"percent_off,omitempty"`
}

// Definition is the evaluator's view of a rule: the declarative pricing
// structure with no persistence concerns attached.
type Definition struct {
	BaseRateCents *int64
	Unit          Unit
	Currency      string
	Conditions    []Condition
}

// Context carries the booking attributes conditions are tested against.
type Context struct {
	Hours   float64
	StartAt *time.Time
}

// Result is the outcome of evaluating a definition against a context.
// PriceCents is nil when the rule could not price the booking.
type Result struct {
	PriceCents       *int64  `json:"price_cents"`
	Currency         string  `json:"currency"`
	MatchedCondition *string `json:"matched_condition"`
}

// PriceRule is the persisted, versioned rule authored by a partner. Rows are
// immutable once referenced; edits insert a new version and flip Active.
type PriceRule struct {
	ID            snowflake.ID   `json:"id" gorm:"primaryKey"`
	PartnerID     snowflake.ID   `json:"partner_id" gorm:"not null;index"`
	AreaID        snowflake.ID   `json:"area_id" gorm:"not null;index"`
	Version       int            `json:"version" gorm:"not null;default:1"`
	BaseRateCents *int64         `json:"base_rate_cents"`
	Unit          Unit           `json:"unit" gorm:"type:text;not null"`
	Currency      string         `json:"currency" gorm:"type:text;not null"`
	Conditions    datatypes.JSON `json:"conditions" gorm:"type:jsonb"`
	Active        bool           `json:"active" gorm:"not null;default:true;index"`
	CreatedAt     time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PriceRule) TableName() string { return "price_rules" }

// Definition decodes the stored condition list into an evaluator definition.
func (r *PriceRule) Definition() (Definition, error) {
	def := Definition{
		BaseRateCents: r.BaseRateCents,
		Unit:          r.Unit,
		Currency:      r.Currency,
	}
	if len(r.Conditions) > 0 {
		if err := json.Unmarshal(r.Conditions, &def.Conditions); err != nil {
			return Definition{}, ErrMalformedRule
		}
	}
	return def, nil
}
