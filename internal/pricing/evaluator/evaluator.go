// Package evaluator prices a booking context against a partner-authored rule
// definition. Evaluation is a pure function: no I/O, no clock reads, and the
// same (definition, context) pair always yields the same result.
package evaluator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	pricingdomain "github.com/smallbiznis/deskhive/internal/pricing/domain"
)

var dayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Evaluate walks the definition's conditions in declared order and returns
// the first match's price. With no match it falls back to the base rate
// scaled by whole billing units (partial units round up). A definition with
// no base rate and no matching condition yields ErrNoPrice.
func Evaluate(def pricingdomain.Definition, bctx pricingdomain.Context) (pricingdomain.Result, error) {
	if err := ValidateDefinition(def); err != nil {
		return pricingdomain.Result{}, err
	}
	if bctx.Hours <= 0 {
		return pricingdomain.Result{}, pricingdomain.ErrInvalidContext
	}

	for i := range def.Conditions {
		cond := def.Conditions[i]
		matched, err := matches(cond, bctx)
		if err != nil {
			return pricingdomain.Result{}, err
		}
		if !matched {
			continue
		}

		price, err := conditionPrice(def, cond, bctx)
		if err != nil {
			return pricingdomain.Result{}, err
		}
		id := cond.ID
		return pricingdomain.Result{
			PriceCents:       &price,
			Currency:         def.Currency,
			MatchedCondition: &id,
		}, nil
	}

	if def.BaseRateCents == nil {
		return pricingdomain.Result{PriceCents: nil, Currency: def.Currency}, pricingdomain.ErrNoPrice
	}

	price := fallbackPrice(*def.BaseRateCents, def.Unit, bctx.Hours)
	return pricingdomain.Result{
		PriceCents: &price,
		Currency:   def.Currency,
	}, nil
}

// ValidateDefinition rejects structurally broken definitions up front so a
// partial rule can never leak into a numeric answer.
func ValidateDefinition(def pricingdomain.Definition) error {
	if !def.Unit.Valid() {
		return fmt.Errorf("%w: unknown unit %q", pricingdomain.ErrMalformedRule, def.Unit)
	}
	if def.BaseRateCents != nil && *def.BaseRateCents < 0 {
		return fmt.Errorf("%w: negative base rate", pricingdomain.ErrMalformedRule)
	}
	if strings.TrimSpace(def.Currency) == "" {
		return fmt.Errorf("%w: missing currency", pricingdomain.ErrMalformedRule)
	}

	for i := range def.Conditions {
		if err := validateCondition(def, def.Conditions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateCondition(def pricingdomain.Definition, cond pricingdomain.Condition) error {
	if strings.TrimSpace(cond.ID) == "" {
		return fmt.Errorf("%w: condition missing id", pricingdomain.ErrMalformedRule)
	}

	hasPrice := cond.PriceCents != nil
	hasPercent := cond.PercentOff != nil
	if hasPrice == hasPercent {
		return fmt.Errorf("%w: condition %s needs exactly one of price_cents or percent_off", pricingdomain.ErrMalformedRule, cond.ID)
	}
	if hasPrice && *cond.PriceCents < 0 {
		return fmt.Errorf("%w: condition %s has negative price", pricingdomain.ErrMalformedRule, cond.ID)
	}
	if hasPercent {
		if *cond.PercentOff <= 0 || *cond.PercentOff > 100 {
			return fmt.Errorf("%w: condition %s has percent_off out of range", pricingdomain.ErrMalformedRule, cond.ID)
		}
		// A discount is relative to the base fallback; with no base rate
		// there is nothing to discount.
		if def.BaseRateCents == nil {
			return fmt.Errorf("%w: condition %s discounts a missing base rate", pricingdomain.ErrMalformedRule, cond.ID)
		}
	}

	switch cond.Kind {
	case pricingdomain.KindMinHours:
		if cond.MinHours == nil || *cond.MinHours <= 0 {
			return fmt.Errorf("%w: condition %s needs a positive min_hours", pricingdomain.ErrMalformedRule, cond.ID)
		}
	case pricingdomain.KindDayOfWeek:
		if len(cond.Days) == 0 {
			return fmt.Errorf("%w: condition %s has an empty day set", pricingdomain.ErrMalformedRule, cond.ID)
		}
		for _, day := range cond.Days {
			if _, ok := dayNames[strings.ToLower(strings.TrimSpace(day))]; !ok {
				return fmt.Errorf("%w: condition %s references unknown day %q", pricingdomain.ErrMalformedRule, cond.ID, day)
			}
		}
	case pricingdomain.KindTimeOfDay:
		from, errFrom := parseClock(cond.From)
		to, errTo := parseClock(cond.To)
		if errFrom != nil || errTo != nil {
			return fmt.Errorf("%w: condition %s has an unparsable time range", pricingdomain.ErrMalformedRule, cond.ID)
		}
		if from >= to {
			return fmt.Errorf("%w: condition %s time range is empty", pricingdomain.ErrMalformedRule, cond.ID)
		}
	default:
		return fmt.Errorf("%w: unknown condition kind %q", pricingdomain.ErrMalformedRule, cond.Kind)
	}

	return nil
}

// matches tests one condition's predicate against the context. Conditions
// that need a start timestamp simply do not match when it is absent.
func matches(cond pricingdomain.Condition, bctx pricingdomain.Context) (bool, error) {
	switch cond.Kind {
	case pricingdomain.KindMinHours:
		return bctx.Hours >= *cond.MinHours, nil

	case pricingdomain.KindDayOfWeek:
		if bctx.StartAt == nil {
			return false, nil
		}
		wanted := make(map[time.Weekday]bool, len(cond.Days))
		for _, day := range cond.Days {
			wanted[dayNames[strings.ToLower(strings.TrimSpace(day))]] = true
		}
		// The booking spans any day the window touches.
		start := bctx.StartAt.UTC()
		end := start.Add(time.Duration(bctx.Hours * float64(time.Hour)))
		for cursor := start; cursor.Before(end); cursor = cursor.Truncate(24 * time.Hour).Add(24 * time.Hour) {
			if wanted[cursor.Weekday()] {
				return true, nil
			}
		}
		return false, nil

	case pricingdomain.KindTimeOfDay:
		if bctx.StartAt == nil {
			return false, nil
		}
		from, _ := parseClock(cond.From)
		to, _ := parseClock(cond.To)
		minute := bctx.StartAt.UTC().Hour()*60 + bctx.StartAt.UTC().Minute()
		return minute >= from && minute < to, nil
	}

	return false, fmt.Errorf("%w: unknown condition kind %q", pricingdomain.ErrMalformedRule, cond.Kind)
}

func conditionPrice(def pricingdomain.Definition, cond pricingdomain.Condition, bctx pricingdomain.Context) (int64, error) {
	if cond.PriceCents != nil {
		return *cond.PriceCents, nil
	}
	// percent_off discounts the base fallback amount; validation guarantees
	// a base rate exists here.
	base := fallbackPrice(*def.BaseRateCents, def.Unit, bctx.Hours)
	discounted := float64(base) * (100 - *cond.PercentOff) / 100
	price := roundMoney(discounted)
	if price < 0 {
		price = 0
	}
	return price, nil
}

// fallbackPrice bills whole units: a booking cannot occupy a fraction of a
// day and pay for less than the day.
func fallbackPrice(rateCents int64, unit pricingdomain.Unit, hours float64) int64 {
	units := int64(math.Ceil(hours / unit.Hours()))
	if units < 1 {
		units = 1
	}
	return rateCents * units
}

func parseClock(value string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("bad clock value %q", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("bad clock hour %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("bad clock minute %q", value)
	}
	return hour*60 + minute, nil
}

func roundMoney(raw float64) int64 {
	return int64(math.Floor(raw + 0.5))
}
