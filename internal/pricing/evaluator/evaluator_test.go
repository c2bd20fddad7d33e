package evaluator

import (
	"errors"
	"testing"
	"time"

	pricingdomain "github.com/smallbiznis/deskhive/internal/pricing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }

func ts(value string) *time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	t = t.UTC()
	return &t
}

func TestEvaluate_FallbackRoundsUpWholeUnits(t *testing.T) {
	tests := []struct {
		name  string
		unit  pricingdomain.Unit
		rate  int64
		hours float64
		want  int64
	}{
		{"exact hours", pricingdomain.UnitHour, 1500, 3, 4500},
		{"partial hour bills full hour", pricingdomain.UnitHour, 1500, 2.5, 4500},
		{"sub hour bills one unit", pricingdomain.UnitHour, 1500, 0.25, 1500},
		{"partial day bills full day", pricingdomain.UnitDay, 80000, 30, 160000},
		{"exact day", pricingdomain.UnitDay, 80000, 24, 80000},
		{"partial week", pricingdomain.UnitWeek, 400000, 200, 800000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := pricingdomain.Definition{
				BaseRateCents: i64(tt.rate),
				Unit:          tt.unit,
				Currency:      "USD",
			}
			res, err := Evaluate(def, pricingdomain.Context{Hours: tt.hours})
			require.NoError(t, err)
			require.NotNil(t, res.PriceCents)
			assert.Equal(t, tt.want, *res.PriceCents)
			assert.Equal(t, "USD", res.Currency)
			assert.Nil(t, res.MatchedCondition)
		})
	}
}

func TestEvaluate_FirstMatchWins(t *testing.T) {
	def := pricingdomain.Definition{
		BaseRateCents: i64(1000),
		Unit:          pricingdomain.UnitHour,
		Currency:      "USD",
		Conditions: []pricingdomain.Condition{
			{ID: "bulk-8", Kind: pricingdomain.KindMinHours, MinHours: f64(8), PriceCents: i64(6000)},
			{ID: "bulk-4", Kind: pricingdomain.KindMinHours, MinHours: f64(4), PriceCents: i64(3500)},
		},
	}

	// 10h matches both; declaration order decides.
	res, err := Evaluate(def, pricingdomain.Context{Hours: 10})
	require.NoError(t, err)
	require.NotNil(t, res.MatchedCondition)
	assert.Equal(t, "bulk-8", *res.MatchedCondition)
	assert.Equal(t, int64(6000), *res.PriceCents)

	// 5h skips the first and lands on the second.
	res, err = Evaluate(def, pricingdomain.Context{Hours: 5})
	require.NoError(t, err)
	assert.Equal(t, "bulk-4", *res.MatchedCondition)
	assert.Equal(t, int64(3500), *res.PriceCents)

	// 2h matches neither and falls back to the base rate.
	res, err = Evaluate(def, pricingdomain.Context{Hours: 2})
	require.NoError(t, err)
	assert.Nil(t, res.MatchedCondition)
	assert.Equal(t, int64(2000), *res.PriceCents)
}

func TestEvaluate_NoBaseAndNoMatchYieldsNoPrice(t *testing.T) {
	def := pricingdomain.Definition{
		Unit:     pricingdomain.UnitHour,
		Currency: "USD",
		Conditions: []pricingdomain.Condition{
			{ID: "long-stay", Kind: pricingdomain.KindMinHours, MinHours: f64(8), PriceCents: i64(5000)},
		},
	}

	res, err := Evaluate(def, pricingdomain.Context{Hours: 2})
	require.ErrorIs(t, err, pricingdomain.ErrNoPrice)
	assert.Nil(t, res.PriceCents)

	// The same definition still prices when a condition matches.
	res, err = Evaluate(def, pricingdomain.Context{Hours: 9})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), *res.PriceCents)
}

func TestEvaluate_DayOfWeek(t *testing.T) {
	def := pricingdomain.Definition{
		BaseRateCents: i64(1000),
		Unit:          pricingdomain.UnitHour,
		Currency:      "USD",
		Conditions: []pricingdomain.Condition{
			{ID: "weekend", Kind: pricingdomain.KindDayOfWeek, Days: []string{"sat", "sun"}, PriceCents: i64(2500)},
		},
	}

	// 2026-08-29 is a Saturday.
	res, err := Evaluate(def, pricingdomain.Context{Hours: 2, StartAt: ts("2026-08-29T10:00:00Z")})
	require.NoError(t, err)
	assert.Equal(t, "weekend", *res.MatchedCondition)
	assert.Equal(t, int64(2500), *res.PriceCents)

	// Friday evening spilling into Saturday still touches the weekend.
	res, err = Evaluate(def, pricingdomain.Context{Hours: 4, StartAt: ts("2026-08-28T22:00:00Z")})
	require.NoError(t, err)
	require.NotNil(t, res.MatchedCondition)
	assert.Equal(t, "weekend", *res.MatchedCondition)

	// Midweek falls back.
	res, err = Evaluate(def, pricingdomain.Context{Hours: 2, StartAt: ts("2026-08-26T10:00:00Z")})
	require.NoError(t, err)
	assert.Nil(t, res.MatchedCondition)
	assert.Equal(t, int64(2000), *res.PriceCents)

	// Without a start timestamp the condition simply does not match.
	res, err = Evaluate(def, pricingdomain.Context{Hours: 2})
	require.NoError(t, err)
	assert.Nil(t, res.MatchedCondition)
	assert.Equal(t, int64(2000), *res.PriceCents)
}

func TestEvaluate_TimeOfDayHalfOpenRange(t *testing.T) {
	def := pricingdomain.Definition{
		BaseRateCents: i64(1000),
		Unit:          pricingdomain.UnitHour,
		Currency:      "USD",
		Conditions: []pricingdomain.Condition{
			{ID: "morning", Kind: pricingdomain.KindTimeOfDay, From: "06:00", To: "12:00", PriceCents: i64(800)},
		},
	}

	tests := []struct {
		name    string
		start   string
		matched bool
	}{
		{"inclusive lower bound", "2026-08-26T06:00:00Z", true},
		{"inside range", "2026-08-26T11:59:00Z", true},
		{"exclusive upper bound", "2026-08-26T12:00:00Z", false},
		{"before range", "2026-08-26T05:59:00Z", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Evaluate(def, pricingdomain.Context{Hours: 2, StartAt: ts(tt.start)})
			require.NoError(t, err)
			if tt.matched {
				require.NotNil(t, res.MatchedCondition)
				assert.Equal(t, int64(800), *res.PriceCents)
			} else {
				assert.Nil(t, res.MatchedCondition)
				assert.Equal(t, int64(2000), *res.PriceCents)
			}
		})
	}
}

func TestEvaluate_PercentOffDiscountsBase(t *testing.T) {
	def := pricingdomain.Definition{
		BaseRateCents: i64(1000),
		Unit:          pricingdomain.UnitHour,
		Currency:      "USD",
		Conditions: []pricingdomain.Condition{
			{ID: "long-stay", Kind: pricingdomain.KindMinHours, MinHours: f64(8), PercentOff: f64(25)},
		},
	}

	res, err := Evaluate(def, pricingdomain.Context{Hours: 8})
	require.NoError(t, err)
	assert.Equal(t, "long-stay", *res.MatchedCondition)
	// 8h * 1000 = 8000, minus 25%.
	assert.Equal(t, int64(6000), *res.PriceCents)

	// Rounding: 3h * 999 = 2997, 10% off = 2697.3 -> 2697.
	def.BaseRateCents = i64(999)
	def.Conditions[0].MinHours = f64(3)
	def.Conditions[0].PercentOff = f64(10)
	res, err = Evaluate(def, pricingdomain.Context{Hours: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(2697), *res.PriceCents)
}

func TestEvaluate_MalformedDefinitions(t *testing.T) {
	base := func() pricingdomain.Definition {
		return pricingdomain.Definition{
			BaseRateCents: i64(1000),
			Unit:          pricingdomain.UnitHour,
			Currency:      "USD",
		}
	}

	tests := []struct {
		name   string
		mutate func(*pricingdomain.Definition)
	}{
		{"unknown unit", func(d *pricingdomain.Definition) { d.Unit = "fortnight" }},
		{"negative base rate", func(d *pricingdomain.Definition) { d.BaseRateCents = i64(-5) }},
		{"missing currency", func(d *pricingdomain.Definition) { d.Currency = " " }},
		{"condition missing id", func(d *pricingdomain.Definition) {
			d.Conditions = []pricingdomain.Condition{{Kind: pricingdomain.KindMinHours, MinHours: f64(2), PriceCents: i64(100)}}
		}},
		{"condition with both outcomes", func(d *pricingdomain.Definition) {
			d.Conditions = []pricingdomain.Condition{{ID: "c", Kind: pricingdomain.KindMinHours, MinHours: f64(2), PriceCents: i64(100), PercentOff: f64(10)}}
		}},
		{"condition with no outcome", func(d *pricingdomain.Definition) {
			d.Conditions = []pricingdomain.Condition{{ID: "c", Kind: pricingdomain.KindMinHours, MinHours: f64(2)}}
		}},
		{"negative condition price", func(d *pricingdomain.Definition) {
			d.Conditions = []pricingdomain.Condition{{ID: "c", Kind: pricingdomain.KindMinHours, MinHours: f64(2), PriceCents: i64(-1)}}
		}},
		{"percent off out of range", func(d *pricingdomain.Definition) {
			d.Conditions = []pricingdomain.Condition{{ID: "c", Kind: pricingdomain.KindMinHours, MinHours: f64(2), PercentOff: f64(150)}}
		}},
		{"percent off with no base rate", func(d *pricingdomain.Definition) {
			d.BaseRateCents = nil
			d.Conditions = []pricingdomain.Condition{{ID: "c", Kind: pricingdomain.KindMinHours, MinHours: f64(2), PercentOff: f64(10)}}
		}},
		{"min_hours without threshold", func(d *pricingdomain.Definition) {
			d.Conditions = []pricingdomain.Condition{{ID: "c", Kind: pricingdomain.KindMinHours, PriceCents: i64(100)}}
		}},
		{"empty day set", func(d *pricingdomain.Definition) {
			d.Conditions = []pricingdomain.Condition{{ID: "c", Kind: pricingdomain.KindDayOfWeek, PriceCents: i64(100)}}
		}},
		{"unknown day name", func(d *pricingdomain.Definition) {
			d.Conditions = []pricingdomain.Condition{{ID: "c", Kind: pricingdomain.KindDayOfWeek, Days: []string{"blursday"}, PriceCents: i64(100)}}
		}},
		{"unparsable time range", func(d *pricingdomain.Definition) {
			d.Conditions = []pricingdomain.Condition{{ID: "c", Kind: pricingdomain.KindTimeOfDay, From: "six", To: "12:00", PriceCents: i64(100)}}
		}},
		{"empty time range", func(d *pricingdomain.Definition) {
			d.Conditions = []pricingdomain.Condition{{ID: "c", Kind: pricingdomain.KindTimeOfDay, From: "12:00", To: "12:00", PriceCents: i64(100)}}
		}},
		{"unknown condition kind", func(d *pricingdomain.Definition) {
			d.Conditions = []pricingdomain.Condition{{ID: "c", Kind: "moon_phase", PriceCents: i64(100)}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := base()
			tt.mutate(&def)
			_, err := Evaluate(def, pricingdomain.Context{Hours: 2})
			assert.True(t, errors.Is(err, pricingdomain.ErrMalformedRule), "got %v", err)
		})
	}
}

func TestEvaluate_InvalidContext(t *testing.T) {
	def := pricingdomain.Definition{BaseRateCents: i64(1000), Unit: pricingdomain.UnitHour, Currency: "USD"}
	_, err := Evaluate(def, pricingdomain.Context{Hours: 0})
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidContext)
	_, err = Evaluate(def, pricingdomain.Context{Hours: -1})
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidContext)
}

func TestEvaluate_Deterministic(t *testing.T) {
	def := pricingdomain.Definition{
		BaseRateCents: i64(1200),
		Unit:          pricingdomain.UnitHour,
		Currency:      "USD",
		Conditions: []pricingdomain.Condition{
			{ID: "weekend", Kind: pricingdomain.KindDayOfWeek, Days: []string{"sat"}, PercentOff: f64(15)},
			{ID: "bulk", Kind: pricingdomain.KindMinHours, MinHours: f64(6), PriceCents: i64(6000)},
		},
	}
	bctx := pricingdomain.Context{Hours: 7, StartAt: ts("2026-08-29T09:30:00Z")}

	first, err := Evaluate(def, bctx)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := Evaluate(def, bctx)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
