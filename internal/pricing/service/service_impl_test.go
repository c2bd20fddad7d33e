package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	pricingdomain "github.com/smallbiznis/deskhive/internal/pricing/domain"
)

func newPricing(t *testing.T) (pricingdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&pricingdomain.PriceRule{}))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	return NewService(Params{DB: conn, Log: zap.NewNop(), GenID: node}), conn, node
}

func baseRate(v int64) *int64 { return &v }

func TestCreateRule_VersionsAndDeactivatesPrior(t *testing.T) {
	svc, _, node := newPricing(t)
	ctx := context.Background()
	partnerID := node.Generate()
	areaID := node.Generate()

	first, err := svc.CreateRule(ctx, partnerID, areaID, pricingdomain.CreateRuleInput{
		BaseRateCents: baseRate(1000),
		Unit:          pricingdomain.UnitHour,
		Currency:      "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.True(t, first.Active)
	assert.Equal(t, "USD", first.Currency, "currency normalizes to upper case")

	second, err := svc.CreateRule(ctx, partnerID, areaID, pricingdomain.CreateRuleInput{
		BaseRateCents: baseRate(1500),
		Unit:          pricingdomain.UnitHour,
		Currency:      "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)

	active, err := svc.GetActiveRule(ctx, areaID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, second.ID, active.ID)

	rules, err := svc.ListRules(ctx, areaID)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.False(t, rules[1].Active, "prior version stays for audit, inactive")
}

func TestCreateRule_RejectsMalformedDefinitions(t *testing.T) {
	svc, _, node := newPricing(t)
	ctx := context.Background()

	_, err := svc.CreateRule(ctx, node.Generate(), node.Generate(), pricingdomain.CreateRuleInput{
		BaseRateCents: baseRate(1000),
		Unit:          "fortnight",
		Currency:      "USD",
	})
	assert.ErrorIs(t, err, pricingdomain.ErrMalformedRule)

	_, err = svc.CreateRule(ctx, 0, node.Generate(), pricingdomain.CreateRuleInput{
		BaseRateCents: baseRate(1000),
		Unit:          pricingdomain.UnitHour,
		Currency:      "USD",
	})
	assert.ErrorIs(t, err, pricingdomain.ErrInvalidArea)
}

func TestQuote_UsesActiveRule(t *testing.T) {
	svc, _, node := newPricing(t)
	ctx := context.Background()
	partnerID := node.Generate()
	areaID := node.Generate()

	price := int64(3500)
	minHours := 4.0
	_, err := svc.CreateRule(ctx, partnerID, areaID, pricingdomain.CreateRuleInput{
		BaseRateCents: baseRate(1000),
		Unit:          pricingdomain.UnitHour,
		Currency:      "USD",
		Conditions: []pricingdomain.Condition{
			{ID: "half-day", Kind: pricingdomain.KindMinHours, MinHours: &minHours, PriceCents: &price},
		},
	})
	require.NoError(t, err)

	result, err := svc.Quote(ctx, areaID, pricingdomain.Context{Hours: 5})
	require.NoError(t, err)
	require.NotNil(t, result.PriceCents)
	assert.Equal(t, int64(3500), *result.PriceCents)
	require.NotNil(t, result.MatchedCondition)
	assert.Equal(t, "half-day", *result.MatchedCondition)

	result, err = svc.Quote(ctx, areaID, pricingdomain.Context{Hours: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), *result.PriceCents)
	assert.Nil(t, result.MatchedCondition)
}

func TestQuote_NoActiveRuleIsNoPrice(t *testing.T) {
	svc, _, node := newPricing(t)

	_, err := svc.Quote(context.Background(), node.Generate(), pricingdomain.Context{Hours: 2})
	assert.ErrorIs(t, err, pricingdomain.ErrNoPrice)
}

func TestQuote_CorruptStoredRuleSurfacesMalformed(t *testing.T) {
	svc, conn, node := newPricing(t)
	ctx := context.Background()
	areaID := node.Generate()

	// A rule whose condition payload rotted in storage must never price.
	rule := pricingdomain.PriceRule{
		ID:            node.Generate(),
		PartnerID:     node.Generate(),
		AreaID:        areaID,
		Version:       1,
		BaseRateCents: baseRate(1000),
		Unit:          pricingdomain.UnitHour,
		Currency:      "USD",
		Conditions:    datatypes.JSON([]byte(`{"not":"a list"`)),
		Active:        true,
	}
	require.NoError(t, conn.Create(&rule).Error)

	_, err := svc.Quote(ctx, areaID, pricingdomain.Context{Hours: 2})
	assert.ErrorIs(t, err, pricingdomain.ErrMalformedRule)
}
