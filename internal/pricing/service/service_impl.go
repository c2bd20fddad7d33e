package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	pricingdomain "github.com/smallbiznis/deskhive/internal/pricing/domain"
	"github.com/smallbiznis/deskhive/internal/pricing/evaluator"
	"github.com/smallbiznis/deskhive/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	ruleRepo repository.Repository[pricingdomain.PriceRule]
}

func NewService(p Params) pricingdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("pricing.service"),
		genID: p.GenID,

		ruleRepo: repository.ProvideStore[pricingdomain.PriceRule](p.DB),
	}
}

func (s *Service) Quote(ctx context.Context, areaID snowflake.ID, bctx pricingdomain.Context) (pricingdomain.Result, error) {
	if areaID == 0 {
		return pricingdomain.Result{}, pricingdomain.ErrInvalidArea
	}
	if bctx.Hours <= 0 {
		return pricingdomain.Result{}, pricingdomain.ErrInvalidContext
	}

	rule, err := s.GetActiveRule(ctx, areaID)
	if err != nil {
		return pricingdomain.Result{}, err
	}
	if rule == nil {
		// An area without an active rule cannot be priced. This is a
		// business outcome for the customer, not a server fault.
		return pricingdomain.Result{}, pricingdomain.ErrNoPrice
	}

	def, err := rule.Definition()
	if err != nil {
		s.log.Error("stored price rule failed to decode",
			zap.Int64("rule_id", int64(rule.ID)),
			zap.Int64("area_id", int64(areaID)),
			zap.Error(err),
		)
		return pricingdomain.Result{}, err
	}

	result, err := evaluator.Evaluate(def, bctx)
	if err != nil {
		return pricingdomain.Result{}, err
	}
	return result, nil
}

func (s *Service) GetActiveRule(ctx context.Context, areaID snowflake.ID) (*pricingdomain.PriceRule, error) {
	var rule pricingdomain.PriceRule
	err := s.db.WithContext(ctx).
		Where("area_id = ? AND active = ?", areaID, true).
		Order("version DESC").
		First(&rule).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (s *Service) ListRules(ctx context.Context, areaID snowflake.ID) ([]*pricingdomain.PriceRule, error) {
	return s.ruleRepo.Find(ctx, &pricingdomain.PriceRule{AreaID: areaID}, repository.WithOrder("version DESC"))
}

func (s *Service) CreateRule(ctx context.Context, partnerID, areaID snowflake.ID, input pricingdomain.CreateRuleInput) (*pricingdomain.PriceRule, error) {
	if partnerID == 0 || areaID == 0 {
		return nil, pricingdomain.ErrInvalidArea
	}

	def := pricingdomain.Definition{
		BaseRateCents: input.BaseRateCents,
		Unit:          input.Unit,
		Currency:      strings.ToUpper(strings.TrimSpace(input.Currency)),
		Conditions:    input.Conditions,
	}
	if err := evaluator.ValidateDefinition(def); err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(input.Conditions)
	if err != nil {
		return nil, pricingdomain.ErrMalformedRule
	}

	now := time.Now().UTC()
	rule := pricingdomain.PriceRule{
		ID:            s.genID.Generate(),
		PartnerID:     partnerID,
		AreaID:        areaID,
		BaseRateCents: input.BaseRateCents,
		Unit:          input.Unit,
		Currency:      def.Currency,
		Conditions:    datatypes.JSON(encoded),
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxVersion int
		if err := tx.Raw(
			`SELECT COALESCE(MAX(version), 0) FROM price_rules WHERE area_id = ?`,
			areaID,
		).Scan(&maxVersion).Error; err != nil {
			return err
		}
		rule.Version = maxVersion + 1

		// Prior versions stay in place: already-priced bookings snapshot
		// their price, so old rows are only needed for audit.
		if err := tx.Model(&pricingdomain.PriceRule{}).
			Where("area_id = ? AND active = ?", areaID, true).
			Update("active", false).Error; err != nil {
			return err
		}

		return tx.Create(&rule).Error
	})
	if err != nil {
		return nil, err
	}

	return &rule, nil
}
