package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectSpace        = "space"
	ObjectArea         = "area"
	ObjectPriceRule    = "price_rule"
	ObjectBooking      = "booking"
	ObjectVerification = "verification"
	ObjectWallet       = "wallet"
	ObjectLedger       = "ledger"
)

const (
	ActionView    = "view"
	ActionCreate  = "create"
	ActionUpdate  = "update"
	ActionCancel  = "cancel"
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionReview  = "review"
	ActionManage  = "manage"
)

const (
	RoleCustomer = "customer"
	RolePartner  = "partner"
	RoleAdmin    = "admin"
)

var (
	ErrInvalidActor  = errors.New("authorization_invalid_actor")
	ErrInvalidObject = errors.New("authorization_invalid_object")
	ErrInvalidAction = errors.New("authorization_invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

type Service interface {
	Authorize(ctx context.Context, role, object, action string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role, object, action string) error {
	role = strings.TrimSpace(role)
	if role == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := fmt.Sprintf("role:%s", strings.ToLower(role))
	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action))
		return ErrForbidden
	}
	return nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Customers browse and manage their own bookings.
		{"role:customer", ObjectSpace, ActionView},
		{"role:customer", ObjectArea, ActionView},
		{"role:customer", ObjectBooking, ActionView},
		{"role:customer", ObjectBooking, ActionCreate},
		{"role:customer", ObjectBooking, ActionCancel},

		// Partners run their spaces and resolve reviews.
		{"role:partner", ObjectSpace, ActionView},
		{"role:partner", ObjectSpace, ActionCreate},
		{"role:partner", ObjectSpace, ActionUpdate},
		{"role:partner", ObjectArea, ActionView},
		{"role:partner", ObjectArea, ActionCreate},
		{"role:partner", ObjectArea, ActionUpdate},
		{"role:partner", ObjectPriceRule, ActionView},
		{"role:partner", ObjectPriceRule, ActionCreate},
		{"role:partner", ObjectBooking, ActionView},
		{"role:partner", ObjectBooking, ActionApprove},
		{"role:partner", ObjectBooking, ActionReject},
		{"role:partner", ObjectBooking, ActionUpdate},
		{"role:partner", ObjectWallet, ActionView},
		{"role:partner", ObjectLedger, ActionView},

		// Admins moderate the marketplace.
		{"role:admin", ObjectSpace, ActionView},
		{"role:admin", ObjectSpace, ActionManage},
		{"role:admin", ObjectArea, ActionManage},
		{"role:admin", ObjectVerification, ActionReview},
		{"role:admin", ObjectBooking, ActionView},
		{"role:admin", ObjectLedger, ActionView},
	}
	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy[0], policy[1], policy[2])
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy[0], policy[1], policy[2]); err != nil {
			return err
		}
	}
	return nil
}

var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)
