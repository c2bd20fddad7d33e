package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/deskhive/internal/customer/domain"
	"github.com/smallbiznis/deskhive/pkg/db"
	"github.com/smallbiznis/deskhive/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
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

	repo repository.Repository[customerdomain.Customer]
}

func NewService(p Params) customerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,

		repo: repository.ProvideStore[customerdomain.Customer](p.DB),
	}
}

func (s *Service) Ensure(ctx context.Context, authID, name, email string) (*customerdomain.Customer, error) {
	authID = strings.TrimSpace(authID)
	if authID == "" {
		return nil, customerdomain.ErrInvalidCustomer
	}

	existing, err := s.repo.FindOne(ctx, &customerdomain.Customer{AuthID: authID})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now().UTC()
	customer := customerdomain.Customer{
		ID:        s.genID.Generate(),
		AuthID:    authID,
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, &customer); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return s.GetByAuthID(ctx, authID)
		}
		return nil, err
	}
	return &customer, nil
}

func (s *Service) GetByAuthID(ctx context.Context, authID string) (*customerdomain.Customer, error) {
	customer, err := s.repo.FindOne(ctx, &customerdomain.Customer{AuthID: strings.TrimSpace(authID)})
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, customerdomain.ErrCustomerNotFound
	}
	return customer, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*customerdomain.Customer, error) {
	customer, err := s.repo.FindOne(ctx, &customerdomain.Customer{ID: id})
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, customerdomain.ErrCustomerNotFound
	}
	return customer, nil
}
