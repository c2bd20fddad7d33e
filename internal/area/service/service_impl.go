package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/deskhive/internal/area/domain"
	spacedomain "github.com/smallbiznis/deskhive/internal/space/domain"
	"github.com/smallbiznis/deskhive/pkg/repository"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	DB     *gorm.DB
	Node   *snowflake.Node
	Areas  repository.Repository[domain.Area]
	Spaces spacedomain.Service
}

type areaService struct {
	log    *zap.Logger
	db     *gorm.DB
	node   *snowflake.Node
	areas  repository.Repository[domain.Area]
	spaces spacedomain.Service
}

func New(p Params) domain.Service {
	return &areaService{
		log:    p.Log.Named("area.service"),
		db:     p.DB,
		node:   p.Node,
		areas:  p.Areas,
		spaces: p.Spaces,
	}
}

func (s *areaService) Create(ctx context.Context, input domain.CreateAreaInput) (*domain.Area, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, domain.ErrInvalidArea
	}
	if input.MaxCapacity <= 0 {
		return nil, domain.ErrZeroCapacity
	}

	sp, err := s.spaces.Get(ctx, input.SpaceID)
	if err != nil {
		return nil, err
	}
	if !sp.Active {
		return nil, spacedomain.ErrSpaceInactive
	}

	area := &domain.Area{
		ID:               s.node.Generate(),
		SpaceID:          input.SpaceID,
		Name:             input.Name,
		Kind:             input.Kind,
		MaxCapacity:      input.MaxCapacity,
		RequiresApproval: input.RequiresApproval,
		Active:           true,
	}
	if err := s.areas.Create(ctx, area); err != nil {
		s.log.Error("failed to create area", zap.Error(err))
		return nil, err
	}
	return area, nil
}

func (s *areaService) Get(ctx context.Context, id snowflake.ID) (*domain.Area, error) {
	area, err := s.areas.FindOne(ctx, &domain.Area{ID: id})
	if err != nil {
		return nil, err
	}
	if area == nil {
		return nil, domain.ErrAreaNotFound
	}
	return area, nil
}

func (s *areaService) ListBySpace(ctx context.Context, spaceID snowflake.ID) ([]*domain.Area, error) {
	return s.areas.Find(ctx, &domain.Area{SpaceID: spaceID, Active: true}, repository.WithOrder("created_at ASC"))
}

func (s *areaService) SetApprovalRequired(ctx context.Context, id snowflake.ID, required bool) error {
	res := s.db.WithContext(ctx).
		Model(&domain.Area{}).
		Where("id = ?", id).
		Update("requires_approval", required)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAreaNotFound
	}
	return nil
}

func (s *areaService) Deactivate(ctx context.Context, id snowflake.ID) error {
	res := s.db.WithContext(ctx).
		Model(&domain.Area{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAreaNotFound
	}
	return nil
}
