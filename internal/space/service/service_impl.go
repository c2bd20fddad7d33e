package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/deskhive/internal/space/domain"
	"github.com/smallbiznis/deskhive/pkg/db"
	"github.com/smallbiznis/deskhive/pkg/repository"
)

type Params struct {
	fx.In

	Log    *zap.Logger
	DB     *gorm.DB
	Node   *snowflake.Node
	Spaces repository.Repository[domain.Space]
}

type spaceService struct {
	log    *zap.Logger
	db     *gorm.DB
	node   *snowflake.Node
	spaces repository.Repository[domain.Space]
}

func New(p Params) domain.Service {
	return &spaceService{
		log:    p.Log.Named("space.service"),
		db:     p.DB,
		node:   p.Node,
		spaces: p.Spaces,
	}
}

func (s *spaceService) Create(ctx context.Context, partnerID snowflake.ID, input domain.CreateSpaceInput) (*domain.Space, error) {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.City) == "" {
		return nil, domain.ErrInvalidSpace
	}

	sp := &domain.Space{
		ID:          s.node.Generate(),
		PartnerID:   partnerID,
		Name:        input.Name,
		Description: input.Description,
		City:        input.City,
		Address:     input.Address,
		Amenities:   input.Amenities,
		Active:      true,
	}
	sp.Slug = s.uniqueSlug(ctx, input.Name, sp.ID)

	if err := s.spaces.Create(ctx, sp); err != nil {
		s.log.Error("failed to create space", zap.Error(err))
		return nil, err
	}
	return sp, nil
}

func (s *spaceService) Update(ctx context.Context, partnerID, spaceID snowflake.ID, input domain.CreateSpaceInput) (*domain.Space, error) {
	sp, err := s.Get(ctx, spaceID)
	if err != nil {
		return nil, err
	}
	if sp.PartnerID != partnerID {
		return nil, domain.ErrNotSpaceOwner
	}
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.City) == "" {
		return nil, domain.ErrInvalidSpace
	}

	sp.Name = input.Name
	sp.Description = input.Description
	sp.City = input.City
	sp.Address = input.Address
	sp.Amenities = input.Amenities
	if err := s.spaces.Update(ctx, sp.ID.String(), sp); err != nil {
		return nil, err
	}
	return sp, nil
}

func (s *spaceService) Get(ctx context.Context, id snowflake.ID) (*domain.Space, error) {
	sp, err := s.spaces.FindOne(ctx, &domain.Space{ID: id})
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, domain.ErrSpaceNotFound
	}
	return sp, nil
}

func (s *spaceService) GetBySlug(ctx context.Context, slugVal string) (*domain.Space, error) {
	sp, err := s.spaces.FindOne(ctx, &domain.Space{Slug: slugVal})
	if err != nil {
		return nil, err
	}
	if sp == nil {
		return nil, domain.ErrSpaceNotFound
	}
	return sp, nil
}

func (s *spaceService) List(ctx context.Context, city string) ([]*domain.Space, error) {
	filter := domain.Space{Active: true}
	if city != "" {
		filter.City = city
	}
	return s.spaces.Find(ctx, &filter, repository.WithOrder("created_at DESC"))
}

func (s *spaceService) ListByPartner(ctx context.Context, partnerID snowflake.ID) ([]*domain.Space, error) {
	return s.spaces.Find(ctx, &domain.Space{PartnerID: partnerID}, repository.WithOrder("created_at DESC"))
}

func (s *spaceService) Deactivate(ctx context.Context, spaceID snowflake.ID) error {
	res := s.db.WithContext(ctx).
		Model(&domain.Space{}).
		Where("id = ? AND active = ?", spaceID, true).
		Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		sp, err := s.spaces.FindOne(ctx, &domain.Space{ID: spaceID})
		if err != nil {
			return err
		}
		if sp == nil {
			return domain.ErrSpaceNotFound
		}
		return domain.ErrSpaceDeactivated
	}
	s.log.Info("space deactivated", zap.String("space_id", spaceID.String()))
	return nil
}

// uniqueSlug derives a URL slug from the name, falling back to a
// snowflake-suffixed form on collision.
func (s *spaceService) uniqueSlug(ctx context.Context, name string, id snowflake.ID) string {
	base := slug.Make(name)
	existing, err := s.spaces.FindOne(ctx, &domain.Space{Slug: base})
	if err == nil && existing == nil {
		return base
	}
	if err != nil && !db.IsDuplicateKeyErr(err) {
		s.log.Warn("slug lookup failed, suffixing", zap.Error(err))
	}
	return fmt.Sprintf("%s-%s", base, id.String())
}
