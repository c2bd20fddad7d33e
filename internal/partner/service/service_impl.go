package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	notificationdomain "github.com/smallbiznis/deskhive/internal/notification/domain"
	partnerdomain "github.com/smallbiznis/deskhive/internal/partner/domain"
	"github.com/smallbiznis/deskhive/pkg/db"
	"github.com/smallbiznis/deskhive/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	NotificationSvc notificationdomain.Service
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	notificationSvc notificationdomain.Service

	repo repository.Repository[partnerdomain.Partner]
}

func NewService(p Params) partnerdomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("partner.service"),
		genID:           p.GenID,
		notificationSvc: p.NotificationSvc,

		repo: repository.ProvideStore[partnerdomain.Partner](p.DB),
	}
}

func (s *Service) Register(ctx context.Context, input partnerdomain.RegisterInput) (*partnerdomain.Partner, error) {
	authID := strings.TrimSpace(input.AuthID)
	name := strings.TrimSpace(input.Name)
	if authID == "" || name == "" {
		return nil, partnerdomain.ErrInvalidPartner
	}

	now := time.Now().UTC()
	partner := partnerdomain.Partner{
		ID:        s.genID.Generate(),
		AuthID:    authID,
		Name:      name,
		Email:     strings.TrimSpace(input.Email),
		Status:    partnerdomain.VerificationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, &partner); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, partnerdomain.ErrDuplicatePartner
		}
		return nil, err
	}
	return &partner, nil
}

func (s *Service) GetByAuthID(ctx context.Context, authID string) (*partnerdomain.Partner, error) {
	partner, err := s.repo.FindOne(ctx, &partnerdomain.Partner{AuthID: strings.TrimSpace(authID)})
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, partnerdomain.ErrPartnerNotFound
	}
	return partner, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*partnerdomain.Partner, error) {
	partner, err := s.repo.FindOne(ctx, &partnerdomain.Partner{ID: id})
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, partnerdomain.ErrPartnerNotFound
	}
	return partner, nil
}

func (s *Service) ListPendingVerification(ctx context.Context) ([]*partnerdomain.Partner, error) {
	return s.repo.Find(ctx,
		&partnerdomain.Partner{Status: partnerdomain.VerificationPending},
		repository.WithOrder("created_at ASC"),
	)
}

func (s *Service) Review(ctx context.Context, id snowflake.ID, approve bool) (*partnerdomain.Partner, error) {
	partner, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if partner.Status != partnerdomain.VerificationPending {
		return nil, partnerdomain.ErrAlreadyReviewed
	}

	status := partnerdomain.VerificationVerified
	kind := notificationdomain.KindVerificationApproved
	body := "Your partner account has been verified. You can now publish spaces."
	if !approve {
		status = partnerdomain.VerificationRejected
		kind = notificationdomain.KindVerificationRejected
		body = "Your partner verification was declined. Contact support for details."
	}

	result := s.db.WithContext(ctx).
		Model(&partnerdomain.Partner{}).
		Where("id = ? AND status = ?", id, partnerdomain.VerificationPending).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, partnerdomain.ErrAlreadyReviewed
	}

	if _, err := s.notificationSvc.EnsureCreated(ctx,
		notificationdomain.SubjectPartner, partner.ID, kind,
		notificationdomain.Recipient{ID: partner.ID, Role: notificationdomain.RolePartner, Email: partner.Email},
		body,
	); err != nil {
		s.log.Warn("verification notification failed", zap.Int64("partner_id", int64(partner.ID)), zap.Error(err))
	}

	partner.Status = status
	return partner, nil
}
