package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/deskhive/internal/clock"
	notificationdomain "github.com/smallbiznis/deskhive/internal/notification/domain"
	"github.com/smallbiznis/deskhive/internal/providers/email"
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
	Clock clock.Clock
	Email email.Provider `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	email email.Provider

	repo repository.Repository[notificationdomain.Notification]
}

func NewService(p Params) notificationdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("notification.service"),
		genID: p.GenID,
		clock: p.Clock,
		email: p.Email,

		repo: repository.ProvideStore[notificationdomain.Notification](p.DB),
	}
}

// WithTrx returns a copy bound to the given transaction so notifications can
// commit atomically with the state change that caused them.
func (s *Service) WithTrx(tx *gorm.DB) notificationdomain.Service {
	if tx == nil {
		return s
	}
	clone := *s
	clone.db = tx
	clone.repo = s.repo.WithTrx(tx)
	return &clone
}

func (s *Service) EnsureCreated(
	ctx context.Context,
	subjectType notificationdomain.SubjectType,
	subjectID snowflake.ID,
	kind notificationdomain.Kind,
	recipient notificationdomain.Recipient,
	body string,
) (bool, error) {
	if subjectID == 0 || recipient.ID == 0 || strings.TrimSpace(string(kind)) == "" {
		return false, notificationdomain.ErrInvalidNotification
	}

	existing, err := s.repo.FindOne(ctx, &notificationdomain.Notification{
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Kind:        kind,
		RecipientID: recipient.ID,
	})
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	record := notificationdomain.Notification{
		ID:            s.genID.Generate(),
		SubjectType:   subjectType,
		SubjectID:     subjectID,
		Kind:          kind,
		RecipientID:   recipient.ID,
		RecipientRole: recipient.Role,
		Body:          body,
		CreatedAt:     s.clock.Now().UTC(),
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		// A concurrent delivery won the insert race; the unique index is
		// the actual guarantee, so treat the duplicate as already done.
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}

	s.deliverEmail(ctx, recipient, kind, body)
	return true, nil
}

func (s *Service) ListForRecipient(ctx context.Context, recipientID snowflake.ID, limit int) ([]*notificationdomain.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.Find(ctx,
		&notificationdomain.Notification{RecipientID: recipientID},
		repository.WithOrder("created_at DESC"),
		repository.WithLimit(limit),
	)
}

func (s *Service) MarkRead(ctx context.Context, id, recipientID snowflake.ID) error {
	now := s.clock.Now().UTC()
	return s.db.WithContext(ctx).
		Model(&notificationdomain.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Update("read_at", now).Error
}

func (s *Service) deliverEmail(ctx context.Context, recipient notificationdomain.Recipient, kind notificationdomain.Kind, body string) {
	if s.email == nil || strings.TrimSpace(recipient.Email) == "" {
		return
	}
	subject := emailSubject(kind)
	if err := s.email.Send(ctx, []string{recipient.Email}, subject, body); err != nil {
		// Email is best effort; the persisted row is the source of truth.
		s.log.Warn("notification email delivery failed",
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
}

func emailSubject(kind notificationdomain.Kind) string {
	switch kind {
	case notificationdomain.KindBookingConfirmed:
		return "Your booking is confirmed"
	case notificationdomain.KindBookingReviewRequired:
		return "A booking needs review"
	case notificationdomain.KindBookingRejected:
		return "Your booking was declined"
	case notificationdomain.KindBookingExpired:
		return "Your booking expired"
	case notificationdomain.KindVerificationApproved:
		return "Your partner account is verified"
	case notificationdomain.KindVerificationRejected:
		return "Your partner verification was declined"
	}
	return "DeskHive notification"
}
