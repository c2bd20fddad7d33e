package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	areadomain "github.com/smallbiznis/deskhive/internal/area/domain"
	"github.com/smallbiznis/deskhive/internal/booking/domain"
	"github.com/smallbiznis/deskhive/internal/booking/guard"
	"github.com/smallbiznis/deskhive/internal/booking/repository"
	"github.com/smallbiznis/deskhive/internal/clock"
	"github.com/smallbiznis/deskhive/internal/config"
	customerdomain "github.com/smallbiznis/deskhive/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/deskhive/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/deskhive/internal/notification/domain"
	"github.com/smallbiznis/deskhive/internal/observability/metrics"
	partnerdomain "github.com/smallbiznis/deskhive/internal/partner/domain"
	pricingdomain "github.com/smallbiznis/deskhive/internal/pricing/domain"
	spacedomain "github.com/smallbiznis/deskhive/internal/space/domain"
	walletdomain "github.com/smallbiznis/deskhive/internal/wallet/domain"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Policy   *config.BookingPolicyHolder
	Repo     *repository.Repository
	Pricing  pricingdomain.Service
	Areas    areadomain.Service
	Spaces   spacedomain.Service
	Partners partnerdomain.Service
	Customer customerdomain.Service
	Ledger   ledgerdomain.Service
	Wallet   walletdomain.Service
	Notifier notificationdomain.Service
	Metrics  *metrics.BookingMetrics `optional:"true"`
}

type bookingService struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	policy   *config.BookingPolicyHolder
	repo     *repository.Repository
	pricing  pricingdomain.Service
	areas    areadomain.Service
	spaces   spacedomain.Service
	partners partnerdomain.Service
	customer customerdomain.Service
	ledger   ledgerdomain.Service
	wallet   walletdomain.Service
	notifier notificationdomain.Service
	metrics  *metrics.BookingMetrics
}

func New(p Params) domain.Service {
	return &bookingService{
		db:       p.DB,
		log:      p.Log.Named("booking.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		policy:   p.Policy,
		repo:     p.Repo,
		pricing:  p.Pricing,
		areas:    p.Areas,
		spaces:   p.Spaces,
		partners: p.Partners,
		customer: p.Customer,
		ledger:   p.Ledger,
		wallet:   p.Wallet,
		notifier: p.Notifier,
		metrics:  p.Metrics,
	}
}

func (s *bookingService) Create(ctx context.Context, input domain.CreateInput) (*domain.Booking, error) {
	if input.GuestCount <= 0 || input.Hours <= 0 || input.StartAt.IsZero() {
		return nil, domain.ErrInvalidBooking
	}

	area, err := s.areas.Get(ctx, input.AreaID)
	if err != nil {
		return nil, err
	}
	if !area.Active {
		return nil, areadomain.ErrAreaInactive
	}
	space, err := s.spaces.Get(ctx, area.SpaceID)
	if err != nil {
		return nil, err
	}
	if !space.Active {
		return nil, spacedomain.ErrSpaceInactive
	}

	startAt := input.StartAt.UTC()
	quote, err := s.pricing.Quote(ctx, input.AreaID, pricingdomain.Context{
		Hours:   input.Hours,
		StartAt: &startAt,
	})
	if err != nil {
		return nil, err
	}
	if quote.PriceCents == nil {
		return nil, pricingdomain.ErrNoPrice
	}

	now := s.clock.Now().UTC()
	endAt := startAt.Add(time.Duration(input.Hours * float64(time.Hour)))
	booking := &domain.Booking{
		ID:               s.genID.Generate(),
		SpaceID:          area.SpaceID,
		AreaID:           area.ID,
		CustomerID:       input.CustomerID,
		PartnerID:        space.PartnerID,
		GuestCount:       input.GuestCount,
		Hours:            input.Hours,
		StartAt:          startAt,
		EndAt:            endAt,
		PriceCents:       *quote.PriceCents,
		Currency:         quote.Currency,
		AreaMaxCapacity:  area.MaxCapacity,
		RequiresApproval: area.RequiresApproval,
		MatchedCondition: quote.MatchedCondition,
		Status:           domain.StatusPending,
		ExpiresAt:        now.Add(s.policy.Get().PendingTTL()),
	}

	if err := s.repo.Create(ctx, nil, booking); err != nil {
		s.log.Error("failed to create booking", zap.Error(err))
		return nil, err
	}
	return booking, nil
}

func (s *bookingService) Get(ctx context.Context, id snowflake.ID) (*domain.Booking, error) {
	booking, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.ErrBookingNotFound
	}
	return booking, nil
}

func (s *bookingService) ListByCustomer(ctx context.Context, customerID snowflake.ID) ([]*domain.Booking, error) {
	return s.repo.ListByCustomer(ctx, customerID)
}

func (s *bookingService) ListByPartner(ctx context.Context, partnerID snowflake.ID) ([]*domain.Booking, error) {
	return s.repo.ListByPartner(ctx, partnerID)
}

// occupyingStatuses returns the statuses that count against capacity,
// honoring the hot-reloadable policy toggle for pending holds.
func (s *bookingService) occupyingStatuses() []domain.Status {
	if s.policy.Get().CountPendingOccupancy {
		return domain.OccupyingStatuses
	}
	return domain.ConfirmedStatuses
}

func (s *bookingService) ConfirmFromPayment(ctx context.Context, bookingID snowflake.ID, evt domain.PaymentEvent) (domain.Outcome, error) {
	outcome, booking, err := s.resolvePayment(ctx, bookingID, evt)
	if s.metrics != nil && err == nil {
		s.metrics.RecordDecision(string(outcome))
	}
	if err != nil {
		return "", err
	}
	if outcome == domain.OutcomeManualReview {
		s.notifyBooking(ctx, nil, booking, notificationdomain.KindBookingReviewRequired)
	}
	return outcome, nil
}

// resolvePayment runs the guard inside one transaction. The booking row,
// its status transition, the ledger entry and the wallet credit commit or
// roll back together; confirmation notifications join the transaction too.
func (s *bookingService) resolvePayment(ctx context.Context, bookingID snowflake.ID, evt domain.PaymentEvent) (domain.Outcome, *domain.Booking, error) {
	var (
		outcome domain.Outcome
		booking *domain.Booking
	)
	statuses := s.occupyingStatuses()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = s.repo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return domain.ErrBookingNotFound
		}
		if booking.Status != domain.StatusPending {
			outcome = domain.OutcomeAlreadyHandled
			return nil
		}
		if err := s.repo.LockArea(ctx, tx, booking.AreaID); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrOccupancyQuery, err)
		}

		forceReview := booking.RequiresApproval || evt.RequiresHostApproval
		if evt.AmountCents != booking.PriceCents || evt.Currency != booking.Currency {
			s.log.Warn("payment amount mismatch, routing to review",
				zap.String("booking_id", bookingID.String()),
				zap.Int64("expected_cents", booking.PriceCents),
				zap.Int64("paid_cents", evt.AmountCents))
			forceReview = true
		}

		projected, err := s.repo.CountOverlapping(ctx, tx, booking.AreaID, booking.StartAt, booking.EndAt, booking.ID, statuses)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrOccupancyQuery, err)
		}

		decision := guard.Decide(projected, booking.GuestCount, booking.AreaMaxCapacity, forceReview)
		if decision == guard.DecisionReview {
			outcome = domain.OutcomeManualReview
			return nil
		}
		return s.commitConfirm(ctx, tx, booking, &outcome)
	})
	if err != nil {
		return "", nil, err
	}
	return outcome, booking, nil
}

// commitConfirm flips the booking to confirmed and writes the money
// records, all on the supplied transaction. Same-area confirms are
// serialized by the area lock on postgres and by the single writer on
// sqlite; the recount after the write catches a concurrent winner either
// way. Losing it rolls the whole transaction back and the booking stays
// pending.
func (s *bookingService) commitConfirm(ctx context.Context, tx *gorm.DB, booking *domain.Booking, outcome *domain.Outcome) error {
	won, err := s.repo.TransitionStatus(ctx, tx, booking.ID, domain.StatusPending, domain.StatusConfirmed, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if !won {
		*outcome = domain.OutcomeAlreadyHandled
		return nil
	}

	confirmed, err := s.repo.CountOverlapping(ctx, tx, booking.AreaID, booking.StartAt, booking.EndAt, booking.ID, domain.ConfirmedStatuses)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrOccupancyQuery, err)
	}
	if confirmed+int64(booking.GuestCount) > int64(booking.AreaMaxCapacity) {
		return domain.ErrCapacityRace
	}

	fee := platformFee(booking.PriceCents, s.policy.Get().PlatformFeeBps)
	now := s.clock.Now().UTC()
	if err := s.ledger.WithTrx(tx).RecordBookingPayment(ctx, booking.PartnerID, booking.ID, booking.PriceCents, fee, booking.Currency, now); err != nil {
		return err
	}
	source := fmt.Sprintf("booking:%s", booking.ID.String())
	if err := s.wallet.WithTrx(tx).Credit(ctx, booking.PartnerID, booking.PriceCents-fee, booking.Currency, source); err != nil && err != walletdomain.ErrDuplicateMovement {
		return err
	}

	booking.Status = domain.StatusConfirmed
	s.notifyBooking(ctx, tx, booking, notificationdomain.KindBookingConfirmed)
	*outcome = domain.OutcomeConfirmed
	return nil
}

// platformFee truncates toward zero; the remainder goes to the host.
func platformFee(grossCents int64, bps int) int64 {
	if grossCents <= 0 || bps <= 0 {
		return 0
	}
	return grossCents * int64(bps) / 10000
}

// notifyBooking fans a booking status change out to both parties. The
// unique index on notifications makes redelivered webhooks harmless; a
// delivery error is logged, never propagated.
func (s *bookingService) notifyBooking(ctx context.Context, tx *gorm.DB, booking *domain.Booking, kind notificationdomain.Kind) {
	if booking == nil {
		return
	}
	notifier := s.notifier.WithTrx(tx)
	body := notificationBody(kind, booking)

	recipients := []notificationdomain.Recipient{
		{ID: booking.CustomerID, Role: notificationdomain.RoleCustomer, Email: s.customerEmail(ctx, booking.CustomerID)},
		{ID: booking.PartnerID, Role: notificationdomain.RolePartner, Email: s.partnerEmail(ctx, booking.PartnerID)},
	}
	for _, recipient := range recipients {
		if _, err := notifier.EnsureCreated(ctx, notificationdomain.SubjectBooking, booking.ID, kind, recipient, body); err != nil {
			s.log.Warn("booking notification failed",
				zap.String("booking_id", booking.ID.String()),
				zap.String("kind", string(kind)),
				zap.Error(err))
		}
	}
}

func (s *bookingService) customerEmail(ctx context.Context, id snowflake.ID) string {
	c, err := s.customer.Get(ctx, id)
	if err != nil || c == nil {
		return ""
	}
	return c.Email
}

func (s *bookingService) partnerEmail(ctx context.Context, id snowflake.ID) string {
	p, err := s.partners.Get(ctx, id)
	if err != nil || p == nil {
		return ""
	}
	return p.Email
}

func notificationBody(kind notificationdomain.Kind, booking *domain.Booking) string {
	switch kind {
	case notificationdomain.KindBookingConfirmed:
		return fmt.Sprintf("Booking %s is confirmed for %s.", booking.ID, booking.StartAt.Format(time.RFC3339))
	case notificationdomain.KindBookingReviewRequired:
		return fmt.Sprintf("Booking %s needs host review before it can be confirmed.", booking.ID)
	case notificationdomain.KindBookingRejected:
		return fmt.Sprintf("Booking %s was declined by the host.", booking.ID)
	case notificationdomain.KindBookingExpired:
		return fmt.Sprintf("Booking %s expired before payment completed.", booking.ID)
	default:
		return string(kind)
	}
}

// Approve resolves a review booking in the host's favor. Capacity still
// binds: approval cannot overfill the area.
func (s *bookingService) Approve(ctx context.Context, partnerID, bookingID snowflake.ID) (domain.Outcome, error) {
	var (
		outcome domain.Outcome
		booking *domain.Booking
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = s.repo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return domain.ErrBookingNotFound
		}
		if booking.PartnerID != partnerID {
			return domain.ErrNotBookingOwner
		}
		if booking.Status != domain.StatusPending {
			outcome = domain.OutcomeAlreadyHandled
			return nil
		}
		if err := s.repo.LockArea(ctx, tx, booking.AreaID); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrOccupancyQuery, err)
		}

		projected, err := s.repo.CountOverlapping(ctx, tx, booking.AreaID, booking.StartAt, booking.EndAt, booking.ID, s.occupyingStatuses())
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrOccupancyQuery, err)
		}
		if guard.Decide(projected, booking.GuestCount, booking.AreaMaxCapacity, false) == guard.DecisionReview {
			outcome = domain.OutcomeManualReview
			return nil
		}
		return s.commitConfirm(ctx, tx, booking, &outcome)
	})
	if err != nil {
		return "", err
	}
	if s.metrics != nil {
		s.metrics.RecordDecision(string(outcome))
	}
	return outcome, nil
}

func (s *bookingService) Reject(ctx context.Context, partnerID, bookingID snowflake.ID) error {
	var booking *domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = s.repo.FindByIDForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return domain.ErrBookingNotFound
		}
		if booking.PartnerID != partnerID {
			return domain.ErrNotBookingOwner
		}
		won, err := s.repo.TransitionStatus(ctx, tx, bookingID, domain.StatusPending, domain.StatusRejected, s.clock.Now().UTC())
		if err != nil {
			return err
		}
		if !won {
			return domain.ErrNotPending
		}
		booking.Status = domain.StatusRejected
		s.notifyBooking(ctx, tx, booking, notificationdomain.KindBookingRejected)
		return nil
	})
	return err
}

func (s *bookingService) Cancel(ctx context.Context, customerID, bookingID snowflake.ID) error {
	booking, err := s.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.CustomerID != customerID {
		return domain.ErrNotBookingOwner
	}
	won, err := s.repo.TransitionStatus(ctx, nil, bookingID, domain.StatusPending, domain.StatusCancelled, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrNotPending
	}
	return nil
}

func (s *bookingService) CheckIn(ctx context.Context, partnerID, bookingID snowflake.ID) error {
	return s.hostTransition(ctx, partnerID, bookingID, domain.StatusConfirmed, domain.StatusCheckedIn)
}

func (s *bookingService) CheckOut(ctx context.Context, partnerID, bookingID snowflake.ID) error {
	return s.hostTransition(ctx, partnerID, bookingID, domain.StatusCheckedIn, domain.StatusCheckedOut)
}

func (s *bookingService) hostTransition(ctx context.Context, partnerID, bookingID snowflake.ID, from, to domain.Status) error {
	booking, err := s.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.PartnerID != partnerID {
		return domain.ErrNotBookingOwner
	}
	won, err := s.repo.TransitionStatus(ctx, nil, bookingID, from, to, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if !won {
		return domain.ErrInvalidTransition
	}
	return nil
}

func (s *bookingService) ExpireDue(ctx context.Context) (int64, error) {
	expired, err := s.repo.ExpireDue(ctx, s.clock.Now().UTC())
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		s.log.Info("expired stale pending bookings", zap.Int64("count", expired))
	}
	return expired, nil
}

func (s *bookingService) SettleFinished(ctx context.Context) (int64, error) {
	settled, err := s.repo.SettleFinished(ctx, s.clock.Now().UTC())
	if err != nil {
		return 0, err
	}
	if settled > 0 {
		s.log.Info("settled finished bookings", zap.Int64("count", settled))
	}
	return settled, nil
}
