package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	bookingdomain "github.com/smallbiznis/deskhive/internal/booking/domain"
	"github.com/smallbiznis/deskhive/internal/clock"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	BookingSvc bookingdomain.Service
	Config     Config `optional:"true"`
}

// Scheduler drives the periodic maintenance jobs: expiring stale pending
// holds today, whatever the marketplace grows next.
type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	bookingSvc bookingdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.BookingSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:         p.DB,
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		bookingSvc: p.BookingSvc,
	}, nil
}

// runJob executes one named job with a timeout. A timeout is logged and
// swallowed so one slow sweep never wedges the loop.
func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	log := s.log.With(zap.String("job", name))
	err := fn(ctx)
	log.Debug("job finished", zap.Duration("took", s.clock.Now().Sub(start)))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("job timed out", zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"expire_bookings", s.ExpireBookingsJob},
		{"settle_bookings", s.SettleBookingsJob},
	}

	for _, job := range jobs {
		if !s.cfg.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
	}
	return err
}

// ExpireBookingsJob lapses pending bookings whose hold window passed
// without a payment.
func (s *Scheduler) ExpireBookingsJob(ctx context.Context) error {
	expired, err := s.bookingSvc.ExpireDue(ctx)
	if err != nil {
		return err
	}
	if expired > 0 {
		s.log.Info("expired pending bookings", zap.Int64("count", expired))
	}
	return nil
}

// SettleBookingsJob closes out bookings whose window has ended.
func (s *Scheduler) SettleBookingsJob(ctx context.Context) error {
	settled, err := s.bookingSvc.SettleFinished(ctx)
	if err != nil {
		return err
	}
	if settled > 0 {
		s.log.Info("settled finished bookings", zap.Int64("count", settled))
	}
	return nil
}

// Run loops RunOnce until the context ends.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.log.Warn("scheduler sweep failed", zap.Error(err))
			}
		}
	}
}
