package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smallbiznis/deskhive/internal/booking/domain"
	"github.com/smallbiznis/deskhive/pkg/db"
)

// Repository is the booking data access layer. The occupancy primitive
// lives here so the service and the guard stay free of SQL.
type Repository struct {
	db *gorm.DB
}

type Params struct {
	fx.In

	DB *gorm.DB
}

func New(p Params) *Repository {
	return &Repository{db: p.DB}
}

func (r *Repository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *Repository) Create(ctx context.Context, tx *gorm.DB, b *domain.Booking) error {
	return r.conn(tx).WithContext(ctx).Create(b).Error
}

func (r *Repository) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	var b domain.Booking
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&b).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// FindByIDForUpdate fetches the booking holding a row lock where the
// dialect supports it. On sqlite the enclosing transaction already
// serializes writers.
func (r *Repository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	conn := r.conn(tx).WithContext(ctx)
	if db.IsPostgres(conn) {
		conn = conn.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var b domain.Booking
	err := conn.Where("id = ?", id).First(&b).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// LockArea takes a row lock on the area for the life of the transaction,
// serializing confirmations against the same area on postgres. The
// booking row lock alone cannot do that: two different bookings never
// contend on each other's rows. Other dialects fall back to their
// single-writer semantics.
func (r *Repository) LockArea(ctx context.Context, tx *gorm.DB, areaID snowflake.ID) error {
	conn := r.conn(tx).WithContext(ctx)
	if !db.IsPostgres(conn) {
		return nil
	}
	return conn.Exec("SELECT id FROM areas WHERE id = ? FOR UPDATE", areaID).Error
}

// CountOverlapping sums the guests of other bookings in the given statuses
// whose windows strictly overlap [start, end). Half-open semantics: a
// booking ending exactly at start, or starting exactly at end, does not
// overlap.
func (r *Repository) CountOverlapping(ctx context.Context, tx *gorm.DB, areaID snowflake.ID, start, end time.Time, excludeID snowflake.ID, statuses []domain.Status) (int64, error) {
	var total int64
	err := r.conn(tx).WithContext(ctx).
		Model(&domain.Booking{}).
		Select("COALESCE(SUM(guest_count), 0)").
		Where("area_id = ?", areaID).
		Where("id <> ?", excludeID).
		Where("status IN ?", statuses).
		Where("start_at < ? AND end_at > ?", end, start).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// TransitionStatus flips a booking from one status to another only if it
// is still in the expected status. Returns whether this call won the
// transition.
func (r *Repository) TransitionStatus(ctx context.Context, tx *gorm.DB, id snowflake.ID, from, to domain.Status, now time.Time) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *Repository) ListByCustomer(ctx context.Context, customerID snowflake.ID) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("start_at DESC").
		Find(&bookings).Error
	return bookings, err
}

func (r *Repository) ListByPartner(ctx context.Context, partnerID snowflake.ID) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	err := r.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("start_at DESC").
		Find(&bookings).Error
	return bookings, err
}

// ExpireDue flips pending bookings whose hold window lapsed.
func (r *Repository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("status = ? AND expires_at <= ?", domain.StatusPending, now).
		Updates(map[string]any{"status": domain.StatusExpired, "updated_at": now})
	return res.RowsAffected, res.Error
}

// SettleFinished flips bookings whose window has ended: checked-out (or
// still checked-in) ones to completed, confirmed ones that never checked
// in to noshow.
func (r *Repository) SettleFinished(ctx context.Context, now time.Time) (int64, error) {
	completed := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("status IN ? AND end_at <= ?", []domain.Status{domain.StatusCheckedIn, domain.StatusCheckedOut}, now).
		Updates(map[string]any{"status": domain.StatusCompleted, "updated_at": now})
	if completed.Error != nil {
		return 0, completed.Error
	}
	noshow := r.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("status = ? AND end_at <= ?", domain.StatusConfirmed, now).
		Updates(map[string]any{"status": domain.StatusNoShow, "updated_at": now})
	if noshow.Error != nil {
		return completed.RowsAffected, noshow.Error
	}
	return completed.RowsAffected + noshow.RowsAffected, nil
}
