package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smallbiznis/deskhive/internal/ledger/domain"
	"github.com/smallbiznis/deskhive/pkg/db"
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
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
	}
}

func (s *Service) WithTrx(tx *gorm.DB) domain.Service {
	if tx == nil {
		return s
	}
	return &Service{db: tx, log: s.log, genID: s.genID}
}

func (s *Service) CreateEntry(
	ctx context.Context,
	partnerID snowflake.ID,
	sourceType domain.SourceType,
	sourceID snowflake.ID,
	currency string,
	occurredAt time.Time,
	lines []domain.PostingLine,
) error {
	if partnerID == 0 {
		return domain.ErrInvalidPartner
	}
	if strings.TrimSpace(string(sourceType)) == "" {
		return domain.ErrInvalidSourceType
	}
	if sourceID == 0 {
		return domain.ErrInvalidSourceID
	}
	currency = strings.TrimSpace(currency)
	if currency == "" {
		return domain.ErrInvalidCurrency
	}
	if occurredAt.IsZero() {
		return domain.ErrInvalidOccurredAt
	}
	if len(lines) < 2 {
		return domain.ErrInvalidEntryLines
	}
	for _, line := range lines {
		if line.Code == "" {
			return domain.ErrInvalidAccount
		}
		if line.Amount < 0 {
			return domain.ErrInvalidLineAmount
		}
	}
	if err := domain.ValidateBalanced(lines); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := &domain.Entry{
			ID:         s.genID.Generate(),
			PartnerID:  partnerID,
			SourceType: sourceType,
			SourceID:   sourceID,
			Currency:   currency,
			OccurredAt: occurredAt.UTC(),
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(entry)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already posted for this source.
			return nil
		}

		for _, line := range lines {
			accountID, err := s.ensureAccount(ctx, tx, partnerID, line.Code)
			if err != nil {
				return err
			}
			if err := tx.Create(&domain.EntryLine{
				ID:        s.genID.Generate(),
				EntryID:   entry.ID,
				AccountID: accountID,
				Direction: line.Direction,
				Amount:    line.Amount,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) RecordBookingPayment(ctx context.Context, partnerID, bookingID snowflake.ID, grossCents, feeCents int64, currency string, occurredAt time.Time) error {
	if grossCents < 0 || feeCents < 0 || feeCents > grossCents {
		return domain.ErrInvalidLineAmount
	}
	lines := []domain.PostingLine{
		{Code: domain.AccountCodeCash, Direction: domain.EntryDirectionDebit, Amount: grossCents},
		{Code: domain.AccountCodeHostPayable, Direction: domain.EntryDirectionCredit, Amount: grossCents - feeCents},
		{Code: domain.AccountCodePlatformRevenue, Direction: domain.EntryDirectionCredit, Amount: feeCents},
	}
	return s.CreateEntry(ctx, partnerID, domain.SourceTypeBookingPayment, bookingID, currency, occurredAt, lines)
}

func (s *Service) ensureAccount(ctx context.Context, tx *gorm.DB, partnerID snowflake.ID, code domain.AccountCode) (snowflake.ID, error) {
	var account domain.Account
	err := tx.WithContext(ctx).
		Where("partner_id = ? AND code = ?", partnerID, code).
		First(&account).Error
	if err == nil {
		return account.ID, nil
	}
	if err != gorm.ErrRecordNotFound {
		return 0, err
	}

	account = domain.Account{
		ID:        s.genID.Generate(),
		PartnerID: partnerID,
		Code:      code,
		Name:      string(code),
	}
	if err := tx.WithContext(ctx).Create(&account).Error; err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return 0, err
		}
		if err := tx.WithContext(ctx).
			Where("partner_id = ? AND code = ?", partnerID, code).
			First(&account).Error; err != nil {
			return 0, err
		}
	}
	return account.ID, nil
}

func (s *Service) ListEntries(ctx context.Context, partnerID snowflake.ID) ([]*domain.Entry, error) {
	var entries []*domain.Entry
	err := s.db.WithContext(ctx).
		Where("partner_id = ?", partnerID).
		Order("occurred_at DESC").
		Find(&entries).Error
	return entries, err
}

func (s *Service) ListLines(ctx context.Context, entryID snowflake.ID) ([]*domain.EntryLine, error) {
	var lines []*domain.EntryLine
	err := s.db.WithContext(ctx).
		Where("entry_id = ?", entryID).
		Order("created_at ASC").
		Find(&lines).Error
	return lines, err
}

func (s *Service) AccountBalance(ctx context.Context, partnerID snowflake.ID, code domain.AccountCode) (int64, error) {
	var account domain.Account
	err := s.db.WithContext(ctx).
		Where("partner_id = ? AND code = ?", partnerID, code).
		First(&account).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	type row struct {
		Direction domain.EntryDirection
		Total     int64
	}
	var rows []row
	err = s.db.WithContext(ctx).
		Model(&domain.EntryLine{}).
		Select("direction, COALESCE(SUM(amount), 0) AS total").
		Where("account_id = ?", account.ID).
		Group("direction").
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}

	var debits, credits int64
	for _, r := range rows {
		switch r.Direction {
		case domain.EntryDirectionDebit:
			debits = r.Total
		case domain.EntryDirectionCredit:
			credits = r.Total
		}
	}
	// Asset accounts carry debit-normal balances, the rest credit-normal.
	if code == domain.AccountCodeCash {
		return debits - credits, nil
	}
	return credits - debits, nil
}
