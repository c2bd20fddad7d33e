package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// EntryDirection represents debit or credit postings.
type EntryDirection string

const (
	EntryDirectionDebit  EntryDirection = "debit"
	EntryDirectionCredit EntryDirection = "credit"
)

type SourceType string

const (
	// SourceTypeBookingPayment records a confirmed booking payment split
	// between the host and the platform.
	SourceTypeBookingPayment SourceType = "booking_payment"
	// SourceTypeRefund records money returned to a customer.
	SourceTypeRefund SourceType = "refund"
	// SourceTypePayout records a transfer of host payable out to the partner.
	SourceTypePayout SourceType = "payout"
)

type AccountCode string

const (
	// Assets
	AccountCodeCash AccountCode = "cash"

	// Liabilities
	AccountCodeHostPayable AccountCode = "host_payable"
	AccountCodeRefundLiab  AccountCode = "refund_liability"

	// Revenue
	AccountCodePlatformRevenue AccountCode = "platform_revenue"
)

// Account defines a chart-of-accounts entry, scoped per partner.
type Account struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	PartnerID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_ledger_accounts_partner_code,priority:1"`
	Code      AccountCode  `gorm:"type:text;not null;uniqueIndex:ux_ledger_accounts_partner_code,priority:2"`
	Name      string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "ledger_accounts" }

// Entry captures the immutable header for a financial event. The
// (partner_id, source_type, source_id) index makes posting idempotent.
type Entry struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	PartnerID  snowflake.ID `gorm:"not null;index;uniqueIndex:ux_ledger_entries_source,priority:1"`
	SourceType SourceType   `gorm:"type:text;not null;uniqueIndex:ux_ledger_entries_source,priority:2"`
	SourceID   snowflake.ID `gorm:"not null;uniqueIndex:ux_ledger_entries_source,priority:3"`
	Currency   string       `gorm:"type:text;not null"`
	OccurredAt time.Time    `gorm:"not null"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Entry) TableName() string { return "ledger_entries" }

// EntryLine is a double-entry posting line.
type EntryLine struct {
	ID        snowflake.ID   `gorm:"primaryKey"`
	EntryID   snowflake.ID   `gorm:"not null;index"`
	AccountID snowflake.ID   `gorm:"not null;index"`
	Direction EntryDirection `gorm:"type:text;not null"`
	Amount    int64          `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (EntryLine) TableName() string { return "ledger_entry_lines" }

var (
	ErrInvalidPartner    = errors.New("ledger_invalid_partner")
	ErrInvalidSourceType = errors.New("ledger_invalid_source_type")
	ErrInvalidSourceID   = errors.New("ledger_invalid_source_id")
	ErrInvalidCurrency   = errors.New("ledger_invalid_currency")
	ErrInvalidOccurredAt = errors.New("ledger_invalid_occurred_at")
	ErrInvalidEntryLines = errors.New("ledger_invalid_entry_lines")
	ErrInvalidAccount    = errors.New("ledger_invalid_account")
	ErrInvalidLineAmount = errors.New("ledger_invalid_line_amount")
	ErrInvalidDirection  = errors.New("ledger_invalid_direction")
	ErrUnbalancedEntry   = errors.New("ledger_unbalanced_entry")
)

// PostingLine is a line addressed by account code; the service resolves
// codes to account rows, creating them on first use.
type PostingLine struct {
	Code      AccountCode
	Direction EntryDirection
	Amount    int64
}

type Service interface {
	// CreateEntry posts a balanced double-entry record. Re-posting the same
	// (partner, source_type, source_id) is a silent no-op.
	CreateEntry(ctx context.Context, partnerID snowflake.ID, sourceType SourceType, sourceID snowflake.ID, currency string, occurredAt time.Time, lines []PostingLine) error

	// RecordBookingPayment posts the standard booking split: cash debit for
	// the gross amount, host payable credit for the net, platform revenue
	// credit for the fee.
	RecordBookingPayment(ctx context.Context, partnerID, bookingID snowflake.ID, grossCents, feeCents int64, currency string, occurredAt time.Time) error

	ListEntries(ctx context.Context, partnerID snowflake.ID) ([]*Entry, error)
	ListLines(ctx context.Context, entryID snowflake.ID) ([]*EntryLine, error)
	AccountBalance(ctx context.Context, partnerID snowflake.ID, code AccountCode) (int64, error)

	WithTrx(tx *gorm.DB) Service
}

// ValidateBalanced checks that debits equal credits.
func ValidateBalanced(lines []PostingLine) error {
	var debits, credits int64
	for _, line := range lines {
		switch line.Direction {
		case EntryDirectionDebit:
			debits += line.Amount
		case EntryDirectionCredit:
			credits += line.Amount
		default:
			return ErrInvalidDirection
		}
	}
	if debits != credits {
		return ErrUnbalancedEntry
	}
	return nil
}
