package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Wallet tracks a partner's payable balance in minor units.
type Wallet struct {
	ID           snowflake.ID `json:"id" gorm:"primaryKey"`
	PartnerID    snowflake.ID `json:"partner_id" gorm:"not null;uniqueIndex"`
	BalanceCents int64        `json:"balance_cents" gorm:"not null;default:0"`
	Currency     string       `json:"currency" gorm:"type:varchar(3);not null"`
	CreatedAt    time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Wallet) TableName() string { return "wallets" }

type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// Transaction is an append-only movement against a wallet. Source is a
// dedupe key: one movement per (wallet, source) pair.
type Transaction struct {
	ID          snowflake.ID    `json:"id" gorm:"primaryKey"`
	WalletID    snowflake.ID    `json:"wallet_id" gorm:"not null;index;uniqueIndex:ux_wallet_tx_source,priority:1"`
	Type        TransactionType `json:"type" gorm:"type:varchar(10);not null"`
	AmountCents int64           `json:"amount_cents" gorm:"not null"`
	Currency    string          `json:"currency" gorm:"type:varchar(3);not null"`
	Source      string          `json:"source" gorm:"type:text;not null;uniqueIndex:ux_wallet_tx_source,priority:2"`
	CreatedAt   time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Transaction) TableName() string { return "wallet_transactions" }

var (
	ErrWalletNotFound     = errors.New("wallet_not_found")
	ErrInvalidAmount      = errors.New("invalid_wallet_amount")
	ErrCurrencyMismatch   = errors.New("wallet_currency_mismatch")
	ErrInsufficientFunds  = errors.New("insufficient_funds")
	ErrDuplicateMovement  = errors.New("duplicate_wallet_movement")
)

type Service interface {
	// Credit adds funds to the partner's wallet, creating it on first use.
	// Source deduplicates: a repeated (partner, source) credit is a no-op
	// returning ErrDuplicateMovement.
	Credit(ctx context.Context, partnerID snowflake.ID, amountCents int64, currency, source string) error
	Debit(ctx context.Context, partnerID snowflake.ID, amountCents int64, currency, source string) error
	Get(ctx context.Context, partnerID snowflake.ID) (*Wallet, error)
	ListTransactions(ctx context.Context, partnerID snowflake.ID) ([]*Transaction, error)

	// WithTrx returns a copy bound to tx so movements join an enclosing
	// transaction.
	WithTrx(tx *gorm.DB) Service
}
