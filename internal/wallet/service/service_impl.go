package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/deskhive/internal/wallet/domain"
	"github.com/smallbiznis/deskhive/pkg/db"
	"github.com/smallbiznis/deskhive/pkg/repository"
)

type Params struct {
	fx.In

	Log          *zap.Logger
	DB           *gorm.DB
	Node         *snowflake.Node
	Wallets      repository.Repository[domain.Wallet]
	Transactions repository.Repository[domain.Transaction]
}

type walletService struct {
	log          *zap.Logger
	db           *gorm.DB
	node         *snowflake.Node
	wallets      repository.Repository[domain.Wallet]
	transactions repository.Repository[domain.Transaction]
}

func New(p Params) domain.Service {
	return &walletService{
		log:          p.Log.Named("wallet.service"),
		db:           p.DB,
		node:         p.Node,
		wallets:      p.Wallets,
		transactions: p.Transactions,
	}
}

func (s *walletService) WithTrx(tx *gorm.DB) domain.Service {
	if tx == nil {
		return s
	}
	clone := *s
	clone.db = tx
	clone.wallets = s.wallets.WithTrx(tx)
	clone.transactions = s.transactions.WithTrx(tx)
	return &clone
}

func (s *walletService) Credit(ctx context.Context, partnerID snowflake.ID, amountCents int64, currency, source string) error {
	if amountCents <= 0 {
		return domain.ErrInvalidAmount
	}
	return s.apply(ctx, partnerID, domain.TransactionCredit, amountCents, currency, source)
}

func (s *walletService) Debit(ctx context.Context, partnerID snowflake.ID, amountCents int64, currency, source string) error {
	if amountCents <= 0 {
		return domain.ErrInvalidAmount
	}
	return s.apply(ctx, partnerID, domain.TransactionDebit, amountCents, currency, source)
}

func (s *walletService) apply(ctx context.Context, partnerID snowflake.ID, typ domain.TransactionType, amountCents int64, currency, source string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wallets := s.wallets.WithTrx(tx)
		transactions := s.transactions.WithTrx(tx)

		wallet, err := wallets.FindOne(ctx, &domain.Wallet{PartnerID: partnerID})
		if err != nil {
			return err
		}
		if wallet == nil {
			wallet = &domain.Wallet{
				ID:        s.node.Generate(),
				PartnerID: partnerID,
				Currency:  currency,
			}
			if err := wallets.Create(ctx, wallet); err != nil {
				if !db.IsDuplicateKeyErr(err) {
					return err
				}
				wallet, err = wallets.FindOne(ctx, &domain.Wallet{PartnerID: partnerID})
				if err != nil {
					return err
				}
				if wallet == nil {
					return domain.ErrWalletNotFound
				}
			}
		}
		if wallet.Currency != currency {
			return domain.ErrCurrencyMismatch
		}

		delta := amountCents
		if typ == domain.TransactionDebit {
			if wallet.BalanceCents < amountCents {
				return domain.ErrInsufficientFunds
			}
			delta = -amountCents
		}

		movement := &domain.Transaction{
			ID:          s.node.Generate(),
			WalletID:    wallet.ID,
			Type:        typ,
			AmountCents: amountCents,
			Currency:    currency,
			Source:      source,
		}
		if err := transactions.Create(ctx, movement); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateMovement
			}
			return err
		}

		res := tx.Model(&domain.Wallet{}).
			Where("id = ?", wallet.ID).
			Update("balance_cents", gorm.Expr("balance_cents + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrWalletNotFound
		}
		return nil
	})
}

func (s *walletService) Get(ctx context.Context, partnerID snowflake.ID) (*domain.Wallet, error) {
	wallet, err := s.wallets.FindOne(ctx, &domain.Wallet{PartnerID: partnerID})
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, domain.ErrWalletNotFound
	}
	return wallet, nil
}

func (s *walletService) ListTransactions(ctx context.Context, partnerID snowflake.ID) ([]*domain.Transaction, error) {
	wallet, err := s.Get(ctx, partnerID)
	if err != nil {
		return nil, err
	}
	return s.transactions.Find(ctx, &domain.Transaction{WalletID: wallet.ID}, repository.WithOrder("created_at DESC"))
}
