package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/smallbiznis/deskhive/internal/ledger/domain"
)

func newLedger(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Account{}, &domain.Entry{}, &domain.EntryLine{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	return NewService(Params{DB: conn, Log: zap.NewNop(), GenID: node}), conn, node
}

func TestValidateBalanced(t *testing.T) {
	balanced := []domain.PostingLine{
		{Code: domain.AccountCodeCash, Direction: domain.EntryDirectionDebit, Amount: 2000},
		{Code: domain.AccountCodeHostPayable, Direction: domain.EntryDirectionCredit, Amount: 1800},
		{Code: domain.AccountCodePlatformRevenue, Direction: domain.EntryDirectionCredit, Amount: 200},
	}
	assert.NoError(t, domain.ValidateBalanced(balanced))

	unbalanced := []domain.PostingLine{
		{Code: domain.AccountCodeCash, Direction: domain.EntryDirectionDebit, Amount: 2000},
		{Code: domain.AccountCodeHostPayable, Direction: domain.EntryDirectionCredit, Amount: 1900},
	}
	assert.ErrorIs(t, domain.ValidateBalanced(unbalanced), domain.ErrUnbalancedEntry)

	badDirection := []domain.PostingLine{
		{Code: domain.AccountCodeCash, Direction: "sideways", Amount: 2000},
	}
	assert.ErrorIs(t, domain.ValidateBalanced(badDirection), domain.ErrInvalidDirection)
}

func TestCreateEntry_Validation(t *testing.T) {
	svc, _, node := newLedger(t)
	ctx := context.Background()
	partnerID := node.Generate()
	sourceID := node.Generate()
	now := time.Now().UTC()

	lines := []domain.PostingLine{
		{Code: domain.AccountCodeCash, Direction: domain.EntryDirectionDebit, Amount: 100},
		{Code: domain.AccountCodeHostPayable, Direction: domain.EntryDirectionCredit, Amount: 100},
	}

	assert.ErrorIs(t, svc.CreateEntry(ctx, 0, domain.SourceTypeBookingPayment, sourceID, "USD", now, lines), domain.ErrInvalidPartner)
	assert.ErrorIs(t, svc.CreateEntry(ctx, partnerID, "", sourceID, "USD", now, lines), domain.ErrInvalidSourceType)
	assert.ErrorIs(t, svc.CreateEntry(ctx, partnerID, domain.SourceTypeBookingPayment, 0, "USD", now, lines), domain.ErrInvalidSourceID)
	assert.ErrorIs(t, svc.CreateEntry(ctx, partnerID, domain.SourceTypeBookingPayment, sourceID, " ", now, lines), domain.ErrInvalidCurrency)
	assert.ErrorIs(t, svc.CreateEntry(ctx, partnerID, domain.SourceTypeBookingPayment, sourceID, "USD", time.Time{}, lines), domain.ErrInvalidOccurredAt)
	assert.ErrorIs(t, svc.CreateEntry(ctx, partnerID, domain.SourceTypeBookingPayment, sourceID, "USD", now, lines[:1]), domain.ErrInvalidEntryLines)

	negative := []domain.PostingLine{
		{Code: domain.AccountCodeCash, Direction: domain.EntryDirectionDebit, Amount: -1},
		{Code: domain.AccountCodeHostPayable, Direction: domain.EntryDirectionCredit, Amount: -1},
	}
	assert.ErrorIs(t, svc.CreateEntry(ctx, partnerID, domain.SourceTypeBookingPayment, sourceID, "USD", now, negative), domain.ErrInvalidLineAmount)
}

func TestRecordBookingPayment_IdempotentSplit(t *testing.T) {
	svc, conn, node := newLedger(t)
	ctx := context.Background()
	partnerID := node.Generate()
	bookingID := node.Generate()
	now := time.Now().UTC()

	require.NoError(t, svc.RecordBookingPayment(ctx, partnerID, bookingID, 2000, 200, "USD", now))

	entries, err := svc.ListEntries(ctx, partnerID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.SourceTypeBookingPayment, entries[0].SourceType)
	assert.Equal(t, bookingID, entries[0].SourceID)

	lines, err := svc.ListLines(ctx, entries[0].ID)
	require.NoError(t, err)
	require.Len(t, lines, 3)
	require.NoError(t, domain.ValidateBalanced(toPostingLines(t, conn, lines)))

	// Re-posting the same booking is a silent no-op.
	require.NoError(t, svc.RecordBookingPayment(ctx, partnerID, bookingID, 2000, 200, "USD", now))
	entries, err = svc.ListEntries(ctx, partnerID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// Normal balances after the split.
	cash, err := svc.AccountBalance(ctx, partnerID, domain.AccountCodeCash)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), cash)
	payable, err := svc.AccountBalance(ctx, partnerID, domain.AccountCodeHostPayable)
	require.NoError(t, err)
	assert.Equal(t, int64(1800), payable)
	revenue, err := svc.AccountBalance(ctx, partnerID, domain.AccountCodePlatformRevenue)
	require.NoError(t, err)
	assert.Equal(t, int64(200), revenue)
}

func TestRecordBookingPayment_RejectsBrokenSplit(t *testing.T) {
	svc, _, node := newLedger(t)
	ctx := context.Background()

	err := svc.RecordBookingPayment(ctx, node.Generate(), node.Generate(), 2000, 2001, "USD", time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrInvalidLineAmount)

	err = svc.RecordBookingPayment(ctx, node.Generate(), node.Generate(), -1, 0, "USD", time.Now().UTC())
	assert.ErrorIs(t, err, domain.ErrInvalidLineAmount)
}

func TestAccountBalance_UnknownAccountIsZero(t *testing.T) {
	svc, _, node := newLedger(t)

	balance, err := svc.AccountBalance(context.Background(), node.Generate(), domain.AccountCodeCash)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

// toPostingLines resolves stored lines back to code-addressed postings.
func toPostingLines(t *testing.T, conn *gorm.DB, lines []*domain.EntryLine) []domain.PostingLine {
	t.Helper()
	out := make([]domain.PostingLine, 0, len(lines))
	for _, line := range lines {
		var account domain.Account
		require.NoError(t, conn.Where("id = ?", line.AccountID).First(&account).Error)
		out = append(out, domain.PostingLine{Code: account.Code, Direction: line.Direction, Amount: line.Amount})
	}
	return out
}
