package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	customerdomain "github.com/smallbiznis/deskhive/internal/customer/domain"
)

func newCustomerService(t *testing.T) customerdomain.Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&customerdomain.Customer{}))

	node, err := snowflake.NewNode(11)
	require.NoError(t, err)
	return NewService(Params{DB: conn, Log: zap.NewNop(), GenID: node})
}

func TestEnsure_UpsertsByAuthID(t *testing.T) {
	svc := newCustomerService(t)
	ctx := context.Background()

	first, err := svc.Ensure(ctx, "auth-1", "Maya", "maya@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Maya", first.Name)

	// A repeated login returns the same profile, ignoring changed fields.
	again, err := svc.Ensure(ctx, "auth-1", "Maya Renamed", "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "maya@example.com", again.Email)

	_, err = svc.Ensure(ctx, "  ", "Nobody", "")
	assert.ErrorIs(t, err, customerdomain.ErrInvalidCustomer)
}

func TestGetByAuthID(t *testing.T) {
	svc := newCustomerService(t)
	ctx := context.Background()

	created, err := svc.Ensure(ctx, "auth-1", "Maya", "maya@example.com")
	require.NoError(t, err)

	found, err := svc.GetByAuthID(ctx, "auth-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	byID, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.AuthID, byID.AuthID)

	_, err = svc.GetByAuthID(ctx, "missing")
	assert.ErrorIs(t, err, customerdomain.ErrCustomerNotFound)
}
