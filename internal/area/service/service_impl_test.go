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

	"github.com/smallbiznis/deskhive/internal/area/domain"
	spacedomain "github.com/smallbiznis/deskhive/internal/space/domain"
	spacesvc "github.com/smallbiznis/deskhive/internal/space/service"
	pkgrepo "github.com/smallbiznis/deskhive/pkg/repository"
)

func newAreaService(t *testing.T) (domain.Service, *spacedomain.Space, *snowflake.Node, spacedomain.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&spacedomain.Space{}, &domain.Area{}))

	node, err := snowflake.NewNode(9)
	require.NoError(t, err)
	logger := zap.NewNop()

	spaces := spacesvc.New(spacesvc.Params{
		Log:    logger,
		DB:     conn,
		Node:   node,
		Spaces: pkgrepo.ProvideStore[spacedomain.Space](conn),
	})
	areas := New(Params{
		Log:    logger,
		DB:     conn,
		Node:   node,
		Areas:  pkgrepo.ProvideStore[domain.Area](conn),
		Spaces: spaces,
	})

	sp, err := spaces.Create(context.Background(), node.Generate(), spacedomain.CreateSpaceInput{
		Name: "Harbor Works",
		City: "Rotterdam",
	})
	require.NoError(t, err)
	return areas, sp, node, spaces
}

func TestCreateArea(t *testing.T) {
	areas, sp, node, spaces := newAreaService(t)
	ctx := context.Background()

	area, err := areas.Create(ctx, domain.CreateAreaInput{
		SpaceID:     sp.ID,
		Name:        "Meeting Room 1",
		Kind:        "meeting_room",
		MaxCapacity: 8,
	})
	require.NoError(t, err)
	assert.True(t, area.Active)
	assert.False(t, area.RequiresApproval)

	_, err = areas.Create(ctx, domain.CreateAreaInput{SpaceID: sp.ID, Name: " ", Kind: "desk", MaxCapacity: 4})
	assert.ErrorIs(t, err, domain.ErrInvalidArea)

	_, err = areas.Create(ctx, domain.CreateAreaInput{SpaceID: sp.ID, Name: "Zero", Kind: "desk", MaxCapacity: 0})
	assert.ErrorIs(t, err, domain.ErrZeroCapacity)

	_, err = areas.Create(ctx, domain.CreateAreaInput{SpaceID: node.Generate(), Name: "Orphan", Kind: "desk", MaxCapacity: 4})
	assert.ErrorIs(t, err, spacedomain.ErrSpaceNotFound)

	// No new areas inside a deactivated space.
	require.NoError(t, spaces.Deactivate(ctx, sp.ID))
	_, err = areas.Create(ctx, domain.CreateAreaInput{SpaceID: sp.ID, Name: "Late", Kind: "desk", MaxCapacity: 4})
	assert.ErrorIs(t, err, spacedomain.ErrSpaceInactive)
}

func TestAreaApprovalAndDeactivation(t *testing.T) {
	areas, sp, node, _ := newAreaService(t)
	ctx := context.Background()

	area, err := areas.Create(ctx, domain.CreateAreaInput{
		SpaceID:     sp.ID,
		Name:        "Open Zone",
		Kind:        "hot_desk",
		MaxCapacity: 20,
	})
	require.NoError(t, err)

	require.NoError(t, areas.SetApprovalRequired(ctx, area.ID, true))
	reloaded, err := areas.Get(ctx, area.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.RequiresApproval)

	assert.ErrorIs(t, areas.SetApprovalRequired(ctx, node.Generate(), true), domain.ErrAreaNotFound)

	require.NoError(t, areas.Deactivate(ctx, area.ID))
	listed, err := areas.ListBySpace(ctx, sp.ID)
	require.NoError(t, err)
	assert.Empty(t, listed, "inactive areas drop out of listings")

	assert.ErrorIs(t, areas.Deactivate(ctx, area.ID), domain.ErrAreaNotFound)
}
