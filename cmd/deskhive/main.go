package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/smallbiznis/deskhive/internal/observability"
	"github.com/smallbiznis/deskhive/internal/scheduler"
	"github.com/smallbiznis/deskhive/internal/server"
	"github.com/smallbiznis/deskhive/pkg/db"
	"github.com/smallbiznis/deskhive/pkg/log"
)

func main() {
	app := fx.New(
		log.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

// RegisterSnowflake builds the ID generator node. NODE_ID distinguishes
// replicas so concurrently generated IDs never collide.
func RegisterSnowflake() (*snowflake.Node, error) {
	nodeID := int64(1)
	if raw := os.Getenv("NODE_ID"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed >= 0 && parsed < 1024 {
			nodeID = parsed
		}
	}
	return snowflake.NewNode(nodeID)
}
