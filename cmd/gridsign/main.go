package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gridsign/internal/clock"
	"github.com/smallbiznis/gridsign/internal/config"
	"github.com/smallbiznis/gridsign/internal/contract"
	"github.com/smallbiznis/gridsign/internal/counterparty"
	"github.com/smallbiznis/gridsign/internal/document"
	"github.com/smallbiznis/gridsign/internal/migration"
	"github.com/smallbiznis/gridsign/internal/observability"
	"github.com/smallbiznis/gridsign/internal/offer"
	"github.com/smallbiznis/gridsign/internal/providers/pdf"
	"github.com/smallbiznis/gridsign/internal/ratelimit"
	"github.com/smallbiznis/gridsign/internal/server"
	"github.com/smallbiznis/gridsign/internal/signing"
	"github.com/smallbiznis/gridsign/internal/storage"
	"github.com/smallbiznis/gridsign/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema must exist before the offer catalog sync runs.
		migration.Module,

		// Documents
		storage.Module,
		pdf.Module,
		document.Module,

		// Functional Domains
		counterparty.Module,
		offer.Module,
		contract.Module,
		ratelimit.Module,
		signing.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
