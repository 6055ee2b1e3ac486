package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/castship/castship/internal/buildinfo"
	"github.com/castship/castship/internal/cli"
	"github.com/castship/castship/internal/config"
	"github.com/castship/castship/internal/cryptox"
	"github.com/castship/castship/internal/destinations"
	"github.com/castship/castship/internal/logging"
	"github.com/castship/castship/internal/service"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewDefault()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := destinations.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	keyring, err := cryptox.Default(cfg.MasterKey, cfg.KeyFile)
	if err != nil {
		log.Fatalf("master key: %v", err)
	}
	logger.Info(ctx, "master key resolved", "source", keyring.Source().String())

	codec := destinations.NewCodec(cryptox.NewCipher(keyring))
	repo := destinations.NewPostgresRepository(db)
	svc := service.NewDestinationService(repo, codec, logger)

	cli.NewApp(svc, logger).Run(ctx)
}
