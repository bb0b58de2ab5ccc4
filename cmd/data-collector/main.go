package main

import (
	"log"
	"os"

	"github.com/comsa33/data-collector/internal/api"
	"github.com/comsa33/data-collector/internal/config"
	"github.com/comsa33/data-collector/internal/engine"
	"github.com/comsa33/data-collector/internal/runner"
	"github.com/comsa33/data-collector/internal/runner/miniostorage"
	"github.com/comsa33/data-collector/internal/store"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("data-collector: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
	)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Runner registration happens once, here, before the server accepts
	// requests; the registry is read-only afterwards.
	reg := runner.NewRegistry(logger)
	miniostorage.Register(reg)

	eng := engine.NewEngine(db, reg, logger)
	srv := api.NewServer(cfg.ListenAddr, db, reg, eng, logger, cfg.PollInterval)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
