package main

import (
	"omdbetl/internal/config"
	"omdbetl/internal/db"
	"omdbetl/internal/logger"
	"omdbetl/internal/routes"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New("", "info").Fatal("failed to load config", zap.Error(err))
	}

	log := logger.New(cfg.LogPath, cfg.LogLevel)
	defer log.Sync()

	if err := cfg.ValidateDatabase(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	conn, err := db.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	router := routes.SetupRouter(conn, log)

	log.Info("starting server", zap.String("addr", cfg.HTTPAddr))
	if err := router.Run(cfg.HTTPAddr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
