package main

import (
	"os"
	"os/signal"
	"syscall"

	"omdbetl/internal/config"
	"omdbetl/internal/db"
	"omdbetl/internal/logger"
	"omdbetl/internal/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.New("", "info").Fatal("failed to load configuration", zap.Error(err))
	}

	log := logger.New(cfg.LogPath, cfg.LogLevel)
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	conn, err := db.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	log.Info("worker connected to database")

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		log.Fatal("failed to parse Redis URL", zap.Error(err))
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Queues: map[string]int{
				"default": 1,
			},
			// Runs are sequential by contract.
			Concurrency: 1,
		},
	)

	taskProcessor := tasks.NewTaskProcessor(conn, cfg, log)

	mux := asynq.NewServeMux()
	mux.HandleFunc(
		tasks.TypeTaskRunPipeline,
		taskProcessor.HandleRunPipelineTask,
	)

	go func() {
		log.Info("starting asynq worker server")
		if err := srv.Run(mux); err != nil {
			log.Fatal("could not run asynq worker server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Info("shutdown signal received, shutting down gracefully")

	srv.Shutdown()
	log.Info("worker process shut down complete")
}
