package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"omdbetl/internal/config"
	"omdbetl/internal/db"
	"omdbetl/internal/logger"
	"omdbetl/internal/pipeline"
	"omdbetl/internal/tasks"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "omdbetl",
		Short:         "Load OMDb movie metadata into Postgres",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newEnqueueCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run [path]",
		Short: "Run the pipeline once over an identifier file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPipeline,
	}
}

func newEnqueueCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue [path]",
		Short: "Queue a pipeline run for the worker",
		Args:  cobra.MaximumNArgs(1),
		RunE:  enqueuePipeline,
	}
}

func inputPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return pipeline.DefaultInputPath
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(cfg.LogPath, cfg.LogLevel)
	defer log.Sync()

	ids, err := pipeline.ReadIdentifiers(inputPath(args))
	if err != nil {
		return err
	}

	conn, err := db.InitDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := tasks.NewTaskProcessor(conn, cfg, log)
	res, err := p.Pipeline().Run(ctx, ids)
	if err != nil {
		log.Error("ETL failed", zap.Error(err))
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Summary())
	return nil
}

func enqueuePipeline(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	ids, err := pipeline.ReadIdentifiers(inputPath(args))
	if err != nil {
		return err
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := asynq.NewClient(redisOpt)
	defer client.Close()

	task, err := tasks.NewRunPipelineTask(ids, "")
	if err != nil {
		return err
	}

	info, err := client.EnqueueContext(cmd.Context(), task, asynq.Queue("default"))
	if err != nil {
		return fmt.Errorf("failed to enqueue run: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Enqueued %s (id=%s, identifiers=%d)\n", info.Type, info.ID, len(ids))
	return nil
}
