package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"omdbetl/internal/config"
	"omdbetl/internal/extract"
	"omdbetl/internal/pipeline"
	"omdbetl/internal/pkg/omdb"
	"omdbetl/internal/store"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TaskProcessor holds dependencies for our task handlers
type TaskProcessor struct {
	DB         *gorm.DB
	config     *config.Config
	log        *zap.Logger
	omdbClient *omdb.Client
}

func NewTaskProcessor(db *gorm.DB, cfg *config.Config, log *zap.Logger) *TaskProcessor {
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskProcessor{
		DB:         db,
		config:     cfg,
		log:        log,
		omdbClient: omdb.New(cfg.OMDbAPIKey, cfg.OMDbBaseURL, cfg.RequestTimeout),
	}
}

// Pipeline wires a pipeline from the processor's configuration.
func (p *TaskProcessor) Pipeline() *pipeline.Pipeline {
	ex := extract.New(p.omdbClient, p.config.RequestDelay, p.config.MaxRetries, p.config.RetryBackoff, p.log)
	return pipeline.New(ex, store.NewMovieStore(p.DB), store.NewRunLedger(p.DB), p.log)
}

// HandleRunPipelineTask runs one pass. Failures are final: the run is
// already recorded as failed, so the queue must not retry it.
func (p *TaskProcessor) HandleRunPipelineTask(ctx context.Context, t *asynq.Task) error {
	var payload RunPipelinePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	ids := payload.IDs
	if len(ids) == 0 && payload.InputPath != "" {
		var err error
		ids, err = pipeline.ReadIdentifiers(payload.InputPath)
		if err != nil {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
	}

	p.log.Info("running pipeline task", zap.Int("identifiers", len(ids)))

	res, err := p.Pipeline().Run(ctx, ids)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	p.log.Info(res.Summary())
	return nil
}

func (p *TaskProcessor) GetOMDbClient() *omdb.Client {
	return p.omdbClient
}
