// Package pipeline runs one extract, transform and load pass and records it
// in the run ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"omdbetl/internal/models"
	"omdbetl/internal/normalize"
	"omdbetl/internal/pkg/omdb"

	"go.uber.org/zap"
)

type Extractor interface {
	Extract(ctx context.Context, ids []string) ([]*omdb.RawMovie, error)
}

type Loader interface {
	Upsert(ctx context.Context, rows []models.Movie) (int, error)
}

type Ledger interface {
	Begin(ctx context.Context) (string, error)
	Finish(ctx context.Context, runID string, extracted, loaded int, status string, errorMessage *string) error
}

type Pipeline struct {
	Extractor Extractor
	Loader    Loader
	Ledger    Ledger
	Log       *zap.Logger
}

func New(e Extractor, l Loader, ledger Ledger, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{Extractor: e, Loader: l, Ledger: ledger, Log: log}
}

// Result describes a successful run.
type Result struct {
	RunID     string
	Extracted int
	Loaded    int
}

func (r *Result) Summary() string {
	return fmt.Sprintf("ETL success. run_id=%s extracted=%d loaded=%d", r.RunID, r.Extracted, r.Loaded)
}

// Run executes one pass over ids. Once the run has begun it is always
// finished, as succeeded or failed, whatever happens in between. A panic is
// recorded as a failure and then re-raised.
func (p *Pipeline) Run(ctx context.Context, ids []string) (result *Result, err error) {
	runID, err := p.Ledger.Begin(ctx)
	if err != nil {
		return nil, err
	}
	log := p.logger().With(zap.String("run_id", runID))
	log.Info("run started", zap.Int("identifiers", len(ids)))

	var extracted, loaded int

	defer func() {
		rec := recover()

		status := models.RunStatusSucceeded
		var msg *string
		switch {
		case rec != nil:
			status = models.RunStatusFailed
			s := fmt.Sprintf("panic: %v", rec)
			msg = &s
		case err != nil:
			status = models.RunStatusFailed
			s := err.Error()
			msg = &s
		}

		// The caller's context may already be cancelled; the ledger row must
		// still be closed.
		finishCtx := context.WithoutCancel(ctx)
		if ferr := p.Ledger.Finish(finishCtx, runID, extracted, loaded, status, msg); ferr != nil {
			log.Error("failed to record run end", zap.Error(ferr))
			if rec == nil {
				err = errors.Join(err, ferr)
				result = nil
			}
		}

		if rec != nil {
			log.Error("run panicked", zap.Any("panic", rec))
			panic(rec)
		}
		if err != nil {
			log.Error("run failed", zap.Int("extracted", extracted), zap.Error(err))
			return
		}
		log.Info("run succeeded", zap.Int("extracted", extracted), zap.Int("loaded", loaded))
	}()

	raw, err := p.Extractor.Extract(ctx, ids)
	if err != nil {
		return nil, err
	}
	extracted = len(raw)

	rows := normalize.Transform(raw)
	if dropped := len(raw) - len(rows); dropped > 0 {
		log.Warn("dropped payloads without imdbID or Title", zap.Int("dropped", dropped))
	}

	loaded, err = p.Loader.Upsert(ctx, rows)
	if err != nil {
		return nil, err
	}

	return &Result{RunID: runID, Extracted: extracted, Loaded: loaded}, nil
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}
