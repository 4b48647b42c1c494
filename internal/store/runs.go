package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"omdbetl/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxErrorMessageLength bounds etl_runs.error_message, in characters.
const MaxErrorMessageLength = 2000

var ErrRunNotFound = errors.New("etl run not found")

type RunLedger struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewRunLedger(db *gorm.DB) *RunLedger {
	return &RunLedger{DB: db, now: time.Now}
}

// Begin persists a new run in the started state and returns its id.
func (l *RunLedger) Begin(ctx context.Context) (string, error) {
	run := models.EtlRun{
		RunID:  uuid.New().String(),
		Status: models.RunStatusStarted,
	}

	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&run).Error
	})
	if err != nil {
		return "", fmt.Errorf("record run start: %w", err)
	}

	return run.RunID, nil
}

// Finish stamps the end of runID with its counts and outcome.
func (l *RunLedger) Finish(ctx context.Context, runID string, extracted, loaded int, status string, errorMessage *string) error {
	updates := map[string]any{
		"finished_at":       l.now().UTC(),
		"records_extracted": extracted,
		"records_loaded":    loaded,
		"status":            status,
		"error_message":     TruncateError(errorMessage),
	}

	err := l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.EtlRun{}).Where("run_id = ?", runID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record run end: %w", err)
	}

	return nil
}

func (l *RunLedger) Get(ctx context.Context, runID string) (*models.EtlRun, error) {
	run, err := gorm.G[models.EtlRun](l.DB).Where("run_id = ?", runID).First(ctx)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Recent returns the latest runs, newest first.
func (l *RunLedger) Recent(ctx context.Context, limit int) ([]models.EtlRun, error) {
	return gorm.G[models.EtlRun](l.DB).Order("started_at DESC").Limit(limit).Find(ctx)
}

// TruncateError caps msg at MaxErrorMessageLength characters. The result is
// always storable as Postgres text: invalid UTF-8 is replaced and NUL bytes
// are removed.
func TruncateError(msg *string) *string {
	if msg == nil {
		return nil
	}
	s := strings.ReplaceAll(strings.ToValidUTF8(*msg, "\uFFFD"), "\x00", "")
	if utf8.RuneCountInString(s) <= MaxErrorMessageLength {
		return &s
	}
	runes := []rune(s)
	s = string(runes[:MaxErrorMessageLength])
	return &s
}
