// Package extract fetches raw OMDb payloads for a list of identifiers,
// one at a time, with pacing and bounded retries.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"omdbetl/internal/pkg/omdb"

	"go.uber.org/zap"
)

// Fetcher performs one attempt for one identifier.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (*omdb.RawMovie, error)
}

// FetchError is returned when every attempt for ID failed transiently.
type FetchError struct {
	ID       string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("network/parse failure fetching %s: %v", e.ID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsLogical reports whether err is an upstream rejection that must not be
// retried.
func IsLogical(err error) bool {
	var apiErr *omdb.APIError
	return errors.As(err, &apiErr)
}

type Extractor struct {
	Fetcher Fetcher

	// Delay is the pause between successive identifiers.
	Delay time.Duration
	// MaxRetries is the number of additional attempts after a transient failure.
	MaxRetries int
	// BackoffBase is multiplied by the attempt number before each retry.
	BackoffBase time.Duration

	// Sleep waits for d; tests replace it. Defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error

	Log *zap.Logger
}

func New(f Fetcher, delay time.Duration, maxRetries int, backoffBase time.Duration, log *zap.Logger) *Extractor {
	return &Extractor{
		Fetcher:     f,
		Delay:       delay,
		MaxRetries:  maxRetries,
		BackoffBase: backoffBase,
		Log:         log,
	}
}

// CleanIdentifiers trims ids, drops blanks and keeps only the first
// occurrence of each, in input order.
func CleanIdentifiers(ids []string) []string {
	cleaned := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		v := strings.TrimSpace(id)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		cleaned = append(cleaned, v)
	}
	return cleaned
}

// Extract returns one payload per cleaned identifier, in order. The first
// identifier that ultimately fails aborts the whole extraction and nothing
// is returned.
func (e *Extractor) Extract(ctx context.Context, ids []string) ([]*omdb.RawMovie, error) {
	cleaned := CleanIdentifiers(ids)
	e.logger().Info("extracting", zap.Int("requested", len(ids)), zap.Int("unique", len(cleaned)))

	raw := make([]*omdb.RawMovie, 0, len(cleaned))
	for i, id := range cleaned {
		if i > 0 && e.Delay > 0 {
			if err := e.sleep(ctx, e.Delay); err != nil {
				return nil, err
			}
		}

		movie, err := e.fetchWithRetry(ctx, id)
		if err != nil {
			return nil, err
		}
		raw = append(raw, movie)
	}

	return raw, nil
}

func (e *Extractor) fetchWithRetry(ctx context.Context, id string) (*omdb.RawMovie, error) {
	maxRetries := e.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		movie, err := e.Fetcher.Fetch(ctx, id)
		if err == nil {
			return movie, nil
		}
		if IsLogical(err) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		if attempt < maxRetries {
			backoff := e.BackoffBase * time.Duration(attempt+1)
			e.logger().Warn("transient fetch failure, retrying",
				zap.String("imdb_id", id),
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
				zap.Error(err),
			)
			if err := e.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}
	}

	return nil, &FetchError{ID: id, Attempts: maxRetries + 1, Err: lastErr}
}

func (e *Extractor) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (e *Extractor) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}
