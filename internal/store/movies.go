package store

import (
	"context"
	"fmt"
	"math"

	"omdbetl/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 500

// Columns overwritten when an imdb_id already exists.
var movieUpdateColumns = []string{
	"title", "year", "rated", "runtime_minutes", "genre", "director", "actors",
	"imdb_rating", "imdb_votes", "box_office", "released_date", "raw_json", "updated_at",
}

type MovieStore struct {
	DB *gorm.DB
}

func NewMovieStore(db *gorm.DB) *MovieStore {
	return &MovieStore{DB: db}
}

// Upsert writes rows in one transaction keyed on imdb_id; existing rows take
// the incoming values. It returns the number of rows presented and does not
// touch the database when rows is empty.
func (s *MovieStore) Upsert(ctx context.Context, rows []models.Movie) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := dedupeLastWins(sanitize(rows))

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "imdb_id"}},
			DoUpdates: clause.AssignmentColumns(movieUpdateColumns),
		}).CreateInBatches(&batch, upsertBatchSize).Error
	})
	if err != nil {
		return 0, fmt.Errorf("upsert movies: %w", err)
	}

	return len(rows), nil
}

func (s *MovieStore) Get(ctx context.Context, imdbID string) (*models.Movie, error) {
	movie, err := gorm.G[models.Movie](s.DB).Where("imdb_id = ?", imdbID).First(ctx)
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// List returns the most recently updated movies first.
func (s *MovieStore) List(ctx context.Context, limit int) ([]models.Movie, error) {
	return gorm.G[models.Movie](s.DB).Order("updated_at DESC").Order("imdb_id").Limit(limit).Find(ctx)
}

// sanitize copies rows, clearing NaN ratings so they are stored as NULL.
func sanitize(rows []models.Movie) []models.Movie {
	out := make([]models.Movie, len(rows))
	copy(out, rows)
	for i := range out {
		if out[i].ImdbRating != nil && math.IsNaN(*out[i].ImdbRating) {
			out[i].ImdbRating = nil
		}
	}
	return out
}

// dedupeLastWins keeps the last row for each imdb_id, at the position of the
// first one. Postgres rejects an upsert that touches a key twice.
func dedupeLastWins(rows []models.Movie) []models.Movie {
	index := make(map[string]int, len(rows))
	out := make([]models.Movie, 0, len(rows))
	for _, row := range rows {
		if i, ok := index[row.ImdbID]; ok {
			out[i] = row
			continue
		}
		index[row.ImdbID] = len(out)
		out = append(out, row)
	}
	return out
}
