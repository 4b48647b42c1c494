// Package normalize turns raw OMDb payloads into typed movie rows.
package normalize

import (
	"encoding/json"

	"omdbetl/internal/models"
	"omdbetl/internal/pkg/omdb"

	"gorm.io/datatypes"
)

// Movie maps one payload to a row. ok is false when imdbID or Title is
// missing, in which case the payload is dropped.
func Movie(raw *omdb.RawMovie) (movie models.Movie, ok bool) {
	if raw == nil {
		return models.Movie{}, false
	}

	id := Text(raw.Get("imdbID"))
	title := Text(raw.Get("Title"))
	if id == nil || title == nil {
		return models.Movie{}, false
	}

	return models.Movie{
		ImdbID:         *id,
		Title:          *title,
		Year:           Year(raw.Get("Year")),
		Rated:          Text(raw.Get("Rated")),
		RuntimeMinutes: RuntimeMinutes(raw.Get("Runtime")),
		Genre:          Text(raw.Get("Genre")),
		Director:       Text(raw.Get("Director")),
		Actors:         Text(raw.Get("Actors")),
		ImdbRating:     Float(raw.Get("imdbRating")),
		ImdbVotes:      IntWithCommas(raw.Get("imdbVotes")),
		BoxOffice:      BoxOffice(raw.Get("BoxOffice")),
		ReleasedDate:   ReleasedDate(raw.Get("Released")),
		RawJSON:        rawJSON(raw),
	}, true
}

func rawJSON(raw *omdb.RawMovie) datatypes.JSON {
	if len(raw.Body) > 0 {
		return datatypes.JSON(raw.Body)
	}
	b, err := json.Marshal(raw.Fields)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}

// Transform normalizes every payload in order, skipping the ones Movie
// rejects. The result is never nil.
func Transform(raw []*omdb.RawMovie) []models.Movie {
	rows := make([]models.Movie, 0, len(raw))
	for _, item := range raw {
		if movie, ok := Movie(item); ok {
			rows = append(rows, movie)
		}
	}
	return rows
}
