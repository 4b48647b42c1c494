package models

import (
	"time"

	"gorm.io/datatypes"
)

// Movie is one normalized OMDb title. Every column is always present; optional
// ones are nil when the source had no usable value.
type Movie struct {
	ImdbID         string          `gorm:"column:imdb_id;primaryKey;type:varchar(32)" json:"imdb_id"`
	Title          string          `gorm:"type:text;not null" json:"title"`
	Year           *int            `json:"year"`
	Rated          *string         `gorm:"type:text" json:"rated"`
	RuntimeMinutes *int            `json:"runtime_minutes"`
	Genre          *string         `gorm:"type:text" json:"genre"`
	Director       *string         `gorm:"type:text" json:"director"`
	Actors         *string         `gorm:"type:text" json:"actors"`
	ImdbRating     *float64        `gorm:"column:imdb_rating" json:"imdb_rating"`
	ImdbVotes      *int64          `gorm:"column:imdb_votes" json:"imdb_votes"`
	BoxOffice      *int64          `json:"box_office"`
	ReleasedDate   *datatypes.Date `gorm:"type:date" json:"released_date"`
	RawJSON        datatypes.JSON  `gorm:"column:raw_json;type:jsonb;not null" json:"raw_json"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (Movie) TableName() string { return "movies" }
