package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"omdbetl/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxLimit = 500

type MovieController struct {
	Movies *store.MovieStore
	Log    *zap.Logger
}

// GetMovies returns the most recently loaded movies
func (mc *MovieController) GetMovies(c *gin.Context) {
	limit := getLimitWithDefault(c, 100)

	movies, err := mc.Movies.List(c.Request.Context(), limit)
	if err != nil {
		logger(c, mc.Log).Error("failed to get movies", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"movies": movies,
	})
}

// GetMovie returns one movie by IMDb identifier
func (mc *MovieController) GetMovie(c *gin.Context) {
	movie, err := mc.Movies.Get(c.Request.Context(), c.Param("imdb_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Movie not found"})
			return
		}

		logger(c, mc.Log).Error("failed to get movie", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"movie": movie,
	})
}

// logger tags l with the request path; a nil l discards.
func logger(c *gin.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.With(zap.String("path", c.FullPath()))
}

func getLimitWithDefault(c *gin.Context, defaultValue int) int {
	if c.Query("limit") == "" {
		return defaultValue
	}

	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return defaultValue
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
