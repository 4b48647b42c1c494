package routes

import (
	"net/http"

	"omdbetl/internal/controllers"
	"omdbetl/internal/db"
	"omdbetl/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupRouter initializes the stores, controllers and API routes
func SetupRouter(conn *gorm.DB, log *zap.Logger) *gin.Engine {
	movieController := controllers.MovieController{Movies: store.NewMovieStore(conn), Log: log}
	runController := controllers.RunController{Runs: store.NewRunLedger(conn), Log: log}

	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		if err := db.Ping(c.Request.Context(), conn); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	api := router.Group("/api/v1")
	{
		movies := api.Group("/movies")
		{
			// GET /api/v1/movies?limit=100
			movies.GET("", movieController.GetMovies)
			// GET /api/v1/movies/:imdb_id
			movies.GET("/:imdb_id", movieController.GetMovie)
		}

		runs := api.Group("/runs")
		{
			// GET /api/v1/runs?limit=20
			runs.GET("", runController.GetRuns)
			// GET /api/v1/runs/:run_id
			runs.GET("/:run_id", runController.GetRun)
		}
	}

	return router
}
