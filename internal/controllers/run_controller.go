package controllers

import (
	"errors"
	"net/http"

	"omdbetl/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type RunController struct {
	Runs *store.RunLedger
	Log  *zap.Logger
}

// GetRuns returns the latest pipeline runs, newest first
func (rc *RunController) GetRuns(c *gin.Context) {
	limit := getLimitWithDefault(c, 20)

	runs, err := rc.Runs.Recent(c.Request.Context(), limit)
	if err != nil {
		logger(c, rc.Log).Error("failed to get runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs": runs,
	})
}

func (rc *RunController) GetRun(c *gin.Context) {
	run, err := rc.Runs.Get(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
			return
		}

		logger(c, rc.Log).Error("failed to get run", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run": run,
	})
}
