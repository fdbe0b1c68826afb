package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tobi-04/srm-be-sub001/services"
)

// GetQueueStatus reports a point-in-time census of the job queue.
func GetQueueStatus(c *gin.Context) {
	stats, err := services.NewQueueService(getDB()).Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"queue": stats})
}
