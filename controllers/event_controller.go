package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tobi-04/srm-be-sub001/services"
)

type eventRequest struct {
	Event   string                 `json:"event" binding:"required"`
	Payload map[string]interface{} `json:"payload"`
}

// IngestEvent feeds a business event to the trigger dispatcher. Dispatch
// runs in the background and never fails the emitting request: a matching
// problem downstream is logged, not surfaced here.
func IngestEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eventKind := strings.TrimSpace(req.Event)
	dispatcher := services.NewDispatcherService(getDB())
	go dispatcher.HandleEvent(context.Background(), eventKind, req.Payload)

	c.JSON(http.StatusAccepted, gin.H{
		"accepted": true,
		"event":    eventKind,
	})
}
