package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tobi-04/srm-be-sub001/services"
)

type previewRequest struct {
	Template  string `json:"template" binding:"required"`
	EventKind string `json:"event_kind"`
}

// PreviewTemplate renders a template against the fixed sample dataset of an
// event kind. No persistence, no side effects.
func PreviewTemplate(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rendered, err := services.PreviewTemplate(req.Template, strings.TrimSpace(req.EventKind))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"event_kind": req.EventKind,
		"rendered":   rendered,
	})
}

// GetTemplateVariables lists the variable paths templates may reference for
// an event kind, plus the sample values used for previews.
func GetTemplateVariables(c *gin.Context) {
	eventKind := strings.TrimSpace(c.Query("event_kind"))
	c.JSON(http.StatusOK, gin.H{
		"event_kind": eventKind,
		"variables":  services.TemplateVariableNames(eventKind),
		"sample":     services.SampleVariables(eventKind),
	})
}
