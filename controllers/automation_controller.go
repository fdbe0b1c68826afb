package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tobi-04/srm-be-sub001/config"
	"github.com/tobi-04/srm-be-sub001/models"
	"github.com/tobi-04/srm-be-sub001/services"
	"github.com/tobi-04/srm-be-sub001/utils"
)

func getDB() *gorm.DB { return config.DB }

func parseIDParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func parsePagination(c *gin.Context) (limit, offset int) {
	limit = 20
	offset = 0
	if v, err := strconv.Atoi(strings.TrimSpace(c.Query("limit"))); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(c.Query("offset"))); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

func respondServiceError(c *gin.Context, err error) {
	var vErr *services.ValidationError
	var tErr *services.TemplateError
	switch {
	case errors.Is(err, services.ErrAutomationNotFound),
		errors.Is(err, services.ErrStepNotFound),
		errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &vErr), errors.As(err, &tErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

type automationRequest struct {
	Name        string  `json:"name" binding:"required"`
	TriggerKind string  `json:"trigger_kind" binding:"required"`
	EventType   *string `json:"event_type"`
	TargetGroup *string `json:"target_group"`
	CreatedBy   *int    `json:"created_by"`
}

func GetAutomations(c *gin.Context) {
	limit, offset := parsePagination(c)
	includeInactive := c.Query("include_inactive") == "1" || strings.EqualFold(c.Query("include_inactive"), "true")

	svc := services.NewAutomationService(getDB())
	items, total, err := svc.List(c.Request.Context(), includeInactive, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"automations": items,
		"total":       total,
		"limit":       limit,
		"offset":      offset,
	})
}

func GetAutomation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	svc := services.NewAutomationService(getDB())
	a, err := svc.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"automation": a})
}

func CreateAutomation(c *gin.Context) {
	var req automationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a := models.EmailAutomation{
		Name:        utils.SanitizeInput(req.Name),
		TriggerKind: strings.ToLower(strings.TrimSpace(req.TriggerKind)),
		EventType:   req.EventType,
		TargetGroup: req.TargetGroup,
		CreatedBy:   req.CreatedBy,
	}
	svc := services.NewAutomationService(getDB())
	if err := svc.Create(c.Request.Context(), &a); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"automation": a})
}

func UpdateAutomation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req automationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a := models.EmailAutomation{
		Name:        utils.SanitizeInput(req.Name),
		TriggerKind: strings.ToLower(strings.TrimSpace(req.TriggerKind)),
		EventType:   req.EventType,
		TargetGroup: req.TargetGroup,
	}
	svc := services.NewAutomationService(getDB())
	if err := svc.Update(c.Request.Context(), id, &a); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "automation updated"})
}

func DeleteAutomation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	svc := services.NewAutomationService(getDB())
	if err := svc.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "automation deleted"})
}

// ToggleAutomation flips the active flag. A group automation transitioning
// inactive→active fires its one-shot broadcast in the background; the
// toggle response never waits on it.
func ToggleAutomation(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := getDB()
	svc := services.NewAutomationService(db)
	prev, err := svc.SetActive(c.Request.Context(), id, req.Active)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	activated := req.Active && !prev
	if activated {
		a, err := svc.Get(c.Request.Context(), id)
		if err == nil && a.TriggerKind == models.TriggerKindGroup {
			scheduler := services.NewSchedulerService(db)
			go func() {
				if err := scheduler.BroadcastNow(context.Background(), id); err != nil {
					log.Printf("broadcast for automation %d failed: %v", id, err)
				}
			}()
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"automation_id": id,
		"active":        req.Active,
		"activated":     activated,
	})
}

type stepRequest struct {
	StepOrder       int        `json:"step_order"`
	DelayMinutes    *int       `json:"delay_minutes"`
	ScheduledAt     *time.Time `json:"scheduled_at"`
	SubjectTemplate string     `json:"subject_template" binding:"required"`
	BodyTemplate    string     `json:"body_template" binding:"required"`
}

func CreateStep(c *gin.Context) {
	automationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	step := models.AutomationStep{
		AutomationID:    automationID,
		StepOrder:       req.StepOrder,
		DelayMinutes:    req.DelayMinutes,
		ScheduledAt:     req.ScheduledAt,
		SubjectTemplate: req.SubjectTemplate,
		BodyTemplate:    req.BodyTemplate,
	}
	svc := services.NewAutomationService(getDB())
	if err := svc.CreateStep(c.Request.Context(), &step); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"step": step})
}

func UpdateStep(c *gin.Context) {
	stepID, ok := parseIDParam(c, "step_id")
	if !ok {
		return
	}
	var req stepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	step := models.AutomationStep{
		StepOrder:       req.StepOrder,
		DelayMinutes:    req.DelayMinutes,
		ScheduledAt:     req.ScheduledAt,
		SubjectTemplate: req.SubjectTemplate,
		BodyTemplate:    req.BodyTemplate,
	}
	svc := services.NewAutomationService(getDB())
	if err := svc.UpdateStep(c.Request.Context(), stepID, &step); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "step updated"})
}

func DeleteStep(c *gin.Context) {
	stepID, ok := parseIDParam(c, "step_id")
	if !ok {
		return
	}
	svc := services.NewAutomationService(getDB())
	if err := svc.DeleteStep(c.Request.Context(), stepID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "step deleted"})
}
