package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tobi-04/srm-be-sub001/models"
)

// GetSendHistory returns notification log entries, newest first, filtered
// by automation id and status.
func GetSendHistory(c *gin.Context) {
	db := getDB()
	limit, offset := parsePagination(c)

	q := db.Model(&models.NotificationLog{})

	if v := strings.TrimSpace(c.Query("automation_id")); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid automation_id"})
			return
		}
		q = q.Where("automation_id = ?", id)
	}

	if v := strings.ToUpper(strings.TrimSpace(c.Query("status"))); v != "" {
		switch v {
		case models.LogStatusPending, models.LogStatusSent, models.LogStatusFailed:
			q = q.Where("status = ?", v)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var items []models.NotificationLog
	if err := q.Order("create_at DESC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history": items,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// GetSendHistoryEntry returns one notification log row by id.
func GetSendHistoryEntry(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var entry models.NotificationLog
	if err := getDB().Where("log_id = ?", id).First(&entry).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "send history entry not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entry": entry})
}
