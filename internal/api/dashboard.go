package api

import (
	"net/http"
	"strconv"

	"myloop/internal/models"
	"myloop/internal/store"

	"github.com/gin-gonic/gin"
)

// DashboardHandler exposes queue inspection and the audit feed. Outcomes
// of asynchronous deliveries are only visible here.
type DashboardHandler struct {
	queue  *store.QueueStore
	audits *store.AuditStore
}

func NewDashboardHandler(queue *store.QueueStore, audits *store.AuditStore) *DashboardHandler {
	return &DashboardHandler{queue: queue, audits: audits}
}

func (h *DashboardHandler) GetQueue(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.queue.List(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []models.QueueEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *DashboardHandler) GetQueueStats(c *gin.Context) {
	stats, err := h.queue.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *DashboardHandler) GetAuditLogs(c *gin.Context) {
	records, err := h.audits.Recent(c.Request.Context(), 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []models.AuditLog{}
	}
	c.JSON(http.StatusOK, records)
}
