package api

import (
	"errors"
	"net/http"

	"myloop/internal/models"
	"myloop/internal/store"

	"github.com/gin-gonic/gin"
)

type ScenarioHandler struct {
	scenarios *store.ScenarioStore
}

func NewScenarioHandler(scenarios *store.ScenarioStore) *ScenarioHandler {
	return &ScenarioHandler{scenarios: scenarios}
}

func (h *ScenarioHandler) GetScenarios(c *gin.Context) {
	scenarios, err := h.scenarios.List(c.Request.Context(), c.Query("owner"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if scenarios == nil {
		scenarios = []models.Scenario{}
	}
	c.JSON(http.StatusOK, scenarios)
}

func (h *ScenarioHandler) GetScenario(c *gin.Context) {
	scenario, err := h.scenarios.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scenario not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, scenario)
}

type StepRequest struct {
	OffsetDays int    `json:"offset_days"`
	SendTime   string `json:"send_time" binding:"required"`
	Body       string `json:"body"`
}

type ScenarioRequest struct {
	Name       string        `json:"name" binding:"required"`
	OwnerRef   string        `json:"owner_ref"`
	Active     bool          `json:"active"`
	TriggerTag string        `json:"trigger_tag"`
	Steps      []StepRequest `json:"steps"`
}

func (req *ScenarioRequest) toModel() *models.Scenario {
	scenario := &models.Scenario{
		Name:       req.Name,
		OwnerRef:   req.OwnerRef,
		Active:     req.Active,
		TriggerTag: req.TriggerTag,
	}
	for _, step := range req.Steps {
		scenario.Steps = append(scenario.Steps, models.ScenarioStep{
			OffsetDays: step.OffsetDays,
			SendTime:   step.SendTime,
			Body:       step.Body,
		})
	}
	return scenario
}

func (h *ScenarioHandler) CreateScenario(c *gin.Context) {
	var req ScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scenario := req.toModel()
	if err := h.scenarios.Create(c.Request.Context(), scenario); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create scenario"})
		return
	}

	c.JSON(http.StatusCreated, scenario)
}

func (h *ScenarioHandler) UpdateScenario(c *gin.Context) {
	var req ScenarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scenario := req.toModel()
	scenario.ID = c.Param("id")
	err := h.scenarios.Replace(c.Request.Context(), scenario)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scenario not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update scenario"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Scenario updated"})
}

type ToggleRequest struct {
	Active bool `json:"active"`
}

func (h *ScenarioHandler) ToggleScenario(c *gin.Context) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.scenarios.SetActive(c.Request.Context(), c.Param("id"), req.Active)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scenario not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle scenario"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Scenario updated", "active": req.Active})
}

func (h *ScenarioHandler) DeleteScenario(c *gin.Context) {
	err := h.scenarios.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scenario not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete scenario"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Scenario deleted"})
}
