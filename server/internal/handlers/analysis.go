// server/internal/handlers/analysis.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"

	"shelfsight/server/internal/config"
	"shelfsight/server/internal/journey"
	"shelfsight/server/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errTooLarge = errors.New("request exceeds the configured volume cap")

type journeyRequest struct {
	ActionShelfMapping []journey.Entry `json:"action_shelf_mapping"`
}

type AnalysisHandler struct {
	log     *zap.Logger
	service *services.AnalysisService
	limits  atomic.Pointer[config.AnalysisConfig]
}

func NewAnalysisHandler(log *zap.Logger, service *services.AnalysisService, limits config.AnalysisConfig) *AnalysisHandler {
	h := &AnalysisHandler{log: log, service: service}
	h.SetLimits(limits)
	return h
}

// SetLimits replaces the volume caps used by later requests.
func (h *AnalysisHandler) SetLimits(limits config.AnalysisConfig) {
	h.limits.Store(&limits)
}

// checkVolume enforces the detection and event caps. Zero disables a cap.
func (h *AnalysisHandler) checkVolume(job services.Job) error {
	limits := h.limits.Load()
	if limit := limits.MaxDetections; limit > 0 {
		if n := job.Tracks.DetectionCount(); n > limit {
			return fmt.Errorf("%w: %d detections, limit %d", errTooLarge, n, limit)
		}
	}
	if limit := limits.MaxEvents; limit > 0 && len(job.ActionShelfMapping) > limit {
		return fmt.Errorf("%w: %d events, limit %d", errTooLarge, len(job.ActionShelfMapping), limit)
	}
	return nil
}

// fail maps an error to its status code and writes the JSON error body.
func (h *AnalysisHandler) fail(c *gin.Context, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrInvalidJob):
		status = http.StatusBadRequest
	case errors.Is(err, gorm.ErrRecordNotFound):
		status = http.StatusNotFound
	}

	if status >= http.StatusInternalServerError {
		h.log.Error(msg, zap.Error(err))
		c.JSON(status, gin.H{"error": msg})
		return
	}
	h.log.Warn(msg, zap.Error(err), zap.Int("status", status))
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *AnalysisHandler) bindJob(c *gin.Context) (services.Job, bool) {
	var job services.Job
	if err := c.ShouldBindJSON(&job); err != nil {
		h.log.Warn("Failed to bind analysis job", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return services.Job{}, false
	}
	if err := h.checkVolume(job); err != nil {
		h.fail(c, "Request too large", err)
		return services.Job{}, false
	}
	return job, true
}

// AnalyzeShelves handles POST /v1/shelves.
func (h *AnalysisHandler) AnalyzeShelves(c *gin.Context) {
	job, ok := h.bindJob(c)
	if !ok {
		return
	}
	result, err := h.service.AnalyzeShelves(job)
	if err != nil {
		h.fail(c, "Failed to analyze shelves", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// AnalyzeJourney handles POST /v1/journey.
func (h *AnalysisHandler) AnalyzeJourney(c *gin.Context) {
	var req journeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Failed to bind action log", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := h.checkVolume(services.Job{ActionShelfMapping: req.ActionShelfMapping}); err != nil {
		h.fail(c, "Request too large", err)
		return
	}
	c.JSON(http.StatusOK, h.service.AnalyzeJourney(req.ActionShelfMapping))
}

// CreateAnalysis handles POST /v1/analyses.
func (h *AnalysisHandler) CreateAnalysis(c *gin.Context) {
	job, ok := h.bindJob(c)
	if !ok {
		return
	}
	result, err := h.service.Create(c.Request.Context(), job)
	if err != nil {
		h.fail(c, "Failed to create analysis", err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetAnalysis handles GET /v1/analyses/:id.
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	result, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to load analysis", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetCharts handles GET /v1/analyses/:id/charts.
func (h *AnalysisHandler) GetCharts(c *gin.Context) {
	charts, err := h.service.Charts(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to build charts", err)
		return
	}
	c.JSON(http.StatusOK, charts)
}

// ListAnalyses handles GET /v1/analyses.
func (h *AnalysisHandler) ListAnalyses(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	analyses, err := h.service.List(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, "Failed to list analyses", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": analyses})
}
