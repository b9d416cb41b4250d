package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vespa-learn/activity-api/internal/service"
	"github.com/vespa-learn/activity-api/pkg/response"
)

// AchievementHandler exposes achievement and progress endpoints.
type AchievementHandler struct {
	achievements *service.AchievementService
	progress     *service.ProgressService
}

// NewAchievementHandler constructs AchievementHandler.
func NewAchievementHandler(achievements *service.AchievementService, progress *service.ProgressService) *AchievementHandler {
	return &AchievementHandler{achievements: achievements, progress: progress}
}

// Catalog godoc
// @Summary List the achievement catalog
// @Tags Achievements
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /achievements [get]
func (h *AchievementHandler) Catalog(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.achievements.Catalog(), nil)
}

// StudentAwards godoc
// @Summary Achievements a student has earned
// @Tags Achievements
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/achievements [get]
func (h *AchievementHandler) StudentAwards(c *gin.Context) {
	awards, err := h.achievements.ListAwards(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, awards, nil)
}

// StudentProgress godoc
// @Summary Progress history for a student
// @Tags Achievements
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/progress [get]
func (h *AchievementHandler) StudentProgress(c *gin.Context) {
	rows, err := h.progress.History(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// StudentStats godoc
// @Summary Aggregated completion statistics for a student
// @Tags Achievements
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/stats [get]
func (h *AchievementHandler) StudentStats(c *gin.Context) {
	stats, err := h.progress.Stats(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
