package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vespa-learn/activity-api/internal/models"
	"github.com/vespa-learn/activity-api/internal/service"
	"github.com/vespa-learn/activity-api/pkg/response"
)

// ActivityHandler exposes the activity catalogue endpoints.
type ActivityHandler struct {
	activities *service.ActivityService
}

// NewActivityHandler constructs ActivityHandler.
func NewActivityHandler(activities *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activities: activities}
}

// List godoc
// @Summary List activities
// @Tags Activities
// @Produce json
// @Param category query string false "Filter by category"
// @Param level query int false "Filter by level"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	var filter models.ActivityFilter
	filter.Category = models.Category(c.Query("category"))
	filter.Search = strings.TrimSpace(c.Query("search"))
	if level, err := strconv.Atoi(c.Query("level")); err == nil {
		filter.Level = level
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	activities, pagination, err := h.activities.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activities, pagination)
}

// Get godoc
// @Summary Get activity detail
// @Tags Activities
// @Produce json
// @Param id path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Router /activities/{id} [get]
func (h *ActivityHandler) Get(c *gin.Context) {
	activity, err := h.activities.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, activity, nil)
}

// ForStudent godoc
// @Summary Prescribed and suggested activities for a student
// @Tags Activities
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/activities [get]
func (h *ActivityHandler) ForStudent(c *gin.Context) {
	result, err := h.activities.ForStudent(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RefreshCatalog godoc
// @Summary Schedule a content catalog refresh
// @Tags Admin
// @Produce json
// @Success 202 {object} response.Envelope
// @Router /admin/catalog/refresh [post]
func (h *ActivityHandler) RefreshCatalog(c *gin.Context) {
	if err := h.activities.EnqueueRefresh(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"status": "scheduled"}, nil)
}
