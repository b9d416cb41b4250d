package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vespa-learn/activity-api/internal/dto"
	"github.com/vespa-learn/activity-api/internal/models"
	"github.com/vespa-learn/activity-api/internal/service"
	appErrors "github.com/vespa-learn/activity-api/pkg/errors"
	"github.com/vespa-learn/activity-api/pkg/response"
)

// RosterHandler exposes the staff console endpoints for managing student
// activity prescriptions.
type RosterHandler struct {
	roster *service.RosterService
}

// NewRosterHandler constructs RosterHandler.
func NewRosterHandler(roster *service.RosterService) *RosterHandler {
	return &RosterHandler{roster: roster}
}

// ListStudents godoc
// @Summary List students
// @Tags Roster
// @Produce json
// @Param search query string false "Search by name or email"
// @Param group query string false "Filter by group"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *RosterHandler) ListStudents(c *gin.Context) {
	var filter models.StudentFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Group = c.Query("group")
	if active := c.Query("active"); active != "" {
		if active == "true" {
			v := true
			filter.Active = &v
		} else if active == "false" {
			v := false
			filter.Active = &v
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	students, pagination, err := h.roster.ListStudents(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Link godoc
// @Summary Current prescribed and finished sets for a student
// @Tags Roster
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/roster [get]
func (h *RosterHandler) Link(c *gin.Context) {
	link, err := h.roster.Link(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewStudentLinkResponse(link), nil)
}

// Assign godoc
// @Summary Prescribe an activity to a student
// @Tags Roster
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body dto.AssignActivityRequest true "Activity to prescribe"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/roster [post]
func (h *RosterHandler) Assign(c *gin.Context) {
	var req dto.AssignActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	link, err := h.roster.Assign(c.Request.Context(), c.Param("studentId"), req.ActivityID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewStudentLinkResponse(link), nil)
}

// Unassign godoc
// @Summary Remove a prescription
// @Tags Roster
// @Produce json
// @Param studentId path string true "Student ID"
// @Param activityId path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/roster/{activityId} [delete]
func (h *RosterHandler) Unassign(c *gin.Context) {
	link, err := h.roster.Unassign(c.Request.Context(), c.Param("studentId"), c.Param("activityId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewStudentLinkResponse(link), nil)
}

// MarkComplete godoc
// @Summary Mark a prescribed activity finished
// @Tags Roster
// @Produce json
// @Param studentId path string true "Student ID"
// @Param activityId path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/roster/{activityId}/complete [post]
func (h *RosterHandler) MarkComplete(c *gin.Context) {
	link, err := h.roster.MarkComplete(c.Request.Context(), c.Param("studentId"), c.Param("activityId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewStudentLinkResponse(link), nil)
}

// UnmarkComplete godoc
// @Summary Clear the finished mark on an activity
// @Tags Roster
// @Produce json
// @Param studentId path string true "Student ID"
// @Param activityId path string true "Activity ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/roster/{activityId}/complete [delete]
func (h *RosterHandler) UnmarkComplete(c *gin.Context) {
	link, err := h.roster.UnmarkComplete(c.Request.Context(), c.Param("studentId"), c.Param("activityId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewStudentLinkResponse(link), nil)
}
