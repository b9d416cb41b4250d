package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vespa-learn/activity-api/internal/dto"
	"github.com/vespa-learn/activity-api/internal/models"
	"github.com/vespa-learn/activity-api/internal/service"
	appErrors "github.com/vespa-learn/activity-api/pkg/errors"
	"github.com/vespa-learn/activity-api/pkg/response"
)

// WizardHandler exposes the activity player endpoints. Every route acts on
// behalf of the authenticated student: the session's owner is taken from the
// token, never from the payload.
type WizardHandler struct {
	wizard *service.WizardService
}

// NewWizardHandler constructs WizardHandler.
func NewWizardHandler(wizard *service.WizardService) *WizardHandler {
	return &WizardHandler{wizard: wizard}
}

// Start godoc
// @Summary Open a wizard session for an activity
// @Tags Wizard
// @Accept json
// @Produce json
// @Param payload body dto.StartWizardRequest true "Activity to open"
// @Success 201 {object} response.Envelope
// @Router /wizard/sessions [post]
func (h *WizardHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.StartWizardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	state, err := h.wizard.Start(c.Request.Context(), claims.UserID, req.ActivityID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, state)
}

// State godoc
// @Summary Current wizard session state
// @Tags Wizard
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /wizard/sessions/{sessionId} [get]
func (h *WizardHandler) State(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	state, err := h.wizard.State(c.Param("sessionId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Answer godoc
// @Summary Record an answer edit
// @Tags Wizard
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param payload body dto.AnswerRequest true "Answer payload"
// @Success 200 {object} response.Envelope
// @Router /wizard/sessions/{sessionId}/answers [post]
func (h *WizardHandler) Answer(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	state, err := h.wizard.Answer(c.Param("sessionId"), claims.UserID, req.QuestionID, req.Value)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Navigate godoc
// @Summary Move the wizard to a stage
// @Tags Wizard
// @Accept json
// @Produce json
// @Param sessionId path string true "Session ID"
// @Param payload body dto.NavigateRequest true "Target stage"
// @Success 200 {object} response.Envelope
// @Router /wizard/sessions/{sessionId}/navigate [post]
func (h *WizardHandler) Navigate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	state, err := h.wizard.Navigate(c.Param("sessionId"), claims.UserID, models.Stage(req.Stage))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// NextPage godoc
// @Summary Advance one question page
// @Tags Wizard
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /wizard/sessions/{sessionId}/next-page [post]
func (h *WizardHandler) NextPage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	state, err := h.wizard.NextPage(c.Param("sessionId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// PrevPage godoc
// @Summary Go back one question page
// @Tags Wizard
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /wizard/sessions/{sessionId}/prev-page [post]
func (h *WizardHandler) PrevPage(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	state, err := h.wizard.PrevPage(c.Param("sessionId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Exit godoc
// @Summary Save and close the session
// @Tags Wizard
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 204
// @Router /wizard/sessions/{sessionId}/exit [post]
func (h *WizardHandler) Exit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.wizard.SaveAndExit(c.Request.Context(), c.Param("sessionId"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Complete godoc
// @Summary Complete the activity
// @Tags Wizard
// @Produce json
// @Param sessionId path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /wizard/sessions/{sessionId}/complete [post]
func (h *WizardHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.wizard.Complete(c.Request.Context(), c.Param("sessionId"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
