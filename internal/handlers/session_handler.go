package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/SAP-F-2025/exam-session-service/internal/services"
	"github.com/SAP-F-2025/exam-session-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
	}
}

// StartSession handles POST /sessions
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, services.KindValidation, "Invalid request body", err, err.Error())
		return
	}

	h.LogRequest(c, "Starting exam session", "test_id", req.TestID, "session_type", req.SessionType)

	session, err := h.sessionService.Start(c.Request.Context(), getUserID(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetSession handles GET /sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.sessionService.GetSession(c.Request.Context(), sessionID, getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

// SubmitAnswers handles PUT /sessions/:id/answers
func (h *SessionHandler) SubmitAnswers(c *gin.Context) {
	sessionID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.SubmitAnswersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, services.KindValidation, "Invalid request body", err, err.Error())
		return
	}

	resp, err := h.sessionService.SubmitBulkAnswers(c.Request.Context(), sessionID, getUserID(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// PauseSession handles POST /sessions/:id/pause
func (h *SessionHandler) PauseSession(c *gin.Context) {
	h.transition(c, "Pausing exam session", h.sessionService.Pause)
}

// ResumeSession handles POST /sessions/:id/resume
func (h *SessionHandler) ResumeSession(c *gin.Context) {
	h.transition(c, "Resuming exam session", h.sessionService.Resume)
}

// SubmitSession handles POST /sessions/:id/submit
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	h.transition(c, "Submitting exam session", h.sessionService.Submit)
}

func (h *SessionHandler) transition(c *gin.Context, message string, op func(ctx context.Context, sessionID, userID uint) (*services.SessionView, error)) {
	sessionID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, message, "session_id", sessionID)

	session, err := op(c.Request.Context(), sessionID, getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

// GetResults handles GET /sessions/:id/results
func (h *SessionHandler) GetResults(c *gin.Context) {
	sessionID, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	results, err := h.sessionService.GetResults(c.Request.Context(), sessionID, getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// ListSessions handles GET /sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	var req services.ListSessionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, services.KindValidation, "Invalid query parameters", err, err.Error())
		return
	}

	list, err := h.sessionService.ListUserSessions(c.Request.Context(), getUserID(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// GetStatistics handles GET /sessions/statistics
func (h *SessionHandler) GetStatistics(c *gin.Context) {
	stats, err := h.sessionService.GetUserStatistics(c.Request.Context(), getUserID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *SessionHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, services.KindValidation, "Validation failed", err, validationErrors)
		return
	}

	kind := services.ErrorKind(err)
	status, ok := statusByKind[kind]
	if !ok {
		h.RespondWithError(c, http.StatusInternalServerError, services.KindInternalError, "Internal server error", err)
		return
	}
	h.RespondWithError(c, status, kind, errorMessage(err), err)
}

var statusByKind = map[string]int{
	services.KindValidation:   http.StatusBadRequest,
	services.KindNotFound:     http.StatusNotFound,
	services.KindConflict:     http.StatusConflict,
	services.KindInvalidState: http.StatusUnprocessableEntity,
	services.KindExpired:      http.StatusGone,
	services.KindTimeExceeded: http.StatusGone,
}

// errorMessage returns the sentinel text for known errors so that wrapped
// internals (ids, SQL) stay out of response bodies. Conflict keeps the full
// message because it names the live session.
func errorMessage(err error) string {
	switch {
	case services.IsConflict(err):
		return err.Error()
	case errors.Is(err, services.ErrSessionNotFound):
		return services.ErrSessionNotFound.Error()
	case errors.Is(err, services.ErrTestNotFound):
		return services.ErrTestNotFound.Error()
	case errors.Is(err, services.ErrSessionExpired):
		return services.ErrSessionExpired.Error()
	case errors.Is(err, services.ErrTimeLimitExceeded):
		return services.ErrTimeLimitExceeded.Error()
	case errors.Is(err, services.ErrMissingTimeSnapshot):
		return services.ErrMissingTimeSnapshot.Error()
	case errors.Is(err, services.ErrNoQuestionsInScope):
		return services.ErrNoQuestionsInScope.Error()
	case errors.Is(err, services.ErrResultsNotAvailable):
		return services.ErrResultsNotAvailable.Error()
	case errors.Is(err, services.ErrInvalidSessionState):
		return services.ErrInvalidSessionState.Error()
	default:
		return err.Error()
	}
}
