package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/studyrail/attempt-backend/internal/middleware"
	"github.com/studyrail/attempt-backend/internal/model"
	"github.com/studyrail/attempt-backend/internal/response"
	"github.com/studyrail/attempt-backend/internal/service"
	"github.com/studyrail/attempt-backend/internal/validator"
)

// AttemptHandler handles the student-facing attempt lifecycle.
type AttemptHandler struct {
	attemptService *service.AttemptService
	log            zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		log:            log.With().Str("component", "attempt_handler").Logger(),
	}
}

// Start godoc
// POST /api/v1/student/exams/:exam_id/attempts
// Runs admission control and creates an attempt. Returns the still-running
// attempt instead when one exists (idempotent). A late code in the body is
// required once the normal window has closed.
func (h *AttemptHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// Body is optional; an empty one means a normal-window start.
	var req model.StartAttemptRequest
	if c.Request.ContentLength > 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	result, err := h.attemptService.StartAttempt(c.Request.Context(), examID, claims.UserID, req.LateCode)
	if err != nil {
		failServiceError(c, h.log, err)
		return
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	response.Success(c, status, result)
}

// Resume godoc
// GET /api/v1/student/attempts/resume/:token
// Returns the attempt and the student projection of the paper for a resume
// token. The token holder must be the attempt owner.
func (h *AttemptHandler) Resume(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	token := c.Param("token")
	if token == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.attemptService.Resume(c.Request.Context(), token, claims.UserID)
	if err != nil {
		failServiceError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Submit godoc
// POST /api/v1/student/attempts/:attempt_id/submit
// Validates, scores, and completes an attempt. Rejections are all-or-nothing;
// a duplicate submit gets ALREADY_COMPLETED.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), attemptID, claims.UserID, &req)
	if err != nil {
		failServiceError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// Result godoc
// GET /api/v1/student/attempts/:attempt_id/result
// Returns a completed attempt's score sheet once the visibility gate is open.
func (h *AttemptHandler) Result(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.attemptService.Result(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		failServiceError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}
