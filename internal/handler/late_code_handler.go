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

// LateCodeHandler handles late-access code endpoints, admin and student.
type LateCodeHandler struct {
	lateCodeService *service.LateCodeService
	log             zerolog.Logger
}

// NewLateCodeHandler creates a new LateCodeHandler.
func NewLateCodeHandler(lateCodeService *service.LateCodeService, log zerolog.Logger) *LateCodeHandler {
	return &LateCodeHandler{
		lateCodeService: lateCodeService,
		log:             log.With().Str("component", "late_code_handler").Logger(),
	}
}

// Validate godoc
// POST /api/v1/student/exams/:exam_id/late-codes/validate
// Preflight check of a late code. Nothing is consumed; the code is only
// burned when the attempt actually starts.
func (h *LateCodeHandler) Validate(c *gin.Context) {
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

	var req model.ValidateLateCodeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	code, err := h.lateCodeService.Check(c.Request.Context(), examID, claims.UserID, req.Code)
	if err != nil {
		failServiceError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"valid":            true,
		"expires_at":       code.ExpiresAt,
		"usages_remaining": code.UsagesRemaining,
	})
}

// Create godoc
// POST /api/v1/admin/exams/:exam_id/late-codes
// Mints a late code for an exam. Only the exam owner may create codes.
func (h *LateCodeHandler) Create(c *gin.Context) {
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

	var req model.CreateLateCodeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	code, err := h.lateCodeService.Create(c.Request.Context(), examID, claims.UserID, &req)
	if err != nil {
		failServiceError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"late_code": code})
}

// List godoc
// GET /api/v1/admin/exams/:exam_id/late-codes
// Lists an exam's late codes for its owner.
func (h *LateCodeHandler) List(c *gin.Context) {
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

	codes, err := h.lateCodeService.ListByExam(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failServiceError(c, h.log, err)
		return
	}

	if codes == nil {
		codes = []model.LateCode{}
	}
	response.Success(c, http.StatusOK, gin.H{"late_codes": codes})
}

// Deactivate godoc
// POST /api/v1/admin/late-codes/:id/deactivate
// Turns a code off immediately; remaining usages become unusable.
func (h *LateCodeHandler) Deactivate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	codeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.lateCodeService.Deactivate(c.Request.Context(), codeID, claims.UserID); err != nil {
		failServiceError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deactivated": true})
}
