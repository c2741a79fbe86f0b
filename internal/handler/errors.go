package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/studyrail/attempt-backend/internal/response"
	"github.com/studyrail/attempt-backend/internal/service"
)

// failServiceError maps a business error from the service layer onto the
// response envelope. Matching is by error kind, never by message text.
// Unrecognized errors are logged and returned as 500.
func failServiceError(c *gin.Context, log zerolog.Logger, err error) {
	var (
		mustWait      *service.MustWaitError
		submission    *service.SubmissionError
		resultsLocked *service.ResultsLockedError
	)

	switch {
	case errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrExamNotAvailable):
		response.Fail(c, http.StatusForbidden, response.ErrExamNotAvailable)
	case errors.Is(err, service.ErrExamNotStarted):
		response.Fail(c, http.StatusForbidden, response.ErrExamNotStarted)
	case errors.Is(err, service.ErrExamEnded):
		response.Fail(c, http.StatusForbidden, response.ErrExamEnded)
	case errors.Is(err, service.ErrMaxAttemptsReached):
		response.Fail(c, http.StatusForbidden, response.ErrMaxAttemptsReached)

	case errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrInvalidAttempt):
		response.Fail(c, http.StatusNotFound, response.ErrInvalidAttempt)
	case errors.Is(err, service.ErrWrongUser):
		response.Fail(c, http.StatusForbidden, response.ErrWrongUser)
	case errors.Is(err, service.ErrAlreadyCompleted):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyCompleted)
	case errors.Is(err, service.ErrAttemptNotCompleted):
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotCompleted)

	case errors.Is(err, service.ErrLateCodeRequired):
		response.Fail(c, http.StatusForbidden, response.ErrLateCodeRequired)
	case errors.Is(err, service.ErrLateCodeInvalid):
		response.Fail(c, http.StatusBadRequest, response.ErrLateCodeInvalid)
	case errors.Is(err, service.ErrLateCodeInactive):
		response.Fail(c, http.StatusBadRequest, response.ErrLateCodeDeactivated)
	case errors.Is(err, service.ErrLateCodeExpired):
		response.Fail(c, http.StatusBadRequest, response.ErrLateCodeExpired)
	case errors.Is(err, service.ErrLateCodeExhausted):
		response.Fail(c, http.StatusConflict, response.ErrLateCodeNoRemaining)
	case errors.Is(err, service.ErrLateCodeAssigned):
		response.Fail(c, http.StatusForbidden, response.ErrLateCodeAssigned)
	case errors.Is(err, service.ErrLateCodeReplayed):
		response.Fail(c, http.StatusConflict, response.ErrLateCodeAlreadyUsed)

	case errors.As(err, &mustWait):
		response.FailWithDetails(c, http.StatusTooManyRequests, response.ErrMustWait, gin.H{
			"retry_at": mustWait.RetryAt.UTC().Format(time.RFC3339),
		})
	case errors.As(err, &submission):
		response.FailWithDetails(c, http.StatusUnprocessableEntity, response.ErrInvalidSubmission, gin.H{
			"reasons": submission.Reasons,
		})
	case errors.As(err, &resultsLocked):
		response.FailWithDetails(c, http.StatusForbidden, response.ErrResultsLocked, gin.H{
			"unlocks_at": resultsLocked.UnlocksAt.UTC().Format(time.RFC3339),
		})

	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled service error")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
