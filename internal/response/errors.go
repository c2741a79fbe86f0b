package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Admission ─────────────────────────────────────────────────────
	ErrExamNotAvailable   ErrCode = "EXAM_NOT_AVAILABLE"
	ErrExamNotStarted     ErrCode = "EXAM_NOT_STARTED"
	ErrExamEnded          ErrCode = "EXAM_ENDED"
	ErrMaxAttemptsReached ErrCode = "MAX_ATTEMPTS_REACHED"
	ErrMustWait           ErrCode = "MUST_WAIT"

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	ErrInvalidAttempt      ErrCode = "INVALID_ATTEMPT"
	ErrAttemptNotCompleted ErrCode = "ATTEMPT_NOT_COMPLETED"
	ErrWrongUser           ErrCode = "WRONG_USER"
	ErrAlreadyCompleted    ErrCode = "ALREADY_COMPLETED"
	ErrInvalidSubmission   ErrCode = "INVALID_SUBMISSION"
	ErrResultsLocked       ErrCode = "RESULTS_LOCKED"

	// ─── Late codes ────────────────────────────────────────────────────
	ErrLateCodeRequired    ErrCode = "LATE_CODE_REQUIRED"
	ErrLateCodeInvalid     ErrCode = "LATE_CODE_INVALID"
	ErrLateCodeDeactivated ErrCode = "LATE_CODE_DEACTIVATED"
	ErrLateCodeExpired     ErrCode = "LATE_CODE_EXPIRED"
	ErrLateCodeNoRemaining ErrCode = "LATE_CODE_NO_REMAINING"
	ErrLateCodeAssigned    ErrCode = "LATE_CODE_ASSIGNED_TO_ANOTHER"
	ErrLateCodeAlreadyUsed ErrCode = "LATE_CODE_ALREADY_USED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Admission ─────────────────────────────────────────────────────
	case ErrExamNotAvailable:
		return "This exam is not currently available."
	case ErrExamNotStarted:
		return "This exam has not started yet."
	case ErrExamEnded:
		return "The access window for this exam has closed."
	case ErrMaxAttemptsReached:
		return "You have used all allowed attempts for this exam."
	case ErrMustWait:
		return "You must wait before starting another attempt."

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	case ErrInvalidAttempt:
		return "Attempt not found or does not belong to you."
	case ErrAttemptNotCompleted:
		return "This attempt has not been submitted yet."
	case ErrWrongUser:
		return "This attempt belongs to a different account."
	case ErrAlreadyCompleted:
		return "This attempt has already been submitted."
	case ErrInvalidSubmission:
		return "The submission was rejected. See details."
	case ErrResultsLocked:
		return "Results are not available yet."

	// ─── Late codes ────────────────────────────────────────────────────
	case ErrLateCodeRequired:
		return "A late access code is required to start this exam now."
	case ErrLateCodeInvalid:
		return "Late access code is not valid for this exam."
	case ErrLateCodeDeactivated:
		return "Late access code has been deactivated."
	case ErrLateCodeExpired:
		return "Late access code has expired."
	case ErrLateCodeNoRemaining:
		return "Late access code has no uses remaining."
	case ErrLateCodeAssigned:
		return "Late access code is assigned to another user."
	case ErrLateCodeAlreadyUsed:
		return "You have already used this late access code."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
