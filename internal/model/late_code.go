package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LateCode is a limited-use credential granting exam access after the normal
// window has closed. Usages are decremented atomically on validation; a user
// may consume a given code at most once.
type LateCode struct {
	ID     uuid.UUID `json:"id"`
	ExamID uuid.UUID `json:"exam_id"`
	// Code is stored normalized (uppercase, trimmed).
	Code string `json:"code"`
	// AssignedUserID restricts the code to one user; nil means any user.
	AssignedUserID  *int      `json:"assigned_user_id,omitempty"`
	UsagesRemaining int       `json:"usages_remaining"`
	ExpiresAt       time.Time `json:"expires_at"`
	IsActive        bool      `json:"is_active"`
	CreatedBy       int       `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

// NormalizeLateCode canonicalizes a user-supplied code for lookup.
func NormalizeLateCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateLateCodeRequest is the payload for an exam owner minting a late code.
type CreateLateCodeRequest struct {
	Code            string    `json:"code" binding:"required,min=4,max=32"`
	AssignedUserID  *int      `json:"assigned_user_id" binding:"omitempty,min=1"`
	UsagesRemaining int       `json:"usages_remaining" binding:"required,min=1"`
	ExpiresAt       time.Time `json:"expires_at" binding:"required"`
}

// ValidateLateCodeRequest is the payload for a student preflight-checking a
// late code before starting.
type ValidateLateCodeRequest struct {
	Code string `json:"code" binding:"required,min=4,max=32"`
}
