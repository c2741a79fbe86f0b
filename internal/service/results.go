package service

import (
	"time"

	"github.com/studyrail/attempt-backend/internal/model"
)

// ResultsLocked reports whether a completed attempt's score may be shown to
// its owner at the given instant. Computed on every read so results unlock as
// time passes without any background job.
//
// Results stay locked while the exam is still running, and — when the exam
// delays results — until the late window has closed too.
func ResultsLocked(exam *model.Exam, now time.Time) bool {
	if now.Before(exam.EndTime) {
		return true
	}
	if exam.Config.DelayResultsUntilLateEnd && !now.After(exam.LateWindowEnd()) {
		return true
	}
	return false
}

// ResultsUnlockAt returns the instant the visibility gate opens.
func ResultsUnlockAt(exam *model.Exam) time.Time {
	if exam.Config.DelayResultsUntilLateEnd {
		return exam.LateWindowEnd()
	}
	return exam.EndTime
}
