package model

import (
	"encoding/json"
)

// CheatRules tunes the anti-cheat heuristics for one exam. Stored as JSON on
// the exam record so thresholds can change without a deploy; zero-valued
// fields fall back to the package defaults. None of these affect scoring.
type CheatRules struct {
	// MinSecondsPerQuestion flags attempts finished faster than this budget
	// per question.
	MinSecondsPerQuestion int `json:"min_seconds_per_question"`
	// MaxTabSwitchesPerHour flags an implausible tab-switch rate relative to
	// exam duration.
	MaxTabSwitchesPerHour int `json:"max_tab_switches_per_hour"`
	// MinPacingSpreadSeconds flags answer timestamps spaced with near-zero
	// variance, inconsistent with organic pacing.
	MinPacingSpreadSeconds float64 `json:"min_pacing_spread_seconds"`
	// LateGraceSeconds is the tolerance past expiry before a submission is
	// flagged as far-late.
	LateGraceSeconds int `json:"late_grace_seconds"`
}

// DefaultCheatRules returns the baseline thresholds used when an exam does
// not override them.
func DefaultCheatRules() CheatRules {
	return CheatRules{
		MinSecondsPerQuestion:  5,
		MaxTabSwitchesPerHour:  60,
		MinPacingSpreadSeconds: 0.5,
		LateGraceSeconds:       30,
	}
}

// ParseCheatRules merges an exam's raw cheat-rules JSON over the defaults.
// Malformed or absent JSON yields the defaults.
func ParseCheatRules(raw json.RawMessage) CheatRules {
	rules := DefaultCheatRules()
	if len(raw) == 0 {
		return rules
	}
	var override CheatRules
	if err := json.Unmarshal(raw, &override); err != nil {
		return rules
	}
	if override.MinSecondsPerQuestion > 0 {
		rules.MinSecondsPerQuestion = override.MinSecondsPerQuestion
	}
	if override.MaxTabSwitchesPerHour > 0 {
		rules.MaxTabSwitchesPerHour = override.MaxTabSwitchesPerHour
	}
	if override.MinPacingSpreadSeconds > 0 {
		rules.MinPacingSpreadSeconds = override.MinPacingSpreadSeconds
	}
	if override.LateGraceSeconds > 0 {
		rules.LateGraceSeconds = override.LateGraceSeconds
	}
	return rules
}
