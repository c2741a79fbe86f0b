package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/studyrail/attempt-backend/internal/model"
)

// Verdict is the outcome of an anti-cheat pass. It annotates the attempt for
// human review; it never blocks a submission or alters a score.
type Verdict struct {
	Suspicious bool     `json:"suspicious"`
	Reasons    []string `json:"reasons,omitempty"`
}

// DetectSuspicion runs the heuristic checks over a completed attempt and its
// now-immutable response set. Thresholds come from the exam's cheat rules.
//
// The heuristics are a baseline, not a tuned policy: implausibly fast
// completion, submission far past expiry, an implausible tab-switch rate, and
// machine-uniform answer pacing.
func DetectSuspicion(attempt *model.Attempt, responses []model.Response, questionCount int, rules model.CheatRules) Verdict {
	var v Verdict

	if attempt.SubmittedAt == nil {
		return v
	}
	submittedAt := *attempt.SubmittedAt

	// Too fast for the question count.
	elapsed := submittedAt.Sub(attempt.StartedAt)
	if questionCount > 0 {
		floor := time.Duration(rules.MinSecondsPerQuestion*questionCount) * time.Second
		if elapsed < floor {
			v.Reasons = append(v.Reasons, fmt.Sprintf(
				"completed %d questions in %s (floor %s)", questionCount, elapsed.Round(time.Second), floor))
		}
	}

	// Far past expiry.
	grace := time.Duration(rules.LateGraceSeconds) * time.Second
	if submittedAt.After(attempt.ExpiresAt.Add(grace)) {
		v.Reasons = append(v.Reasons, fmt.Sprintf(
			"submitted %s past expiry", submittedAt.Sub(attempt.ExpiresAt).Round(time.Second)))
	}

	// Implausible tab-switch rate relative to the attempt duration.
	if hours := elapsed.Hours(); hours > 0 && rules.MaxTabSwitchesPerHour > 0 {
		rate := float64(attempt.TabSwitchCount) / hours
		if rate > float64(rules.MaxTabSwitchesPerHour) {
			v.Reasons = append(v.Reasons, fmt.Sprintf(
				"%d tab switches in %s", attempt.TabSwitchCount, elapsed.Round(time.Second)))
		}
	}

	// Uniform answer pacing. Organic answering has variance in the gaps
	// between answer timestamps; near-zero spread across many answers is
	// consistent with scripted submission.
	if spread, ok := pacingSpread(responses); ok && spread < rules.MinPacingSpreadSeconds {
		v.Reasons = append(v.Reasons, fmt.Sprintf(
			"uniform answer pacing (spread %.2fs across %d answers)", spread, len(responses)))
	}

	v.Suspicious = len(v.Reasons) > 0
	return v
}

// minPacingSamples is the minimum number of answer gaps required before the
// pacing heuristic applies; tiny samples are always noisy.
const minPacingSamples = 5

// pacingSpread returns the standard deviation, in seconds, of the gaps
// between consecutive answer timestamps. ok is false when there are too few
// timestamped answers to judge.
func pacingSpread(responses []model.Response) (float64, bool) {
	times := make([]time.Time, 0, len(responses))
	for _, r := range responses {
		if !r.AnsweredAt.IsZero() {
			times = append(times, r.AnsweredAt)
		}
	}
	if len(times) < minPacingSamples+1 {
		return 0, false
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	gaps := make([]float64, 0, len(times)-1)
	var sum float64
	for i := 1; i < len(times); i++ {
		g := times[i].Sub(times[i-1]).Seconds()
		gaps = append(gaps, g)
		sum += g
	}
	mean := sum / float64(len(gaps))

	var variance float64
	for _, g := range gaps {
		variance += (g - mean) * (g - mean)
	}
	variance /= float64(len(gaps))

	return math.Sqrt(variance), true
}
