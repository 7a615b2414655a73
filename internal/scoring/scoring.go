// Package scoring folds dialogue outcomes into a fluency score and routes
// the learner to the next review branch.
package scoring

import (
	"math"
)

// Status is the outcome of one must-speak QA pair in a dialogue run.
type Status string

const (
	StatusFluent   Status = "fluent"
	StatusPrompted Status = "prompted"
	StatusFailed   Status = "failed"
)

// Passed reports whether the pair was eventually passed.
func (s Status) Passed() bool { return s == StatusFluent || s == StatusPrompted }

// Result is the recorded outcome for one QA pair.
type Result struct {
	QAID   string `json:"qaId"`
	Status Status `json:"status"`
}

// Branch is the post-review route.
type Branch string

const (
	BranchReplay Branch = "replay"
	BranchRetry  Branch = "retry"
)

// PassScore is the lowest score routed to replay.
const PassScore = 60

// FluencyScore returns round(100 * fluent / mustSpeakCount) clamped to
// [0, 100]. Only first-attempt passes count. A sub-scene with no must-speak
// pairs scores 100.
func FluencyScore(results []Result, mustSpeakCount int) int {
	if mustSpeakCount <= 0 {
		return 100
	}
	fluent := 0
	for _, r := range results {
		if r.Status == StatusFluent {
			fluent++
		}
	}
	score := int(math.Round(100 * float64(fluent) / float64(mustSpeakCount)))
	return max(0, min(100, score))
}

// ReviewBranch routes scores of PassScore and above to replay, the rest to
// retry.
func ReviewBranch(score int) Branch {
	if score >= PassScore {
		return BranchReplay
	}
	return BranchRetry
}

// FailedIDs returns the QA IDs whose status is failed, in result order.
func FailedIDs(results []Result) []string {
	var ids []string
	for _, r := range results {
		if r.Status == StatusFailed {
			ids = append(ids, r.QAID)
		}
	}
	return ids
}
