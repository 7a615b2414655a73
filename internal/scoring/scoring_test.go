package scoring

import (
	"reflect"
	"testing"
)

func results(statuses ...Status) []Result {
	out := make([]Result, len(statuses))
	for i, s := range statuses {
		out[i] = Result{QAID: string(rune('a' + i)), Status: s}
	}
	return out
}

func TestFluencyScore(t *testing.T) {
	tests := []struct {
		name      string
		results   []Result
		mustSpeak int
		want      int
	}{
		{"no must-speak", nil, 0, 100},
		{"no must-speak ignores results", results(StatusFailed, StatusFailed), 0, 100},
		{"all fluent", results(StatusFluent, StatusFluent, StatusFluent), 3, 100},
		{"prompted does not count", results(StatusPrompted, StatusFluent, StatusFailed), 3, 33},
		{"two of three", results(StatusFluent, StatusFluent, StatusFailed), 3, 67},
		{"none", results(StatusFailed, StatusPrompted), 2, 0},
		{"half rounds up", results(StatusFluent, StatusFailed, StatusFailed, StatusFailed, StatusFailed, StatusFailed, StatusFailed, StatusFailed), 8, 13},
		{"more fluent than required clamps", results(StatusFluent, StatusFluent, StatusFluent), 2, 100},
		{"negative count", nil, -1, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FluencyScore(tt.results, tt.mustSpeak); got != tt.want {
				t.Errorf("FluencyScore = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFluencyScore_Bounds(t *testing.T) {
	all := []Status{StatusFluent, StatusPrompted, StatusFailed}
	for n := 0; n <= 6; n++ {
		for mask := 0; mask < 1<<n; mask++ {
			var rs []Result
			for i := 0; i < n; i++ {
				rs = append(rs, Result{Status: all[(mask>>i)&1+(i%2)]})
			}
			for count := 0; count <= n+1; count++ {
				got := FluencyScore(rs, count)
				if got < 0 || got > 100 {
					t.Fatalf("FluencyScore(%v, %d) = %d out of range", rs, count, got)
				}
			}
		}
	}
}

func TestReviewBranch(t *testing.T) {
	tests := []struct {
		score int
		want  Branch
	}{
		{0, BranchRetry},
		{33, BranchRetry},
		{59, BranchRetry},
		{60, BranchReplay},
		{100, BranchReplay},
	}
	for _, tt := range tests {
		if got := ReviewBranch(tt.score); got != tt.want {
			t.Errorf("ReviewBranch(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestFailedIDs(t *testing.T) {
	got := FailedIDs(results(StatusFluent, StatusFailed, StatusPrompted, StatusFailed))
	if want := []string{"b", "d"}; !reflect.DeepEqual(got, want) {
		t.Errorf("FailedIDs = %v, want %v", got, want)
	}
}
