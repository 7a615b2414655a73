package practice

import (
	"errors"
	"math"
	"strings"
	"unicode"
)

// ErrEmptyAnswer is returned when a fill-blank answer is blank.
var ErrEmptyAnswer = errors.New("practice: empty answer")

// SpeakingPassRatio is the minimum word overlap for a spoken answer to pass.
const SpeakingPassRatio = 0.6

// CheckChoice reports whether optionID is the question's correct option.
func CheckChoice(q *ChoiceQuestion, optionID string) bool {
	return q.Correct().ID == optionID && optionID != ""
}

// ValidFillBlankAnswer reports whether s is an acceptable submission for a
// single blank.
func ValidFillBlankAnswer(s string) bool {
	return strings.TrimSpace(s) != ""
}

// CheckFillBlank grades answers against the question's blanks in order.
// The comparison ignores case and surrounding whitespace. It returns
// ErrEmptyAnswer when any answer is blank or missing.
func CheckFillBlank(q *FillBlankQuestion, answers []string) ([]bool, error) {
	if len(answers) < len(q.Blanks) {
		return nil, ErrEmptyAnswer
	}
	correct := make([]bool, len(q.Blanks))
	for i, b := range q.Blanks {
		if !ValidFillBlankAnswer(answers[i]) {
			return nil, ErrEmptyAnswer
		}
		correct[i] = strings.EqualFold(strings.TrimSpace(answers[i]), b.Answer)
	}
	return correct, nil
}

// SpeakingResult is the outcome of comparing a spoken answer with its target.
type SpeakingResult struct {
	Similarity float64 `json:"similarity"`
	Score      int     `json:"score"`
	Passed     bool    `json:"passed"`
}

// SpeakingMatch compares a transcribed answer with the target sentence by
// word overlap: the share of target words that appear in the answer.
func SpeakingMatch(userText, targetText string) SpeakingResult {
	target := normalizeWords(targetText)
	if len(target) == 0 {
		return SpeakingResult{}
	}
	want := make(map[string]bool, len(target))
	for _, w := range target {
		want[w] = true
	}
	matched := 0
	for _, w := range normalizeWords(userText) {
		if want[w] {
			matched++
		}
	}
	sim := math.Min(1, float64(matched)/float64(len(target)))
	return SpeakingResult{
		Similarity: sim,
		Score:      int(math.Round(sim * 100)),
		Passed:     sim >= SpeakingPassRatio,
	}
}

func normalizeWords(s string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		}
		return -1
	}, s)
	return strings.Fields(cleaned)
}
