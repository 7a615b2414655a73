package practice

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuxiji/scenetalk/internal/scene"
)

// Placeholder marks a removed word in a fill-blank template.
const Placeholder = "___"

const (
	maxBlanks     = 2
	minWordLength = 3
)

var spaceRun = regexp.MustCompile(`\s+`)

// stopWords are never blanked.
var stopWords = toSet(
	"the", "and", "for", "are", "but", "not", "you", "all", "can", "her",
	"was", "one", "our", "out", "day", "get", "has", "him", "his", "how",
	"its", "may", "new", "now", "old", "see", "two", "way", "who", "did",
	"let", "put", "say", "she", "too", "use", "that", "this", "with", "have",
	"from", "they", "will", "been", "when", "what", "your", "said", "each",
	"which", "their", "time", "would", "there", "could", "other", "into",
	"than", "then", "some", "these", "about", "make", "like", "just", "know",
	"take", "year", "good", "much", "also", "well", "back", "come", "here",
	"more", "very", "even", "most", "give", "over", "such", "after", "think",
	"where", "being", "those", "never", "still", "should", "before",
	"through", "because", "between", "please",
)

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// IsStopWord reports whether w (any case) is excluded from blanking.
func IsStopWord(w string) bool { return stopWords[strings.ToLower(w)] }

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || r == '\''
}

// pureWord keeps only letters and apostrophes.
func pureWord(token string) string {
	return strings.Map(func(r rune) rune {
		if isWordRune(r) {
			return r
		}
		return -1
	}, token)
}

// splitAffixes separates leading and trailing non-word characters from a
// token. Inner punctuation such as the hyphen in "Wi-Fi" stays in core.
func splitAffixes(token string) (prefix, core, suffix string) {
	start := strings.IndexFunc(token, isWordRune)
	if start < 0 {
		return token, "", ""
	}
	end := strings.LastIndexFunc(token, isWordRune) + 1
	return token[:start], token[start:end], token[end:]
}

type sentencePart struct {
	text  string
	space bool
}

// splitKeepSpace splits s into alternating word and whitespace parts so the
// sentence can be rebuilt verbatim.
func splitKeepSpace(s string) []sentencePart {
	var parts []sentencePart
	last := 0
	for _, loc := range spaceRun.FindAllStringIndex(s, -1) {
		if loc[0] > last {
			parts = append(parts, sentencePart{text: s[last:loc[0]]})
		}
		parts = append(parts, sentencePart{text: s[loc[0]:loc[1]], space: true})
		last = loc[1]
	}
	if last < len(s) {
		parts = append(parts, sentencePart{text: s[last:]})
	}
	return parts
}

// blankSentence removes up to two content words from the middle of the
// sentence. ok is false when nothing could be blanked.
func blankSentence(sentence string) (template string, blanks []BlankItem, ok bool) {
	parts := splitKeepSpace(sentence)

	// wordAt maps word ordinals (words of at least minWordLength letters)
	// to part positions.
	var wordAt []int
	var candidates []int
	for i, p := range parts {
		if p.space {
			continue
		}
		pure := pureWord(p.text)
		if utf8.RuneCountInString(pure) < minWordLength {
			continue
		}
		wordAt = append(wordAt, i)
		if !IsStopWord(pure) {
			candidates = append(candidates, len(wordAt)-1)
		}
	}
	if len(candidates) == 0 {
		return "", nil, false
	}

	n := min(maxBlanks, len(candidates))
	start := len(candidates)/2 - n/2
	selected := candidates[start : start+n]
	if len(selected) == 0 {
		selected = candidates[:1]
	}
	chosen := make(map[int]bool, len(selected))
	for _, w := range selected {
		chosen[wordAt[w]] = true
	}

	var b strings.Builder
	for i, p := range parts {
		if !chosen[i] {
			b.WriteString(p.text)
			continue
		}
		prefix, core, suffix := splitAffixes(p.text)
		b.WriteString(prefix)
		b.WriteString(Placeholder)
		b.WriteString(suffix)
		blanks = append(blanks, BlankItem{Index: len(blanks), Answer: core})
	}
	if len(blanks) == 0 {
		return "", nil, false
	}
	return b.String(), blanks, true
}

func buildFillBlank(qa scene.QAPair) *FillBlankQuestion {
	template, blanks, ok := blankSentence(qa.Canonical())
	if !ok {
		return nil
	}
	return &FillBlankQuestion{
		Type:          KindFillBlank,
		QAID:          qa.ID,
		SpeakerText:   qa.SpeakerText,
		SpeakerTextCn: qa.SpeakerTextCn,
		Template:      template,
		Blanks:        blanks,
	}
}

// Fill substitutes answers into the template's placeholders in order.
// Missing answers leave their placeholders in place.
func Fill(template string, answers []string) string {
	var b strings.Builder
	rest := template
	for _, a := range answers {
		i := strings.Index(rest, Placeholder)
		if i < 0 {
			break
		}
		b.WriteString(rest[:i])
		b.WriteString(a)
		rest = rest[i+len(Placeholder):]
	}
	b.WriteString(rest)
	return b.String()
}
