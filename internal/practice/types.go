package practice

import (
	"math/rand/v2"
)

// Kind identifies a practice question phase.
type Kind string

const (
	KindChoice    Kind = "choice"
	KindFillBlank Kind = "fill_blank"
	KindSpeaking  Kind = "speaking"
)

// Question is one of *ChoiceQuestion, *FillBlankQuestion or
// *SpeakingQuestion.
type Question interface {
	Kind() Kind
	SourceQAID() string
	isQuestion()
}

// ChoiceOption is one of the four options of a choice question.
type ChoiceOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// ChoiceQuestion asks the learner to pick the canonical response after
// hearing the prompt audio.
type ChoiceQuestion struct {
	Type          Kind           `json:"type"`
	QAID          string         `json:"qaId"`
	AudioURL      string         `json:"audioUrl"`
	SpeakerText   string         `json:"speakerText"`
	SpeakerTextCn string         `json:"speakerTextCn"`
	Options       []ChoiceOption `json:"options"`
}

// BlankItem is one removed word of a fill-blank template.
type BlankItem struct {
	Index  int    `json:"index"`
	Answer string `json:"answer"`
}

// FillBlankQuestion is the canonical response with one or two content words
// replaced by Placeholder.
type FillBlankQuestion struct {
	Type          Kind        `json:"type"`
	QAID          string      `json:"qaId"`
	SpeakerText   string      `json:"speakerText"`
	SpeakerTextCn string      `json:"speakerTextCn"`
	Template      string      `json:"template"`
	Blanks        []BlankItem `json:"blanks"`
}

// SpeakingQuestion asks the learner to answer the prompt aloud.
type SpeakingQuestion struct {
	Type          Kind   `json:"type"`
	QAID          string `json:"qaId"`
	SpeakerText   string `json:"speakerText"`
	SpeakerTextCn string `json:"speakerTextCn"`
	Expected      string `json:"expected,omitempty"`
}

func (q *ChoiceQuestion) Kind() Kind            { return KindChoice }
func (q *ChoiceQuestion) SourceQAID() string    { return q.QAID }
func (*ChoiceQuestion) isQuestion()             {}
func (q *FillBlankQuestion) Kind() Kind         { return KindFillBlank }
func (q *FillBlankQuestion) SourceQAID() string { return q.QAID }
func (*FillBlankQuestion) isQuestion()          {}
func (q *SpeakingQuestion) Kind() Kind          { return KindSpeaking }
func (q *SpeakingQuestion) SourceQAID() string  { return q.QAID }
func (*SpeakingQuestion) isQuestion()           {}

// Correct returns the correct option. Every generated question has exactly one.
func (q *ChoiceQuestion) Correct() ChoiceOption {
	for _, o := range q.Options {
		if o.IsCorrect {
			return o
		}
	}
	return ChoiceOption{}
}

// Rand is the randomness used to place the correct choice option.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// NewRand returns a deterministic source for the given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
