// Package practice turns a sub-scene's QA pairs into the three-phase practice
// sequence (choice, fill-blank, speaking) and checks learner answers.
package practice

import (
	"fmt"

	"github.com/yuxiji/scenetalk/internal/scene"
)

const (
	optionCount     = 4
	distractorCount = optionCount - 1
)

// Generate builds the practice set for a sub-scene: all choice questions,
// then all fill-blank questions, then all speaking questions. Only
// must-speak pairs produce questions. rng only decides where the correct
// choice option lands.
func Generate(pairs []scene.QAPair, rng Rand) []Question {
	return generate(pairs, pairs, rng)
}

// GenerateFor builds practice for the pairs whose IDs are listed, drawing
// choice distractors from the whole sub-scene. Unknown IDs are ignored.
func GenerateFor(pairs []scene.QAPair, qaIDs []string, rng Rand) []Question {
	want := make(map[string]bool, len(qaIDs))
	for _, id := range qaIDs {
		want[id] = true
	}
	var targets []scene.QAPair
	for _, p := range pairs {
		if want[p.ID] {
			targets = append(targets, p)
		}
	}
	return generate(targets, pairs, rng)
}

func generate(targets, pool []scene.QAPair, rng Rand) []Question {
	var choices, blanks, speaking []Question
	for _, qa := range targets {
		if !qa.MustSpeak() {
			continue
		}
		if q := buildChoice(qa, pool, rng); q != nil {
			choices = append(choices, q)
		}
		if q := buildFillBlank(qa); q != nil {
			blanks = append(blanks, q)
		}
		speaking = append(speaking, &SpeakingQuestion{
			Type:          KindSpeaking,
			QAID:          qa.ID,
			SpeakerText:   qa.SpeakerText,
			SpeakerTextCn: qa.SpeakerTextCn,
			Expected:      qa.Canonical(),
		})
	}

	out := make([]Question, 0, len(choices)+len(blanks)+len(speaking))
	out = append(out, choices...)
	out = append(out, blanks...)
	return append(out, speaking...)
}

// buildChoice returns nil when the pair has no canonical answer or fewer
// than three distinct distractors exist in the rest of the sub-scene.
func buildChoice(target scene.QAPair, pool []scene.QAPair, rng Rand) *ChoiceQuestion {
	answer := target.Canonical()
	if answer == "" {
		return nil
	}

	distractors := collectDistractors(target, pool)
	if len(distractors) < distractorCount {
		return nil
	}

	options := make([]ChoiceOption, 0, optionCount)
	for i, text := range distractors {
		options = append(options, ChoiceOption{
			ID:   fmt.Sprintf("%s_distractor_%d", target.ID, i),
			Text: text,
		})
	}
	correct := ChoiceOption{ID: target.ID + "_correct", Text: answer, IsCorrect: true}
	pos := rng.IntN(optionCount)
	options = append(options[:pos], append([]ChoiceOption{correct}, options[pos:]...)...)

	return &ChoiceQuestion{
		Type:          KindChoice,
		QAID:          target.ID,
		AudioURL:      target.AudioURL,
		SpeakerText:   target.SpeakerText,
		SpeakerTextCn: target.SpeakerTextCn,
		Options:       options,
	}
}

// collectDistractors scans the other pairs' responses in order and keeps up
// to three distinct texts that differ from the target's canonical answer.
func collectDistractors(target scene.QAPair, pool []scene.QAPair) []string {
	answer := target.Canonical()
	seen := map[string]bool{answer: true}
	var out []string
	for _, qa := range pool {
		if qa.ID == target.ID {
			continue
		}
		for _, r := range qa.Responses {
			if r.Text == "" || seen[r.Text] {
				continue
			}
			seen[r.Text] = true
			out = append(out, r.Text)
			if len(out) == distractorCount {
				return out
			}
		}
	}
	return out
}
