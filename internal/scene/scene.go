// Package scene defines the content model shared by practice synthesis,
// dialogue progression and review: sub-scenes and their ordered QA pairs.
package scene

import (
	"context"
	"sort"
)

// QAType classifies a QA pair. Only must-speak pairs count toward fluency.
type QAType string

const (
	QATypeMustSpeak QAType = "must_speak"
	QATypeNarration QAType = "narration"
)

// Valid reports whether t is a known QA type.
func (t QAType) Valid() bool {
	return t == QATypeMustSpeak || t == QATypeNarration
}

// QAResponse is one acceptable learner response, with its native-language
// translation.
type QAResponse struct {
	Text   string `json:"text"`
	TextCn string `json:"text_cn"`
}

// QAPair is one prompt/response exchange in a sub-scene.
type QAPair struct {
	ID            string       `json:"id"`
	SubSceneID    string       `json:"subSceneId"`
	Order         int          `json:"order"`
	QAType        QAType       `json:"qaType"`
	SpeakerText   string       `json:"speakerText"`
	SpeakerTextCn string       `json:"speakerTextCn"`
	AudioKey      string       `json:"audioKey,omitempty"`
	AudioURL      string       `json:"audioUrl,omitempty"`
	Responses     []QAResponse `json:"responses"`
}

// MustSpeak reports whether the pair must be spoken by the learner.
func (q QAPair) MustSpeak() bool { return q.QAType == QATypeMustSpeak }

// Canonical returns the first response text, or "" when the pair has none.
func (q QAPair) Canonical() string {
	if len(q.Responses) == 0 {
		return ""
	}
	return q.Responses[0].Text
}

// SubScene is an ordered unit of practice inside a scene.
type SubScene struct {
	ID      string `json:"id"`
	SceneID string `json:"sceneId"`
	Name    string `json:"name"`
	NameCn  string `json:"nameCn"`
	Order   int    `json:"order"`
}

// Source supplies sub-scenes and their QA pairs. SubScene returns nil, nil
// when the sub-scene does not exist. QAPairs returns pairs sorted by Order.
type Source interface {
	SubScene(ctx context.Context, id string) (*SubScene, error)
	QAPairs(ctx context.Context, subSceneID string) ([]QAPair, error)
}

// SortPairs orders pairs ascending by Order, breaking ties by ID.
func SortPairs(pairs []QAPair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].Order != pairs[j].Order {
			return pairs[i].Order < pairs[j].Order
		}
		return pairs[i].ID < pairs[j].ID
	})
}

// MustSpeakCount returns the number of must-speak pairs.
func MustSpeakCount(pairs []QAPair) int {
	n := 0
	for _, p := range pairs {
		if p.MustSpeak() {
			n++
		}
	}
	return n
}

// Index returns pairs keyed by ID.
func Index(pairs []QAPair) map[string]QAPair {
	m := make(map[string]QAPair, len(pairs))
	for _, p := range pairs {
		m[p.ID] = p
	}
	return m
}
