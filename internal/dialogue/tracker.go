package dialogue

import (
	"github.com/yuxiji/scenetalk/internal/scene"
	"github.com/yuxiji/scenetalk/internal/scoring"
)

// Tracker classifies the outcome of each must-speak pair over one dialogue
// run. It is the caller-side state holder the engine expects and is not
// safe for concurrent use.
//
// A pair passed on its first attempt with no nudge is fluent. A pair passed
// after failed attempts or a nudge is prompted. A skipped pair, or one never
// passed before Finalize, is failed.
type Tracker struct {
	pairs       []scene.QAPair
	maxAttempts int
	failures    map[string]int
	hinted      map[string]bool
	last        map[string]string
	status      map[string]scoring.Status
}

// PairState is what a tracker knows about one must-speak pair before it has
// a result, kept in snapshots so a resumed run classifies the same way.
type PairState struct {
	QAID          string `json:"qaId"`
	Failures      int    `json:"failures,omitempty"`
	Hinted        bool   `json:"hinted,omitempty"`
	LastUtterance string `json:"lastUtterance,omitempty"`
}

// NewTracker tracks a run over pairs. maxAttempts <= 0 never exhausts.
func NewTracker(pairs []scene.QAPair, maxAttempts int) *Tracker {
	return &Tracker{
		pairs:       pairs,
		maxAttempts: maxAttempts,
		failures:    make(map[string]int),
		hinted:      make(map[string]bool),
		last:        make(map[string]string),
		status:      make(map[string]scoring.Status),
	}
}

func (t *Tracker) mustSpeak(qaID string) bool {
	for _, p := range t.pairs {
		if p.ID == qaID {
			return p.MustSpeak()
		}
	}
	return false
}

// Record folds one engine turn into the run. Turns for narration pairs and
// for pairs that already have a result are ignored.
func (t *Tracker) Record(turn Turn) {
	id := turn.QAID
	if !t.mustSpeak(id) {
		return
	}
	if _, done := t.status[id]; done {
		return
	}
	switch {
	case turn.Skipped:
		t.status[id] = scoring.StatusFailed
	case turn.Pass && t.failures[id] == 0 && !t.hinted[id]:
		t.status[id] = scoring.StatusFluent
	case turn.Pass:
		t.status[id] = scoring.StatusPrompted
	default:
		t.failures[id]++
	}
}

// MarkHinted notes that the learner was nudged on qaID; a later pass counts
// as prompted.
func (t *Tracker) MarkHinted(qaID string) {
	t.hinted[qaID] = true
}

// Said notes the learner's latest reply to qaID.
func (t *Tracker) Said(qaID, utterance string) {
	if t.mustSpeak(qaID) {
		t.last[qaID] = utterance
	}
}

// LastUtterance returns the latest reply to qaID, or "" if there was none.
func (t *Tracker) LastUtterance(qaID string) string {
	return t.last[qaID]
}

// Skip marks qaID failed.
func (t *Tracker) Skip(qaID string) {
	t.Record(Turn{QAID: qaID, Skipped: true})
}

// Attempts returns the number of attempts made on qaID so far.
func (t *Tracker) Attempts(qaID string) int {
	n := t.failures[qaID]
	if _, done := t.status[qaID]; done {
		n++
	}
	return n
}

// Failures returns the failed attempts on qaID.
func (t *Tracker) Failures(qaID string) int {
	return t.failures[qaID]
}

// Exhausted reports whether qaID has used up its attempts without a result.
func (t *Tracker) Exhausted(qaID string) bool {
	if t.maxAttempts <= 0 {
		return false
	}
	_, done := t.status[qaID]
	return !done && t.failures[qaID] >= t.maxAttempts
}

// Results returns the results recorded so far in sub-scene order.
func (t *Tracker) Results() []scoring.Result {
	var out []scoring.Result
	for _, p := range t.pairs {
		if s, ok := t.status[p.ID]; ok {
			out = append(out, scoring.Result{QAID: p.ID, Status: s})
		}
	}
	return out
}

// Finalize ends the run: every must-speak pair without a result is failed.
// It returns exactly one result per must-speak pair, in sub-scene order.
func (t *Tracker) Finalize() []scoring.Result {
	for _, p := range t.pairs {
		if !p.MustSpeak() {
			continue
		}
		if _, ok := t.status[p.ID]; !ok {
			t.status[p.ID] = scoring.StatusFailed
		}
	}
	return t.Results()
}

// States returns the per-pair state of every must-speak pair that has
// one, in sub-scene order.
func (t *Tracker) States() []PairState {
	var out []PairState
	for _, p := range t.pairs {
		st := PairState{
			QAID:          p.ID,
			Failures:      t.failures[p.ID],
			Hinted:        t.hinted[p.ID],
			LastUtterance: t.last[p.ID],
		}
		if st.Failures > 0 || st.Hinted || st.LastUtterance != "" {
			out = append(out, st)
		}
	}
	return out
}

// Restore reloads results and per-pair states from a saved snapshot.
// Entries for unknown or narration pairs are ignored.
func (t *Tracker) Restore(results []scoring.Result, states []PairState) {
	for _, r := range results {
		if t.mustSpeak(r.QAID) {
			t.status[r.QAID] = r.Status
		}
	}
	for _, st := range states {
		if !t.mustSpeak(st.QAID) {
			continue
		}
		if st.Failures > 0 {
			t.failures[st.QAID] = st.Failures
		}
		if st.Hinted {
			t.hinted[st.QAID] = true
		}
		if st.LastUtterance != "" {
			t.last[st.QAID] = st.LastUtterance
		}
	}
}
