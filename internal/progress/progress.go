// Package progress saves and restores where a learner is in a sub-scene.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yuxiji/scenetalk/internal/dialogue"
	"github.com/yuxiji/scenetalk/internal/judge"
	"github.com/yuxiji/scenetalk/internal/scoring"
)

// Store keeps one opaque snapshot per sub-scene, last write wins. Load
// returns nil when nothing is stored.
type Store interface {
	Save(ctx context.Context, subSceneID string, data json.RawMessage) error
	Load(ctx context.Context, subSceneID string) (json.RawMessage, error)
	Delete(ctx context.Context, subSceneID string) error
}

// Stage is the learning step a snapshot was taken in.
type Stage string

const (
	StagePractice Stage = "practice"
	StageDialogue Stage = "dialogue"
	StageReview   Stage = "review"
	StageDone     Stage = "done"
)

// SubSceneProgress is the saved state of one sub-scene.
type SubSceneProgress struct {
	SubSceneID          string               `json:"subSceneId"`
	Stage               Stage                `json:"stage"`
	PracticeIndex       int                  `json:"practiceIndex"`
	CurrentQAIndex      int                  `json:"currentQaIndex"`
	ConversationHistory []judge.Line         `json:"conversationHistory,omitempty"`
	Results             []scoring.Result     `json:"results,omitempty"`
	Pairs               []dialogue.PairState `json:"pairs,omitempty"`
	FluencyScore        *int                 `json:"fluencyScore,omitempty"`
	FailedQAIDs         []string             `json:"failedQaIds,omitempty"`
	RunID               string               `json:"runId,omitempty"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

// SaveSnapshot stamps and stores p.
func SaveSnapshot(ctx context.Context, s Store, p SubSceneProgress) error {
	if p.SubSceneID == "" {
		return fmt.Errorf("save snapshot: empty sub-scene id")
	}
	p.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return s.Save(ctx, p.SubSceneID, data)
}

var (
	ErrNotObject        = errors.New("progress snapshot must be a JSON object")
	ErrSubSceneMismatch = errors.New("subSceneId does not match")
)

// StampRaw checks that data is a JSON object for subSceneID and returns it
// with subSceneId and updatedAt set. Fields it does not know are kept.
func StampRaw(subSceneID string, data json.RawMessage, now time.Time) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil, ErrNotObject
	}
	if v, ok := obj["subSceneId"]; ok {
		var id string
		if err := json.Unmarshal(v, &id); err != nil || (id != "" && id != subSceneID) {
			return nil, ErrSubSceneMismatch
		}
	}
	id, err := json.Marshal(subSceneID)
	if err != nil {
		return nil, err
	}
	ts, err := json.Marshal(now.UTC())
	if err != nil {
		return nil, err
	}
	obj["subSceneId"] = id
	obj["updatedAt"] = ts
	return json.Marshal(obj)
}

// LoadSnapshot returns the stored snapshot or nil. A snapshot that no
// longer decodes is logged and treated as absent.
func LoadSnapshot(ctx context.Context, s Store, subSceneID string, log logrus.FieldLogger) (*SubSceneProgress, error) {
	data, err := s.Load(ctx, subSceneID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if data == nil {
		return nil, nil
	}
	var p SubSceneProgress
	if err := json.Unmarshal(data, &p); err != nil {
		if log != nil {
			log.WithField("sub_scene_id", subSceneID).WithError(err).Warn("discarding unreadable progress snapshot")
		}
		return nil, nil
	}
	if p.SubSceneID == "" {
		p.SubSceneID = subSceneID
	}
	return &p, nil
}

// Reset deletes the snapshot of one sub-scene.
func Reset(ctx context.Context, s Store, subSceneID string) error {
	if err := s.Delete(ctx, subSceneID); err != nil {
		return fmt.Errorf("reset progress: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]json.RawMessage)}
}

func (m *MemoryStore) Save(_ context.Context, subSceneID string, data json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[subSceneID] = append(json.RawMessage(nil), data...)
	return nil
}

func (m *MemoryStore) Load(_ context.Context, subSceneID string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[subSceneID]
	if !ok {
		return nil, nil
	}
	return append(json.RawMessage(nil), d...), nil
}

func (m *MemoryStore) Delete(_ context.Context, subSceneID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, subSceneID)
	return nil
}
