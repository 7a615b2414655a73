package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/yuxiji/scenetalk/internal/scene"
)

// SceneRepo persists sub-scenes and their QA pairs.
type SceneRepo struct {
	db *sql.DB
	b  *entsql.DialectBuilder
}

var _ scene.Source = (*SceneRepo)(nil)

var subSceneColumns = []string{"id", "scene_id", "name", "name_cn", "position"}

var qaPairColumns = []string{
	"id", "sub_scene_id", "position", "qa_type", "speaker_text", "speaker_text_cn",
	"audio_key", "audio_url", "responses",
}

// SubScene returns the sub-scene with the given id, or nil if absent.
func (r *SceneRepo) SubScene(ctx context.Context, id string) (*scene.SubScene, error) {
	query, args := r.b.Select(subSceneColumns...).
		From(r.b.Table(tableSubScenes)).
		Where(entsql.EQ("id", id)).
		Query()
	var s scene.SubScene
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.SceneID, &s.Name, &s.NameCn, &s.Order)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sub-scene %s: %w", id, err)
	}
	return &s, nil
}

// SubScenes lists sub-scenes, optionally restricted to one scene, ordered by
// scene and position.
func (r *SceneRepo) SubScenes(ctx context.Context, sceneID string) ([]scene.SubScene, error) {
	sel := r.b.Select(subSceneColumns...).
		From(r.b.Table(tableSubScenes)).
		OrderBy("scene_id", "position", "id")
	if sceneID != "" {
		sel.Where(entsql.EQ("scene_id", sceneID))
	}
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sub-scenes: %w", err)
	}
	defer rows.Close()

	var out []scene.SubScene
	for rows.Next() {
		var s scene.SubScene
		if err := rows.Scan(&s.ID, &s.SceneID, &s.Name, &s.NameCn, &s.Order); err != nil {
			return nil, fmt.Errorf("scan sub-scene: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// QAPairs returns the sub-scene's pairs ordered by position then id.
func (r *SceneRepo) QAPairs(ctx context.Context, subSceneID string) ([]scene.QAPair, error) {
	sel := r.b.Select(qaPairColumns...).
		From(r.b.Table(tableQAPairs)).
		Where(entsql.EQ("sub_scene_id", subSceneID)).
		OrderBy("position", "id")
	return r.queryPairs(ctx, sel)
}

// QAPairsMissingAudio returns pairs that have neither an audio key nor a
// fixed URL, across all sub-scenes.
func (r *SceneRepo) QAPairsMissingAudio(ctx context.Context) ([]scene.QAPair, error) {
	sel := r.b.Select(qaPairColumns...).
		From(r.b.Table(tableQAPairs)).
		Where(entsql.Or(entsql.IsNull("audio_key"), entsql.EQ("audio_key", ""))).
		Where(entsql.Or(entsql.IsNull("audio_url"), entsql.EQ("audio_url", ""))).
		OrderBy("sub_scene_id", "position", "id")
	return r.queryPairs(ctx, sel)
}

func (r *SceneRepo) queryPairs(ctx context.Context, sel *entsql.Selector) ([]scene.QAPair, error) {
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query qa pairs: %w", err)
	}
	defer rows.Close()

	var out []scene.QAPair
	for rows.Next() {
		var (
			p                  scene.QAPair
			qaType             string
			audioKey, audioURL sql.NullString
			responses          []byte
		)
		if err := rows.Scan(&p.ID, &p.SubSceneID, &p.Order, &qaType, &p.SpeakerText, &p.SpeakerTextCn,
			&audioKey, &audioURL, &responses); err != nil {
			return nil, fmt.Errorf("scan qa pair: %w", err)
		}
		p.QAType = scene.QAType(qaType)
		p.AudioKey, p.AudioURL = audioKey.String, audioURL.String
		if len(responses) > 0 {
			if err := json.Unmarshal(responses, &p.Responses); err != nil {
				return nil, fmt.Errorf("decode responses of %s: %w", p.ID, err)
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpsertSubScene inserts or replaces a sub-scene.
func (r *SceneRepo) UpsertSubScene(ctx context.Context, s scene.SubScene) error {
	query, args := r.b.Insert(tableSubScenes).
		Columns("id", "scene_id", "name", "name_cn", "position", "updated_at").
		Values(s.ID, s.SceneID, s.Name, s.NameCn, s.Order, time.Now().UTC()).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert sub-scene %s: %w", s.ID, err)
	}
	return nil
}

// UpsertQAPair inserts or replaces a QA pair. An empty AudioKey leaves a
// previously stored key untouched.
func (r *SceneRepo) UpsertQAPair(ctx context.Context, p scene.QAPair) error {
	if !p.QAType.Valid() {
		return fmt.Errorf("qa pair %s: invalid type %q", p.ID, p.QAType)
	}
	responses, err := json.Marshal(p.Responses)
	if err != nil {
		return fmt.Errorf("encode responses of %s: %w", p.ID, err)
	}

	cols := []string{"id", "sub_scene_id", "position", "qa_type", "speaker_text", "speaker_text_cn", "audio_url", "responses"}
	vals := []any{p.ID, p.SubSceneID, p.Order, string(p.QAType), p.SpeakerText, p.SpeakerTextCn, p.AudioURL, string(responses)}
	if p.AudioKey != "" {
		cols = append(cols, "audio_key")
		vals = append(vals, p.AudioKey)
	}

	query, args := r.b.Insert(tableQAPairs).
		Columns(cols...).
		Values(vals...).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert qa pair %s: %w", p.ID, err)
	}
	return nil
}

// SetAudioKey records the object storage key of a pair's prompt audio.
func (r *SceneRepo) SetAudioKey(ctx context.Context, qaID, key string) error {
	query, args := r.b.Update(tableQAPairs).
		Set("audio_key", key).
		Where(entsql.EQ("id", qaID)).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set audio key of %s: %w", qaID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set audio key: qa pair %s not found", qaID)
	}
	return nil
}
