package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// ProgressRepo keeps one opaque JSON snapshot per sub-scene. Writes are
// last-write-wins.
type ProgressRepo struct {
	db *sql.DB
	b  *entsql.DialectBuilder
}

// ProgressEntry describes a stored snapshot without its payload.
type ProgressEntry struct {
	SubSceneID string
	UpdatedAt  time.Time
}

func (r *ProgressRepo) Save(ctx context.Context, subSceneID string, data json.RawMessage) error {
	if !json.Valid(data) {
		return fmt.Errorf("save progress %s: snapshot is not valid JSON", subSceneID)
	}
	query, args := r.b.Insert(tableProgress).
		Columns("sub_scene_id", "data", "updated_at").
		Values(subSceneID, string(data), time.Now().UTC()).
		OnConflict(entsql.ConflictColumns("sub_scene_id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save progress %s: %w", subSceneID, err)
	}
	return nil
}

// Load returns the stored snapshot, or nil if there is none.
func (r *ProgressRepo) Load(ctx context.Context, subSceneID string) (json.RawMessage, error) {
	query, args := r.b.Select("data").
		From(r.b.Table(tableProgress)).
		Where(entsql.EQ("sub_scene_id", subSceneID)).
		Query()
	var data []byte
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load progress %s: %w", subSceneID, err)
	}
	return json.RawMessage(data), nil
}

// Delete removes a snapshot. Deleting a missing snapshot is not an error.
func (r *ProgressRepo) Delete(ctx context.Context, subSceneID string) error {
	query, args := r.b.Delete(tableProgress).
		Where(entsql.EQ("sub_scene_id", subSceneID)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete progress %s: %w", subSceneID, err)
	}
	return nil
}

// List returns every stored snapshot, most recently updated first.
func (r *ProgressRepo) List(ctx context.Context) ([]ProgressEntry, error) {
	query, args := r.b.Select("sub_scene_id", "updated_at").
		From(r.b.Table(tableProgress)).
		OrderBy(entsql.Desc("updated_at")).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var out []ProgressEntry
	for rows.Next() {
		var e ProgressEntry
		if err := rows.Scan(&e.SubSceneID, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
