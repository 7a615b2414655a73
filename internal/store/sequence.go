package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const tableSequence = "global_sequence"

// sequenceTable is a single-row counter shared by the event tables so model
// calls and dialogue turns interleave in one order.
func sequenceTable() *schema.Table {
	id := &schema.Column{Name: "id", Type: field.TypeInt}
	next := &schema.Column{Name: "next_val", Type: field.TypeInt64, Default: 1}
	return &schema.Table{
		Name:       tableSequence,
		Columns:    []*schema.Column{id, next},
		PrimaryKey: []*schema.Column{id},
	}
}

type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
	b  *entsql.DialectBuilder
}

// newSequenceCounter seeds the counter row if it is missing. The table
// itself is created by migrate.
func newSequenceCounter(ctx context.Context, db *sql.DB, b *entsql.DialectBuilder) (*sequenceCounter, error) {
	query, args := b.Insert(tableSequence).
		Columns("id", "next_val").
		Values(1, 1).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}
	return &sequenceCounter{db: db, b: b}, nil
}

// Next returns the next sequence number. The mutex serializes writers in
// this process; UPDATE ... RETURNING keeps the increment atomic across
// processes.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	query, args := sc.b.Update(tableSequence).
		Add("next_val", 1).
		Where(entsql.EQ("id", 1)).
		Returning("next_val").
		Query()

	var next int64
	if err := sc.db.QueryRowContext(ctx, query, args...).Scan(&next); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return next - 1, nil
}
