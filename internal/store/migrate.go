package store

import (
	"context"
	"fmt"

	"entgo.io/ent"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"

	entschema "github.com/yuxiji/scenetalk/ent/schema"
)

const (
	tableSubScenes     = "sub_scenes"
	tableQAPairs       = "qa_pairs"
	tableProgress      = "sub_scene_progresses"
	tableLLMEvents     = "llm_request_events"
	tableDialogueTurns = "dialogue_turn_events"
)

// entities lists the ent schemas backing each table.
var entities = []struct {
	table  string
	schema ent.Interface
}{
	{tableSubScenes, entschema.SubScene{}},
	{tableQAPairs, entschema.QAPair{}},
	{tableProgress, entschema.Progress{}},
	{tableLLMEvents, entschema.LLMRequestEvent{}},
	{tableDialogueTurns, entschema.DialogueTurnEvent{}},
}

func (s *Store) migrate(ctx context.Context) error {
	tables := make([]*schema.Table, 0, len(entities)+1)
	tables = append(tables, sequenceTable())
	for _, e := range entities {
		tables = append(tables, buildTable(e.table, e.schema))
	}
	m, err := schema.NewMigrate(s.drv)
	if err != nil {
		return fmt.Errorf("new migrate: %w", err)
	}
	return m.Create(ctx, tables...)
}

// buildTable derives a migration table from an ent schema: mixin fields
// first, then the schema's own fields. Schemas without a string "id" field
// get an auto-increment integer key.
func buildTable(name string, s ent.Interface) *schema.Table {
	var fields []ent.Field
	var indexes []ent.Index
	for _, m := range s.Mixin() {
		fields = append(fields, m.Fields()...)
		indexes = append(indexes, m.Indexes()...)
	}
	fields = append(fields, s.Fields()...)
	indexes = append(indexes, s.Indexes()...)

	t := &schema.Table{Name: name}
	cols := make(map[string]*schema.Column)

	for _, f := range fields {
		d := f.Descriptor()
		if d.Name == "id" {
			id := &schema.Column{Name: "id", Type: d.Info.Type, Size: int64(d.Size)}
			t.Columns = append([]*schema.Column{id}, t.Columns...)
			t.PrimaryKey = []*schema.Column{id}
			cols["id"] = id
			continue
		}
		typ := d.Info.Type
		if typ == field.TypeEnum {
			typ = field.TypeString
		}
		c := &schema.Column{
			Name:     d.Name,
			Type:     typ,
			Size:     int64(d.Size),
			Unique:   d.Unique,
			Nullable: d.Optional || d.Nillable,
		}
		t.Columns = append(t.Columns, c)
		cols[d.Name] = c
	}

	if t.PrimaryKey == nil {
		id := &schema.Column{Name: "id", Type: field.TypeInt, Increment: true}
		t.Columns = append([]*schema.Column{id}, t.Columns...)
		t.PrimaryKey = []*schema.Column{id}
	}

	for _, ix := range indexes {
		d := ix.Descriptor()
		// Unique columns already carry an index named table_column.
		if len(d.Fields) == 1 && cols[d.Fields[0]] != nil && cols[d.Fields[0]].Unique {
			continue
		}
		idx := &schema.Index{Name: name, Unique: d.Unique}
		for _, f := range d.Fields {
			idx.Name += "_" + f
			idx.Columns = append(idx.Columns, cols[f])
		}
		t.Indexes = append(t.Indexes, idx)
	}
	return t
}
