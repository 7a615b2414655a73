package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// DialogueTurnEvent records one judged (or skipped) learner turn.
type DialogueTurnEvent struct {
	ent.Schema
}

func (DialogueTurnEvent) Mixin() []ent.Mixin {
	return []ent.Mixin{EventMixin{}}
}

func (DialogueTurnEvent) Fields() []ent.Field {
	return []ent.Field{
		field.String("run_id"),
		field.String("qa_id"),
		field.Int("qa_index"),
		field.Int("attempt").
			Comment("1-based attempt number on this QA pair"),
		field.Bool("passed"),
		field.Bool("skipped").
			Default(false),
		field.Text("user_message").
			Default(""),
		field.String("reason").
			Default(""),
		field.String("hint").
			Default(""),
	}
}

func (DialogueTurnEvent) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("run_id", "sequence"),
	}
}
