package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// SubScene is an ordered unit of practice inside a scene.
type SubScene struct {
	ent.Schema
}

func (SubScene) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("scene_id"),
		field.String("name"),
		field.String("name_cn").
			Default(""),
		field.Int("position").
			Default(0).
			Comment("Ordering within the scene"),
		field.Time("updated_at"),
	}
}

func (SubScene) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("scene_id", "position"),
	}
}
