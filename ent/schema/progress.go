package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
)

// Progress holds the latest learner snapshot per sub-scene. Writes are
// upserts; the last one wins.
type Progress struct {
	ent.Schema
}

func (Progress) Fields() []ent.Field {
	return []ent.Field{
		field.String("sub_scene_id").
			Unique(),
		field.JSON("data", map[string]any{}).
			Comment("Opaque snapshot JSON"),
		field.Time("updated_at"),
	}
}
