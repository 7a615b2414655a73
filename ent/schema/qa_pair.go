package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// QAResponse mirrors scene.QAResponse for JSON column typing.
type QAResponse struct {
	Text   string `json:"text"`
	TextCn string `json:"text_cn"`
}

// QAPair is one prompt/response exchange of a sub-scene.
type QAPair struct {
	ent.Schema
}

func (QAPair) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable(),
		field.String("sub_scene_id"),
		field.Int("position").
			Comment("Ordering within the sub-scene"),
		field.Enum("qa_type").
			Values("must_speak", "narration"),
		field.Text("speaker_text"),
		field.Text("speaker_text_cn").
			Default(""),
		field.String("audio_key").
			Optional().
			Comment("Object storage key of the prompt audio"),
		field.String("audio_url").
			Optional().
			Comment("Fixed public URL, used as-is when set"),
		field.JSON("responses", []QAResponse{}).
			Comment("Acceptable learner responses, canonical first"),
	}
}

func (QAPair) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("sub_scene_id", "position"),
	}
}
