// Package content imports authored sub-scenes and QA pairs from YAML.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/yuxiji/scenetalk/internal/scene"
)

// File is the root of a content document.
type File struct {
	SubScenes []SubScene `koanf:"sub_scenes" validate:"required,min=1,dive"`
}

type SubScene struct {
	ID      string   `koanf:"id" validate:"required"`
	SceneID string   `koanf:"scene_id" validate:"required"`
	Name    string   `koanf:"name" validate:"required"`
	NameCn  string   `koanf:"name_cn"`
	Order   int      `koanf:"order"`
	QAPairs []QAPair `koanf:"qa_pairs" validate:"dive"`
}

type QAPair struct {
	ID            string     `koanf:"id" validate:"required"`
	Order         int        `koanf:"order"`
	QAType        string     `koanf:"qa_type" validate:"oneof=must_speak narration"`
	SpeakerText   string     `koanf:"speaker_text" validate:"required"`
	SpeakerTextCn string     `koanf:"speaker_text_cn"`
	AudioURL      string     `koanf:"audio_url" validate:"omitempty,url"`
	Responses     []Response `koanf:"responses" validate:"dive"`
}

type Response struct {
	Text   string `koanf:"text" validate:"required"`
	TextCn string `koanf:"text_cn"`
}

// LoadFile reads and validates a content file.
func LoadFile(path string) (*File, error) {
	k := koanf.New("::")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var f File
	if err := k.Unmarshal("", &f); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks field constraints, id uniqueness and that every
// must-speak pair has at least one response.
func (f *File) Validate() error {
	if err := validator.New().Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		msgs := make([]string, len(verrs))
		for i, e := range verrs {
			msgs[i] = fmt.Sprintf("%s: failed '%s'", e.Namespace(), e.Tag())
		}
		return fmt.Errorf("invalid content: %s", strings.Join(msgs, "; "))
	}

	subIDs := make(map[string]bool)
	qaIDs := make(map[string]bool)
	for _, s := range f.SubScenes {
		if subIDs[s.ID] {
			return fmt.Errorf("invalid content: duplicate sub-scene id %q", s.ID)
		}
		subIDs[s.ID] = true
		for _, q := range s.QAPairs {
			if qaIDs[q.ID] {
				return fmt.Errorf("invalid content: duplicate qa pair id %q", q.ID)
			}
			qaIDs[q.ID] = true
			if scene.QAType(q.QAType) == scene.QATypeMustSpeak && len(q.Responses) == 0 {
				return fmt.Errorf("invalid content: must_speak pair %q has no responses", q.ID)
			}
		}
	}
	return nil
}

// Model converts the file into the scene model.
func (f *File) Model() ([]scene.SubScene, []scene.QAPair) {
	var subs []scene.SubScene
	var pairs []scene.QAPair
	for _, s := range f.SubScenes {
		subs = append(subs, scene.SubScene{ID: s.ID, SceneID: s.SceneID, Name: s.Name, NameCn: s.NameCn, Order: s.Order})
		for _, q := range s.QAPairs {
			p := scene.QAPair{
				ID:            q.ID,
				SubSceneID:    s.ID,
				Order:         q.Order,
				QAType:        scene.QAType(q.QAType),
				SpeakerText:   q.SpeakerText,
				SpeakerTextCn: q.SpeakerTextCn,
				AudioURL:      q.AudioURL,
			}
			for _, r := range q.Responses {
				p.Responses = append(p.Responses, scene.QAResponse{Text: r.Text, TextCn: r.TextCn})
			}
			pairs = append(pairs, p)
		}
	}
	return subs, pairs
}

// Writer persists imported content. *store.SceneRepo implements it.
type Writer interface {
	UpsertSubScene(ctx context.Context, s scene.SubScene) error
	UpsertQAPair(ctx context.Context, p scene.QAPair) error
}

// Summary counts what an import wrote.
type Summary struct {
	SubScenes int
	QAPairs   int
}

// Import writes every sub-scene and pair in f. Existing rows with the same
// ids are replaced.
func Import(ctx context.Context, w Writer, f *File) (Summary, error) {
	var sum Summary
	subs, pairs := f.Model()
	for _, s := range subs {
		if err := w.UpsertSubScene(ctx, s); err != nil {
			return sum, err
		}
		sum.SubScenes++
	}
	for _, p := range pairs {
		if err := w.UpsertQAPair(ctx, p); err != nil {
			return sum, err
		}
		sum.QAPairs++
	}
	return sum, nil
}
