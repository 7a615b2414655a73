package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuxiji/scenetalk/internal/scene"
)

func TestLoadFile_Sample(t *testing.T) {
	f, err := LoadFile("testdata/cafe.yaml")
	require.NoError(t, err)
	require.Len(t, f.SubScenes, 2)

	subs, pairs := f.Model()
	assert.Equal(t, scene.SubScene{ID: "cafe-order", SceneID: "cafe", Name: "Ordering coffee", NameCn: "点咖啡", Order: 1}, subs[0])
	require.Len(t, pairs, 6)
	assert.Equal(t, "cafe-order", pairs[0].SubSceneID)
	assert.Equal(t, "I'd like a latte, please.", pairs[0].Canonical())
	assert.Equal(t, scene.QATypeNarration, pairs[2].QAType)
	assert.Equal(t, "https://cdn.example.com/audio/barista.mp3", pairs[2].AudioURL)
	assert.Equal(t, "cafe-chat", pairs[5].SubSceneID)
}

func writeContent(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "sub_scenes: []\n", "SubScenes"},
		{"missing name", "sub_scenes:\n  - id: a\n    scene_id: s\n", "Name"},
		{"bad qa type", `
sub_scenes:
  - id: a
    scene_id: s
    name: A
    qa_pairs:
      - id: q1
        qa_type: shout
        speaker_text: hi
`, "QAType"},
		{"must speak without responses", `
sub_scenes:
  - id: a
    scene_id: s
    name: A
    qa_pairs:
      - id: q1
        qa_type: must_speak
        speaker_text: hi
`, "no responses"},
		{"duplicate qa id", `
sub_scenes:
  - id: a
    scene_id: s
    name: A
    qa_pairs:
      - {id: q1, qa_type: narration, speaker_text: hi}
      - {id: q1, qa_type: narration, speaker_text: again}
`, "duplicate qa pair"},
		{"duplicate sub-scene id", `
sub_scenes:
  - {id: a, scene_id: s, name: A}
  - {id: a, scene_id: s, name: B}
`, "duplicate sub-scene"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeContent(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

type recordingWriter struct {
	subs  []string
	pairs []string
	fail  string
}

func (w *recordingWriter) UpsertSubScene(_ context.Context, s scene.SubScene) error {
	w.subs = append(w.subs, s.ID)
	return nil
}

func (w *recordingWriter) UpsertQAPair(_ context.Context, p scene.QAPair) error {
	if p.ID == w.fail {
		return errors.New("disk full")
	}
	w.pairs = append(w.pairs, p.ID)
	return nil
}

func TestImport(t *testing.T) {
	f, err := LoadFile("testdata/cafe.yaml")
	require.NoError(t, err)

	w := &recordingWriter{}
	sum, err := Import(context.Background(), w, f)
	require.NoError(t, err)
	assert.Equal(t, Summary{SubScenes: 2, QAPairs: 6}, sum)
	assert.Equal(t, []string{"cafe-order", "cafe-chat"}, w.subs)
	assert.True(t, strings.HasPrefix(w.pairs[0], "cafe-order-"))
}

func TestImport_StopsOnError(t *testing.T) {
	f, err := LoadFile("testdata/cafe.yaml")
	require.NoError(t, err)

	w := &recordingWriter{fail: "cafe-order-3"}
	sum, err := Import(context.Background(), w, f)
	require.Error(t, err)
	assert.Equal(t, 2, sum.QAPairs)
}
