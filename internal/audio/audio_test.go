package audio

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuxiji/scenetalk/internal/scene"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestURLCache_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewURLCache(time.Minute, clock.now)

	c.Put("qa/qa1.mp3", "https://signed/1")
	u, ok := c.Get("qa/qa1.mp3")
	require.True(t, ok)
	assert.Equal(t, "https://signed/1", u)

	clock.t = clock.t.Add(59 * time.Second)
	_, ok = c.Get("qa/qa1.mp3")
	assert.True(t, ok)

	clock.t = clock.t.Add(time.Second)
	_, ok = c.Get("qa/qa1.mp3")
	assert.False(t, ok, "entry must expire at ttl")
}

func TestURLCache_PutPrunesExpired(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewURLCache(time.Minute, clock.now)
	c.Put("a", "1")
	c.Put("b", "2")

	clock.t = clock.t.Add(2 * time.Minute)
	c.Put("c", "3")
	assert.Equal(t, 1, c.Len())
}

func TestURLCache_ZeroTTLStoresNothing(t *testing.T) {
	c := NewURLCache(0, nil)
	c.Put("a", "1")
	_, ok := c.Get("a")
	assert.False(t, ok)
}

type fakePresigner struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, *in.Key)
	if f.err != nil {
		return nil, f.err
	}
	return &v4.PresignedHTTPRequest{URL: "https://bucket.example.com/" + *in.Bucket + "/" + *in.Key + "?sig=x", Method: "GET"}, nil
}

func TestResolver_URL(t *testing.T) {
	p := &fakePresigner{}
	r := NewResolver(p, "scenetalk", 15*time.Minute, NewURLCache(time.Minute, nil), nil)
	ctx := context.Background()

	fixed, err := r.URL(ctx, scene.QAPair{ID: "qa1", AudioURL: "https://cdn/x.mp3", AudioKey: "qa/qa1.mp3"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x.mp3", fixed)

	none, err := r.URL(ctx, scene.QAPair{ID: "qa2"})
	require.NoError(t, err)
	assert.Empty(t, none)

	signed, err := r.URL(ctx, scene.QAPair{ID: "qa3", AudioKey: "qa/qa3.mp3"})
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example.com/scenetalk/qa/qa3.mp3?sig=x", signed)

	again, err := r.URL(ctx, scene.QAPair{ID: "qa3", AudioKey: "qa/qa3.mp3"})
	require.NoError(t, err)
	assert.Equal(t, signed, again)
	assert.Equal(t, []string{"qa/qa3.mp3"}, p.calls, "second lookup served from cache")
}

func TestResolver_FillLeavesFailuresBlank(t *testing.T) {
	p := &fakePresigner{err: errors.New("no credentials")}
	r := NewResolver(p, "scenetalk", time.Minute, NewURLCache(time.Minute, nil), nil)

	pairs := []scene.QAPair{
		{ID: "qa1", AudioKey: "qa/qa1.mp3"},
		{ID: "qa2", AudioURL: "https://cdn/2.mp3"},
	}
	r.Fill(context.Background(), pairs)
	assert.Empty(t, pairs[0].AudioURL)
	assert.Equal(t, "https://cdn/2.mp3", pairs[1].AudioURL)
}

type fakeSpeaker struct{ fail string }

func (f fakeSpeaker) Speak(_ context.Context, text string) ([]byte, error) {
	if text == f.fail {
		return nil, errors.New("quota exceeded")
	}
	return []byte("ID3" + text), nil
}

type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]string
}

func (b *fakeBucket) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, _ := io.ReadAll(in.Body)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.objects == nil {
		b.objects = make(map[string]string)
	}
	b.objects[*in.Key] = string(data)
	return &s3.PutObjectOutput{}, nil
}

type fakeKeys struct {
	mu   sync.Mutex
	keys map[string]string
}

func (k *fakeKeys) SetAudioKey(_ context.Context, qaID, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.keys == nil {
		k.keys = make(map[string]string)
	}
	k.keys[qaID] = key
	return nil
}

func TestSynthesizer_Synthesize(t *testing.T) {
	bucket, keys := &fakeBucket{}, &fakeKeys{}
	s := NewSynthesizer(fakeSpeaker{}, bucket, keys, "scenetalk", nil)

	key, err := s.Synthesize(context.Background(), scene.QAPair{ID: "qa1", SpeakerText: "What size?"})
	require.NoError(t, err)
	assert.Equal(t, "qa/qa1.mp3", key)
	assert.Equal(t, "ID3What size?", bucket.objects["qa/qa1.mp3"])
	assert.Equal(t, "qa/qa1.mp3", keys.keys["qa1"])

	_, err = s.Synthesize(context.Background(), scene.QAPair{ID: "qa2"})
	assert.Error(t, err)
}

func TestSynthesizer_SynthesizeAll(t *testing.T) {
	bucket, keys := &fakeBucket{}, &fakeKeys{}
	s := NewSynthesizer(fakeSpeaker{fail: "boom"}, bucket, keys, "scenetalk", nil)

	var pairs []scene.QAPair
	for _, id := range []string{"qa1", "qa2", "qa3", "qa4", "qa5"} {
		pairs = append(pairs, scene.QAPair{ID: id, SpeakerText: "line " + id})
	}
	pairs[2].SpeakerText = "boom"

	report := s.SynthesizeAll(context.Background(), pairs, 3)
	sort.Strings(report.Done)
	assert.Equal(t, []string{"qa1", "qa2", "qa4", "qa5"}, report.Done)
	require.Contains(t, report.Failed, "qa3")
	assert.True(t, strings.Contains(report.Failed["qa3"].Error(), "quota"))
	assert.Len(t, keys.keys, 4)
}

func TestSynthesizer_SynthesizeAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSynthesizer(fakeSpeaker{}, &fakeBucket{}, &fakeKeys{}, "b", nil)

	report := s.SynthesizeAll(ctx, []scene.QAPair{{ID: "qa1", SpeakerText: "x"}}, 1)
	assert.LessOrEqual(t, len(report.Done)+len(report.Failed), 1)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "qa/cafe-1.mp3", Key("cafe-1"))
}
