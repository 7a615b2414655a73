package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/yuxiji/scenetalk/internal/logging"
	"github.com/yuxiji/scenetalk/internal/scene"
)

// Speaker renders text to MP3.
type Speaker interface {
	Speak(ctx context.Context, text string) ([]byte, error)
}

// Uploader stores objects. *s3.Client implements it.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// KeyRecorder remembers where a pair's audio lives.
type KeyRecorder interface {
	SetAudioKey(ctx context.Context, qaID, key string) error
}

// GoogleSpeaker speaks through Google Cloud Text-to-Speech.
type GoogleSpeaker struct {
	client       *texttospeech.Client
	languageCode string
	voice        string
}

// NewGoogleSpeaker connects using Application Default Credentials.
func NewGoogleSpeaker(ctx context.Context, cfg Config) (*GoogleSpeaker, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create tts client: %w", err)
	}
	return &GoogleSpeaker{client: client, languageCode: cfg.LanguageCode, voice: cfg.Voice}, nil
}

func (g *GoogleSpeaker) Speak(ctx context.Context, text string) ([]byte, error) {
	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.languageCode,
			Name:         g.voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}
	return resp.AudioContent, nil
}

func (g *GoogleSpeaker) Close() error {
	return g.client.Close()
}

// Synthesizer renders prompt audio, uploads it and records its key.
type Synthesizer struct {
	speaker Speaker
	upload  Uploader
	keys    KeyRecorder
	bucket  string
	log     logrus.FieldLogger

	// Pause is slept by each worker between pairs to stay under the TTS
	// quota.
	Pause time.Duration
}

func NewSynthesizer(sp Speaker, up Uploader, keys KeyRecorder, bucket string, log logrus.FieldLogger) *Synthesizer {
	log = logging.OrDiscard(log)
	return &Synthesizer{speaker: sp, upload: up, keys: keys, bucket: bucket, log: log}
}

// Synthesize renders one pair's speaker line and returns its object key.
func (s *Synthesizer) Synthesize(ctx context.Context, p scene.QAPair) (string, error) {
	if p.SpeakerText == "" {
		return "", fmt.Errorf("qa pair %s has no speaker text", p.ID)
	}
	mp3, err := s.speaker.Speak(ctx, p.SpeakerText)
	if err != nil {
		return "", err
	}

	key := Key(p.ID)
	_, err = s.upload.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(mp3),
		ContentType: aws.String("audio/mpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	if err := s.keys.SetAudioKey(ctx, p.ID, key); err != nil {
		return "", err
	}
	return key, nil
}

// Report summarizes a batch run.
type Report struct {
	Done   []string
	Failed map[string]error
}

// SynthesizeAll renders pairs with a pool of workers. A failed pair is
// logged and reported; the rest continue.
func (s *Synthesizer) SynthesizeAll(ctx context.Context, pairs []scene.QAPair, workers int) Report {
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan scene.QAPair)
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report = Report{Failed: make(map[string]error)}
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				key, err := s.Synthesize(ctx, p)
				mu.Lock()
				if err != nil {
					report.Failed[p.ID] = err
				} else {
					report.Done = append(report.Done, p.ID)
				}
				mu.Unlock()

				log := s.log.WithField("qa_id", p.ID)
				if err != nil {
					log.WithError(err).Warn("audio synthesis failed")
				} else {
					log.WithField("key", key).Info("audio synthesized")
				}
				if s.Pause > 0 {
					select {
					case <-ctx.Done():
					case <-time.After(s.Pause):
					}
				}
			}
		}()
	}

feed:
	for _, p := range pairs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- p:
		}
	}
	close(jobs)
	wg.Wait()
	return report
}
