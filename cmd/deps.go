package cmd

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yuxiji/scenetalk/internal/audio"
	"github.com/yuxiji/scenetalk/internal/judge"
	"github.com/yuxiji/scenetalk/internal/learning"
	"github.com/yuxiji/scenetalk/internal/llm"
)

// newService builds the learning service: the configured LLM provider
// behind the judge, the store for content, progress and turn events, and
// presigned audio URLs when an object store is configured.
func newService(ctx context.Context, e *env) (*learning.Service, error) {
	provider, err := llm.NewProvider(ctx, e.cfg.LLM, e.store.Events(), e.log)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	j := judge.New(provider, judge.DefaultConfig())

	deps := learning.Deps{
		Catalog:           e.store.Scenes(),
		Progress:          e.store.Progress(),
		Verdicter:         j,
		Critic:            j,
		Turns:             e.store.Events(),
		Dialogue:          e.cfg.Dialogue,
		ReviewConcurrency: e.cfg.Review.Concurrency,
		Log:               e.log,
	}

	if e.cfg.Audio.Enabled() {
		client, err := audio.NewS3Client(ctx, e.cfg.Audio)
		if err != nil {
			return nil, err
		}
		cache := audio.NewURLCache(e.cfg.Audio.URLTTL/2, nil)
		deps.Audio = audio.NewResolver(s3.NewPresignClient(client), e.cfg.Audio.Bucket, e.cfg.Audio.URLTTL, cache, e.log)
	}
	return learning.New(deps), nil
}
