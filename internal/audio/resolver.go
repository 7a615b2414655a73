package audio

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/yuxiji/scenetalk/internal/logging"
	"github.com/yuxiji/scenetalk/internal/scene"
)

// Presigner signs object downloads. *s3.PresignClient implements it.
type Presigner interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Resolver turns stored audio keys into playable URLs.
type Resolver struct {
	presign Presigner
	bucket  string
	ttl     time.Duration
	cache   *URLCache
	log     logrus.FieldLogger
}

// NewResolver creates a resolver signing URLs valid for ttl. cache may be
// shared between resolvers.
func NewResolver(p Presigner, bucket string, ttl time.Duration, cache *URLCache, log logrus.FieldLogger) *Resolver {
	log = logging.OrDiscard(log)
	return &Resolver{presign: p, bucket: bucket, ttl: ttl, cache: cache, log: log}
}

// URL returns the playable URL of a pair's prompt. A fixed AudioURL is
// returned as is; a pair with neither URL nor key has no audio.
func (r *Resolver) URL(ctx context.Context, p scene.QAPair) (string, error) {
	if p.AudioURL != "" {
		return p.AudioURL, nil
	}
	if p.AudioKey == "" {
		return "", nil
	}
	if u, ok := r.cache.Get(p.AudioKey); ok {
		return u, nil
	}

	req, err := r.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(p.AudioKey),
	}, s3.WithPresignExpires(r.ttl))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", p.AudioKey, err)
	}
	r.cache.Put(p.AudioKey, req.URL)
	return req.URL, nil
}

// Fill sets AudioURL on every pair that can be resolved. Failures are
// logged and leave the pair without audio.
func (r *Resolver) Fill(ctx context.Context, pairs []scene.QAPair) {
	for i := range pairs {
		u, err := r.URL(ctx, pairs[i])
		if err != nil {
			r.log.WithField("qa_id", pairs[i].ID).WithError(err).Warn("audio url unavailable")
			continue
		}
		pairs[i].AudioURL = u
	}
}
