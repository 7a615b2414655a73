// Package review turns the not-passed turns of a dialogue run into
// rhetorical feedback.
package review

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yuxiji/scenetalk/internal/judge"
	"github.com/yuxiji/scenetalk/internal/logging"
	"github.com/yuxiji/scenetalk/internal/scene"
)

// Entry is one turn of the finished dialogue as the client saw it.
type Entry struct {
	QAID     string `json:"qaId"`
	UserText string `json:"userText"`
	Passed   bool   `json:"passed"`
}

// Highlight is feedback on one not-passed turn.
type Highlight struct {
	QAID             string `json:"qaId"`
	UserText         string `json:"userText"`
	Issue            string `json:"issue"`
	BetterExpression string `json:"betterExpression"`
}

// Critic critiques one reply.
type Critic interface {
	Critique(ctx context.Context, c judge.CritiqueContext, utterance string) (judge.Critique, error)
}

// Generator builds highlights.
type Generator struct {
	source scene.Source
	critic Critic
	limit  int
	log    logrus.FieldLogger
}

// NewGenerator creates a generator. limit caps concurrent critiques; zero
// means no cap. A nil logger discards output.
func NewGenerator(source scene.Source, critic Critic, limit int, log logrus.FieldLogger) *Generator {
	log = logging.OrDiscard(log)
	return &Generator{source: source, critic: critic, limit: limit, log: log}
}

// Highlights critiques every not-passed entry concurrently. It never fails:
// a failed critique is dropped and a failed lookup yields no highlights.
// The result keeps the order of history and is never nil.
func (g *Generator) Highlights(ctx context.Context, subSceneID string, history []Entry) []Highlight {
	var failed []Entry
	for _, e := range history {
		if !e.Passed {
			failed = append(failed, e)
		}
	}
	if len(failed) == 0 {
		return []Highlight{}
	}

	log := g.log.WithField("sub_scene_id", subSceneID)

	sub, err := g.source.SubScene(ctx, subSceneID)
	if err != nil || sub == nil {
		log.WithError(err).Warn("review setup failed, returning no highlights")
		return []Highlight{}
	}
	pairs, err := g.source.QAPairs(ctx, subSceneID)
	if err != nil {
		log.WithError(err).Warn("review setup failed, returning no highlights")
		return []Highlight{}
	}
	byID := scene.Index(pairs)

	// Each goroutine writes only its own slot.
	slots := make([]*Highlight, len(failed))
	var eg errgroup.Group
	if g.limit > 0 {
		eg.SetLimit(g.limit)
	}
	for i, e := range failed {
		pair, ok := byID[e.QAID]
		if !ok {
			log.WithField("qa_id", e.QAID).Warn("unknown qa pair in review history, skipping")
			continue
		}
		eg.Go(func() error {
			c, err := g.critic.Critique(ctx, judge.CritiqueContext{
				SubSceneID:   sub.ID,
				SubSceneName: sub.Name,
				Pair:         pair,
			}, e.UserText)
			if err != nil {
				log.WithField("qa_id", e.QAID).WithError(err).Warn("critique failed, dropping highlight")
				return nil
			}
			slots[i] = &Highlight{
				QAID:             e.QAID,
				UserText:         e.UserText,
				Issue:            c.Issue,
				BetterExpression: c.BetterExpression,
			}
			return nil
		})
	}
	_ = eg.Wait()

	out := make([]Highlight, 0, len(slots))
	for _, h := range slots {
		if h != nil {
			out = append(out, *h)
		}
	}
	return out
}
