// Package judge asks a language model whether a learner's reply fits a
// dialogue turn, and for critiques of replies that did not.
package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yuxiji/scenetalk/internal/llm"
	"github.com/yuxiji/scenetalk/internal/scene"
)

// Role tags who spoke a history line.
type Role string

const (
	RoleAI   Role = "ai"
	RoleUser Role = "user"
)

// Line is one turn of conversation history.
type Line struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Context is what the judge sees besides the utterance itself.
type Context struct {
	SubSceneID   string
	SubSceneName string
	History      []Line
	Pair         scene.QAPair
}

// CritiqueContext is what the critic sees besides the utterance itself.
type CritiqueContext struct {
	SubSceneID   string
	SubSceneName string
	Pair         scene.QAPair
}

// Outcome is the result of one judgment: a *ParsedVerdict or a
// *ParseFailure.
type Outcome interface {
	isOutcome()
}

// ParsedVerdict is a well-formed verdict.
type ParsedVerdict struct {
	Pass   bool
	Reason string
	Hint   string
}

// ParseFailure means no usable verdict came back. Raw holds whatever the
// model returned, if anything.
type ParseFailure struct {
	Raw string
	Err error
}

func (*ParsedVerdict) isOutcome() {}
func (*ParseFailure) isOutcome()  {}

// Passed reports whether o is a passing verdict. A failure never passes.
func Passed(o Outcome) bool {
	v, ok := o.(*ParsedVerdict)
	return ok && v.Pass
}

// Critique is rhetorical feedback on one reply.
type Critique struct {
	Issue            string `json:"issue"`
	BetterExpression string `json:"betterExpression"`
}

// ErrIncompleteCritique is returned when a critique lacks a field.
var ErrIncompleteCritique = errors.New("critique is missing issue or betterExpression")

// Config controls generation parameters.
type Config struct {
	HistoryWindow       int
	JudgeMaxTokens      int
	JudgeTemperature    float64
	CritiqueMaxTokens   int
	CritiqueTemperature float64
}

// DefaultConfig returns the judge defaults.
func DefaultConfig() Config {
	return Config{
		HistoryWindow:       5,
		JudgeMaxTokens:      300,
		JudgeTemperature:    0.3,
		CritiqueMaxTokens:   200,
		CritiqueTemperature: 0.5,
	}
}

// Judge evaluates learner replies with a language model.
type Judge struct {
	provider llm.Provider
	cfg      Config
}

func New(provider llm.Provider, cfg Config) *Judge {
	return &Judge{provider: provider, cfg: cfg}
}

type verdictOutput struct {
	Pass   *bool  `json:"pass"`
	Reason string `json:"reason"`
	Hint   string `json:"hint"`
}

// Judge decides whether utterance fits the turn described by c. It never
// returns nil: provider errors and malformed output become a *ParseFailure.
func (j *Judge) Judge(ctx context.Context, c Context, utterance string) Outcome {
	ctx = llm.WithSubScene(llm.WithPurpose(ctx, llm.PurposeDialogueJudge), c.SubSceneID)

	msg, err := buildJudgeMessage(c, utterance, j.cfg.HistoryWindow)
	if err != nil {
		return &ParseFailure{Err: fmt.Errorf("build judge prompt: %w", err)}
	}

	resp, err := j.provider.Generate(ctx, llm.Request{
		System:      judgeSystemPrompt,
		Messages:    llm.UserMessage(msg),
		Schema:      VerdictSchema,
		MaxTokens:   j.cfg.JudgeMaxTokens,
		Temperature: j.cfg.JudgeTemperature,
	})
	if err != nil {
		return &ParseFailure{Err: fmt.Errorf("judge call failed: %w", err)}
	}
	return ParseVerdict(resp.Content)
}

// ParseVerdict validates raw model output. The first JSON object in raw
// must carry a boolean "pass"; reason and hint are optional strings.
func ParseVerdict(raw []byte) Outcome {
	obj, ok := llm.ExtractJSON(string(raw))
	if !ok {
		return &ParseFailure{Raw: string(raw), Err: errors.New("no JSON object in verdict")}
	}
	var out verdictOutput
	if err := json.Unmarshal(obj, &out); err != nil {
		return &ParseFailure{Raw: string(raw), Err: fmt.Errorf("decode verdict: %w", err)}
	}
	if out.Pass == nil {
		return &ParseFailure{Raw: string(raw), Err: errors.New("verdict has no pass field")}
	}
	return &ParsedVerdict{
		Pass:   *out.Pass,
		Reason: strings.TrimSpace(out.Reason),
		Hint:   strings.TrimSpace(out.Hint),
	}
}

// Critique asks for the issue with utterance and a better expression.
func (j *Judge) Critique(ctx context.Context, c CritiqueContext, utterance string) (Critique, error) {
	ctx = llm.WithSubScene(llm.WithPurpose(ctx, llm.PurposeReviewCritique), c.SubSceneID)

	msg, err := buildCritiqueMessage(c, utterance)
	if err != nil {
		return Critique{}, fmt.Errorf("build critique prompt: %w", err)
	}

	resp, err := j.provider.Generate(ctx, llm.Request{
		System:      critiqueSystemPrompt,
		Messages:    llm.UserMessage(msg),
		Schema:      CritiqueSchema,
		MaxTokens:   j.cfg.CritiqueMaxTokens,
		Temperature: j.cfg.CritiqueTemperature,
	})
	if err != nil {
		return Critique{}, fmt.Errorf("critique call failed: %w", err)
	}

	obj, ok := llm.ExtractJSON(string(resp.Content))
	if !ok {
		return Critique{}, fmt.Errorf("no JSON object in critique: %q", resp.Content)
	}
	var out Critique
	if err := json.Unmarshal(obj, &out); err != nil {
		return Critique{}, fmt.Errorf("decode critique: %w", err)
	}
	out.Issue = strings.TrimSpace(out.Issue)
	out.BetterExpression = strings.TrimSpace(out.BetterExpression)
	if out.Issue == "" || out.BetterExpression == "" {
		return Critique{}, ErrIncompleteCritique
	}
	return out, nil
}
