package llm

import "context"

// Purposes label requests in the event log.
const (
	PurposeDialogueJudge  = "dialogue-judge"
	PurposeReviewCritique = "review-critique"
)

type contextKey string

const (
	purposeKey  contextKey = "llm_purpose"
	subSceneKey contextKey = "llm_sub_scene"
)

// WithPurpose tags the context with what the request is for.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom returns the purpose tag, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// WithSubScene tags the context with the sub-scene a request belongs to.
func WithSubScene(ctx context.Context, subSceneID string) context.Context {
	return context.WithValue(ctx, subSceneKey, subSceneID)
}

// SubSceneFrom returns the sub-scene tag, or "".
func SubSceneFrom(ctx context.Context) string {
	v, _ := ctx.Value(subSceneKey).(string)
	return v
}
