package judge

import "github.com/yuxiji/scenetalk/internal/llm"

// VerdictSchema is the structured output of a dialogue judgment.
var VerdictSchema = &llm.Schema{
	Name:        "dialogue-verdict",
	Description: "Whether a learner's reply fits the current dialogue turn",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pass": map[string]any{
				"type":        "boolean",
				"description": "True when the reply means the same as any reference response",
			},
			"reason": map[string]any{
				"type":        "string",
				"description": "Short reason for the decision, in Simplified Chinese, at most 20 characters",
			},
			"hint": map[string]any{
				"type":        "string",
				"description": "When pass is false, a concrete hint on what to say, in Simplified Chinese, at most 30 characters",
			},
		},
		"required":             []any{"pass"},
		"additionalProperties": false,
	},
}

// CritiqueSchema is the structured output of a review critique.
var CritiqueSchema = &llm.Schema{
	Name:        "review-critique",
	Description: "What was wrong with a learner's reply and a more natural way to say it",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"issue": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "The problem with the reply, in Simplified Chinese, at most 20 characters",
			},
			"betterExpression": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "A more natural English expression for this turn",
			},
		},
		"required":             []any{"issue", "betterExpression"},
		"additionalProperties": false,
	},
}
