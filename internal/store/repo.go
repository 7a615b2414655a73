package store

import (
	"context"
	"time"
)

// QueryOpts filters and pages event queries.
type QueryOpts struct {
	Limit      int       // max results (0 = unlimited)
	After      int64     // sequence > After
	Before     int64     // sequence < Before
	From       time.Time // timestamp >= From
	To         time.Time // timestamp <= To
	Purpose    string
	SubSceneID string
}

// LLMRequestEventData is one model call.
type LLMRequestEventData struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	Purpose      string `json:"purpose"`
	SubSceneID   string `json:"subSceneId,omitempty"`
	InputTokens  int    `json:"inputTokens"`
	OutputTokens int    `json:"outputTokens"`
	LatencyMs    int64  `json:"latencyMs"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error,omitempty"`
	RequestBody  string `json:"request,omitempty"`
	ResponseBody string `json:"response,omitempty"`
}

// LLMEvent is a stored LLMRequestEventData.
type LLMEvent struct {
	ID        int       `json:"id"`
	Sequence  int64     `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	LLMRequestEventData
}

// LLMUsage aggregates calls for one group key.
type LLMUsage struct {
	Key          string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs float64
}

// TurnEventData is one learner turn in a dialogue run.
type TurnEventData struct {
	RunID       string
	SubSceneID  string
	QAID        string
	QAIndex     int
	Attempt     int
	Passed      bool
	Skipped     bool
	UserMessage string
	Reason      string
	Hint        string
}

// TurnEvent is a stored TurnEventData.
type TurnEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	TurnEventData
}

// EventRepo records model calls.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
}
