package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/yuxiji/scenetalk/internal/store"
)

type recordingEvents struct {
	events []store.LLMRequestEventData
	err    error
}

func (r *recordingEvents) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.events = append(r.events, data)
	return r.err
}

func TestLogging_RecordsSuccess(t *testing.T) {
	events := &recordingEvents{}
	mock := NewMockProvider(MockResponse{
		Content: []byte(`{"pass":true}`),
		Usage:   Usage{InputTokens: 30, OutputTokens: 4},
	})
	p := WithLogging(mock, ProviderMock, events, nil)

	ctx := WithSubScene(WithPurpose(context.Background(), PurposeDialogueJudge), "cafe-order")
	_, err := p.Generate(ctx, Request{
		System:   "judge",
		Messages: UserMessage("A large latte, please."),
		Schema:   &Schema{Name: "dialogue-verdict", Definition: map[string]any{"type": "object"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events.events))
	}
	ev := events.events[0]
	if ev.Purpose != PurposeDialogueJudge || ev.SubSceneID != "cafe-order" {
		t.Errorf("event tags = %q/%q", ev.Purpose, ev.SubSceneID)
	}
	if !ev.Success || ev.InputTokens != 30 || ev.OutputTokens != 4 {
		t.Errorf("event = %+v", ev)
	}
	if !strings.Contains(ev.RequestBody, "[schema: dialogue-verdict]") {
		t.Errorf("request body missing schema: %q", ev.RequestBody)
	}
	if ev.ResponseBody != `{"pass":true}` {
		t.Errorf("response body = %q", ev.ResponseBody)
	}
}

func TestLogging_RecordsFailureAndSurvivesRepoError(t *testing.T) {
	events := &recordingEvents{err: errors.New("disk full")}
	logger, hook := logtest.NewNullLogger()
	p := WithLogging(NewMockProvider(), ProviderMock, events, logger)

	_, err := p.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected provider error to pass through, got: %v", err)
	}
	if events.events[0].Success || events.events[0].ErrorMessage == "" {
		t.Errorf("event = %+v", events.events[0])
	}
	if hook.LastEntry() == nil || hook.LastEntry().Level != logrus.WarnLevel {
		t.Fatal("expected a warning for the failed event write")
	}
}
