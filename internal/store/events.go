package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// EventLog appends and queries the model-call and dialogue-turn tables.
// Events are immutable once written.
type EventLog struct {
	db  *sql.DB
	b   *entsql.DialectBuilder
	seq *sequenceCounter
}

var _ EventRepo = (*EventLog)(nil)

// AppendLLMRequest records one model call.
func (l *EventLog) AppendLLMRequest(ctx context.Context, d LLMRequestEventData) error {
	seq, err := l.seq.Next(ctx)
	if err != nil {
		return err
	}
	query, args := l.b.Insert(tableLLMEvents).
		Columns("sequence", "timestamp", "provider", "model", "purpose", "sub_scene_id",
			"input_tokens", "output_tokens", "latency_ms", "success", "error_message",
			"request_body", "response_body").
		Values(seq, time.Now().UTC(), d.Provider, d.Model, d.Purpose, d.SubSceneID,
			d.InputTokens, d.OutputTokens, d.LatencyMs, d.Success, d.ErrorMessage,
			d.RequestBody, d.ResponseBody).
		Query()
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append llm request: %w", err)
	}
	return nil
}

// AppendTurn records one dialogue turn.
func (l *EventLog) AppendTurn(ctx context.Context, d TurnEventData) error {
	seq, err := l.seq.Next(ctx)
	if err != nil {
		return err
	}
	query, args := l.b.Insert(tableDialogueTurns).
		Columns("sequence", "timestamp", "run_id", "sub_scene_id", "qa_id", "qa_index",
			"attempt", "passed", "skipped", "user_message", "reason", "hint").
		Values(seq, time.Now().UTC(), d.RunID, d.SubSceneID, d.QAID, d.QAIndex,
			d.Attempt, d.Passed, d.Skipped, d.UserMessage, d.Reason, d.Hint).
		Query()
	if _, err := l.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

var llmColumns = []string{
	"id", "sequence", "timestamp", "provider", "model", "purpose", "sub_scene_id",
	"input_tokens", "output_tokens", "latency_ms", "success", "error_message",
	"request_body", "response_body",
}

func scanLLMEvent(rows interface{ Scan(...any) error }) (LLMEvent, error) {
	var e LLMEvent
	err := rows.Scan(&e.ID, &e.Sequence, &e.Timestamp, &e.Provider, &e.Model, &e.Purpose,
		&e.SubSceneID, &e.InputTokens, &e.OutputTokens, &e.LatencyMs, &e.Success,
		&e.ErrorMessage, &e.RequestBody, &e.ResponseBody)
	return e, err
}

// applyOpts narrows a selector by the common query options.
func applyOpts(sel *entsql.Selector, opts QueryOpts) {
	if opts.After > 0 {
		sel.Where(entsql.GT("sequence", opts.After))
	}
	if opts.Before > 0 {
		sel.Where(entsql.LT("sequence", opts.Before))
	}
	if !opts.From.IsZero() {
		sel.Where(entsql.GTE("timestamp", opts.From.UTC()))
	}
	if !opts.To.IsZero() {
		sel.Where(entsql.LTE("timestamp", opts.To.UTC()))
	}
	if opts.SubSceneID != "" {
		sel.Where(entsql.EQ("sub_scene_id", opts.SubSceneID))
	}
}

// LLMEvents lists model calls newest first.
func (l *EventLog) LLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error) {
	t := l.b.Table(tableLLMEvents)
	sel := l.b.Select(llmColumns...).From(t).OrderBy(entsql.Desc("sequence"))
	applyOpts(sel, opts)
	if opts.Purpose != "" {
		sel.Where(entsql.EQ("purpose", opts.Purpose))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query llm events: %w", err)
	}
	defer rows.Close()

	var out []LLMEvent
	for rows.Next() {
		e, err := scanLLMEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan llm event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// LLMEvent returns one model call by id, or nil if absent.
func (l *EventLog) LLMEvent(ctx context.Context, id int) (*LLMEvent, error) {
	query, args := l.b.Select(llmColumns...).
		From(l.b.Table(tableLLMEvents)).
		Where(entsql.EQ("id", id)).
		Query()
	e, err := scanLLMEvent(l.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get llm event %d: %w", id, err)
	}
	return &e, nil
}

// LLMUsage aggregates model calls grouped by the given column, which must be
// "purpose", "model" or "provider".
func (l *EventLog) LLMUsage(ctx context.Context, groupBy string, opts QueryOpts) ([]LLMUsage, error) {
	switch groupBy {
	case "purpose", "model", "provider":
	default:
		return nil, fmt.Errorf("cannot group llm usage by %q", groupBy)
	}

	sel := l.b.Select(
		groupBy,
		"COUNT(*)",
		"SUM(CASE WHEN success THEN 0 ELSE 1 END)",
		"SUM(input_tokens)",
		"SUM(output_tokens)",
		"AVG(latency_ms)",
	).From(l.b.Table(tableLLMEvents)).GroupBy(groupBy).OrderBy(groupBy)
	applyOpts(sel, opts)

	query, args := sel.Query()
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query llm usage: %w", err)
	}
	defer rows.Close()

	var out []LLMUsage
	for rows.Next() {
		var u LLMUsage
		var in, outTok, failures int64
		if err := rows.Scan(&u.Key, &u.Calls, &failures, &in, &outTok, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan llm usage: %w", err)
		}
		u.Failures, u.InputTokens, u.OutputTokens = int(failures), int(in), int(outTok)
		out = append(out, u)
	}
	return out, rows.Err()
}

// Turns returns the turns of one dialogue run in order.
func (l *EventLog) Turns(ctx context.Context, runID string) ([]TurnEvent, error) {
	query, args := l.b.Select("id", "sequence", "timestamp", "run_id", "sub_scene_id", "qa_id",
		"qa_index", "attempt", "passed", "skipped", "user_message", "reason", "hint").
		From(l.b.Table(tableDialogueTurns)).
		Where(entsql.EQ("run_id", runID)).
		OrderBy(entsql.Asc("sequence")).
		Query()
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var out []TurnEvent
	for rows.Next() {
		var e TurnEvent
		if err := rows.Scan(&e.ID, &e.Sequence, &e.Timestamp, &e.RunID, &e.SubSceneID, &e.QAID,
			&e.QAIndex, &e.Attempt, &e.Passed, &e.Skipped, &e.UserMessage, &e.Reason, &e.Hint); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
