package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createTestRun(t *testing.T, store *SQLiteStore, runID string) {
	t.Helper()
	run := &domain.Run{
		RunID:     runID,
		TeamID:    "review-loop",
		Task:      "review AAPL",
		Status:    domain.RunStatusCreated,
		StartedAt: time.Now(),
	}
	if err := store.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
}

func TestSQLiteStoreRunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	createTestRun(t, store, "r1")

	got, err := store.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil || got.TeamID != "review-loop" || got.Status != domain.RunStatusCreated {
		t.Fatalf("unexpected run: %+v", got)
	}
	if got.EndedAt != nil || got.StopReason != "" {
		t.Fatalf("fresh run should not be completed: %+v", got)
	}

	if err := store.UpdateRunStatus(ctx, "r1", domain.RunStatusRunning); err != nil {
		t.Fatalf("UpdateRunStatus failed: %v", err)
	}
	got, _ = store.GetRun(ctx, "r1")
	if got.Status != domain.RunStatusRunning {
		t.Fatalf("expected RUNNING, got %s", got.Status)
	}

	if err := store.UpdateRunCompleted(ctx, "r1", domain.RunStatusDone, "content-match", nil); err != nil {
		t.Fatalf("UpdateRunCompleted failed: %v", err)
	}
	got, _ = store.GetRun(ctx, "r1")
	if got.Status != domain.RunStatusDone || got.StopReason != "content-match" {
		t.Fatalf("unexpected completed run: %+v", got)
	}
	if got.EndedAt == nil {
		t.Fatalf("ended_at not set")
	}
}

func TestSQLiteStoreRunErrorPayload(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	createTestRun(t, store, "r1")
	errData := json.RawMessage(`{"participant":"executor","message":"completion failed"}`)
	if err := store.UpdateRunCompleted(ctx, "r1", domain.RunStatusFailed, "", errData); err != nil {
		t.Fatalf("UpdateRunCompleted failed: %v", err)
	}

	got, err := store.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	var payload map[string]string
	if err := json.Unmarshal(got.Error, &payload); err != nil {
		t.Fatalf("failed to parse error payload: %v", err)
	}
	if payload["participant"] != "executor" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestSQLiteStoreGetRunMissing(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetRun(context.Background(), "absent")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing run, got %+v", got)
	}
}

func TestSQLiteStoreListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for i, id := range []string{"r1", "r2", "r3"} {
		run := &domain.Run{
			RunID:     id,
			TeamID:    "solo-analyst",
			Task:      "task",
			Status:    domain.RunStatusDone,
			StartedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		if err := store.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "r3" || runs[1].RunID != "r2" {
		t.Fatalf("unexpected order: %+v", runs)
	}
}

func TestSQLiteStoreMessagesOrderedBySeq(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createTestRun(t, store, "r1")

	// Insert out of order; reads must come back by seq.
	for _, seq := range []int{2, 0, 1} {
		msg := &domain.Message{
			MessageID: "m" + string(rune('0'+seq)),
			RunID:     "r1",
			Seq:       seq,
			Source:    "executor",
			Content:   "draft",
			CreatedAt: time.Now(),
		}
		if err := store.CreateMessage(ctx, msg); err != nil {
			t.Fatalf("CreateMessage failed: %v", err)
		}
	}

	messages, err := store.GetRunMessages(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRunMessages failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, m := range messages {
		if m.Seq != i {
			t.Fatalf("message %d has seq %d", i, m.Seq)
		}
	}
}

func TestSQLiteStoreDuplicateSeqRejected(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createTestRun(t, store, "r1")

	msg := &domain.Message{MessageID: "m1", RunID: "r1", Seq: 0, Source: "user", Content: "x", CreatedAt: time.Now()}
	if err := store.CreateMessage(ctx, msg); err != nil {
		t.Fatalf("CreateMessage failed: %v", err)
	}
	dup := &domain.Message{MessageID: "m2", RunID: "r1", Seq: 0, Source: "user", Content: "y", CreatedAt: time.Now()}
	if err := store.CreateMessage(ctx, dup); err == nil {
		t.Fatalf("expected unique index violation for duplicate seq")
	}
}

func TestSQLiteStoreEvents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createTestRun(t, store, "r1")

	base := time.Now().UnixMilli()
	for i := 0; i < 3; i++ {
		event := &domain.Event{
			EventID: "e" + string(rune('0'+i)),
			RunID:   "r1",
			Ts:      base + int64(i),
			Type:    domain.EventTypeMessageAppended,
			Payload: json.RawMessage(`{"seq":` + string(rune('0'+i)) + `}`),
		}
		if err := store.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
	}

	events, err := store.GetEvents(ctx, "r1", 0, 10)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	// after_ts filters strictly
	events, err = store.GetEvents(ctx, "r1", base, 10)
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events after ts, got %d", len(events))
	}
}

func TestSQLiteStoreToolCalls(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	createTestRun(t, store, "r1")

	completed := time.Now()
	tc := &domain.ToolCall{
		ToolCallID:  "tc1",
		RunID:       "r1",
		Participant: "executor",
		ToolName:    "finance.metrics",
		Status:      domain.ToolCallStatusSucceeded,
		Args:        json.RawMessage(`{"symbol":"AAPL","scope":"latest"}`),
		Result:      json.RawMessage(`{"pe_ratio":33.5}`),
		CreatedAt:   time.Now(),
		CompletedAt: &completed,
	}
	if err := store.CreateToolCall(ctx, tc); err != nil {
		t.Fatalf("CreateToolCall failed: %v", err)
	}

	blocked := &domain.ToolCall{
		ToolCallID:  "tc2",
		RunID:       "r1",
		Participant: "executor",
		ToolName:    "trade.execute",
		Status:      domain.ToolCallStatusBlocked,
		Error:       "tool trade.execute blocked by policy",
		CreatedAt:   time.Now().Add(time.Millisecond),
	}
	if err := store.CreateToolCall(ctx, blocked); err != nil {
		t.Fatalf("CreateToolCall failed: %v", err)
	}

	calls, err := store.GetRunToolCalls(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRunToolCalls failed: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(calls))
	}
	if calls[0].ToolName != "finance.metrics" || calls[0].Status != domain.ToolCallStatusSucceeded {
		t.Fatalf("unexpected first call: %+v", calls[0])
	}
	if calls[1].Status != domain.ToolCallStatusBlocked || calls[1].Error == "" {
		t.Fatalf("unexpected blocked call: %+v", calls[1])
	}
}
