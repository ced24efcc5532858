// Package domain defines the core domain models for the workshop service.
package domain

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusCreated   RunStatus = "CREATED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusDone      RunStatus = "DONE"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
	RunStatusExhausted RunStatus = "EXHAUSTED"
)

// EventType represents the type of a trace event.
type EventType string

const (
	EventTypeRunStarted       EventType = "run_started"
	EventTypeUserInput        EventType = "user_input"
	EventTypeMessageAppended  EventType = "message_appended"
	EventTypeToolCallRecorded EventType = "tool_call"
	EventTypePlanParsed       EventType = "plan_parsed"
	EventTypePlanRetry        EventType = "plan_retry"
	EventTypeRunDone          EventType = "run_done"
	EventTypeRunFailed        EventType = "run_failed"
	EventTypeRunCancelled     EventType = "run_cancelled"
	EventTypeRunExhausted     EventType = "run_exhausted"
)

// ToolCallStatus represents the outcome of a single tool invocation.
type ToolCallStatus string

const (
	ToolCallStatusSucceeded ToolCallStatus = "SUCCEEDED"
	ToolCallStatusFailed    ToolCallStatus = "FAILED"
	ToolCallStatusBlocked   ToolCallStatus = "BLOCKED"
)
