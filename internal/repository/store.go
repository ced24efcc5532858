// Package store persists runs, transcripts and trace events.
package store

import (
	"context"
	"encoding/json"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/domain"
)

// Store is the persistence interface used by the service.
type Store interface {
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus) error
	UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, stopReason string, errData json.RawMessage) error

	CreateMessage(ctx context.Context, msg *domain.Message) error
	GetRunMessages(ctx context.Context, runID string) ([]domain.Message, error)

	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, runID string, afterTs int64, limit int) ([]domain.Event, error)

	CreateToolCall(ctx context.Context, tc *domain.ToolCall) error
	GetRunToolCalls(ctx context.Context, runID string) ([]domain.ToolCall, error)

	Close() error
}
