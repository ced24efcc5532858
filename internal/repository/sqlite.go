package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at dsn and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			team_id TEXT NOT NULL,
			task TEXT NOT NULL,
			status TEXT NOT NULL,
			stop_reason TEXT,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_run_seq ON messages(run_id, seq)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, ts)`,
		`CREATE TABLE IF NOT EXISTS tool_calls (
			tool_call_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			participant TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			status TEXT NOT NULL,
			args TEXT,
			result TEXT,
			error TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at DATETIME,
			FOREIGN KEY (run_id) REFERENCES runs(run_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_calls_run ON tool_calls(run_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, team_id, task, status, stop_reason, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.TeamID, run.Task, run.Status, run.StopReason, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, team_id, task, status, stop_reason, started_at, ended_at, error FROM runs WHERE run_id = ?`,
		runID,
	)

	var run domain.Run
	var stopReason sql.NullString
	var endedAt sql.NullTime
	var errData sql.NullString
	err := row.Scan(&run.RunID, &run.TeamID, &run.Task, &run.Status, &stopReason, &run.StartedAt, &endedAt, &errData)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	run.StopReason = stopReason.String
	if endedAt.Valid {
		run.EndedAt = &endedAt.Time
	}
	if errData.Valid && errData.String != "" {
		run.Error = json.RawMessage(errData.String)
	}
	return &run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, team_id, task, status, stop_reason, started_at, ended_at, error FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var run domain.Run
		var stopReason sql.NullString
		var endedAt sql.NullTime
		var errData sql.NullString
		if err := rows.Scan(&run.RunID, &run.TeamID, &run.Task, &run.Status, &stopReason, &run.StartedAt, &endedAt, &errData); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StopReason = stopReason.String
		if endedAt.Valid {
			run.EndedAt = &endedAt.Time
		}
		if errData.Valid && errData.String != "" {
			run.Error = json.RawMessage(errData.String)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET status = ? WHERE run_id = ?`, status, runID)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, stopReason string, errData json.RawMessage) error {
	var errStr interface{}
	if len(errData) > 0 {
		errStr = string(errData)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, stop_reason = ?, ended_at = ?, error = ? WHERE run_id = ?`,
		status, stopReason, time.Now(), errStr, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *domain.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, run_id, seq, source, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.MessageID, msg.RunID, msg.Seq, msg.Source, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetRunMessages(ctx context.Context, runID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, run_id, seq, source, content, created_at FROM messages WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.MessageID, &m.RunID, &m.Seq, &m.Source, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	var payload interface{}
	if len(event.Payload) > 0 {
		payload = string(event.Payload)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, run_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.RunID, event.Ts, event.Type, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetEvents(ctx context.Context, runID string, afterTs int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, run_id, ts, type, payload FROM events WHERE run_id = ? AND ts > ? ORDER BY ts LIMIT ?`,
		runID, afterTs, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var payload sql.NullString
		if err := rows.Scan(&e.EventID, &e.RunID, &e.Ts, &e.Type, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if payload.Valid && payload.String != "" {
			e.Payload = json.RawMessage(payload.String)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLiteStore) CreateToolCall(ctx context.Context, tc *domain.ToolCall) error {
	var args, result interface{}
	if len(tc.Args) > 0 {
		args = string(tc.Args)
	}
	if len(tc.Result) > 0 {
		result = string(tc.Result)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_calls (tool_call_id, run_id, participant, tool_name, status, args, result, error, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tc.ToolCallID, tc.RunID, tc.Participant, tc.ToolName, tc.Status, args, result, tc.Error, tc.CreatedAt, tc.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create tool call: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetRunToolCalls(ctx context.Context, runID string) ([]domain.ToolCall, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tool_call_id, run_id, participant, tool_name, status, args, result, error, created_at, completed_at
		 FROM tool_calls WHERE run_id = ? ORDER BY created_at`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get tool calls: %w", err)
	}
	defer rows.Close()

	var calls []domain.ToolCall
	for rows.Next() {
		var tc domain.ToolCall
		var args, result, errMsg sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&tc.ToolCallID, &tc.RunID, &tc.Participant, &tc.ToolName, &tc.Status, &args, &result, &errMsg, &tc.CreatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tool call: %w", err)
		}
		if args.Valid && args.String != "" {
			tc.Args = json.RawMessage(args.String)
		}
		if result.Valid && result.String != "" {
			tc.Result = json.RawMessage(result.String)
		}
		tc.Error = errMsg.String
		if completedAt.Valid {
			tc.CompletedAt = &completedAt.Time
		}
		calls = append(calls, tc)
	}
	return calls, rows.Err()
}
