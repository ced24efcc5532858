// Package service runs teams against the model backend and persists
// transcripts, tool calls and trace events.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/adapter/model"
	"github.com/domjanbaric/agnetic-finance-workshop/internal/config"
	"github.com/domjanbaric/agnetic-finance-workshop/internal/domain"
	store "github.com/domjanbaric/agnetic-finance-workshop/internal/repository"
	"github.com/domjanbaric/agnetic-finance-workshop/internal/team"
	"github.com/domjanbaric/agnetic-finance-workshop/internal/tools"
	"github.com/domjanbaric/agnetic-finance-workshop/policy"
	"github.com/samber/lo"
)

// Service owns the team catalog and drives runs end to end.
type Service struct {
	store        store.Store
	client       model.Client
	registry     *tools.Registry
	policyEngine *policy.Engine
	teams        []TeamDef
	config       *config.Config
	log          *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// New wires the service. The policy engine may be nil, in which case every
// tool call is allowed.
func New(st store.Store, client model.Client, registry *tools.Registry, policyEngine *policy.Engine, teams []TeamDef, cfg *config.Config, log *slog.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if client == nil {
		return nil, fmt.Errorf("model client is required")
	}
	if registry == nil {
		registry = tools.NewRegistry()
	}
	if len(teams) == 0 {
		return nil, fmt.Errorf("at least one team definition is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:        st,
		client:       client,
		registry:     registry,
		policyEngine: policyEngine,
		teams:        teams,
		config:       cfg,
		log:          log,
		cancels:      make(map[string]context.CancelFunc),
	}, nil
}

// ListTeams returns the catalog in definition order.
func (s *Service) ListTeams() []TeamDef {
	out := make([]TeamDef, len(s.teams))
	copy(out, s.teams)
	return out
}

// GetTeam looks up one team definition.
func (s *Service) GetTeam(teamID string) (*TeamDef, bool) {
	def, ok := lo.Find(s.teams, func(t TeamDef) bool { return t.TeamID == teamID })
	if !ok {
		return nil, false
	}
	return &def, true
}

func (s *Service) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func (s *Service) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	return s.store.ListRuns(ctx, limit)
}

func (s *Service) GetRunMessages(ctx context.Context, runID string) ([]domain.Message, error) {
	return s.store.GetRunMessages(ctx, runID)
}

func (s *Service) GetRunEvents(ctx context.Context, runID string, afterTs int64, limit int) ([]domain.Event, error) {
	return s.store.GetEvents(ctx, runID, afterTs, limit)
}

func (s *Service) GetRunToolCalls(ctx context.Context, runID string) ([]domain.ToolCall, error) {
	return s.store.GetRunToolCalls(ctx, runID)
}

func (s *Service) trackRun(runID string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.cancels[runID] = cancel
	s.mu.Unlock()
}

func (s *Service) untrackRun(runID string) {
	s.mu.Lock()
	delete(s.cancels, runID)
	s.mu.Unlock()
}

// CancelRun signals a live run to stop. The run goroutine observes the
// cancellation between turns and records the terminal state itself. For a
// run that is no longer live the call is a no-op on terminal states.
func (s *Service) CancelRun(ctx context.Context, runID string) error {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return ErrRunNotFound
	}
	if isTerminalRunStatus(run.Status) {
		return nil
	}

	s.mu.Lock()
	cancel, live := s.cancels[runID]
	s.mu.Unlock()
	if live {
		cancel()
		return nil
	}

	// Not live (e.g. restart left it RUNNING); close it out directly.
	if err := s.store.UpdateRunCompleted(ctx, runID, domain.RunStatusCancelled, team.StoppedCancelled, nil); err != nil {
		return fmt.Errorf("failed to cancel run: %w", err)
	}
	s.recordEvent(ctx, runID, domain.EventTypeRunCancelled, map[string]string{"reason": "cancelled by user"})
	return nil
}

func isTerminalRunStatus(status domain.RunStatus) bool {
	switch status {
	case domain.RunStatusDone, domain.RunStatusFailed, domain.RunStatusCancelled, domain.RunStatusExhausted:
		return true
	}
	return false
}
