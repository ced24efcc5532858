package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/agent"
	"github.com/domjanbaric/agnetic-finance-workshop/internal/domain"
	"github.com/domjanbaric/agnetic-finance-workshop/internal/pipeline"
	"github.com/domjanbaric/agnetic-finance-workshop/internal/team"
	"github.com/google/uuid"
)

// Errors the transport layer maps to status codes.
var (
	ErrRunNotFound  = errors.New("run not found")
	ErrTeamNotFound = errors.New("team not found")
)

// StartRun validates the request, records the run and launches the team in
// the background. The response acknowledges the run before any model call.
func (s *Service) StartRun(ctx context.Context, req domain.StartRunRequest) (*domain.StartRunResponse, error) {
	if req.TeamID == "" {
		return nil, fmt.Errorf("team_id is required")
	}
	if req.Task == "" {
		return nil, fmt.Errorf("task is required")
	}
	def, ok := s.GetTeam(req.TeamID)
	if !ok {
		return nil, ErrTeamNotFound
	}

	runID := "run_" + uuid.New().String()[:8]
	run := &domain.Run{
		RunID:     runID,
		TeamID:    def.TeamID,
		Task:      req.Task,
		Status:    domain.RunStatusCreated,
		StartedAt: time.Now(),
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	s.recordEvent(ctx, runID, domain.EventTypeRunStarted, map[string]string{
		"team_id": def.TeamID,
		"kind":    def.Kind,
	})
	s.recordEvent(ctx, runID, domain.EventTypeUserInput, map[string]string{
		"content": req.Task,
	})

	if err := s.store.UpdateRunStatus(ctx, runID, domain.RunStatusRunning); err != nil {
		s.log.Error("failed to update run status", "run_id", runID, "error", err)
	}

	go s.executeRun(runID, *def, req.Task)

	return &domain.StartRunResponse{RunID: runID, TeamID: def.TeamID, Status: domain.RunStatusRunning}, nil
}

// executeRun drives one run to a terminal state on its own goroutine.
func (s *Service) executeRun(runID string, def TeamDef, task string) {
	ctx, cancel := context.WithCancel(context.Background())
	s.trackRun(runID, cancel)
	defer func() {
		cancel()
		s.untrackRun(runID)
	}()

	var (
		stoppedBy string
		err       error
	)
	switch def.Kind {
	case KindPipeline:
		stoppedBy, err = s.runPipeline(ctx, runID, def, task)
	default:
		stoppedBy, err = s.runRoundRobin(ctx, runID, def, task)
	}

	if err != nil {
		// A pipeline cancelled mid-stage surfaces as a stage error.
		if ctx.Err() != nil {
			s.finishStopped(runID, team.StoppedCancelled)
			return
		}
		s.finishFailed(runID, err)
		return
	}
	s.finishStopped(runID, stoppedBy)
}

// runRoundRobin builds the team's scheduler and runs it, persisting every
// message and tool call as it happens.
func (s *Service) runRoundRobin(ctx context.Context, runID string, def TeamDef, task string) (string, error) {
	participants := make([]domain.Participant, 0, len(def.Assistants))
	for _, a := range def.Assistants {
		p, err := s.buildAssistant(runID, a)
		if err != nil {
			return "", err
		}
		participants = append(participants, p)
	}

	cond, err := s.buildCondition(def)
	if err != nil {
		return "", err
	}

	scheduler, err := team.New(participants, cond,
		team.WithHardCap(s.hardCap()),
		team.WithLogger(s.log.With("run_id", runID)),
		team.WithMessageObserver(s.messageObserver(runID)),
	)
	if err != nil {
		return "", err
	}

	result, err := scheduler.Run(ctx, task)
	if err != nil {
		return "", err
	}
	return result.StoppedBy, nil
}

// runPipeline assembles the planner/executor/critic/analyst stages and
// executes the three-stage review.
func (s *Service) runPipeline(ctx context.Context, runID string, def TeamDef, task string) (string, error) {
	roles := def.Pipeline
	planner, err := s.buildAssistant(runID, roles.Planner)
	if err != nil {
		return "", err
	}
	executor, err := s.buildAssistant(runID, roles.Executor)
	if err != nil {
		return "", err
	}
	critic, err := s.buildAssistant(runID, roles.Critic)
	if err != nil {
		return "", err
	}
	analyst, err := s.buildAssistant(runID, roles.Analyst)
	if err != nil {
		return "", err
	}

	p, err := pipeline.New(pipeline.Config{
		Planner:           planner,
		Executor:          executor,
		Critic:            critic,
		Analyst:           analyst,
		ApprovalMarker:    def.ApprovalMarker,
		MaxReviewMessages: def.MaxMessages,
		HardCap:           s.hardCap(),
		Logger:            s.log.With("run_id", runID),
		OnMessage:         s.messageObserver(runID),
		OnPlanRetry: func(parseErr error) {
			s.recordEvent(context.Background(), runID, domain.EventTypePlanRetry, map[string]string{
				"error": parseErr.Error(),
			})
		},
	})
	if err != nil {
		return "", err
	}

	report, err := p.Execute(ctx, task)
	if err != nil {
		return "", err
	}
	s.recordEvent(context.Background(), runID, domain.EventTypePlanParsed, report.Plan)
	return report.ReviewStoppedBy, nil
}

func (s *Service) buildAssistant(runID string, def AssistantDef) (*agent.Assistant, error) {
	registry := s.registry
	if len(def.Tools) > 0 {
		subset, err := s.registry.Subset(def.Tools)
		if err != nil {
			return nil, fmt.Errorf("team tools for %s: %w", def.Name, err)
		}
		registry = subset
	} else {
		registry = nil // no tools for this assistant
	}

	return agent.NewAssistant(agent.Config{
		Name:          def.Name,
		SystemPrompt:  def.SystemPrompt,
		ModelName:     s.modelName(),
		Client:        s.client,
		Tools:         registry,
		Policy:        s.policyEngine,
		MaxToolRounds: s.maxToolRounds(),
		Temperature:   def.Temperature,
		Logger:        s.log.With("participant", def.Name),
		ToolObserver:  s.toolObserver(runID),
	})
}

func (s *Service) buildCondition(def TeamDef) (team.Condition, error) {
	bound, err := team.NewMaxMessages(def.MaxMessages)
	if err != nil {
		return nil, err
	}
	if def.ApprovalMarker == "" {
		return bound, nil
	}
	mention, err := team.NewTextMention(def.ApprovalMarker)
	if err != nil {
		return nil, err
	}
	return team.Or(mention, bound)
}

// messageObserver persists each message as the scheduler appends it and
// records a trace event for replay.
func (s *Service) messageObserver(runID string) func(domain.Message) {
	return func(m domain.Message) {
		ctx := context.Background()
		m.MessageID = "msg_" + uuid.New().String()[:8]
		m.RunID = runID
		if err := s.store.CreateMessage(ctx, &m); err != nil {
			s.log.Error("failed to save message", "run_id", runID, "seq", m.Seq, "error", err)
		}
		s.recordEvent(ctx, runID, domain.EventTypeMessageAppended, map[string]interface{}{
			"message_id": m.MessageID,
			"seq":        m.Seq,
			"source":     m.Source,
		})
	}
}

func (s *Service) toolObserver(runID string) agent.ToolObserver {
	return func(tc domain.ToolCall) {
		ctx := context.Background()
		tc.RunID = runID
		if err := s.store.CreateToolCall(ctx, &tc); err != nil {
			s.log.Error("failed to save tool call", "run_id", runID, "tool", tc.ToolName, "error", err)
		}
		s.recordEvent(ctx, runID, domain.EventTypeToolCallRecorded, map[string]interface{}{
			"tool_call_id": tc.ToolCallID,
			"tool_name":    tc.ToolName,
			"participant":  tc.Participant,
			"status":       tc.Status,
		})
	}
}

// finishStopped maps the scheduler's stop reason onto a terminal run state.
func (s *Service) finishStopped(runID, stoppedBy string) {
	ctx := context.Background()

	status := domain.RunStatusDone
	eventType := domain.EventTypeRunDone
	switch stoppedBy {
	case team.StoppedCancelled:
		status = domain.RunStatusCancelled
		eventType = domain.EventTypeRunCancelled
	case team.StoppedExhausted:
		status = domain.RunStatusExhausted
		eventType = domain.EventTypeRunExhausted
	}

	if err := s.store.UpdateRunCompleted(ctx, runID, status, stoppedBy, nil); err != nil {
		s.log.Error("failed to complete run", "run_id", runID, "error", err)
	}
	s.recordEvent(ctx, runID, eventType, map[string]string{"stopped_by": stoppedBy})
	s.log.Info("run finished", "run_id", runID, "status", status, "stopped_by", stoppedBy)
}

func (s *Service) finishFailed(runID string, runErr error) {
	ctx := context.Background()

	payload := map[string]string{"message": runErr.Error()}
	var pe *team.ParticipantError
	if errors.As(runErr, &pe) {
		payload["participant"] = pe.Participant
	}
	errData, _ := json.Marshal(payload)

	if err := s.store.UpdateRunCompleted(ctx, runID, domain.RunStatusFailed, "", errData); err != nil {
		s.log.Error("failed to mark run failed", "run_id", runID, "error", err)
	}
	s.recordEvent(ctx, runID, domain.EventTypeRunFailed, payload)
	s.log.Error("run failed", "run_id", runID, "error", runErr)
}

func (s *Service) hardCap() int {
	if s.config != nil && s.config.HardMessageCap > 0 {
		return s.config.HardMessageCap
	}
	return team.DefaultHardCap
}

func (s *Service) maxToolRounds() int {
	if s.config != nil && s.config.MaxToolRounds > 0 {
		return s.config.MaxToolRounds
	}
	return agent.DefaultMaxToolRounds
}

func (s *Service) modelName() string {
	if s.config != nil {
		return s.config.ModelName
	}
	return ""
}
