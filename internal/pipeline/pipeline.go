// Package pipeline composes the three-stage financial review: a planner
// turns the task into a structured plan, an executor/critic team iterates
// until approval, and an analyst writes the final summary.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/domain"
	"github.com/domjanbaric/agnetic-finance-workshop/internal/team"
)

// Defaults for the review stage.
const (
	DefaultApprovalMarker    = "APPROVE"
	DefaultMaxReviewMessages = 12
)

// Config wires a Pipeline. All four participants are required.
type Config struct {
	Planner  domain.Participant
	Executor domain.Participant
	Critic   domain.Participant
	Analyst  domain.Participant

	ApprovalMarker    string
	MaxReviewMessages int
	HardCap           int

	Logger *slog.Logger
	// OnMessage observes every message of every stage as it is produced.
	OnMessage func(domain.Message)
	// OnPlanRetry is called when the planner's first reply fails strict
	// JSON parsing and a re-prompt is issued.
	OnPlanRetry func(parseErr error)
}

// Report is the pipeline outcome.
type Report struct {
	Plan            Plan
	PlanRaw         string
	Review          []domain.Message
	ReviewStoppedBy string
	Summary         string
}

// Pipeline runs the three stages sequentially over one task.
type Pipeline struct {
	cfg Config
	log *slog.Logger
}

// New validates cfg and builds the pipeline.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Planner == nil || cfg.Executor == nil || cfg.Critic == nil || cfg.Analyst == nil {
		return nil, fmt.Errorf("pipeline requires planner, executor, critic and analyst")
	}
	if cfg.ApprovalMarker == "" {
		cfg.ApprovalMarker = DefaultApprovalMarker
	}
	if cfg.MaxReviewMessages <= 0 {
		cfg.MaxReviewMessages = DefaultMaxReviewMessages
	}
	if cfg.HardCap <= 0 {
		cfg.HardCap = team.DefaultHardCap
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, log: cfg.Logger}, nil
}

// Execute runs planner, review team and analyst in order. A participant
// failure at any stage aborts the pipeline with that stage's error.
func (p *Pipeline) Execute(ctx context.Context, task string) (*Report, error) {
	report := &Report{}

	plan, raw, err := p.runPlanner(ctx, task)
	if err != nil {
		return nil, err
	}
	report.Plan = *plan
	report.PlanRaw = raw

	review, err := p.runReview(ctx, task, plan)
	if err != nil {
		return nil, err
	}
	report.Review = review.Transcript
	report.ReviewStoppedBy = review.StoppedBy

	summary, err := p.runAnalyst(ctx, plan, review)
	if err != nil {
		return nil, err
	}
	report.Summary = summary

	p.log.Info("pipeline done",
		"symbols", plan.Symbols,
		"review_stopped_by", review.StoppedBy,
	)
	return report, nil
}

// runPlanner asks for a structured plan, re-prompting exactly once when the
// reply is not strict JSON.
func (p *Pipeline) runPlanner(ctx context.Context, task string) (*Plan, string, error) {
	prompt := fmt.Sprintf(
		"Plan a financial review for this request: %s\n"+
			"Reply with a single JSON object only, no prose: "+
			`{"symbols": ["..."], "scope": "latest"|"all", "focus": "..."}`,
		task,
	)

	raw, err := p.singleTurn(ctx, p.cfg.Planner, prompt)
	if err != nil {
		return nil, "", err
	}

	plan, parseErr := ParsePlan(raw)
	if parseErr == nil {
		return plan, raw, nil
	}

	p.log.Warn("plan parse failed, re-prompting once", "error", parseErr)
	if p.cfg.OnPlanRetry != nil {
		p.cfg.OnPlanRetry(parseErr)
	}

	retryPrompt := fmt.Sprintf(
		"Your previous reply was not valid JSON (%v). %s", parseErr, prompt,
	)
	raw, err = p.singleTurn(ctx, p.cfg.Planner, retryPrompt)
	if err != nil {
		return nil, "", err
	}
	plan, parseErr = ParsePlan(raw)
	if parseErr != nil {
		return nil, "", fmt.Errorf("planner produced no valid plan after retry: %w", parseErr)
	}
	return plan, raw, nil
}

func (p *Pipeline) runReview(ctx context.Context, task string, plan *Plan) (*team.Result, error) {
	mention, err := team.NewTextMention(p.cfg.ApprovalMarker)
	if err != nil {
		return nil, err
	}
	bound, err := team.NewMaxMessages(p.cfg.MaxReviewMessages)
	if err != nil {
		return nil, err
	}
	cond, err := team.Or(mention, bound)
	if err != nil {
		return nil, err
	}

	scheduler, err := team.New(
		[]domain.Participant{p.cfg.Executor, p.cfg.Critic},
		cond,
		team.WithHardCap(p.cfg.HardCap),
		team.WithLogger(p.log),
		team.WithMessageObserver(p.notify),
	)
	if err != nil {
		return nil, err
	}

	reviewTask := fmt.Sprintf(
		"Task: %s\nSymbols: %s\nScope: %s\nFocus: %s\n"+
			"Executor drafts the analysis using the metrics tool; critic reviews and replies with %s when satisfied.",
		task, strings.Join(plan.Symbols, ", "), plan.Scope, plan.Focus, p.cfg.ApprovalMarker,
	)
	return scheduler.Run(ctx, reviewTask)
}

func (p *Pipeline) runAnalyst(ctx context.Context, plan *Plan, review *team.Result) (string, error) {
	var lastDraft string
	for i := len(review.Transcript) - 1; i >= 0; i-- {
		if review.Transcript[i].Source == p.cfg.Executor.Name() {
			lastDraft = review.Transcript[i].Content
			break
		}
	}

	prompt := fmt.Sprintf(
		"Write the final financial summary for %s (focus: %s) based on this approved analysis:\n%s",
		strings.Join(plan.Symbols, ", "), plan.Focus, lastDraft,
	)
	return p.singleTurn(ctx, p.cfg.Analyst, prompt)
}

// singleTurn runs one participant for exactly one message and returns its
// content. The cap stays tight so a participant that produces nothing fails
// after two turns instead of spinning to the run-level hard cap.
func (p *Pipeline) singleTurn(ctx context.Context, participant domain.Participant, task string) (string, error) {
	bound, err := team.NewMaxMessages(1)
	if err != nil {
		return "", err
	}
	scheduler, err := team.New(
		[]domain.Participant{participant},
		bound,
		team.WithHardCap(2),
		team.WithLogger(p.log),
		team.WithMessageObserver(p.notify),
	)
	if err != nil {
		return "", err
	}
	res, err := scheduler.Run(ctx, task)
	if err != nil {
		return "", err
	}
	last := res.Transcript[len(res.Transcript)-1]
	if last.Source != participant.Name() {
		return "", fmt.Errorf("%s produced no reply", participant.Name())
	}
	return last.Content, nil
}

func (p *Pipeline) notify(m domain.Message) {
	if p.cfg.OnMessage != nil {
		p.cfg.OnMessage(m)
	}
}
