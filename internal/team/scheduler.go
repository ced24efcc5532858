package team

import (
	"context"
	"log/slog"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/domain"
)

// DefaultHardCap bounds the number of participant messages in a run when a
// termination condition never fires. It sits far above any threshold a
// workshop team configures.
const DefaultHardCap = 256

// Stop reasons reported alongside condition names.
const (
	StoppedExhausted = "exhausted"
	StoppedCancelled = "cancelled"
)

// Cadence controls when the termination condition is evaluated.
type Cadence int

const (
	// CadencePerMessage checks after every appended message, so a run can
	// stop mid-turn and mid-round.
	CadencePerMessage Cadence = iota
	// CadencePerTurn checks once after a participant's whole turn.
	CadencePerTurn
)

// Result is the outcome of a run: the final transcript and what stopped it.
type Result struct {
	Transcript []domain.Message
	StoppedBy  string
	Rounds     int
}

// Scheduler drives a fixed, ordered list of participants through repeated
// round-robin turns, feeding each the transcript so far, until the
// termination condition fires, the context is cancelled, or the hard cap is
// reached.
type Scheduler struct {
	participants []domain.Participant
	cond         Condition
	hardCap      int
	cadence      Cadence
	log          *slog.Logger
	onMessage    func(domain.Message)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithHardCap overrides the message safety cap.
func WithHardCap(n int) Option {
	return func(s *Scheduler) { s.hardCap = n }
}

// WithCadence sets when the termination condition is evaluated.
func WithCadence(c Cadence) Option {
	return func(s *Scheduler) { s.cadence = c }
}

// WithLogger sets the scheduler logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// WithMessageObserver registers a callback invoked for every message as it
// is appended, the seed included. The callback runs on the scheduler
// goroutine; it must not block.
func WithMessageObserver(fn func(domain.Message)) Option {
	return func(s *Scheduler) { s.onMessage = fn }
}

// New validates the team setup and returns a scheduler. The participant
// list must be non-empty and the condition non-nil.
func New(participants []domain.Participant, cond Condition, opts ...Option) (*Scheduler, error) {
	if len(participants) == 0 {
		return nil, &ConfigurationError{Reason: "participant list is empty"}
	}
	for _, p := range participants {
		if p == nil || p.Name() == "" {
			return nil, &ConfigurationError{Reason: "participant must be non-nil and named"}
		}
	}
	if cond == nil {
		return nil, &ConfigurationError{Reason: "termination condition is required"}
	}
	s := &Scheduler{
		participants: participants,
		cond:         cond,
		hardCap:      DefaultHardCap,
		cadence:      CadencePerMessage,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hardCap < 1 {
		return nil, &ConfigurationError{Reason: "hard cap must be >= 1"}
	}
	return s, nil
}

// Run executes one round-robin run seeded with task. The condition is
// re-armed at the start, so a scheduler can be reused for fresh runs.
//
// A participant failure aborts the run; the returned error is a
// *ParticipantError carrying the partial transcript. Context cancellation
// is honored between turns and yields a "cancelled" result without error.
func (s *Scheduler) Run(ctx context.Context, task string) (*Result, error) {
	s.cond.Reset()

	transcript := domain.NewTranscript()
	seed := transcript.Append(domain.Message{Source: domain.SourceUser, Content: task})
	s.notify(seed)

	appended := 0
	for rounds := 1; ; rounds++ {
		// The cap bounds rounds too, so a team of silent participants
		// cannot livelock.
		if rounds > s.hardCap {
			return s.stopped(transcript, StoppedExhausted, rounds-1)
		}
		for _, p := range s.participants {
			if ctx.Err() != nil {
				s.log.Info("run cancelled", "participant", p.Name(), "messages", appended)
				return &Result{Transcript: transcript.Messages(), StoppedBy: StoppedCancelled, Rounds: rounds}, nil
			}

			produced, err := p.Invoke(ctx, transcript.Messages())
			if err != nil {
				if ctx.Err() != nil {
					return &Result{Transcript: transcript.Messages(), StoppedBy: StoppedCancelled, Rounds: rounds}, nil
				}
				return nil, &ParticipantError{Participant: p.Name(), Transcript: transcript.Messages(), Err: err}
			}

			var turn []domain.Message
			for _, m := range produced {
				m.Source = p.Name()
				m = transcript.Append(m)
				s.notify(m)
				appended++
				turn = append(turn, m)

				if s.cadence == CadencePerMessage {
					if s.cond.Check([]domain.Message{m}) {
						return s.stopped(transcript, s.cond.Name(), rounds)
					}
				}
				if appended >= s.hardCap {
					s.log.Warn("hard cap reached", "cap", s.hardCap)
					return s.stopped(transcript, StoppedExhausted, rounds)
				}
			}

			if s.cadence == CadencePerTurn && len(turn) > 0 {
				if s.cond.Check(turn) {
					return s.stopped(transcript, s.cond.Name(), rounds)
				}
			}
		}
	}
}

func (s *Scheduler) stopped(t *domain.Transcript, reason string, rounds int) (*Result, error) {
	s.log.Info("run stopped", "stopped_by", reason, "messages", t.Len()-1, "rounds", rounds)
	return &Result{Transcript: t.Messages(), StoppedBy: reason, Rounds: rounds}, nil
}

func (s *Scheduler) notify(m domain.Message) {
	if s.onMessage != nil {
		s.onMessage(m)
	}
}
