package domain

import "context"

// Participant is a named unit that, given the transcript so far, produces
// zero or more new messages. Invocations are issued one at a time by the
// scheduler and are atomic from its point of view; a participant may block
// internally (model completion, tool call) but must honor ctx.
type Participant interface {
	Name() string
	Invoke(ctx context.Context, transcript []Message) ([]Message, error)
}
