package team

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/domain"
)

// scriptedParticipant emits a fixed message per turn, or fails.
type scriptedParticipant struct {
	name    string
	content func(turn int) string
	emit    int
	err     error
	turns   int
}

func (p *scriptedParticipant) Name() string { return p.name }

func (p *scriptedParticipant) Invoke(ctx context.Context, transcript []domain.Message) ([]domain.Message, error) {
	p.turns++
	if p.err != nil {
		return nil, p.err
	}
	var out []domain.Message
	for i := 0; i < p.emit; i++ {
		out = append(out, domain.Message{Content: p.content(p.turns)})
	}
	return out, nil
}

func echoing(name string) *scriptedParticipant {
	return &scriptedParticipant{
		name: name,
		emit: 1,
		content: func(turn int) string {
			return fmt.Sprintf("%s turn %d", name, turn)
		},
	}
}

func mustMaxMessages(t *testing.T, n int) *MaxMessages {
	t.Helper()
	c, err := NewMaxMessages(n)
	if err != nil {
		t.Fatalf("NewMaxMessages(%d): %v", n, err)
	}
	return c
}

func mustTextMention(t *testing.T, marker string) *TextMention {
	t.Helper()
	c, err := NewTextMention(marker)
	if err != nil {
		t.Fatalf("NewTextMention(%q): %v", marker, err)
	}
	return c
}

func TestCountBoundStopsAtExactlyN(t *testing.T) {
	for _, n := range []int{1, 3, 7} {
		s, err := New([]domain.Participant{echoing("solo")}, mustMaxMessages(t, n))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		res, err := s.Run(context.Background(), "start")
		if err != nil {
			t.Fatalf("Run(n=%d): %v", n, err)
		}
		if res.StoppedBy != "count-bound" {
			t.Fatalf("n=%d: expected count-bound, got %s", n, res.StoppedBy)
		}
		// seed + exactly n participant messages
		if len(res.Transcript) != n+1 {
			t.Fatalf("n=%d: expected %d messages, got %d", n, n+1, len(res.Transcript))
		}
	}
}

func TestSingleParticipantInvokedOncePerMessage(t *testing.T) {
	solo := echoing("solo")
	s, err := New([]domain.Participant{solo}, mustMaxMessages(t, 3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Run(context.Background(), "start"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if solo.turns != 3 {
		t.Fatalf("expected 3 invocations, got %d", solo.turns)
	}
}

func TestRoundRobinOrderPreserved(t *testing.T) {
	a := echoing("A")
	b := echoing("B")
	s, err := New([]domain.Participant{a, b}, mustMaxMessages(t, 5))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Run(context.Background(), "start")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{domain.SourceUser, "A", "B", "A", "B", "A"}
	if len(res.Transcript) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(res.Transcript))
	}
	for i, m := range res.Transcript {
		if m.Source != want[i] {
			t.Fatalf("message %d: expected source %s, got %s", i, want[i], m.Source)
		}
		if m.Seq != i {
			t.Fatalf("message %d: expected seq %d, got %d", i, i, m.Seq)
		}
	}
}

func TestContentMatchStopsMidRound(t *testing.T) {
	executor := &scriptedParticipant{
		name: "executor",
		emit: 1,
		content: func(int) string {
			return "analysis done, APPROVE"
		},
	}
	critic := echoing("critic")

	cond, err := Or(mustTextMention(t, "APPROVE"), mustMaxMessages(t, 12))
	if err != nil {
		t.Fatalf("Or: %v", err)
	}
	s, err := New([]domain.Participant{executor, critic}, cond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Run(context.Background(), "review AAPL")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.StoppedBy != "content-match" {
		t.Fatalf("expected content-match, got %s", res.StoppedBy)
	}
	if len(res.Transcript) != 2 {
		t.Fatalf("expected seed + 1 message, got %d", len(res.Transcript))
	}
	if critic.turns != 0 {
		t.Fatalf("critic should never run, got %d turns", critic.turns)
	}
}

func TestOrStopsAtWhicheverFiresFirst(t *testing.T) {
	// APPROVE appears on the executor's third turn, i.e. the fifth
	// appended message. count-bound(12) must not win.
	executor := &scriptedParticipant{
		name: "executor",
		emit: 1,
		content: func(turn int) string {
			if turn == 3 {
				return "APPROVE"
			}
			return fmt.Sprintf("draft %d", turn)
		},
	}
	critic := echoing("critic")

	cond, err := Or(mustTextMention(t, "APPROVE"), mustMaxMessages(t, 12))
	if err != nil {
		t.Fatalf("Or: %v", err)
	}
	s, err := New([]domain.Participant{executor, critic}, cond)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Run(context.Background(), "start")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.StoppedBy != "content-match" {
		t.Fatalf("expected content-match, got %s", res.StoppedBy)
	}
	if len(res.Transcript) != 6 {
		t.Fatalf("expected seed + 5 messages, got %d", len(res.Transcript))
	}
}

func TestSilentParticipantAdvancesWithoutError(t *testing.T) {
	mute := &scriptedParticipant{name: "mute", emit: 0, content: func(int) string { return "" }}
	talker := echoing("talker")
	s, err := New([]domain.Participant{mute, talker}, mustMaxMessages(t, 2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Run(context.Background(), "start")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Transcript) != 3 {
		t.Fatalf("expected seed + 2 messages, got %d", len(res.Transcript))
	}
	for _, m := range res.Transcript[1:] {
		if m.Source != "talker" {
			t.Fatalf("unexpected source %s", m.Source)
		}
	}
	if mute.turns != 2 {
		t.Fatalf("mute should have been given 2 turns, got %d", mute.turns)
	}
}

func TestParticipantFailureAbortsWithPartialTranscript(t *testing.T) {
	boom := errors.New("model unavailable")
	ok := echoing("ok")
	bad := &scriptedParticipant{name: "bad", err: boom}

	s, err := New([]domain.Participant{ok, bad}, mustMaxMessages(t, 10))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = s.Run(context.Background(), "start")
	if err == nil {
		t.Fatalf("expected error")
	}
	var pErr *ParticipantError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected ParticipantError, got %T", err)
	}
	if pErr.Participant != "bad" {
		t.Fatalf("expected participant bad, got %s", pErr.Participant)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause")
	}
	// seed + ok's first message survived
	if len(pErr.Transcript) != 2 {
		t.Fatalf("expected partial transcript of 2, got %d", len(pErr.Transcript))
	}
}

func TestHardCapYieldsExhausted(t *testing.T) {
	s, err := New([]domain.Participant{echoing("solo")}, neverFires{}, WithHardCap(5))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Run(context.Background(), "start")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.StoppedBy != StoppedExhausted {
		t.Fatalf("expected exhausted, got %s", res.StoppedBy)
	}
	if len(res.Transcript) != 6 {
		t.Fatalf("expected seed + 5 messages, got %d", len(res.Transcript))
	}
}

type neverFires struct{}

func (neverFires) Check([]domain.Message) bool { return false }
func (neverFires) Name() string                { return "never" }
func (neverFires) Reset()                      {}

func TestCancellationBetweenTurns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopper := &scriptedParticipant{
		name: "stopper",
		emit: 1,
		content: func(int) string {
			cancel() // cancel after own turn; next turn must not start
			return "working"
		},
	}
	next := echoing("next")
	s, err := New([]domain.Participant{stopper, next}, mustMaxMessages(t, 10))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Run(ctx, "start")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.StoppedBy != StoppedCancelled {
		t.Fatalf("expected cancelled, got %s", res.StoppedBy)
	}
	if next.turns != 0 {
		t.Fatalf("next participant must not run after cancel")
	}
	if len(res.Transcript) != 2 {
		t.Fatalf("expected partial transcript of 2, got %d", len(res.Transcript))
	}
}

func TestSchedulerReusableAcrossRuns(t *testing.T) {
	s, err := New([]domain.Participant{echoing("solo")}, mustMaxMessages(t, 2))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for run := 0; run < 2; run++ {
		res, err := s.Run(context.Background(), "again")
		if err != nil {
			t.Fatalf("Run %d: %v", run, err)
		}
		if len(res.Transcript) != 3 {
			t.Fatalf("run %d: condition not re-armed, got %d messages", run, len(res.Transcript))
		}
	}
}

func TestPerTurnCadenceChecksAfterWholeTurn(t *testing.T) {
	burst := &scriptedParticipant{name: "burst", emit: 3, content: func(int) string { return "x" }}
	s, err := New([]domain.Participant{burst}, mustMaxMessages(t, 2), WithCadence(CadencePerTurn))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := s.Run(context.Background(), "start")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// All three messages of the turn land before the check.
	if len(res.Transcript) != 4 {
		t.Fatalf("expected seed + 3 messages, got %d", len(res.Transcript))
	}
	if res.StoppedBy != "count-bound" {
		t.Fatalf("expected count-bound, got %s", res.StoppedBy)
	}
}

func TestConfigurationErrors(t *testing.T) {
	if _, err := New(nil, neverFires{}); err == nil {
		t.Fatalf("expected error for empty participant list")
	}
	if _, err := New([]domain.Participant{echoing("a")}, nil); err == nil {
		t.Fatalf("expected error for nil condition")
	}
	if _, err := NewMaxMessages(0); err == nil {
		t.Fatalf("expected error for non-positive threshold")
	}
	var cfgErr *ConfigurationError
	_, err := NewMaxMessages(-1)
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
}

func TestMessageObserverSeesSeedAndEveryMessage(t *testing.T) {
	var seen []string
	s, err := New(
		[]domain.Participant{echoing("solo")},
		mustMaxMessages(t, 2),
		WithMessageObserver(func(m domain.Message) { seen = append(seen, m.Source) }),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Run(context.Background(), "start"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(seen) != 3 || seen[0] != domain.SourceUser {
		t.Fatalf("unexpected observer sequence: %v", seen)
	}
}
