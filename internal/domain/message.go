package domain

import "time"

// SourceUser is the source recorded for the seed message of a run.
const SourceUser = "user"

// Message is one entry of a run transcript. Once appended to a transcript
// a message is never mutated; Seq is assigned by the transcript on append
// and is monotonic within a run.
type Message struct {
	MessageID string    `json:"message_id"`
	RunID     string    `json:"run_id,omitempty"`
	Seq       int       `json:"seq"`
	Source    string    `json:"source"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Transcript is the append-only, ordered message log of a run. Only the
// scheduler appends to it; participants get copies via Messages.
type Transcript struct {
	messages []Message
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append stores a copy of m with the next sequence index and returns it.
func (t *Transcript) Append(m Message) Message {
	m.Seq = len(t.messages)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	t.messages = append(t.messages, m)
	return m
}

// Messages returns a copy of the transcript so far.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

func (t *Transcript) Len() int {
	return len(t.messages)
}

// Last returns the most recent message, if any.
func (t *Transcript) Last() (Message, bool) {
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[len(t.messages)-1], true
}
