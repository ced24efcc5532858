// Package team implements the round-robin turn scheduler and its
// termination conditions.
package team

import (
	"fmt"
	"strings"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/domain"
)

// Condition decides, given the messages appended since its last check,
// whether a run should stop. A condition is armed at the start of a run;
// once it fires it stays fired until Reset. Name identifies the condition
// in run results; a composite reports the name of the child that fired.
type Condition interface {
	Check(delta []domain.Message) bool
	Name() string
	Reset()
}

// MaxMessages fires once it has observed n messages since the run started.
// The seed message is not counted; the scheduler only feeds it
// participant-produced messages.
type MaxMessages struct {
	n     int
	seen  int
	fired bool
}

// NewMaxMessages returns a count-bound condition with threshold n (n >= 1).
func NewMaxMessages(n int) (*MaxMessages, error) {
	if n < 1 {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("message threshold must be >= 1, got %d", n)}
	}
	return &MaxMessages{n: n}, nil
}

func (c *MaxMessages) Check(delta []domain.Message) bool {
	if c.fired {
		return true
	}
	c.seen += len(delta)
	if c.seen >= c.n {
		c.fired = true
	}
	return c.fired
}

func (c *MaxMessages) Name() string { return "count-bound" }

func (c *MaxMessages) Reset() {
	c.seen = 0
	c.fired = false
}

// TextMention fires when a newly appended message contains the marker as a
// case-sensitive substring. Participants use it to signal approval or
// completion explicitly.
type TextMention struct {
	marker string
	fired  bool
}

// NewTextMention returns a content-match condition for marker.
func NewTextMention(marker string) (*TextMention, error) {
	if marker == "" {
		return nil, &ConfigurationError{Reason: "mention marker must not be empty"}
	}
	return &TextMention{marker: marker}, nil
}

func (c *TextMention) Check(delta []domain.Message) bool {
	if c.fired {
		return true
	}
	for _, m := range delta {
		if strings.Contains(m.Content, c.marker) {
			c.fired = true
			break
		}
	}
	return c.fired
}

func (c *TextMention) Name() string { return "content-match" }

func (c *TextMention) Reset() { c.fired = false }

// anyOf fires when any child fires. Children are checked in fixed order and
// all of them observe every delta, so stateful children keep counting even
// when an earlier sibling has already fired.
type anyOf struct {
	children []Condition
	firedBy  Condition
}

// Or composes conditions into one that fires when any child fires.
func Or(children ...Condition) (Condition, error) {
	if len(children) == 0 {
		return nil, &ConfigurationError{Reason: "or-composite needs at least one condition"}
	}
	return &anyOf{children: children}, nil
}

func (c *anyOf) Check(delta []domain.Message) bool {
	for _, child := range c.children {
		if child.Check(delta) && c.firedBy == nil {
			c.firedBy = child
		}
	}
	return c.firedBy != nil
}

// Name reports the fired child once the composite has fired.
func (c *anyOf) Name() string {
	if c.firedBy != nil {
		return c.firedBy.Name()
	}
	names := make([]string, len(c.children))
	for i, child := range c.children {
		names[i] = child.Name()
	}
	return "any-of(" + strings.Join(names, ",") + ")"
}

func (c *anyOf) Reset() {
	c.firedBy = nil
	for _, child := range c.children {
		child.Reset()
	}
}

// allOf fires once every child has fired at some point during the run.
type allOf struct {
	children []Condition
	fired    bool
}

// And composes conditions into one that fires when all children have fired.
func And(children ...Condition) (Condition, error) {
	if len(children) == 0 {
		return nil, &ConfigurationError{Reason: "and-composite needs at least one condition"}
	}
	return &allOf{children: children}, nil
}

func (c *allOf) Check(delta []domain.Message) bool {
	if c.fired {
		return true
	}
	all := true
	for _, child := range c.children {
		if !child.Check(delta) {
			all = false
		}
	}
	c.fired = all
	return c.fired
}

func (c *allOf) Name() string {
	names := make([]string, len(c.children))
	for i, child := range c.children {
		names[i] = child.Name()
	}
	return "all-of(" + strings.Join(names, ",") + ")"
}

func (c *allOf) Reset() {
	c.fired = false
	for _, child := range c.children {
		child.Reset()
	}
}

// negate inverts a child condition. Like every condition it latches: the
// first check where the child does not fire makes the negation fire for the
// rest of the run.
type negate struct {
	child Condition
	fired bool
}

// Not inverts a condition.
func Not(child Condition) Condition {
	return &negate{child: child}
}

func (c *negate) Check(delta []domain.Message) bool {
	if c.fired {
		return true
	}
	c.fired = !c.child.Check(delta)
	return c.fired
}

func (c *negate) Name() string { return "not(" + c.child.Name() + ")" }

func (c *negate) Reset() {
	c.fired = false
	c.child.Reset()
}
