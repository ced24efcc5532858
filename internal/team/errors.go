package team

import (
	"fmt"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/domain"
)

// ConfigurationError reports an invalid scheduler or condition setup. It is
// returned at construction time, before any turn executes.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "team configuration: " + e.Reason
}

// ParticipantError reports a failed participant invocation. The run aborts
// immediately; the partial transcript is attached for diagnostics.
type ParticipantError struct {
	Participant string
	Transcript  []domain.Message
	Err         error
}

func (e *ParticipantError) Error() string {
	return fmt.Sprintf("participant %s: %v", e.Participant, e.Err)
}

func (e *ParticipantError) Unwrap() error {
	return e.Err
}
