package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/domjanbaric/agnetic-finance-workshop/internal/domain"
	"github.com/google/uuid"
)

// recordEvent appends one trace event. Event persistence is best effort; a
// failure is logged and never aborts the run.
func (s *Service) recordEvent(ctx context.Context, runID string, eventType domain.EventType, payload interface{}) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			s.log.Error("failed to marshal event payload", "run_id", runID, "type", eventType, "error", err)
			return
		}
		data = b
	}

	event := &domain.Event{
		EventID: "evt_" + uuid.New().String()[:8],
		RunID:   runID,
		Ts:      time.Now().UnixMilli(),
		Type:    eventType,
		Payload: data,
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		s.log.Error("failed to record event", "run_id", runID, "type", eventType, "error", err)
	}
}
