package domain

// StartRunRequest is the request to start a team run.
type StartRunRequest struct {
	TeamID string `json:"team_id"`
	Task   string `json:"task"`
}

// StartRunResponse acknowledges an accepted run.
type StartRunResponse struct {
	RunID  string    `json:"run_id"`
	TeamID string    `json:"team_id"`
	Status RunStatus `json:"status"`
}

// RunMessagesResponse carries the transcript of a run.
type RunMessagesResponse struct {
	RunID    string    `json:"run_id"`
	Messages []Message `json:"messages"`
}

// RunEventsResponse carries trace events of a run.
type RunEventsResponse struct {
	RunID  string  `json:"run_id"`
	Events []Event `json:"events"`
}
