package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTeamDefs(t *testing.T) {
	teams, err := DefaultTeamDefs()
	assert.NoError(t, err)
	assert.NotEmpty(t, teams)

	byID := map[string]TeamDef{}
	for _, def := range teams {
		byID[def.TeamID] = def
	}

	review, ok := byID["review-loop"]
	assert.True(t, ok)
	assert.Equal(t, KindRoundRobin, review.Kind)
	assert.Equal(t, "APPROVE", review.ApprovalMarker)
	assert.Len(t, review.Assistants, 2)

	staged, ok := byID["finance-review"]
	assert.True(t, ok)
	assert.Equal(t, KindPipeline, staged.Kind)
	assert.NotNil(t, staged.Pipeline)
	assert.Equal(t, "executor", staged.Pipeline.Executor.Name)
	assert.Contains(t, staged.Pipeline.Executor.Tools, "finance.metrics")
}

func TestLoadTeamDefsValidation(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"empty catalog", `teams: []`},
		{"missing id", "teams:\n  - kind: round_robin\n    max_messages: 1\n    assistants:\n      - name: a"},
		{"duplicate id", "teams:\n  - team_id: x\n    kind: round_robin\n    max_messages: 1\n    assistants:\n      - name: a\n  - team_id: x\n    kind: round_robin\n    max_messages: 1\n    assistants:\n      - name: a"},
		{"unknown kind", "teams:\n  - team_id: x\n    kind: swarm"},
		{"no assistants", "teams:\n  - team_id: x\n    kind: round_robin\n    max_messages: 1"},
		{"unnamed assistant", "teams:\n  - team_id: x\n    kind: round_robin\n    max_messages: 1\n    assistants:\n      - system_prompt: hi"},
		{"zero bound", "teams:\n  - team_id: x\n    kind: round_robin\n    assistants:\n      - name: a"},
		{"pipeline without roles", "teams:\n  - team_id: x\n    kind: pipeline"},
		{"pipeline unnamed role", "teams:\n  - team_id: x\n    kind: pipeline\n    pipeline:\n      planner:\n        name: p\n      executor:\n        name: e\n      critic:\n        name: c\n      analyst:\n        system_prompt: hi"},
		{"not yaml", "teams: ["},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadTeamDefs([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}
