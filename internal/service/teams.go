package service

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed teams.yaml
var defaultTeamsYAML []byte

// Team kinds supported by the catalog.
const (
	KindRoundRobin = "round_robin"
	KindPipeline   = "pipeline"
)

// AssistantDef describes one model-backed participant of a team.
type AssistantDef struct {
	Name         string   `yaml:"name" json:"name"`
	SystemPrompt string   `yaml:"system_prompt" json:"system_prompt,omitempty"`
	Tools        []string `yaml:"tools" json:"tools,omitempty"`
	Temperature  *float64 `yaml:"temperature" json:"temperature,omitempty"`
}

// PipelineDef names the four fixed roles of a pipeline team.
type PipelineDef struct {
	Planner  AssistantDef `yaml:"planner" json:"planner"`
	Executor AssistantDef `yaml:"executor" json:"executor"`
	Critic   AssistantDef `yaml:"critic" json:"critic"`
	Analyst  AssistantDef `yaml:"analyst" json:"analyst"`
}

// TeamDef is one entry of the team catalog.
type TeamDef struct {
	TeamID      string `yaml:"team_id" json:"team_id"`
	Kind        string `yaml:"kind" json:"kind"`
	Description string `yaml:"description" json:"description,omitempty"`

	// ApprovalMarker, when set on a round_robin team, adds a text-mention
	// condition alongside the message bound.
	ApprovalMarker string `yaml:"approval_marker" json:"approval_marker,omitempty"`
	MaxMessages    int    `yaml:"max_messages" json:"max_messages,omitempty"`

	Assistants []AssistantDef `yaml:"assistants" json:"assistants,omitempty"`
	Pipeline   *PipelineDef   `yaml:"pipeline" json:"pipeline,omitempty"`
}

type teamCatalog struct {
	Teams []TeamDef `yaml:"teams"`
}

// LoadTeamDefs parses a YAML team catalog and validates every entry.
func LoadTeamDefs(data []byte) ([]TeamDef, error) {
	var catalog teamCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse team catalog: %w", err)
	}
	if len(catalog.Teams) == 0 {
		return nil, fmt.Errorf("team catalog is empty")
	}

	seen := make(map[string]bool, len(catalog.Teams))
	for i := range catalog.Teams {
		def := &catalog.Teams[i]
		if def.TeamID == "" {
			return nil, fmt.Errorf("team %d: team_id is required", i)
		}
		if seen[def.TeamID] {
			return nil, fmt.Errorf("team %s: duplicate team_id", def.TeamID)
		}
		seen[def.TeamID] = true

		switch def.Kind {
		case KindRoundRobin:
			if len(def.Assistants) == 0 {
				return nil, fmt.Errorf("team %s: round_robin needs at least one assistant", def.TeamID)
			}
			for _, a := range def.Assistants {
				if a.Name == "" {
					return nil, fmt.Errorf("team %s: assistant name is required", def.TeamID)
				}
			}
			if def.MaxMessages < 1 {
				return nil, fmt.Errorf("team %s: max_messages must be >= 1", def.TeamID)
			}
		case KindPipeline:
			if def.Pipeline == nil {
				return nil, fmt.Errorf("team %s: pipeline roles are required", def.TeamID)
			}
			for _, role := range []AssistantDef{def.Pipeline.Planner, def.Pipeline.Executor, def.Pipeline.Critic, def.Pipeline.Analyst} {
				if role.Name == "" {
					return nil, fmt.Errorf("team %s: all pipeline roles need a name", def.TeamID)
				}
			}
		default:
			return nil, fmt.Errorf("team %s: unknown kind %q", def.TeamID, def.Kind)
		}
	}
	return catalog.Teams, nil
}

// DefaultTeamDefs loads the embedded catalog.
func DefaultTeamDefs() ([]TeamDef, error) {
	return LoadTeamDefs(defaultTeamsYAML)
}
