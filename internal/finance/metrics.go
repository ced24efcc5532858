// Package finance holds the workshop's static market data and the tools
// exposing it to participants.
package finance

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/samber/lo"
)

//go:embed data/*.json
var dataFS embed.FS

// Lookup scopes.
const (
	ScopeLatest = "latest"
	ScopeAll    = "all"
)

// MetricsTable is the per-symbol, per-date financial ratio table. It is
// immutable after load.
type MetricsTable struct {
	table map[string]map[string]map[string]float64
}

// LoadMetricsTable parses the embedded ratio table.
func LoadMetricsTable() (*MetricsTable, error) {
	raw, err := dataFS.ReadFile("data/metrics.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics data: %w", err)
	}
	var table map[string]map[string]map[string]float64
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("failed to parse metrics data: %w", err)
	}
	return &MetricsTable{table: table}, nil
}

// Symbols lists the known symbols in stable order.
func (m *MetricsTable) Symbols() []string {
	keys := lo.Keys(m.table)
	sort.Strings(keys)
	return keys
}

// Lookup returns the ratio data for symbol as JSON. Scope "all" returns the
// full per-date mapping; "latest" a single-entry mapping keyed by the
// chronologically last date. Unknown symbols yield the empty object.
// Output is byte-stable across calls: maps marshal with sorted keys.
func (m *MetricsTable) Lookup(symbol, scope string) (json.RawMessage, error) {
	if scope != ScopeLatest && scope != ScopeAll {
		return nil, fmt.Errorf("unknown scope %q (want %q or %q)", scope, ScopeLatest, ScopeAll)
	}

	byDate, ok := m.table[symbol]
	if !ok {
		return json.RawMessage(`{}`), nil
	}

	if scope == ScopeAll {
		out, err := json.Marshal(byDate)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metrics: %w", err)
		}
		return out, nil
	}

	// Date keys are ISO dates, so the lexicographic max is the latest.
	latest := lo.Max(lo.Keys(byDate))
	out, err := json.Marshal(map[string]map[string]float64{latest: byDate[latest]})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metrics: %w", err)
	}
	return out, nil
}
