package finance

import (
	"context"
	"encoding/json"
	"fmt"
)

// MetricsTool exposes the ratio table lookup to participants.
type MetricsTool struct {
	table *MetricsTable
}

// NewMetricsTool wraps table as a tool.
func NewMetricsTool(table *MetricsTable) *MetricsTool {
	return &MetricsTool{table: table}
}

func (t *MetricsTool) Name() string { return "finance.metrics" }

func (t *MetricsTool) Description() string {
	return "Look up financial ratios for a stock symbol. Scope 'latest' returns the most recent reporting date, 'all' the full history."
}

func (t *MetricsTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"symbol": {"type": "string", "description": "Stock ticker, e.g. AAPL"},
			"scope": {"type": "string", "enum": ["latest", "all"]}
		},
		"required": ["symbol", "scope"]
	}`)
}

func (t *MetricsTool) Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var in struct {
		Symbol string `json:"symbol"`
		Scope  string `json:"scope"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return t.table.Lookup(in.Symbol, in.Scope)
}

// PriceTool serves the workshop's static closing prices.
type PriceTool struct {
	prices map[string]float64
}

// NewPriceTool creates the static price lookup tool.
func NewPriceTool() *PriceTool {
	return &PriceTool{
		prices: map[string]float64{
			"AAPL": 232.47,
			"MSFT": 421.9,
			"NVDA": 131.26,
			"TSLA": 249.83,
		},
	}
}

func (t *PriceTool) Name() string { return "finance.price" }

func (t *PriceTool) Description() string {
	return "Get the last closing price for a stock symbol."
}

func (t *PriceTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"symbol": {"type": "string"}
		},
		"required": ["symbol"]
	}`)
}

func (t *PriceTool) Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var in struct {
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	price, ok := t.prices[in.Symbol]
	if !ok {
		return json.RawMessage(`{}`), nil
	}
	return json.Marshal(map[string]interface{}{"symbol": in.Symbol, "price": price})
}

// NewsTool serves canned headlines per symbol.
type NewsTool struct {
	headlines map[string][]string
}

// NewNewsTool creates the static headline lookup tool.
func NewNewsTool() *NewsTool {
	return &NewsTool{
		headlines: map[string][]string{
			"AAPL": {
				"Apple expands services revenue to record high",
				"Analysts split on iPhone upgrade cycle strength",
			},
			"MSFT": {
				"Microsoft cloud growth beats expectations",
				"Azure AI workloads drive data center expansion",
			},
			"NVDA": {
				"NVIDIA data center demand stays ahead of supply",
				"New accelerator generation enters volume production",
			},
			"TSLA": {
				"Tesla margins under pressure after price cuts",
				"Energy storage deployments hit quarterly record",
			},
		},
	}
}

func (t *NewsTool) Name() string { return "finance.news" }

func (t *NewsTool) Description() string {
	return "Get recent news headlines for a stock symbol."
}

func (t *NewsTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"symbol": {"type": "string"}
		},
		"required": ["symbol"]
	}`)
}

func (t *NewsTool) Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var in struct {
		Symbol string `json:"symbol"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	headlines, ok := t.headlines[in.Symbol]
	if !ok {
		return json.RawMessage(`{}`), nil
	}
	return json.Marshal(map[string]interface{}{"symbol": in.Symbol, "headlines": headlines})
}
