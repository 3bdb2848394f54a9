package logfeed

import (
	"context"
	"strings"

	"github.com/valyala/fastjson"
)

// UsageSummary totals model token usage recorded in a day's log.
type UsageSummary struct {
	Available    bool    `json:"available"`
	InputTokens  int64   `json:"inputTokens"`
	OutputTokens int64   `json:"outputTokens"`
	TotalCostUSD float64 `json:"totalCostUsd"`
	Error        string  `json:"error,omitempty"`
}

// SumUsage adds up the usage objects of every JSON line in content.
// Available is true iff at least one line carried a usage object.
func SumUsage(content string) UsageSummary {
	var (
		p       fastjson.Parser
		summary UsageSummary
	)

	for _, line := range strings.Split(content, "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "{") {
			continue
		}
		v, err := p.Parse(line)
		if err != nil {
			continue
		}
		usage := v.Get("usage")
		if !truthy(usage) {
			continue
		}
		summary.Available = true
		summary.InputTokens += usage.GetInt64("inputTokens")
		summary.OutputTokens += usage.GetInt64("outputTokens")
		summary.TotalCostUSD += usage.GetFloat64("totalCostUsd")
	}
	return summary
}

// Usage totals today's usage. It reads only today's file; a missing file
// reports Available false with the error text.
func (s *Source) Usage(ctx context.Context) UsageSummary {
	file, err := s.OpenExact(ctx, s.Today())
	if err != nil {
		return UsageSummary{Error: err.Error()}
	}
	return SumUsage(file.Content)
}
