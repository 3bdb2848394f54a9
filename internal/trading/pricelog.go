// Package trading reads the weather-market price log written by the
// backtest scripts.
package trading

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// PriceEntry is one forecast-versus-market observation.
type PriceEntry struct {
	Timestamp        string  `json:"timestamp"`
	TargetDate       string  `json:"target_date"`
	ForecastSource   string  `json:"forecast_source,omitempty"`
	ForecastHighF    float64 `json:"forecast_high_f"`
	MarketImplied    string  `json:"market_implied"`
	MarketConfidence float64 `json:"market_confidence"`
	DaysUntil        int     `json:"days_until"`
}

// Snapshot is the trading panel payload.
type Snapshot struct {
	LatestTimestamp *string      `json:"latestTimestamp"`
	Entries         []PriceEntry `json:"entries"`
	Error           string       `json:"error,omitempty"`
}

// ParseLog decodes one entry per line. Blank lines, malformed JSON and
// entries without a timestamp or target date are skipped.
func ParseLog(content string) []PriceEntry {
	var entries []PriceEntry
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e PriceEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		if e.Timestamp == "" || e.TargetDate == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// Latest returns the entries recorded at the greatest timestamp, sorted by
// target date. Timestamps compare as strings, which orders ISO 8601 values
// correctly.
func Latest(entries []PriceEntry) Snapshot {
	if len(entries) == 0 {
		return Snapshot{Entries: []PriceEntry{}}
	}

	latest := entries[0].Timestamp
	for _, e := range entries[1:] {
		if e.Timestamp > latest {
			latest = e.Timestamp
		}
	}

	var batch []PriceEntry
	for _, e := range entries {
		if e.Timestamp == latest {
			batch = append(batch, e)
		}
	}
	slices.SortStableFunc(batch, func(a, b PriceEntry) int {
		return strings.Compare(a.TargetDate, b.TargetDate)
	})

	return Snapshot{LatestTimestamp: &latest, Entries: batch}
}

// Log reads the price log at a fixed path.
type Log struct {
	path   string
	logger *slog.Logger
}

// NewLog creates a price log reader.
func NewLog(path string, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{path: path, logger: logger.With("component", "trading")}
}

// Snapshot reads the log and returns its latest batch. A read failure
// yields an empty snapshot with Error set.
func (l *Log) Snapshot(ctx context.Context) Snapshot {
	if err := ctx.Err(); err != nil {
		return Snapshot{Entries: []PriceEntry{}, Error: err.Error()}
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		l.logger.Warn("price log unavailable", "path", l.path, "error", err)
		return Snapshot{Entries: []PriceEntry{}, Error: err.Error()}
	}
	return Latest(ParseLog(string(data)))
}
