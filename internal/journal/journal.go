// Package journal parses the markdown experiment journal: a Summary table
// plus one "## EXP-nnn: title" section per experiment.
package journal

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
)

// placeholderLearnings marks a Learnings block that has not been written yet.
const placeholderLearnings = "*(To be updated)*"

const defaultResult = "Pending"

// Trade is one row of an experiment's Trades table.
type Trade struct {
	Date     string `json:"date"`
	Market   string `json:"market"`
	Position string `json:"position"`
	Entry    string `json:"entry"`
	Forecast string `json:"forecast"`
	Actual   string `json:"actual"`
	Result   string `json:"result"`
	PnL      string `json:"pnl"`
}

// DataPoint is one row of an experiment's Data table.
type DataPoint struct {
	Date     string `json:"date"`
	City     string `json:"city"`
	Horizon  string `json:"horizon"`
	Forecast string `json:"forecast"`
	Actual   string `json:"actual"`
	Error    string `json:"error"`
}

// Experiment is one merged journal entry.
type Experiment struct {
	ID             string      `json:"id"`
	Title          string      `json:"title,omitempty"`
	Hypothesis     string      `json:"hypothesis"`
	Status         Status      `json:"status"`
	Result         string      `json:"result"`
	FullHypothesis string      `json:"fullHypothesis,omitempty"`
	TestCriteria   string      `json:"testCriteria,omitempty"`
	Timeline       string      `json:"timeline,omitempty"`
	Trades         []Trade     `json:"trades,omitempty"`
	Data           []DataPoint `json:"data,omitempty"`
	Learnings      string      `json:"learnings,omitempty"`
}

// Stats counts experiments per status.
type Stats struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Validated   int `json:"validated"`
	Invalidated int `json:"invalidated"`
}

// Report is the experiments panel payload.
type Report struct {
	Experiments []Experiment `json:"experiments"`
	Stats       Stats        `json:"stats"`
	LastUpdated string       `json:"lastUpdated,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// summaryRow holds the Summary table values for one experiment.
type summaryRow struct {
	hypothesis string
	status     string
	result     string
}

// Parse parses a journal document. Missing tables and blocks leave the
// corresponding fields empty; they never drop an experiment.
func Parse(content string) []Experiment {
	doc := split(content)
	summaries := parseSummary(doc.summary)

	experiments := make([]Experiment, 0, len(doc.sections))
	for _, sec := range doc.sections {
		experiments = append(experiments, merge(sec, summaries[sec.id]))
	}
	return experiments
}

// parseSummary indexes the Summary table by its id column. The table ends
// at the first horizontal rule.
func parseSummary(lines []line) map[string]summaryRow {
	var raw []string
	for _, l := range lines {
		if l.kind == kindRule {
			break
		}
		raw = append(raw, l.text)
	}

	index := make(map[string]summaryRow)
	for _, row := range parseTable(strings.Join(raw, "\n")) {
		id := row["id"]
		if id == "" {
			continue
		}
		index[id] = summaryRow{
			hypothesis: row["hypothesis"],
			status:     row["status"],
			result:     row["result"],
		}
	}
	return index
}

// merge combines a section with its Summary row. Summary values win for
// hypothesis, status and result; the section backfills whatever the
// summary lacks.
func merge(sec section, summary summaryRow) Experiment {
	blocks := extractBlocks(sec.lines)

	fullHypothesis := blocks[labelHypothesis]
	if fullHypothesis == "" {
		fullHypothesis = summary.hypothesis
	}

	hypothesis := summary.hypothesis
	if hypothesis == "" {
		hypothesis, _, _ = strings.Cut(fullHypothesis, "\n")
	}

	statusText := summary.status
	if statusText == "" {
		statusText = blocks[labelStatus]
	}

	result := summary.result
	if result == "" {
		result = defaultResult
	}

	exp := Experiment{
		ID:             sec.id,
		Title:          sec.title,
		Hypothesis:     strings.TrimSpace(hypothesis),
		Status:         NormalizeStatus(statusText),
		Result:         result,
		FullHypothesis: fullHypothesis,
		TestCriteria:   strings.ReplaceAll(blocks[labelCriteria], "\n-", "; -"),
		Timeline:       blocks[labelTimeline],
		Trades:         parseTrades(blocks[labelTrades]),
		Data:           parseData(blocks[labelData]),
	}

	if learnings := blocks[labelLearnings]; learnings != placeholderLearnings {
		exp.Learnings = learnings
	}

	return exp
}

func parseTrades(block string) []Trade {
	if block == "" {
		return nil
	}
	var trades []Trade
	for _, row := range parseTable(block) {
		pnl := row["p&l"]
		if pnl == "" {
			pnl = row["pnl"]
		}
		trades = append(trades, Trade{
			Date:     row["date"],
			Market:   row["market"],
			Position: row["position"],
			Entry:    row["entry"],
			Forecast: row["forecast"],
			Actual:   row["actual"],
			Result:   row["result"],
			PnL:      pnl,
		})
	}
	return trades
}

func parseData(block string) []DataPoint {
	if block == "" {
		return nil
	}
	var points []DataPoint
	for _, row := range parseTable(block) {
		points = append(points, DataPoint{
			Date:     row["date"],
			City:     row["city"],
			Horizon:  row["horizon"],
			Forecast: row["forecast"],
			Actual:   row["actual"],
			Error:    row["error"],
		})
	}
	return points
}

// Summarize counts experiments per status.
func Summarize(experiments []Experiment) Stats {
	stats := Stats{Total: len(experiments)}
	for _, e := range experiments {
		switch e.Status {
		case StatusActive:
			stats.Active++
		case StatusValidated:
			stats.Validated++
		case StatusInvalidated:
			stats.Invalidated++
		}
	}
	return stats
}

// Journal reads the experiment journal at a fixed path.
type Journal struct {
	path   string
	now    func() time.Time
	logger *slog.Logger
}

// New creates a journal reader for the file at path.
func New(path string, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{
		path:   path,
		now:    time.Now,
		logger: logger.With("component", "journal"),
	}
}

// Path returns the journal file location.
func (j *Journal) Path() string {
	return j.path
}

// Report reads and parses the journal. A read failure yields an empty
// report with Error set.
func (j *Journal) Report(ctx context.Context) Report {
	if err := ctx.Err(); err != nil {
		return Report{Experiments: []Experiment{}, Error: err.Error()}
	}

	data, err := os.ReadFile(j.path)
	if err != nil {
		j.logger.Warn("experiment journal unavailable", "path", j.path, "error", err)
		return Report{Experiments: []Experiment{}, Error: err.Error()}
	}

	experiments := Parse(string(data))
	return Report{
		Experiments: experiments,
		Stats:       Summarize(experiments),
		LastUpdated: j.now().UTC().Format(time.RFC3339),
	}
}
