// Package attestation parses the attestation ledger and checks the integrity
// of its sequence chain.
package attestation

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	fieldSeparator = "|"
	minFields      = 3
	unknownStatus  = "UNKNOWN"
)

var sequencePattern = regexp.MustCompile(`#(\d+)`)

// timestampLayouts are tried in order when parsing a ledger timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Record is one entry of the attestation ledger.
type Record struct {
	Timestamp string    `json:"timestamp"`
	Time      time.Time `json:"-"`
	Sequence  int       `json:"sequence"`
	Status    string    `json:"status"`
	Raw       string    `json:"raw"`
}

// ParseLine parses one ledger line of the form
// "<timestamp> | #<sequence> | <status>". It reports false when the line has
// too few fields, an empty or unparseable timestamp, or no valid sequence.
func ParseLine(line string) (Record, bool) {
	parts := strings.Split(line, fieldSeparator)
	if len(parts) < minFields {
		return Record{}, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	timestamp := parts[0]
	if timestamp == "" {
		return Record{}, false
	}
	ts, ok := ParseTimestamp(timestamp)
	if !ok {
		return Record{}, false
	}

	match := sequencePattern.FindStringSubmatch(parts[1])
	if match == nil {
		return Record{}, false
	}
	sequence, err := strconv.Atoi(match[1])
	if err != nil {
		return Record{}, false
	}

	status := parts[2]
	if status == "" {
		status = unknownStatus
	}

	return Record{
		Timestamp: timestamp,
		Time:      ts,
		Sequence:  sequence,
		Status:    status,
		Raw:       line,
	}, true
}

// ParseTimestamp parses a ledger timestamp. Values without a zone are UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Parse parses ledger content, silently dropping blank and malformed lines.
func Parse(content string) []Record {
	var records []Record
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if rec, ok := ParseLine(line); ok {
			records = append(records, rec)
		}
	}
	return records
}
