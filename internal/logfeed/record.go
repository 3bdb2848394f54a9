// Package logfeed parses the agent runtime's JSON-per-line logs and selects
// the most recent entries for display.
package logfeed

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/valyala/fastjson"
)

const (
	// MaxMessageLength bounds the message text of an entry, in runes.
	MaxMessageLength = 500
	// MaxSubsystemLength bounds a raw-string subsystem label, in runes.
	MaxSubsystemLength = 50

	defaultLevel     = "INFO"
	defaultSubsystem = "system"
)

// debugAllowList holds the substrings that keep a DEBUG entry visible.
var debugAllowList = []string{"tool", "session"}

// Entry is one structured log record prepared for display.
type Entry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Subsystem string `json:"subsystem"`
	Message   string `json:"message"`
	Type      string `json:"type"`
}

// carrierKind tags how a subsystem carrier field was decoded.
type carrierKind int

const (
	carrierAbsent carrierKind = iota
	carrierStructured
	carrierRaw
)

// subsystemCarrier is the result of the two-stage decode of the subsystem
// field: a string that may itself hold a JSON document.
type subsystemCarrier struct {
	kind  carrierKind
	value *fastjson.Value
	raw   string
}

// label returns the subsystem name the carrier yields.
func (c subsystemCarrier) label() string {
	switch c.kind {
	case carrierStructured:
		if c.value.Type() != fastjson.TypeObject {
			return defaultSubsystem
		}
		for _, key := range []string{"subsystem", "module"} {
			if s := c.value.GetStringBytes(key); len(s) > 0 {
				return string(s)
			}
		}
		return defaultSubsystem
	case carrierRaw:
		return truncate(c.raw, MaxSubsystemLength)
	default:
		return defaultSubsystem
	}
}

// Parser decodes log lines. A Parser is not safe for concurrent use; the
// zero value is ready to use.
type Parser struct {
	line   fastjson.Parser
	nested fastjson.Parser
	now    func() time.Time
}

// NewParser returns a Parser whose fallback timestamp comes from now.
func NewParser(now func() time.Time) *Parser {
	return &Parser{now: now}
}

// ParseLine decodes one log line. index is the line's position in its file
// and feeds the entry ID. It reports false for lines that are not JSON and
// for DEBUG entries outside the allow-list.
func (p *Parser) ParseLine(line string, index int) (Entry, bool) {
	data, err := p.line.Parse(line)
	if err != nil {
		return Entry{}, false
	}
	if data.Type() != fastjson.TypeObject {
		return Entry{}, false
	}

	meta := data.Get("_meta")

	timestamp := firstString(data.Get("time"), meta.Get("date"))
	if timestamp == "" {
		timestamp = p.clock().UTC().Format(time.RFC3339Nano)
	}

	level := firstString(meta.Get("logLevelName"))
	if level == "" {
		level = defaultLevel
	}

	message := coerceMessage(data.Get("1"), data.Get("2"))
	if level == "DEBUG" && !containsAny(message, debugAllowList) {
		return Entry{}, false
	}

	return Entry{
		ID:        fmt.Sprintf("%s-%d", timestamp, index),
		Timestamp: timestamp,
		Level:     level,
		Subsystem: p.decodeCarrier(data.Get("0"), meta.Get("name")).label(),
		Message:   truncate(message, MaxMessageLength),
		Type:      entryType(level),
	}, true
}

func (p *Parser) clock() time.Time {
	if p.now != nil {
		return p.now()
	}
	return time.Now()
}

// decodeCarrier picks the first truthy candidate and, when it is a string,
// attempts to decode it as JSON before falling back to the raw text.
func (p *Parser) decodeCarrier(candidates ...*fastjson.Value) subsystemCarrier {
	var field *fastjson.Value
	for _, c := range candidates {
		if truthy(c) {
			field = c
			break
		}
	}
	if field == nil || field.Type() != fastjson.TypeString {
		return subsystemCarrier{kind: carrierAbsent}
	}

	raw := string(field.GetStringBytes())
	if nested, err := p.nested.Parse(raw); err == nil {
		return subsystemCarrier{kind: carrierStructured, value: nested}
	}
	return subsystemCarrier{kind: carrierRaw, raw: raw}
}

// coerceMessage returns the first truthy candidate as text. Strings are used
// as-is; any other JSON value is rendered in its compact JSON form.
func coerceMessage(candidates ...*fastjson.Value) string {
	for _, c := range candidates {
		if !truthy(c) {
			continue
		}
		if c.Type() == fastjson.TypeString {
			return string(c.GetStringBytes())
		}
		return c.String()
	}
	return ""
}

func firstString(candidates ...*fastjson.Value) string {
	for _, c := range candidates {
		if c != nil && c.Type() == fastjson.TypeString {
			if s := c.GetStringBytes(); len(s) > 0 {
				return string(s)
			}
		}
	}
	return ""
}

// truthy reports whether v is present and not null, false, 0 or "".
func truthy(v *fastjson.Value) bool {
	if v == nil {
		return false
	}
	switch v.Type() {
	case fastjson.TypeNull, fastjson.TypeFalse:
		return false
	case fastjson.TypeString:
		return len(v.GetStringBytes()) > 0
	case fastjson.TypeNumber:
		f, err := v.Float64()
		return err == nil && f != 0
	default:
		return true
	}
}

func entryType(level string) string {
	switch level {
	case "ERROR":
		return "error"
	case "WARN":
		return "warn"
	case "DEBUG":
		return "debug"
	default:
		return "info"
	}
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
