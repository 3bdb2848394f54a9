package logfeed

import "strings"

// Aggregate returns up to limit entries from newline-delimited content,
// most recent first. Lines are scanned from the end so only the tail of the
// file is decoded when limit is small. Undecodable and suppressed lines do
// not count against the limit.
func (p *Parser) Aggregate(content string, limit int) []Entry {
	entries := []Entry{}
	if limit <= 0 {
		return entries
	}

	lines := strings.Split(strings.TrimSpace(content), "\n")
	for i := len(lines) - 1; i >= 0 && len(entries) < limit; i-- {
		if entry, ok := p.ParseLine(lines[i], i); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}
