package journal

import (
	"regexp"
	"strings"
)

// lineKind classifies one line of the journal.
type lineKind int

const (
	kindProse lineKind = iota
	kindBlank
	kindHeading
	kindRule
	kindLabel
	kindBold
)

var (
	headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	sectionPattern = regexp.MustCompile(`^(EXP-\d+):(.*)$`)
	labelPattern   = regexp.MustCompile(`^\*\*([^*]+):\*\*(.*)$`)
	rulePattern    = regexp.MustCompile(`^-{3,}$`)
)

// line is a classified journal line.
type line struct {
	kind  lineKind
	text  string
	level int    // heading level
	title string // heading text
	label string // label name, without the colon
	rest  string // text after a label on the same line
}

func classify(raw string) line {
	l := line{kind: kindProse, text: raw}
	trimmed := strings.TrimSpace(raw)

	switch {
	case trimmed == "":
		l.kind = kindBlank
	case rulePattern.MatchString(trimmed):
		l.kind = kindRule
	case strings.HasPrefix(raw, "#"):
		if m := headingPattern.FindStringSubmatch(trimmed); m != nil {
			l.kind = kindHeading
			l.level = len(m[1])
			l.title = strings.TrimSpace(m[2])
		}
	case strings.HasPrefix(raw, "**"):
		l.kind = kindBold
		if m := labelPattern.FindStringSubmatch(raw); m != nil {
			l.kind = kindLabel
			l.label = strings.TrimSpace(m[1])
			l.rest = strings.TrimSpace(m[2])
		}
	}
	return l
}

// section is the body of one "## EXP-nnn: title" section.
type section struct {
	id    string
	title string
	lines []line
}

// document is the journal split into its summary and experiment sections.
type document struct {
	summary  []line
	sections []section
}

// split walks the journal once. A level one or two heading always ends the
// current section; "## Summary" opens the summary and "## EXP-nnn:" opens
// an experiment section.
func split(content string) document {
	var (
		doc       document
		inSummary bool
		current   *section
	)

	flush := func() {
		if current != nil {
			doc.sections = append(doc.sections, *current)
			current = nil
		}
	}

	for _, raw := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		l := classify(raw)

		if l.kind == kindHeading && l.level <= 2 {
			flush()
			inSummary = false
			if l.level != 2 {
				continue
			}
			if l.title == "Summary" {
				inSummary = true
				continue
			}
			if m := sectionPattern.FindStringSubmatch(l.title); m != nil {
				current = &section{id: m[1], title: strings.TrimSpace(m[2])}
			}
			continue
		}

		switch {
		case current != nil:
			current.lines = append(current.lines, l)
		case inSummary:
			doc.summary = append(doc.summary, l)
		}
	}
	flush()

	return doc
}

// Block labels recognized inside an experiment section.
const (
	labelHypothesis = "Hypothesis"
	labelStatus     = "Status"
	labelCriteria   = "Success Criteria"
	labelTimeline   = "Timeline"
	labelTrades     = "Trades"
	labelData       = "Data"
	labelLearnings  = "Learnings"
)

// singleLine labels take one value: the rest of the label line, or the
// next non-blank line when the label stands alone.
var singleLine = map[string]bool{
	labelStatus:   true,
	labelTimeline: true,
}

var knownLabels = map[string]bool{
	labelHypothesis: true,
	labelStatus:     true,
	labelCriteria:   true,
	labelTimeline:   true,
	labelTrades:     true,
	labelData:       true,
	labelLearnings:  true,
}

// ends reports whether l closes a block opened by label.
//
// Every block ends at a heading or a horizontal rule. All blocks except
// Learnings also end at any line that starts with bold text, so a label
// name must not start a line inside another block's body.
func ends(label string, l line) bool {
	switch l.kind {
	case kindHeading, kindRule:
		return true
	case kindLabel, kindBold:
		return label != labelLearnings
	}
	return false
}

// extractBlocks returns the text of each labeled block in a section, keyed
// by label. When a label occurs more than once the first occurrence wins.
func extractBlocks(lines []line) map[string]string {
	blocks := make(map[string]string)

	var (
		open  string
		body  []string
		await bool // single-line label waiting for its value line
	)

	closeBlock := func() {
		if open == "" {
			return
		}
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if _, seen := blocks[open]; !seen && text != "" {
			blocks[open] = text
		}
		open, body, await = "", nil, false
	}

	for _, l := range lines {
		if open != "" && ends(open, l) {
			closeBlock()
		}

		if open == "" {
			if l.kind != kindLabel || !knownLabels[l.label] {
				continue
			}
			open = l.label
			if singleLine[open] {
				if l.rest != "" {
					body = []string{l.rest}
					closeBlock()
				} else {
					await = true
				}
				continue
			}
			if l.rest != "" {
				body = append(body, l.rest)
			}
			continue
		}

		if await {
			if l.kind == kindBlank {
				continue
			}
			body = []string{strings.TrimSpace(l.text)}
			closeBlock()
			continue
		}

		body = append(body, l.text)
	}
	closeBlock()

	return blocks
}
