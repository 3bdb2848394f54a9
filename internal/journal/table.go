package journal

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// tableMarkdown only needs GFM tables; goldmark parsers are safe to share.
var tableMarkdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// parseTable parses the first pipe table in markdown. Header cells are
// lowercased and become the keys of every row; cells past the header width
// are ignored and missing cells are empty strings.
func parseTable(markdown string) []map[string]string {
	source := []byte(normalizeDelimiter(markdown))
	doc := tableMarkdown.Parser().Parse(text.NewReader(source))

	table := findTable(doc)
	if table == nil {
		return nil
	}

	var (
		headers []string
		rows    []map[string]string
	)
	for child := table.FirstChild(); child != nil; child = child.NextSibling() {
		switch child.(type) {
		case *extast.TableHeader:
			for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
				headers = append(headers, strings.ToLower(cellText(cell, source)))
			}
		case *extast.TableRow:
			row := make(map[string]string, len(headers))
			for _, h := range headers {
				if h != "" {
					row[h] = ""
				}
			}
			i := 0
			for cell := child.FirstChild(); cell != nil && i < len(headers); cell = cell.NextSibling() {
				if headers[i] != "" {
					row[headers[i]] = cellText(cell, source)
				}
				i++
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func findTable(doc ast.Node) *extast.Table {
	var table *extast.Table
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := n.(*extast.Table); ok {
			table = t
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return table
}

// cellText returns the raw source of a table cell, so links, autolinks and
// inline HTML keep their markup. Escaped pipes are unescaped.
func cellText(cell ast.Node, source []byte) string {
	var b strings.Builder
	lines := cell.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimSpace(strings.ReplaceAll(b.String(), `\|`, "|"))
}

// normalizeDelimiter rewrites the first separator row to the width of the
// header row above it. GFM rejects a table whose separator width differs
// from the header.
func normalizeDelimiter(markdown string) string {
	lines := strings.Split(markdown, "\n")
	for i := 1; i < len(lines); i++ {
		if !isDelimiterRow(lines[i]) || !strings.Contains(lines[i-1], "|") {
			continue
		}
		width := countCells(lines[i-1])
		if width == 0 || countCells(lines[i]) == width {
			return markdown
		}
		lines[i] = "|" + strings.Repeat("---|", width)
		return strings.Join(lines, "\n")
	}
	return markdown
}

func isDelimiterRow(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.Contains(line, "-") || !strings.Contains(line, "|") {
		return false
	}
	for _, r := range line {
		switch r {
		case '|', '-', ':', ' ', '\t':
		default:
			return false
		}
	}
	return true
}

// countCells counts the cells of a pipe row with outer pipes stripped.
func countCells(line string) int {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, "|")
	if strings.HasSuffix(line, "|") && !strings.HasSuffix(line, `\|`) {
		line = line[:len(line)-1]
	}
	if line == "" {
		return 0
	}
	n := 1
	for i := 0; i < len(line); i++ {
		if line[i] == '|' && (i == 0 || line[i-1] != '\\') {
			n++
		}
	}
	return n
}
