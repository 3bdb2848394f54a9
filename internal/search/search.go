// Package search runs case-insensitive text search over the agent
// workspace.
package search

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
)

const (
	// MinQueryLength is the shortest query that triggers a search.
	MinQueryLength = 2
	// DefaultLimit caps results when the caller gives no limit.
	DefaultLimit = 20
	// DefaultMaxFileSize skips files larger than 1 MiB.
	DefaultMaxFileSize = 1 << 20

	maxMatchesPerFile = 5
	maxContentRunes   = 200
)

// ErrQueryTooShort is returned for queries under MinQueryLength runes.
var ErrQueryTooShort = errors.New("query too short")

var (
	skipDirs   = map[string]bool{"node_modules": true, ".git": true, "mission-control": true}
	searchable = map[string]bool{".md": true, ".txt": true, ".json": true}
)

// Highlight is a half-open rune range of a match within a line.
type Highlight struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Match is one matching line.
type Match struct {
	Line      int         `json:"line"`
	Content   string      `json:"content"`
	Highlight []Highlight `json:"highlight"`
}

// Result is one matching file.
type Result struct {
	ID           string  `json:"id"`
	File         string  `json:"file"`
	RelativePath string  `json:"relativePath"`
	Matches      []Match `json:"matches"`
	Score        int     `json:"score"`
}

// Searcher searches the files under a root directory.
type Searcher struct {
	root        string
	maxFileSize int64
	logger      *slog.Logger
}

// New creates a searcher rooted at root. A non-positive maxFileSize uses
// DefaultMaxFileSize.
func New(root string, maxFileSize int64, logger *slog.Logger) *Searcher {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{
		root:        root,
		maxFileSize: maxFileSize,
		logger:      logger.With("component", "search"),
	}
}

// Search returns up to limit files containing query, best score first.
// Unreadable directories and files are skipped.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if len([]rune(query)) < MinQueryLength {
		return []Result{}, ErrQueryTooShort
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	results := []Result{}

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.logger.Debug("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if skipDirs[d.Name()] && path != s.root {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !searchable[filepath.Ext(d.Name())] {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > s.maxFileSize {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}

		matches := FindMatches(string(data), query)
		if len(matches) == 0 {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			rel = path
		}
		results = append(results, Result{
			ID:           path,
			File:         path,
			RelativePath: rel,
			Matches:      matches,
			Score:        len(matches),
		})
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b Result) int {
		return b.Score - a.Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// FindMatches returns the first five lines of content containing query,
// ignoring case. Highlights cover every occurrence, overlapping ones
// included.
func FindMatches(content, query string) []Match {
	needle := lowerRunes(query)
	var matches []Match
	for i, line := range strings.Split(content, "\n") {
		highlights := occurrences(lowerRunes(line), needle)
		if len(highlights) == 0 {
			continue
		}
		matches = append(matches, Match{
			Line:      i + 1,
			Content:   truncate(line, maxContentRunes),
			Highlight: highlights,
		})
		if len(matches) == maxMatchesPerFile {
			break
		}
	}
	return matches
}

func occurrences(haystack, needle []rune) []Highlight {
	if len(needle) == 0 {
		return nil
	}
	var out []Highlight
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if slices.Equal(haystack[i:i+len(needle)], needle) {
			out = append(out, Highlight{Start: i, End: i + len(needle)})
		}
	}
	return out
}

// lowerRunes lowercases rune by rune so that offsets stay aligned with
// the original line.
func lowerRunes(s string) []rune {
	runes := []rune(s)
	for i, r := range runes {
		runes[i] = unicode.ToLower(r)
	}
	return runes
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
