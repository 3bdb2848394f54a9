package logfeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// DateLayout is the zero-padded day stamp used in log file names. File names
// sort chronologically as plain strings only because of the padding.
const DateLayout = "2006-01-02"

const gzipSuffix = ".gz"

var (
	// ErrInvalidDate is returned when a requested day is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("date must be YYYY-MM-DD")
	// ErrNoLogFiles is returned when the log directory holds no log files.
	ErrNoLogFiles = errors.New("no log files found")
	// ErrLogDirUnavailable is returned when the log directory cannot be listed.
	ErrLogDirUnavailable = errors.New("log directory not accessible")
)

// File is the content of one log file.
type File struct {
	Name    string
	Content string
}

// Report is the log panel payload.
type Report struct {
	Entries []Entry `json:"entries"`
	File    string  `json:"file,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Source locates per-day log files named <prefix><date><suffix>, optionally
// gzip-compressed, in a single directory.
type Source struct {
	dir    string
	prefix string
	suffix string
	now    func() time.Time
	logger *slog.Logger
}

// NewSource creates a source for openclaw-<date>.log files in dir.
func NewSource(dir string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		dir:    dir,
		prefix: "openclaw-",
		suffix: ".log",
		now:    time.Now,
		logger: logger.With("component", "logfeed"),
	}
}

// WithClock returns a copy of the source that uses now for "today".
func (s *Source) WithClock(now func() time.Time) *Source {
	cp := *s
	cp.now = now
	return &cp
}

// Dir returns the log directory.
func (s *Source) Dir() string {
	return s.dir
}

// Today returns the current day stamp in local time.
func (s *Source) Today() string {
	return s.now().Format(DateLayout)
}

// FileName returns the uncompressed log file name for date.
func (s *Source) FileName(date string) string {
	return s.prefix + date + s.suffix
}

// ValidateDate reports whether date is a zero-padded calendar day.
func ValidateDate(date string) error {
	if len(date) != len(DateLayout) {
		return ErrInvalidDate
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// Open reads the log file for date. When neither the plain nor the gzip file
// exists it falls back to the lexicographically last log file in the directory.
func (s *Source) Open(ctx context.Context, date string) (*File, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := s.FileName(date)
	for _, candidate := range []string{name, name + gzipSuffix} {
		content, err := s.read(candidate)
		if err == nil {
			return &File{Name: candidate, Content: content}, nil
		}
	}

	latest, err := s.latest()
	if err != nil {
		return nil, err
	}
	s.logger.Debug("log file for date missing, using latest", "date", date, "file", latest)

	content, err := s.read(latest)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", latest, err)
	}
	return &File{Name: latest, Content: content}, nil
}

// OpenExact reads the log file for date without falling back to other days.
func (s *Source) OpenExact(ctx context.Context, date string) (*File, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := s.FileName(date)
	content, err := s.read(name)
	if err == nil {
		return &File{Name: name, Content: content}, nil
	}
	content, gzErr := s.read(name + gzipSuffix)
	if gzErr == nil {
		return &File{Name: name + gzipSuffix, Content: content}, nil
	}
	return nil, err
}

// Tail returns the newest limit entries for date. Missing files become an
// empty report with an advisory message.
func (s *Source) Tail(ctx context.Context, date string, limit int) Report {
	file, err := s.Open(ctx, date)
	if err != nil {
		s.logger.Warn("no log content", "date", date, "error", err)
		return Report{Entries: []Entry{}, Message: advisory(err)}
	}

	parser := NewParser(s.now)
	return Report{
		Entries: parser.Aggregate(file.Content, limit),
		File:    file.Name,
	}
}

func advisory(err error) string {
	switch {
	case errors.Is(err, ErrNoLogFiles):
		return "No log files found"
	case errors.Is(err, ErrLogDirUnavailable):
		return "Log directory not accessible"
	default:
		return err.Error()
	}
}

// latest returns the name of the lexicographically last log file.
func (s *Source) latest() (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLogDirUnavailable, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if s.matches(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", ErrNoLogFiles
	}

	sort.Strings(names)
	return names[len(names)-1], nil
}

func (s *Source) matches(name string) bool {
	if !strings.HasPrefix(name, s.prefix) {
		return false
	}
	return strings.HasSuffix(name, s.suffix) || strings.HasSuffix(name, s.suffix+gzipSuffix)
}

func (s *Source) read(name string) (string, error) {
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(name, gzipSuffix) {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return "", fmt.Errorf("opening gzip %s: %w", name, err)
		}
		defer zr.Close()
		r = zr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
