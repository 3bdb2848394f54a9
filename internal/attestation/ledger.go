package attestation

import (
	"context"
	"log/slog"
	"os"
)

// Ledger reads the attestation log at a fixed path.
type Ledger struct {
	path   string
	logger *slog.Logger
}

// NewLedger creates a ledger reader for the file at path.
func NewLedger(path string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		path:   path,
		logger: logger.With("component", "attestation"),
	}
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// Records reads and parses the ledger.
func (l *Ledger) Records(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data)), nil
}

// Report reads the ledger and checks its chain. A read failure yields the
// empty report with Error set instead of an error.
func (l *Ledger) Report(ctx context.Context) ChainReport {
	records, err := l.Records(ctx)
	if err != nil {
		l.logger.Warn("attestation ledger unavailable", "path", l.path, "error", err)
		report := EmptyReport()
		report.Error = err.Error()
		return report
	}
	return Check(records)
}
