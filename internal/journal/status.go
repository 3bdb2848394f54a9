package journal

import "strings"

// Status is the normalized state of an experiment.
type Status string

const (
	StatusActive      Status = "active"
	StatusValidated   Status = "validated"
	StatusInvalidated Status = "invalidated"
	StatusPending     Status = "pending"
)

// NormalizeStatus maps free status text to a Status. Symbols and keywords
// are checked in order: active, invalidated, validated. Anything else is
// pending.
func NormalizeStatus(text string) Status {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(text, "🔬") || strings.Contains(lower, "active"):
		return StatusActive
	case strings.Contains(text, "❌") || strings.Contains(lower, "invalidated"):
		return StatusInvalidated
	case strings.Contains(text, "✅") || strings.Contains(lower, "validated"):
		return StatusValidated
	default:
		return StatusPending
	}
}
