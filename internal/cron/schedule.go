package cron

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var weekdays = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Schedule is a described cron expression.
type Schedule struct {
	Description string
	// NextRun is nil when the expression is not a plain numeric
	// minute/hour schedule.
	NextRun *time.Time
}

// field is one parsed cron field. Wildcard is set for "*"; Value is only
// meaningful when Numeric is set.
type field struct {
	raw      string
	wildcard bool
	numeric  bool
	value    int
}

func parseField(raw string) field {
	f := field{raw: raw, wildcard: raw == "*"}
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
		f.numeric, f.value = true, n
	}
	return f
}

// ParseSchedule describes a five-field cron expression and computes its
// next run after now. Expressions with fewer than five fields are returned
// verbatim with no next run.
func ParseSchedule(expr string, now time.Time) Schedule {
	parts := strings.Fields(expr)
	if len(parts) < 5 {
		return Schedule{Description: expr}
	}

	minute, hour, dow := parseField(parts[0]), parseField(parts[1]), parseField(parts[4])

	return Schedule{
		Description: describe(expr, minute, hour, dow),
		NextRun:     nextRun(now, minute, hour, dow),
	}
}

func describe(expr string, minute, hour, dow field) string {
	var description string
	switch {
	case minute.wildcard && hour.wildcard:
		description = "Every minute"
	case !minute.wildcard && hour.wildcard:
		description = "Every hour at :" + minute.raw
	case !minute.wildcard && hour.numeric:
		period := "AM"
		if hour.value >= 12 {
			period = "PM"
		}
		display := hour.value
		switch {
		case display > 12:
			display -= 12
		case display == 0:
			display = 12
		}
		minuteText := minute.raw
		if minute.numeric {
			minuteText = fmt.Sprintf("%02d", minute.value)
		}
		description = fmt.Sprintf("Daily at %d:%s %s", display, minuteText, period)
	default:
		return expr
	}

	if !dow.wildcard {
		day := dow.raw
		if dow.numeric && dow.value < len(weekdays) {
			day = weekdays[dow.value]
		}
		description += " on " + day
	}
	return description
}

// nextRun finds the next local time matching the minute and hour fields,
// and the weekday when it is numeric. Non-numeric fields other than "*"
// yield nil.
func nextRun(now time.Time, minute, hour, dow field) *time.Time {
	if (!minute.wildcard && !minute.numeric) || (!hour.wildcard && !hour.numeric) {
		return nil
	}
	if minute.value > 59 || hour.value > 23 {
		return nil
	}

	base := now.Truncate(time.Minute)
	var next time.Time
	switch {
	case minute.wildcard && hour.wildcard:
		next = base.Add(time.Minute)
	case hour.wildcard:
		next = time.Date(base.Year(), base.Month(), base.Day(), base.Hour(), minute.value, 0, 0, base.Location())
		if !next.After(now) {
			next = next.Add(time.Hour)
		}
	default:
		m := minute.value
		if minute.wildcard {
			m = 0
		}
		next = time.Date(base.Year(), base.Month(), base.Day(), hour.value, m, 0, 0, base.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
	}

	if dow.numeric && dow.value < len(weekdays) && int(next.Weekday()) != dow.value {
		// Jump to the first slot of the next matching day.
		days := (dow.value - int(next.Weekday()) + 7) % 7
		h, m := 0, 0
		if hour.numeric {
			h = hour.value
		}
		if minute.numeric {
			m = minute.value
		}
		next = time.Date(next.Year(), next.Month(), next.Day()+days, h, m, 0, 0, next.Location())
	}

	return &next
}

var intervalPattern = regexp.MustCompile(`^(\d+)(s|m|h|d)$`)

// DefaultInterval applies when a heartbeat interval is missing or malformed.
const DefaultInterval = 30 * time.Minute

// ParseInterval parses a compact interval such as "45s", "30m", "2h" or
// "1d". Anything else yields DefaultInterval.
func ParseInterval(s string) time.Duration {
	m := intervalPattern.FindStringSubmatch(s)
	if m == nil {
		return DefaultInterval
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return DefaultInterval
	}

	unit := map[string]time.Duration{
		"s": time.Second,
		"m": time.Minute,
		"h": time.Hour,
		"d": 24 * time.Hour,
	}[m[2]]
	return time.Duration(n) * unit
}
