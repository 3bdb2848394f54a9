package attestation

import (
	"sort"
	"strings"
)

// MaxReportedGaps bounds the gaps listed in a report. GapCount still counts
// every missing sequence.
const MaxReportedGaps = 1000

// ChainReport is the integrity verdict derived from a set of ledger records.
type ChainReport struct {
	Healthy bool `json:"healthy"`
	// ChainLength is the highest sequence number seen, not the record count.
	ChainLength       int     `json:"chainLength"`
	Gaps              []int   `json:"gaps"`
	GapCount          int     `json:"gapCount"`
	LastAttestationAt *string `json:"lastAttestationAt"`
	LastStatus        string  `json:"lastStatus"`
	LastSequence      *int    `json:"lastSequence,omitempty"`
	// Error is set when the ledger could not be read.
	Error string `json:"error,omitempty"`
}

// EmptyReport returns the report for a ledger with no valid records.
func EmptyReport() ChainReport {
	return ChainReport{
		Healthy:     false,
		ChainLength: 0,
		Gaps:        []int{},
		LastStatus:  unknownStatus,
	}
}

// Check computes the chain report for records in any order.
//
// The most recent record is chosen by parsed timestamp, not by sequence; ties
// resolve to the later record in input order.
func Check(records []Record) ChainReport {
	if len(records) == 0 {
		return EmptyReport()
	}

	sequences := make([]int, len(records))
	for i, rec := range records {
		sequences[i] = rec.Sequence
	}

	last := latest(records)
	gaps, missing := findGaps(sequences, MaxReportedGaps)
	timestamp := last.Timestamp
	sequence := last.Sequence

	return ChainReport{
		Healthy:           missing == 0 && strings.ToUpper(last.Status) == "PASS",
		ChainLength:       sequences[len(sequences)-1],
		Gaps:              gaps,
		GapCount:          missing,
		LastAttestationAt: &timestamp,
		LastStatus:        last.Status,
		LastSequence:      &sequence,
	}
}

// findGaps sorts sequences in place and returns up to max absent integers
// between the minimum and maximum, ascending, plus the total number absent.
// It walks the sorted values instead of scanning the whole range, so a
// corrupt sequence like #999999999999 costs no more than any other gap.
func findGaps(sequences []int, max int) ([]int, int) {
	sort.Ints(sequences)

	gaps := []int{}
	missing := 0
	for i := 1; i < len(sequences); i++ {
		prev, cur := sequences[i-1], sequences[i]
		if cur <= prev+1 {
			continue
		}
		missing += cur - prev - 1
		for next := prev + 1; next < cur && len(gaps) < max; next++ {
			gaps = append(gaps, next)
		}
	}
	return gaps, missing
}

func latest(records []Record) Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})
	return sorted[len(sorted)-1]
}
