package types

import (
	"fmt"
	"sort"
)

// -----------------------------------------------------------------------------
// Diagnostic system
// -----------------------------------------------------------------------------
//
// Skipped chunks and records are invisible in the event stream itself; the
// diagnostic system records what was dropped and why, with exact byte
// offsets. Collection is opt-in via OpenOptions.CollectDiagnostics so the
// hot path carries no overhead; the Stats counters are always maintained.

// Severity classifies how serious a diagnostic issue is.
type Severity int

const (
	SevInfo    Severity = iota // unusual but harmless (empty chunk in the middle of a file)
	SevWarning                 // items dropped, stream continued
	SevError                   // enumeration of a region stopped early
)

// String implements the Stringer interface for Severity.
func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Diagnostic represents a single issue found while streaming.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	// Offset is the absolute file offset of the affected structure.
	Offset uint64 `json:"offset"`
	// Structure names the affected structure ("chunk", "record", "binxml").
	Structure string `json:"structure"`
	// Issue is a human-readable description of what failed.
	Issue string `json:"issue"`
	// Err is the underlying error, when one exists.
	Err error `json:"-"`
}

// DiagnosticReport collects all diagnostics recorded during a stream.
type DiagnosticReport struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
	Summary     DiagSummary  `json:"summary"`

	// ByStructure groups diagnostics for efficient querying.
	ByStructure map[string][]Diagnostic `json:"by_structure,omitempty"`
}

// DiagSummary provides quick statistics.
type DiagSummary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// NewDiagnosticReport creates an empty report.
func NewDiagnosticReport() *DiagnosticReport {
	return &DiagnosticReport{
		ByStructure: make(map[string][]Diagnostic),
	}
}

// Add adds a diagnostic to the report and updates indices.
func (r *DiagnosticReport) Add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
	switch d.Severity {
	case SevError:
		r.Summary.Errors++
	case SevWarning:
		r.Summary.Warnings++
	case SevInfo:
		r.Summary.Info++
	}
	r.ByStructure[d.Structure] = append(r.ByStructure[d.Structure], d)
}

// Finalize sorts diagnostics by offset for sequential access patterns.
func (r *DiagnosticReport) Finalize() {
	sort.SliceStable(r.Diagnostics, func(i, j int) bool {
		return r.Diagnostics[i].Offset < r.Diagnostics[j].Offset
	})
}

// HasErrors returns true if any error-severity issues were found.
func (r *DiagnosticReport) HasErrors() bool {
	return r.Summary.Errors > 0
}
