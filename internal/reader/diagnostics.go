package reader

import (
	"sync"

	"github.com/intunewithnature/evtxkit/pkg/types"
)

// diagnosticCollector accumulates diagnostics while streaming. It is nil in
// normal mode (zero overhead) and only allocated when
// OpenOptions.CollectDiagnostics is true.
type diagnosticCollector struct {
	report *types.DiagnosticReport
	mu     sync.Mutex
}

func newDiagnosticCollector() *diagnosticCollector {
	return &diagnosticCollector{
		report: types.NewDiagnosticReport(),
	}
}

// record adds a diagnostic to the collection.
func (dc *diagnosticCollector) record(d types.Diagnostic) {
	if dc == nil {
		return // hot path: no-op when collector is nil
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.report.Add(d)
}

// getReport returns the diagnostic report, finalizing it first.
func (dc *diagnosticCollector) getReport() *types.DiagnosticReport {
	if dc == nil {
		return nil
	}
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.report.Finalize()
	return dc.report
}
