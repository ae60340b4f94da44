package memory

import (
	"context"
	"fmt"
	"sync"

	ports "fintrack/internal/sheets"
	"fintrack/internal/stats"
)

// Exporter keeps exported rows in memory. Used when no spreadsheet is
// configured and in tests.
type Exporter struct {
	mu      sync.Mutex
	exports int
	rows    [][]string
}

var _ ports.ReportExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// ExportReport stores the rows and returns a synthetic reference.
func (e *Exporter) ExportReport(_ context.Context, userID int64, q stats.Query, rep stats.Report) (string, error) {
	rows := ports.Rows(userID, q, rep)
	e.mu.Lock()
	defer e.mu.Unlock()
	start := len(e.rows) + 1
	e.rows = append(e.rows, rows...)
	e.exports++
	return fmt.Sprintf("mem:%d-%d", start, len(e.rows)), nil
}

// Rows returns a copy of everything exported so far.
func (e *Exporter) Rows() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]string, len(e.rows))
	for i, r := range e.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Exports returns how many reports were exported.
func (e *Exporter) Exports() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exports
}
