package sheets

import (
	"context"

	"fintrack/internal/stats"
)

// Ports for outbound adapters.
type (
	// ReportExporter writes a statistics report somewhere outside the store
	// and returns a reference to what it wrote.
	ReportExporter interface {
		ExportReport(ctx context.Context, userID int64, q stats.Query, rep stats.Report) (ref string, err error)
	}
)
