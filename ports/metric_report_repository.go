package ports

import (
	"context"

	"bizmetrics/domain/core"
	"bizmetrics/domain/metric"
)

// MetricReportRepository stores calculated metric reports for later retrieval
type MetricReportRepository interface {
	SaveReport(ctx context.Context, report *metric.StoredReport) error
	// GetReport returns core.ErrReportNotFound (wrapped) for unknown IDs
	GetReport(ctx context.Context, id core.ReportID) (*metric.StoredReport, error)
	ListReports(ctx context.Context, limit int) ([]*metric.StoredReport, error)
}
