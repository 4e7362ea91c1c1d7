package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bizmetrics/domain/core"
	"bizmetrics/domain/metric"
	"bizmetrics/ports"
)

// MetricReportRepositoryImpl stores metric reports in memory
type MetricReportRepositoryImpl struct {
	mu      sync.RWMutex
	reports map[core.ReportID]*metric.StoredReport
}

// NewMetricReportRepository creates an empty in-memory report repository
func NewMetricReportRepository() ports.MetricReportRepository {
	return &MetricReportRepositoryImpl{reports: make(map[core.ReportID]*metric.StoredReport)}
}

func (r *MetricReportRepositoryImpl) SaveReport(ctx context.Context, report *metric.StoredReport) error {
	if report == nil || report.ID.String() == "" {
		return core.NewInvalidInputError("report", "id is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *report
	c.Names = append([]string(nil), report.Names...)
	r.reports[report.ID] = &c
	return nil
}

func (r *MetricReportRepositoryImpl) GetReport(ctx context.Context, id core.ReportID) (*metric.StoredReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.reports[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrReportNotFound, id)
	}
	c := *report
	return &c, nil
}

func (r *MetricReportRepositoryImpl) ListReports(ctx context.Context, limit int) ([]*metric.StoredReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]*metric.StoredReport, 0, len(r.reports))
	for _, report := range r.reports {
		c := *report
		out = append(out, &c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
