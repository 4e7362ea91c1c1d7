package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"bizmetrics/domain/core"
	"bizmetrics/domain/metric"
	"bizmetrics/internal/errors"
	"bizmetrics/ports"

	"github.com/jmoiron/sqlx"
)

// MetricReportRepositoryImpl implements MetricReportRepository for PostgreSQL
type MetricReportRepositoryImpl struct {
	db *sqlx.DB
}

// NewMetricReportRepository creates a new PostgreSQL metric report repository
func NewMetricReportRepository(db *sqlx.DB) ports.MetricReportRepository {
	return &MetricReportRepositoryImpl{db: db}
}

type metricReportRow struct {
	ID          string    `db:"id"`
	Source      string    `db:"source"`
	Metrics     []byte    `db:"metrics"`
	Category    string    `db:"category"`
	Period      string    `db:"period"`
	Report      []byte    `db:"report"`
	Fingerprint string    `db:"fingerprint"`
	CreatedAt   time.Time `db:"created_at"`
}

const metricReportColumns = `id, source, metrics, category, period, report, fingerprint, created_at`

func toMetricReportRow(report *metric.StoredReport) (*metricReportRow, error) {
	names := report.Names
	if names == nil {
		names = []string{}
	}
	namesJSON, err := json.Marshal(names)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metric names: %w", err)
	}
	reportJSON, err := json.Marshal(report.Report)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return &metricReportRow{
		ID:          report.ID.String(),
		Source:      report.Source,
		Metrics:     namesJSON,
		Category:    string(report.Category),
		Period:      report.Period,
		Report:      reportJSON,
		Fingerprint: report.Fingerprint.String(),
		CreatedAt:   report.CreatedAt,
	}, nil
}

func (row *metricReportRow) toStoredReport() (*metric.StoredReport, error) {
	report := &metric.StoredReport{
		ID:          core.ReportID(row.ID),
		Source:      row.Source,
		Category:    metric.Category(row.Category),
		Period:      row.Period,
		Fingerprint: core.Hash(row.Fingerprint),
		CreatedAt:   row.CreatedAt,
	}
	if len(row.Metrics) > 0 {
		if err := json.Unmarshal(row.Metrics, &report.Names); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metric names: %w", err)
		}
	}
	if len(report.Names) == 0 {
		report.Names = nil
	}
	if err := json.Unmarshal(row.Report, &report.Report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return report, nil
}

// SaveReport inserts a report; re-saving the same ID replaces it
func (r *MetricReportRepositoryImpl) SaveReport(ctx context.Context, report *metric.StoredReport) error {
	row, err := toMetricReportRow(report)
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO metric_reports (`+metricReportColumns+`)
		VALUES (:id, :source, :metrics, :category, :period, :report, :fingerprint, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			source = EXCLUDED.source,
			metrics = EXCLUDED.metrics,
			category = EXCLUDED.category,
			period = EXCLUDED.period,
			report = EXCLUDED.report,
			fingerprint = EXCLUDED.fingerprint`, row)
	if err != nil {
		return errors.DatabaseError(err, "failed to save metric report %s", report.ID)
	}
	return nil
}

// GetReport retrieves a stored report by ID
func (r *MetricReportRepositoryImpl) GetReport(ctx context.Context, id core.ReportID) (*metric.StoredReport, error) {
	var row metricReportRow
	err := r.db.GetContext(ctx, &row, `SELECT `+metricReportColumns+` FROM metric_reports WHERE id = $1`, id.String())
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", core.ErrReportNotFound, id)
	}
	if err != nil {
		return nil, errors.DatabaseError(err, "failed to get metric report %s", id)
	}
	return row.toStoredReport()
}

// ListReports returns stored reports newest first
func (r *MetricReportRepositoryImpl) ListReports(ctx context.Context, limit int) ([]*metric.StoredReport, error) {
	query := `SELECT ` + metricReportColumns + ` FROM metric_reports ORDER BY created_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	var rows []metricReportRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.DatabaseError(err, "failed to list metric reports")
	}
	out := make([]*metric.StoredReport, 0, len(rows))
	for i := range rows {
		report, err := rows[i].toStoredReport()
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, nil
}
