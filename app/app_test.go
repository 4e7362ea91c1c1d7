package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"bizmetrics/adapters/excel"
	"bizmetrics/adapters/memory"
	"bizmetrics/domain/core"
	"bizmetrics/domain/dataset"
	"bizmetrics/domain/experiment"
	"bizmetrics/domain/metric"
	"bizmetrics/internal"
	abtest "bizmetrics/internal/experiment"
	"bizmetrics/internal/metrics"
	"bizmetrics/internal/timeseries"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

const ordersCSV = `date,amount,status,customer_id,product
2024-01-05,100,paid,1,Pro
2024-01-20,50,refunded,2,Basic
2024-02-03,150,paid,2,Basic
2024-02-10,250,completed,3,Pro
`

func quietLogger() *internal.Logger {
	return internal.NewLogger(internal.LogLevelError)
}

func readOrders(t *testing.T) *dataset.Dataset {
	t.Helper()
	reader := excel.NewDataReader(excel.DefaultReaderConfig(), quietLogger())
	ds, err := reader.Read(context.Background(), "orders.csv", strings.NewReader(ordersCSV))
	require.NoError(t, err)
	return ds
}

func newMetricsService(withRepo bool) *MetricsService {
	clock := core.FixedClock{At: testNow}
	engine := metrics.NewEngine(metrics.DefaultRegistry(), clock, quietLogger())
	reader := excel.NewDataReader(excel.DefaultReaderConfig(), quietLogger())
	var repo = memory.NewMetricReportRepository()
	if !withRepo {
		repo = nil
	}
	return NewMetricsService(engine, reader, repo, clock, quietLogger(), metric.Options{LifespanMonths: 24})
}

func TestMetricsService_CalculateUpload(t *testing.T) {
	svc := newMetricsService(true)
	ctx := context.Background()

	stored, err := svc.CalculateUpload(ctx, "uploads/orders.csv", strings.NewReader(ordersCSV), CalculateRequest{
		Names:   []string{"total_revenue", "revenue_growth", "cac"},
		Options: metric.Options{Period: "month"},
		Persist: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "orders.csv", stored.Source)
	assert.Equal(t, "month", stored.Period)
	assert.Equal(t, testNow, stored.CreatedAt)
	assert.False(t, stored.Fingerprint.IsEmpty())

	total, ok := stored.Report.Result("total_revenue")
	require.True(t, ok)
	assert.Equal(t, 500.0, total.Value.OrElse(0))

	growth, ok := stored.Report.Result("revenue_growth")
	require.True(t, ok)
	assert.Equal(t, 300.0, growth.Value.OrElse(0))

	cac, ok := stored.Report.Error("cac")
	require.True(t, ok)
	assert.Equal(t, metrics.CodeMissingColumns, cac.Code)

	loaded, err := svc.GetReport(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Fingerprint, loaded.Fingerprint)

	list, err := svc.ListReports(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	md := svc.Markdown(stored)
	assert.Contains(t, md, "# Metrics report: orders.csv")
	assert.Contains(t, md, "$500.00")
}

func TestMetricsService_NoPersistenceWithoutRepository(t *testing.T) {
	svc := newMetricsService(false)
	ctx := context.Background()

	stored, err := svc.Calculate(ctx, readOrders(t), CalculateRequest{Category: metric.CategoryRevenue, Persist: true})
	require.NoError(t, err)
	assert.Equal(t, metric.PeriodAll, stored.Period)

	_, err = svc.GetReport(ctx, stored.ID)
	assert.True(t, core.IsNotFoundError(err))
	list, err := svc.ListReports(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMetricsService_DeterministicFingerprint(t *testing.T) {
	svc := newMetricsService(false)
	ds := readOrders(t)
	req := CalculateRequest{Names: []string{"total_revenue", "average_order_value"}}

	a, err := svc.Calculate(context.Background(), ds, req)
	require.NoError(t, err)
	b, err := svc.Calculate(context.Background(), ds, req)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint, b.Fingerprint)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestMetricsService_Available(t *testing.T) {
	svc := newMetricsService(false)
	available := svc.Available()
	assert.Len(t, available, 3)
	total := 0
	for _, defs := range available {
		total += len(defs)
	}
	assert.Equal(t, 20, total)

	_, err := svc.ListMetrics("sales")
	assert.Error(t, err)
}

func TestMetricsService_RejectsBadPeriod(t *testing.T) {
	svc := newMetricsService(false)
	_, err := svc.Calculate(context.Background(), readOrders(t), CalculateRequest{Options: metric.Options{Period: "fortnight"}})
	assert.True(t, core.IsInvalidInputError(err))
}

func newExperimentService() *ExperimentService {
	return NewExperimentService(memory.NewExperimentRepository(), core.FixedClock{At: testNow}, quietLogger(), abtest.DefaultOptions())
}

func checkoutVariants() []experiment.VariantResult {
	return []experiment.VariantResult{
		{Name: "control", IsControl: true, Users: 10000, Conversions: 1000},
		{Name: "green", Users: 10000, Conversions: 1200},
	}
}

func TestExperimentService_Lifecycle(t *testing.T) {
	svc := newExperimentService()
	ctx := context.Background()
	mde := 0.05

	exp, err := svc.Create(ctx, CreateExperimentRequest{
		Name:                    "  Checkout button ",
		Hypothesis:              "green converts better",
		MinimumDetectableEffect: &mde,
	})
	require.NoError(t, err)
	assert.Equal(t, "Checkout button", exp.Name)
	assert.Equal(t, experiment.StatusDraft, exp.Status)
	assert.Equal(t, 0.05, exp.SignificanceLevel)
	assert.Equal(t, 0.95, exp.ConfidenceLevel)
	assert.Equal(t, testNow, exp.CreatedAt)

	analyzed, err := svc.SubmitResults(ctx, exp.ID, checkoutVariants())
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusAnalyzed, analyzed.Status)
	require.Len(t, analyzed.Summaries, 1)
	assert.Equal(t, experiment.DecisionShipVariant, analyzed.Summaries[0].Decision)

	// a re-submission replaces the previous analysis
	flat := []experiment.VariantResult{
		{Name: "control", IsControl: true, Users: 10000, Conversions: 1000},
		{Name: "green", Users: 10000, Conversions: 1005},
	}
	again, err := svc.SubmitResults(ctx, exp.ID, flat)
	require.NoError(t, err)
	require.Len(t, again.Summaries, 1)
	assert.Equal(t, experiment.DecisionInconclusive, again.Summaries[0].Decision)

	stored, err := svc.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1005), stored.Variants[1].Conversions)

	md, err := svc.Report(ctx, exp.ID)
	require.NoError(t, err)
	assert.Contains(t, md, "## green vs control: inconclusive")

	page, err := svc.ReportHTML(ctx, exp.ID)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<title>Experiment: Checkout button</title>")
}

func TestExperimentService_InvalidResultsKeepStoredState(t *testing.T) {
	svc := newExperimentService()
	ctx := context.Background()
	exp, err := svc.Create(ctx, CreateExperimentRequest{Name: "pricing"})
	require.NoError(t, err)

	_, err = svc.SubmitResults(ctx, exp.ID, []experiment.VariantResult{
		{Name: "control", IsControl: true, Users: 100, Conversions: 150},
		{Name: "b", Users: 100, Conversions: 10},
	})
	require.Error(t, err)
	assert.True(t, core.IsInvalidInputError(err))

	stored, err := svc.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusDraft, stored.Status)
	assert.Empty(t, stored.Variants)
}

func TestExperimentService_CreateValidation(t *testing.T) {
	svc := newExperimentService()
	ctx := context.Background()
	negative := -0.1

	tests := []CreateExperimentRequest{
		{Name: " "},
		{Name: "x", SignificanceLevel: 1.5},
		{Name: "x", ConfidenceLevel: -0.2},
		{Name: "x", MinimumDetectableEffect: &negative},
	}
	for _, req := range tests {
		_, err := svc.Create(ctx, req)
		assert.True(t, core.IsInvalidInputError(err), "%+v", req)
	}

	_, err := svc.SubmitResults(ctx, core.NewExperimentID(), checkoutVariants())
	assert.ErrorIs(t, err, core.ErrExperimentNotFound)
}

func TestExperimentService_StatelessAnalyze(t *testing.T) {
	svc := newExperimentService()
	summaries, err := svc.Analyze(AnalyzeRequest{Variants: checkoutVariants(), ConfidenceLevel: 0.99})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 0.99, summaries[0].ConfidenceLevel)

	list, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, list, "stateless analysis stores nothing")
}

func TestTimeSeriesService_Trend(t *testing.T) {
	svc := NewTimeSeriesService(nil, timeseries.DefaultTrendOptions(), quietLogger())

	window := 3
	res, err := svc.Trend([]float64{10, 12, 14, 16, 18, 20}, TrendOverrides{Window: &window})
	require.NoError(t, err)
	assert.Len(t, res.Points, 6)
	assert.Equal(t, timeseries.DirectionUp, res.Trend.Direction)
	ma, ok := res.Points[2].MovingAverage.Float()
	require.True(t, ok)
	assert.InDelta(t, 12.0, ma, 1e-9)

	_, err = svc.Trend(nil, TrendOverrides{})
	assert.True(t, core.IsInvalidInputError(err))
}

func TestTimeSeriesService_ZeroEpsilonIsHonoured(t *testing.T) {
	svc := NewTimeSeriesService(nil, timeseries.DefaultTrendOptions(), quietLogger())
	drift := []float64{100, 100.1, 100.2, 100.3, 100.4}

	res, err := svc.Trend(drift, TrendOverrides{})
	require.NoError(t, err)
	assert.Equal(t, timeseries.DirectionFlat, res.Trend.Direction)

	zero := 0.0
	res, err = svc.Trend(drift, TrendOverrides{FlatEpsilon: &zero})
	require.NoError(t, err)
	assert.Equal(t, timeseries.DirectionUp, res.Trend.Direction)

	window := 0
	_, err = svc.Trend(drift, TrendOverrides{Window: &window})
	assert.True(t, core.IsInvalidInputError(err))
}

func TestTimeSeriesService_GrowthUpload(t *testing.T) {
	reader := excel.NewDataReader(excel.DefaultReaderConfig(), quietLogger())
	svc := NewTimeSeriesService(reader, timeseries.DefaultTrendOptions(), quietLogger())

	rep, err := svc.GrowthUpload(context.Background(), "orders.csv", strings.NewReader(ordersCSV), GrowthRequest{ValueColumn: "amount"})
	require.NoError(t, err)
	assert.Equal(t, "date", rep.DateColumn)
	assert.Equal(t, timeseries.Month, rep.Period)
	require.Len(t, rep.Points, 2)
	assert.Equal(t, "2024-02", rep.Comparison.CurrentPeriod)
	assert.Equal(t, 166.67, rep.Comparison.ChangePct.OrElse(0))
	assert.Equal(t, 4, rep.DateRange.Records)
	require.Len(t, rep.Seasonal, 2)
	assert.Empty(t, rep.Seasonal[1].Reference, "no month a year earlier")
	require.Len(t, rep.Profile, 2)
	assert.Equal(t, "February", rep.Profile[1].Key)
	assert.InDelta(t, 200.0, rep.Profile[1].Mean.OrElse(0), 1e-9)
	assert.Empty(t, rep.Outliers)

	_, err = svc.Growth(readOrders(t), GrowthRequest{ValueColumn: "revenue"})
	assert.True(t, core.IsMissingColumnsError(err))
	_, err = svc.Growth(readOrders(t), GrowthRequest{})
	assert.True(t, core.IsInvalidInputError(err))
}
