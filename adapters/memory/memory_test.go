package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"bizmetrics/domain/core"
	"bizmetrics/domain/experiment"
	"bizmetrics/domain/metric"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExperiment(name string, created time.Time) *experiment.Experiment {
	mde := 0.05
	return &experiment.Experiment{
		ID:                      core.NewExperimentID(),
		Name:                    name,
		PrimaryMetric:           "conversion_rate",
		SignificanceLevel:       0.05,
		ConfidenceLevel:         0.95,
		MinimumDetectableEffect: &mde,
		Status:                  experiment.StatusDraft,
		Variants: []experiment.VariantResult{
			{Name: "control", IsControl: true, Users: 1000, Conversions: 100},
			{Name: "b", Users: 1000, Conversions: 130},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestExperimentRepository_SaveGetIsolated(t *testing.T) {
	ctx := context.Background()
	repo := NewExperimentRepository()
	exp := newExperiment("checkout copy", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, repo.Save(ctx, exp))
	exp.Variants[0].Users = 1
	*exp.MinimumDetectableEffect = 0.5

	got, err := repo.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.Variants[0].Users)
	assert.Equal(t, 0.05, *got.MinimumDetectableEffect)

	got.Name = "mutated"
	again, err := repo.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, "checkout copy", again.Name)
}

func TestExperimentRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewExperimentRepository()
	id := core.NewExperimentID()

	_, err := repo.Get(ctx, id)
	assert.ErrorIs(t, err, core.ErrExperimentNotFound)
	assert.True(t, core.IsNotFoundError(err))
	assert.ErrorIs(t, repo.Delete(ctx, id), core.ErrNotFound)
}

func TestExperimentRepository_ListNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewExperimentRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Save(ctx, newExperiment(name, base.AddDate(0, 0, i))))
	}

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Name)
	assert.Equal(t, "first", all[2].Name)

	two, err := repo.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestExperimentRepository_SaveOverwritesAndDeletes(t *testing.T) {
	ctx := context.Background()
	repo := NewExperimentRepository()
	exp := newExperiment("pricing", time.Now())
	require.NoError(t, repo.Save(ctx, exp))

	exp.Status = experiment.StatusAnalyzed
	exp.Summaries = []experiment.Summary{{ControlVariant: "control", TreatmentVariant: "b", Decision: experiment.DecisionShipVariant}}
	require.NoError(t, repo.Save(ctx, exp))

	got, err := repo.Get(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, experiment.StatusAnalyzed, got.Status)
	require.Len(t, got.Summaries, 1)

	require.NoError(t, repo.Delete(ctx, exp.ID))
	_, err = repo.Get(ctx, exp.ID)
	assert.True(t, core.IsNotFoundError(err))
}

func TestExperimentRepository_RejectsMissingID(t *testing.T) {
	err := NewExperimentRepository().Save(context.Background(), &experiment.Experiment{})
	assert.True(t, core.IsInvalidInputError(err))
}

func TestExperimentRepository_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	repo := NewExperimentRepository()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exp := newExperiment("parallel", time.Now())
			assert.NoError(t, repo.Save(ctx, exp))
			_, err := repo.Get(ctx, exp.ID)
			assert.NoError(t, err)
			_, err = repo.List(ctx, 5)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := repo.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 20)
}

func TestMetricReportRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMetricReportRepository()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	older := &metric.StoredReport{ID: core.NewReportID(), Source: "jan.csv", Period: "month", CreatedAt: base}
	newer := &metric.StoredReport{ID: core.NewReportID(), Source: "feb.csv", Period: "month", CreatedAt: base.Add(time.Hour),
		Report: metric.Report{Results: []metric.Result{{MetricName: "total_revenue", Value: core.Some(10)}}}}
	require.NoError(t, repo.SaveReport(ctx, older))
	require.NoError(t, repo.SaveReport(ctx, newer))

	got, err := repo.GetReport(ctx, newer.ID)
	require.NoError(t, err)
	res, ok := got.Report.Result("total_revenue")
	require.True(t, ok)
	assert.Equal(t, 10.0, res.Value.OrElse(0))

	list, err := repo.ListReports(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "feb.csv", list[0].Source)

	_, err = repo.GetReport(ctx, core.NewReportID())
	assert.ErrorIs(t, err, core.ErrReportNotFound)
}
