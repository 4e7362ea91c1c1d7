package metrics

import (
	"testing"
	"time"

	"bizmetrics/domain/core"
	"bizmetrics/domain/dataset"
	"bizmetrics/domain/metric"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversionRate(t *testing.T) {
	ds := dataset.MustNew(
		dataset.NumericColumn("leads", []float64{10000, 7254}),
		dataset.NumericColumn("conversions", []float64{1000, 762}),
	)
	res, err := newConversionRate(ds).Calculate(metric.Options{})
	require.NoError(t, err)

	assert.Equal(t, 10.21, res.Value.OrElse(0))
	assert.Equal(t, "%", res.Unit)
	assert.Equal(t, int64(17254), res.Metadata["total_leads"])
	assert.Equal(t, int64(1762), res.Metadata["total_conversions"])
}

func TestConversionRate_ZeroLeads(t *testing.T) {
	ds := dataset.MustNew(
		dataset.NumericColumn("leads", []float64{0}),
		dataset.NumericColumn("conversions", []float64{0}),
	)
	res, err := newConversionRate(ds).Calculate(metric.Options{})
	require.NoError(t, err)
	assert.False(t, res.Value.IsDefined())
	assert.True(t, hasWarning(res, core.WarningZeroDenominator))
}

func marketing() *dataset.Dataset {
	return dataset.MustNew(
		dataset.CategoryColumn("source", []string{"google", "facebook", "google", "email", ""}),
		dataset.CategoryColumn("campaign", []string{"spring", "spring", "summer", "summer", "summer"}),
		dataset.NumericColumn("leads", []float64{100, 80, 50, 20, 5}),
		dataset.NumericColumn("conversions", []float64{10, 12, 5, 0, 1}),
		dataset.CurrencyColumn("spend", []float64{500, 300, 250, 0, 10}),
		dataset.CurrencyColumn("revenue", []float64{2000, 1500, 400, 100, 0}),
	)
}

func TestChannelPerformance(t *testing.T) {
	res, err := newChannelPerformance(marketing()).Calculate(metric.Options{})
	require.NoError(t, err)

	assert.Equal(t, 1060.0, res.Value.OrElse(0))
	assert.Equal(t, "google", res.Metadata["top_channel"])
	channels := res.Metadata["channels"].([]SegmentStats)
	require.Len(t, channels, 3, "rows without a source are skipped")
	assert.Equal(t, []string{"google", "facebook", "email"},
		[]string{channels[0].Name, channels[1].Name, channels[2].Name})
	assert.Equal(t, 2, channels[0].Records)
	assert.Equal(t, 10.0, channels[0].ConversionRate.OrElse(0))
	assert.False(t, channels[2].CostPerConversion.IsDefined(), "no conversions")
}

func TestChannelPerformance_WithoutSpend(t *testing.T) {
	ds := dataset.MustNew(dataset.CategoryColumn("source", []string{"a", "b", "b"}))
	res, err := newChannelPerformance(ds).Calculate(metric.Options{})
	require.NoError(t, err)
	assert.False(t, res.Value.IsDefined())
	assert.Equal(t, "b", res.Metadata["top_channel"])
	assert.NotEmpty(t, res.Warnings)
}

func TestCampaignPerformance(t *testing.T) {
	res, err := newCampaignPerformance(marketing()).Calculate(metric.Options{})
	require.NoError(t, err)

	assert.Equal(t, 28.0, res.Value.OrElse(0))
	assert.Equal(t, "spring", res.Metadata["top_campaign"])
	assert.Equal(t, 2, res.Metadata["campaign_count"])
}

func TestCostPerLeadAndROAS(t *testing.T) {
	cpl, err := newCostPerLead(marketing()).Calculate(metric.Options{})
	require.NoError(t, err)
	assert.Equal(t, 4.16, cpl.Value.OrElse(0))

	r, err := newROAS(marketing()).Calculate(metric.Options{})
	require.NoError(t, err)
	assert.Equal(t, 3.77, r.Value.OrElse(0))
	assert.Equal(t, "good", r.Metadata["status"])

	noSpend := dataset.MustNew(
		dataset.CurrencyColumn("spend", []float64{0}),
		dataset.CurrencyColumn("revenue", []float64{10}),
	)
	r, err = newROAS(noSpend).Calculate(metric.Options{})
	require.NoError(t, err)
	assert.False(t, r.Value.IsDefined())
	assert.Equal(t, "unknown", r.Metadata["status"])
}

func TestLeadVelocity(t *testing.T) {
	ds := dataset.MustNew(
		dataset.NumericColumn("leads", []float64{40, 60, 120}),
		dataset.DateColumn("date", []time.Time{day(2024, 5, 1), day(2024, 5, 20), day(2024, 6, 2)}),
	)
	res, err := newLeadVelocity(ds).Calculate(metric.Options{Period: "week"})
	require.NoError(t, err)

	assert.Equal(t, 20.0, res.Value.OrElse(0))
	assert.Equal(t, "month", res.Period, "lead velocity is always month over month")
	assert.Equal(t, "2024-06", res.Metadata["current_period"])
}

func TestFunnelAnalysis(t *testing.T) {
	ds := dataset.MustNew(dataset.CategoryColumn("stage", []string{
		"lead", "Lead", "lead", "lead", "qualified", "qualified", "opportunity", "customer", "proposal",
	}))
	res, err := newFunnelAnalysis(ds).Calculate(metric.Options{})
	require.NoError(t, err)

	assert.Equal(t, 25.0, res.Value.OrElse(0))
	assert.Equal(t, 4, res.Metadata["total_entered"])
	conversions := res.Metadata["stage_conversions"].(map[string]core.Value)
	assert.Equal(t, 50.0, conversions["lead_to_qualified"].OrElse(0))
	assert.Equal(t, 100.0, conversions["proposal_to_customer"].OrElse(0))

	res, err = newFunnelAnalysis(ds).Calculate(metric.Options{FunnelStages: []string{"visit", "lead"}})
	require.NoError(t, err)
	assert.False(t, res.Value.IsDefined())

	_, err = newFunnelAnalysis(ds).Calculate(metric.Options{FunnelStages: []string{"lead"}})
	assert.True(t, core.IsInvalidInputError(err))
}
