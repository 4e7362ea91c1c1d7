package testkit

import (
	"bytes"
	"context"
	"testing"
	"time"

	"bizmetrics/adapters/excel"
	"bizmetrics/domain/core"
	"bizmetrics/domain/dataset"
	"bizmetrics/domain/metric"
	"bizmetrics/internal"
	"bizmetrics/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() GeneratorConfig {
	cfg := DefaultConfig()
	cfg.CustomerCount = 40
	cfg.CampaignCount = 5
	return cfg
}

func TestGeneratorIsDeterministic(t *testing.T) {
	a, err := NewGenerator(smallConfig())
	require.NoError(t, err)
	b, err := NewGenerator(smallConfig())
	require.NoError(t, err)

	var bufA, bufB bytes.Buffer
	require.NoError(t, WriteCSV(&bufA, a.Orders()))
	require.NoError(t, WriteCSV(&bufB, b.Orders()))
	assert.Equal(t, bufA.String(), bufB.String())

	cfg := smallConfig()
	cfg.Seed = 7
	c, err := NewGenerator(cfg)
	require.NoError(t, err)
	var bufC bytes.Buffer
	require.NoError(t, WriteCSV(&bufC, c.Orders()))
	assert.NotEqual(t, bufA.String(), bufC.String())
}

func TestGeneratorValidatesConfig(t *testing.T) {
	tests := []func(*GeneratorConfig){
		func(c *GeneratorConfig) { c.CustomerCount = 0 },
		func(c *GeneratorConfig) { c.ProductCount = 0 },
		func(c *GeneratorConfig) { c.CampaignCount = 0 },
		func(c *GeneratorConfig) { c.AvgOrdersPerCustomer = 0 },
		func(c *GeneratorConfig) { c.RefundRate = 1.5 },
		func(c *GeneratorConfig) { c.SubscriptionShare = -0.1 },
		func(c *GeneratorConfig) { c.EndDate = c.StartDate },
	}
	for i, mutate := range tests {
		cfg := DefaultConfig()
		mutate(&cfg)
		_, err := NewGenerator(cfg)
		assert.Error(t, err, "case %d", i)
	}
}

func TestOrdersStayInsideWindow(t *testing.T) {
	cfg := smallConfig()
	g, err := NewGenerator(cfg)
	require.NoError(t, err)
	ds := g.Orders()
	require.Greater(t, ds.Len(), cfg.CustomerCount/2)

	dates, err := ds.Dates("date")
	require.NoError(t, err)
	for _, d := range dates {
		assert.False(t, d.Before(cfg.StartDate), d)
		assert.False(t, d.After(cfg.EndDate), d)
	}
	amounts, err := ds.Numbers("amount")
	require.NoError(t, err)
	for _, a := range amounts {
		assert.Greater(t, a, 0.0)
	}
}

func TestCSVRoundTripsThroughReader(t *testing.T) {
	g, err := NewGenerator(smallConfig())
	require.NoError(t, err)
	orders := g.Orders()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, orders))

	reader := excel.NewDataReader(excel.DefaultReaderConfig(), internal.NewLogger(internal.LogLevelError))
	back, err := reader.Read(context.Background(), "orders.csv", &buf)
	require.NoError(t, err)
	assert.Equal(t, orders.Len(), back.Len())
	assert.Equal(t, orders.ColumnNames(), back.ColumnNames())

	typ, ok := back.Type("date")
	require.True(t, ok)
	assert.Equal(t, dataset.TypeDate, typ)
	typ, ok = back.Type("amount")
	require.True(t, ok)
	assert.True(t, typ.IsNumeric())
}

func TestGeneratedDataFeedsEveryMetric(t *testing.T) {
	g, err := NewGenerator(smallConfig())
	require.NoError(t, err)
	engine := metrics.NewEngine(metrics.DefaultRegistry(),
		core.FixedClock{At: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)},
		internal.NewLogger(internal.LogLevelError))

	cash := 250000.0
	opts := metric.Options{Period: "month", CashBalance: &cash}

	orders, err := engine.Calculate(g.Orders(), metrics.Request{Category: metric.CategoryRevenue, Options: opts})
	require.NoError(t, err)
	assert.Empty(t, orders.Errors)
	assert.Len(t, orders.Results, 7)

	marketing, err := engine.Calculate(g.Marketing(), metrics.Request{Category: metric.CategoryMarketing, Options: opts})
	require.NoError(t, err)
	assert.Empty(t, marketing.Errors)
	assert.Len(t, marketing.Results, 7)

	funnel, ok := marketing.Result("funnel_analysis")
	require.True(t, ok)
	assert.True(t, funnel.Value.IsDefined())
}
