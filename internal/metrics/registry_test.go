package metrics

import (
	"testing"

	"bizmetrics/domain/dataset"
	"bizmetrics/domain/metric"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, 20, r.Len())
	assert.Equal(t, metric.Categories(), r.Categories())

	revenue := r.Names(metric.CategoryRevenue)
	assert.Equal(t, []string{
		"arr", "average_order_value", "mrr", "revenue_by_period",
		"revenue_by_product", "revenue_growth", "total_revenue",
	}, revenue)

	defs := r.Definitions("")
	require.Len(t, defs, 20)
	for i := 1; i < len(defs); i++ {
		prev, cur := defs[i-1], defs[i]
		if prev.Category == cur.Category {
			assert.Less(t, prev.Name, cur.Name)
		} else {
			assert.Less(t, prev.Category.Rank(), cur.Category.Rank())
		}
	}
	for _, d := range defs {
		assert.NotEmpty(t, d.RequiredColumns, d.Name)
	}
}

func TestRegistry_LookupReturnsCopies(t *testing.T) {
	r := DefaultRegistry()
	e, ok := r.Lookup("ltv_cac_ratio")
	require.True(t, ok)
	e.Definition.RequiredColumns[0] = "tampered"

	again, _ := r.Lookup("ltv_cac_ratio")
	assert.Equal(t, "amount", again.Definition.RequiredColumns[0])

	_, ok = r.Lookup("nps")
	assert.False(t, ok)
}

func TestNewRegistry_Rejects(t *testing.T) {
	good := Entry{Definition: totalRevenueDef, New: newTotalRevenue}

	_, err := NewRegistry(good, good)
	assert.ErrorContains(t, err, "duplicate")

	noColumns := totalRevenueDef
	noColumns.Name = "broken"
	noColumns.RequiredColumns = nil
	_, err = NewRegistry(Entry{Definition: noColumns, New: newTotalRevenue})
	assert.Error(t, err)

	badCategory := totalRevenueDef
	badCategory.Category = "ops"
	_, err = NewRegistry(Entry{Definition: badCategory, New: newTotalRevenue})
	assert.Error(t, err)

	_, err = NewRegistry(Entry{Definition: totalRevenueDef})
	assert.Error(t, err)
}

func TestCatalogue_FactoriesMatchDefinitions(t *testing.T) {
	ds := dataset.MustNew(dataset.NumericColumn("x", []float64{1}))
	for _, e := range Catalogue() {
		assert.Equal(t, e.Definition, e.New(ds).Definition(), e.Definition.Name)
	}
}

func TestRegistry_ByCategory(t *testing.T) {
	groups := DefaultRegistry().ByCategory()
	assert.Len(t, groups[metric.CategoryRevenue], 7)
	assert.Len(t, groups[metric.CategoryFinancial], 6)
	assert.Len(t, groups[metric.CategoryMarketing], 7)
}
