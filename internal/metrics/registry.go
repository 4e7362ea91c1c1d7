package metrics

import (
	"fmt"
	"sort"

	"bizmetrics/domain/metric"
)

// Entry pairs a definition with the factory that binds it to a dataset
type Entry struct {
	Definition metric.Definition
	New        Factory
}

// Registry is an immutable, name-indexed set of metrics. Build it once at
// startup and share it; it is safe for concurrent reads.
type Registry struct {
	entries []Entry
	index   map[string]int
}

// NewRegistry validates entries and orders them by category then name.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		def := e.Definition
		switch {
		case def.Name == "":
			return nil, fmt.Errorf("metric registry: entry with empty name")
		case !def.Category.Valid():
			return nil, fmt.Errorf("metric registry: %s has unknown category %q", def.Name, def.Category)
		case len(def.RequiredColumns) == 0:
			return nil, fmt.Errorf("metric registry: %s declares no required columns", def.Name)
		case e.New == nil:
			return nil, fmt.Errorf("metric registry: %s has no factory", def.Name)
		}
		if _, dup := r.index[def.Name]; dup {
			return nil, fmt.Errorf("metric registry: duplicate metric name %q", def.Name)
		}
		def.RequiredColumns = append([]string(nil), def.RequiredColumns...)
		r.index[def.Name] = -1
		r.entries = append(r.entries, Entry{Definition: def, New: e.New})
	}

	sort.Slice(r.entries, func(i, j int) bool {
		a, b := r.entries[i].Definition, r.entries[j].Definition
		if a.Category != b.Category {
			return a.Category.Rank() < b.Category.Rank()
		}
		return a.Name < b.Name
	})
	for i, e := range r.entries {
		r.index[e.Definition.Name] = i
	}
	return r, nil
}

// Catalogue returns the built-in metrics
func Catalogue() []Entry {
	return []Entry{
		{totalRevenueDef, newTotalRevenue},
		{revenueByPeriodDef, newRevenueByPeriod},
		{revenueGrowthDef, newRevenueGrowth},
		{mrrDef, newMRR},
		{arrDef, newARR},
		{averageOrderValueDef, newAverageOrderValue},
		{revenueByProductDef, newRevenueByProduct},

		{cacDef, newCAC},
		{ltvDef, newLTV},
		{ltvCACRatioDef, newLTVCACRatio},
		{grossMarginDef, newGrossMargin},
		{burnRateDef, newBurnRate},
		{runwayDef, newRunway},

		{conversionRateDef, newConversionRate},
		{channelPerformanceDef, newChannelPerformance},
		{campaignPerformanceDef, newCampaignPerformance},
		{costPerLeadDef, newCostPerLead},
		{roasDef, newROAS},
		{leadVelocityDef, newLeadVelocity},
		{funnelAnalysisDef, newFunnelAnalysis},
	}
}

// DefaultRegistry registers the built-in catalogue
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Catalogue()...)
	if err != nil {
		panic(err)
	}
	return r
}

// Len returns the number of registered metrics
func (r *Registry) Len() int { return len(r.entries) }

// Lookup finds a metric by name
func (r *Registry) Lookup(name string) (Entry, bool) {
	i, ok := r.index[name]
	if !ok {
		return Entry{}, false
	}
	return r.copyEntry(i), true
}

func (r *Registry) copyEntry(i int) Entry {
	e := r.entries[i]
	e.Definition.RequiredColumns = append([]string(nil), e.Definition.RequiredColumns...)
	return e
}

// Definitions lists definitions in category-then-name order. An empty
// category lists everything.
func (r *Registry) Definitions(category metric.Category) []metric.Definition {
	out := make([]metric.Definition, 0, len(r.entries))
	for i, e := range r.entries {
		if category == "" || e.Definition.Category == category {
			out = append(out, r.copyEntry(i).Definition)
		}
	}
	return out
}

// Names lists metric names in category-then-name order
func (r *Registry) Names(category metric.Category) []string {
	var out []string
	for _, e := range r.entries {
		if category == "" || e.Definition.Category == category {
			out = append(out, e.Definition.Name)
		}
	}
	return out
}

// Categories lists the categories that have at least one metric, in canonical order
func (r *Registry) Categories() []metric.Category {
	var out []metric.Category
	for _, c := range metric.Categories() {
		for _, e := range r.entries {
			if e.Definition.Category == c {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// ByCategory groups metric names by category for listings
func (r *Registry) ByCategory() map[metric.Category][]string {
	out := make(map[metric.Category][]string)
	for _, c := range r.Categories() {
		out[c] = r.Names(c)
	}
	return out
}
