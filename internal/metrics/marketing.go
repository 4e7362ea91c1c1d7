package metrics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"bizmetrics/domain/core"
	"bizmetrics/domain/dataset"
	"bizmetrics/domain/metric"
	"bizmetrics/internal/timeseries"
)

// DefaultFunnelStages is the funnel order used when none is given
var DefaultFunnelStages = []string{"lead", "qualified", "opportunity", "proposal", "customer"}

var (
	conversionRateDef = metric.Definition{
		Name:            "conversion_rate",
		DisplayName:     "Conversion Rate",
		Description:     "Percentage of leads that convert",
		Category:        metric.CategoryMarketing,
		Unit:            "%",
		Formula:         "(SUM(conversions) / SUM(leads)) * 100",
		RequiredColumns: []string{"leads", "conversions"},
	}
	channelPerformanceDef = metric.Definition{
		Name:            "channel_performance",
		DisplayName:     "Channel Performance",
		Description:     "Leads, conversions and spend by marketing channel",
		Category:        metric.CategoryMarketing,
		Unit:            "$",
		Formula:         "SUM(spend), SUM(leads), SUM(conversions) GROUP BY source",
		RequiredColumns: []string{"source"},
	}
	campaignPerformanceDef = metric.Definition{
		Name:            "campaign_performance",
		DisplayName:     "Campaign Performance",
		Description:     "Leads, conversions and spend by campaign",
		Category:        metric.CategoryMarketing,
		Unit:            "conversions",
		Formula:         "SUM(conversions) GROUP BY campaign",
		RequiredColumns: []string{"campaign"},
	}
	costPerLeadDef = metric.Definition{
		Name:            "cost_per_lead",
		DisplayName:     "Cost Per Lead",
		Description:     "Average cost to generate a lead",
		Category:        metric.CategoryMarketing,
		Unit:            "$",
		Formula:         "SUM(spend) / SUM(leads)",
		RequiredColumns: []string{"spend", "leads"},
	}
	roasDef = metric.Definition{
		Name:            "roas",
		DisplayName:     "Return on Ad Spend",
		Description:     "Revenue generated per dollar of ad spend",
		Category:        metric.CategoryMarketing,
		Unit:            "ratio",
		Formula:         "SUM(revenue) / SUM(spend)",
		RequiredColumns: []string{"spend", "revenue"},
	}
	leadVelocityDef = metric.Definition{
		Name:            "lead_velocity",
		DisplayName:     "Lead Velocity Rate",
		Description:     "Month-over-month growth in leads",
		Category:        metric.CategoryMarketing,
		Unit:            "%",
		Formula:         "((current month leads - previous month leads) / previous month leads) * 100",
		RequiredColumns: []string{"leads", "date"},
	}
	funnelAnalysisDef = metric.Definition{
		Name:            "funnel_analysis",
		DisplayName:     "Funnel Analysis",
		Description:     "Share of entries that reach each funnel stage",
		Category:        metric.CategoryMarketing,
		Unit:            "%",
		Formula:         "COUNT(last stage) / COUNT(first stage) * 100",
		RequiredColumns: []string{"stage"},
	}
)

type conversionRate struct{ base }

func newConversionRate(ds *dataset.Dataset) Metric {
	return &conversionRate{base{def: conversionRateDef, ds: ds}}
}

func (m *conversionRate) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	leads, err := columnSum(m.ds, "leads")
	if err != nil {
		return metric.Result{}, err
	}
	conversions, err := columnSum(m.ds, "conversions")
	if err != nil {
		return metric.Result{}, err
	}

	meta := map[string]interface{}{
		"total_leads":       int64(leads),
		"total_conversions": int64(conversions),
	}
	value := percent(conversions, leads)
	if !value.IsDefined() {
		return m.result(value, "", meta, zeroDenominator("leads")), nil
	}
	return m.result(value, "", meta), nil
}

// SegmentStats aggregates marketing columns for one channel or campaign.
// Columns absent from the dataset are left nil.
type SegmentStats struct {
	Name              string      `json:"name"`
	Records           int         `json:"records"`
	Leads             *float64    `json:"leads,omitempty"`
	Conversions       *float64    `json:"conversions,omitempty"`
	Spend             *float64    `json:"spend,omitempty"`
	ConversionRate    *core.Value `json:"conversion_rate,omitempty"`
	CostPerConversion *core.Value `json:"cost_per_conversion,omitempty"`
}

// segments groups rows by the labels of key and sums leads, conversions and
// spend where those columns exist. Rows with a missing key are skipped.
// Segments sort by conversions (records when absent) descending, then name.
func segments(ds *dataset.Dataset, key string) ([]SegmentStats, error) {
	labels, err := ds.Labels(key)
	if err != nil {
		return nil, err
	}
	leads, hasLeads := optionalNumbers(ds, "leads")
	conversions, hasConversions := optionalNumbers(ds, "conversions")
	spend, hasSpend := optionalNumbers(ds, "spend")

	add := func(dst **float64, v float64) {
		if math.IsNaN(v) {
			v = 0
		}
		if *dst == nil {
			*dst = new(float64)
		}
		**dst += v
	}

	byName := make(map[string]*SegmentStats)
	for i, name := range labels {
		if name == "" {
			continue
		}
		s, ok := byName[name]
		if !ok {
			s = &SegmentStats{Name: name}
			byName[name] = s
		}
		s.Records++
		if hasLeads {
			add(&s.Leads, leads[i])
		}
		if hasConversions {
			add(&s.Conversions, conversions[i])
		}
		if hasSpend {
			add(&s.Spend, spend[i])
		}
	}

	out := make([]SegmentStats, 0, len(byName))
	for _, s := range byName {
		if s.Leads != nil && s.Conversions != nil {
			rate := percent(*s.Conversions, *s.Leads).Round(resultDecimals)
			s.ConversionRate = &rate
		}
		if s.Spend != nil && s.Conversions != nil {
			cpc := core.Ratio(*s.Spend, *s.Conversions).Round(resultDecimals)
			s.CostPerConversion = &cpc
		}
		if s.Spend != nil {
			*s.Spend = round(*s.Spend)
		}
		out = append(out, *s)
	}
	rank := func(s SegmentStats) float64 {
		if s.Conversions != nil {
			return *s.Conversions
		}
		return float64(s.Records)
	}
	sort.Slice(out, func(i, j int) bool {
		if ri, rj := rank(out[i]), rank(out[j]); ri != rj {
			return ri > rj
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

type channelPerformance struct{ base }

func newChannelPerformance(ds *dataset.Dataset) Metric {
	return &channelPerformance{base{def: channelPerformanceDef, ds: ds}}
}

func (m *channelPerformance) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	channels, err := segments(m.ds, "source")
	if err != nil {
		return metric.Result{}, err
	}

	meta := map[string]interface{}{
		"channels":      channels,
		"channel_count": len(channels),
		"top_channel":   nil,
	}
	if len(channels) > 0 {
		meta["top_channel"] = channels[0].Name
	}
	if _, ok := optionalNumbers(m.ds, "spend"); !ok {
		return m.result(core.Undefined(), "", meta, core.NewWarning(core.WarningUndefinedResult,
			"no numeric spend column; total spend is undefined")), nil
	}
	total, err := columnSum(m.ds, "spend")
	if err != nil {
		return metric.Result{}, err
	}
	return m.result(core.Some(total), "", meta), nil
}

type campaignPerformance struct{ base }

func newCampaignPerformance(ds *dataset.Dataset) Metric {
	return &campaignPerformance{base{def: campaignPerformanceDef, ds: ds}}
}

func (m *campaignPerformance) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	campaigns, err := segments(m.ds, "campaign")
	if err != nil {
		return metric.Result{}, err
	}

	meta := map[string]interface{}{
		"campaigns":      campaigns,
		"campaign_count": len(campaigns),
		"top_campaign":   nil,
	}
	if len(campaigns) > 0 {
		meta["top_campaign"] = campaigns[0].Name
	}
	if _, ok := optionalNumbers(m.ds, "conversions"); !ok {
		return m.result(core.Undefined(), "", meta, core.NewWarning(core.WarningUndefinedResult,
			"no numeric conversions column; total conversions is undefined")), nil
	}
	total, err := columnSum(m.ds, "conversions")
	if err != nil {
		return metric.Result{}, err
	}
	return m.result(core.Some(total), "", meta), nil
}

type costPerLead struct{ base }

func newCostPerLead(ds *dataset.Dataset) Metric {
	return &costPerLead{base{def: costPerLeadDef, ds: ds}}
}

func (m *costPerLead) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	spend, err := columnSum(m.ds, "spend")
	if err != nil {
		return metric.Result{}, err
	}
	leads, err := columnSum(m.ds, "leads")
	if err != nil {
		return metric.Result{}, err
	}

	meta := map[string]interface{}{
		"total_spend": round(spend),
		"total_leads": int64(leads),
	}
	value := core.Ratio(spend, leads)
	if !value.IsDefined() {
		return m.result(value, "", meta, zeroDenominator("leads")), nil
	}
	return m.result(value, "", meta), nil
}

type roas struct{ base }

func newROAS(ds *dataset.Dataset) Metric {
	return &roas{base{def: roasDef, ds: ds}}
}

func (m *roas) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	spend, err := columnSum(m.ds, "spend")
	if err != nil {
		return metric.Result{}, err
	}
	revenue, err := columnSum(m.ds, "revenue")
	if err != nil {
		return metric.Result{}, err
	}

	meta := map[string]interface{}{
		"total_revenue": round(revenue),
		"total_spend":   round(spend),
		"status":        "unknown",
	}
	value := core.Ratio(revenue, spend)
	r, ok := value.Float()
	if !ok {
		return m.result(value, "", meta, zeroDenominator("spend")), nil
	}
	switch {
	case r >= 4:
		meta["status"] = "excellent"
	case r >= 2:
		meta["status"] = "good"
	case r >= 1:
		meta["status"] = "break_even"
	default:
		meta["status"] = "losing"
	}
	return m.result(value, "", meta), nil
}

type leadVelocity struct{ base }

func newLeadVelocity(ds *dataset.Dataset) Metric {
	return &leadVelocity{base{def: leadVelocityDef, ds: ds}}
}

func (m *leadVelocity) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	a, err := timeseries.NewAnalyzer(m.ds, "date")
	if err != nil {
		return metric.Result{}, err
	}
	monthly, err := a.GroupByPeriod("leads", timeseries.Month, timeseries.AggSum, true)
	if err != nil {
		return metric.Result{}, err
	}
	value, meta, warnings := periodGrowth(monthly, "leads")
	return m.result(value, string(timeseries.Month), meta, warnings...), nil
}

type funnelAnalysis struct{ base }

func newFunnelAnalysis(ds *dataset.Dataset) Metric {
	return &funnelAnalysis{base{def: funnelAnalysisDef, ds: ds}}
}

func (m *funnelAnalysis) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	stages := opts.FunnelStages
	if len(stages) == 0 {
		stages = append([]string(nil), DefaultFunnelStages...)
	}
	if len(stages) < 2 {
		return metric.Result{}, core.NewInvalidInputError("funnel_stages", "need at least 2 stages, got %d", len(stages))
	}
	labels, err := m.ds.Labels("stage")
	if err != nil {
		return metric.Result{}, err
	}

	seen := make(map[string]int, len(labels))
	for _, l := range labels {
		seen[strings.ToLower(strings.TrimSpace(l))]++
	}
	counts := make(map[string]int, len(stages))
	for _, s := range stages {
		counts[s] = seen[strings.ToLower(strings.TrimSpace(s))]
	}
	conversions := make(map[string]core.Value, len(stages)-1)
	for i := 0; i+1 < len(stages); i++ {
		key := fmt.Sprintf("%s_to_%s", stages[i], stages[i+1])
		conversions[key] = percent(float64(counts[stages[i+1]]), float64(counts[stages[i]])).Round(resultDecimals)
	}

	first, last := counts[stages[0]], counts[stages[len(stages)-1]]
	meta := map[string]interface{}{
		"stages":            stages,
		"stage_counts":      counts,
		"stage_conversions": conversions,
		"total_entered":     first,
		"total_converted":   last,
	}
	value := percent(float64(last), float64(first))
	if !value.IsDefined() {
		return m.result(value, "", meta, zeroDenominator(fmt.Sprintf("count at stage %q", stages[0]))), nil
	}
	return m.result(value, "", meta), nil
}
