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

var (
	totalRevenueDef = metric.Definition{
		Name:            "total_revenue",
		DisplayName:     "Total Revenue",
		Description:     "Sum of all revenue from paid transactions",
		Category:        metric.CategoryRevenue,
		Unit:            "$",
		Formula:         "SUM(amount) WHERE status IN (paid, success, completed, active)",
		RequiredColumns: []string{"amount"},
	}
	revenueByPeriodDef = metric.Definition{
		Name:            "revenue_by_period",
		DisplayName:     "Revenue by Period",
		Description:     "Paid revenue grouped by calendar period",
		Category:        metric.CategoryRevenue,
		Unit:            "$",
		Formula:         "SUM(amount) GROUP BY period",
		RequiredColumns: []string{"amount", "date"},
	}
	revenueGrowthDef = metric.Definition{
		Name:            "revenue_growth",
		DisplayName:     "Revenue Growth Rate",
		Description:     "Growth of the last period's revenue over the period before it",
		Category:        metric.CategoryRevenue,
		Unit:            "%",
		Formula:         "((current - previous) / previous) * 100",
		RequiredColumns: []string{"amount", "date"},
	}
	mrrDef = metric.Definition{
		Name:            "mrr",
		DisplayName:     "Monthly Recurring Revenue",
		Description:     "Recurring revenue normalized to a monthly amount",
		Category:        metric.CategoryRevenue,
		Unit:            "$",
		Formula:         "SUM(amount normalized to monthly) WHERE status IN (active, paid, current)",
		RequiredColumns: []string{"amount"},
	}
	arrDef = metric.Definition{
		Name:            "arr",
		DisplayName:     "Annual Recurring Revenue",
		Description:     "Monthly recurring revenue annualized",
		Category:        metric.CategoryRevenue,
		Unit:            "$",
		Formula:         "MRR * 12",
		RequiredColumns: []string{"amount"},
	}
	averageOrderValueDef = metric.Definition{
		Name:            "average_order_value",
		DisplayName:     "Average Order Value",
		Description:     "Average revenue per paid transaction",
		Category:        metric.CategoryRevenue,
		Unit:            "$",
		Formula:         "SUM(amount) / COUNT(transactions)",
		RequiredColumns: []string{"amount"},
	}
	revenueByProductDef = metric.Definition{
		Name:            "revenue_by_product",
		DisplayName:     "Revenue by Product",
		Description:     "Paid revenue broken down by product or plan",
		Category:        metric.CategoryRevenue,
		Unit:            "$",
		Formula:         "SUM(amount) GROUP BY product",
		RequiredColumns: []string{"amount", "product"},
	}
)

// billingMultipliers normalise a billing period to one month
var billingMultipliers = map[string]float64{
	"monthly":   1,
	"month":     1,
	"annual":    1.0 / 12,
	"yearly":    1.0 / 12,
	"year":      1.0 / 12,
	"quarterly": 1.0 / 3,
	"quarter":   1.0 / 3,
	"weekly":    4.33,
	"week":      4.33,
}

type totalRevenue struct{ base }

func newTotalRevenue(ds *dataset.Dataset) Metric {
	return &totalRevenue{base{def: totalRevenueDef, ds: ds}}
}

func (m *totalRevenue) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	paid, err := filterStatus(m.ds, paidStatuses)
	if err != nil {
		return metric.Result{}, err
	}
	amounts, err := paid.Numbers("amount")
	if err != nil {
		return metric.Result{}, err
	}
	amounts = defined(amounts)
	total := sum(amounts)

	return m.result(core.Some(total), "", map[string]interface{}{
		"transaction_count":   len(amounts),
		"average_transaction": core.Ratio(total, float64(len(amounts))).Round(resultDecimals),
	}), nil
}

// paidSeries returns the paid amounts bucketed by period
func paidSeries(ds *dataset.Dataset, p timeseries.Period, dense bool) ([]timeseries.Bucket, error) {
	paid, err := filterStatus(ds, paidStatuses)
	if err != nil {
		return nil, err
	}
	a, err := timeseries.NewAnalyzer(paid, "date")
	if err != nil {
		return nil, err
	}
	return a.GroupByPeriod("amount", p, timeseries.AggSum, dense)
}

type revenueByPeriod struct{ base }

func newRevenueByPeriod(ds *dataset.Dataset) Metric {
	return &revenueByPeriod{base{def: revenueByPeriodDef, ds: ds}}
}

func (m *revenueByPeriod) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	p, err := timeseries.ParsePeriod(opts.Period)
	if err != nil {
		return metric.Result{}, err
	}
	buckets, err := paidSeries(m.ds, p, false)
	if err != nil {
		return metric.Result{}, err
	}

	breakdown := make(map[string]float64, len(buckets))
	total := 0.0
	for _, b := range buckets {
		v := b.Value.OrElse(0)
		breakdown[b.Label] = round(v)
		total += v
	}
	return m.result(core.Some(total), string(p), map[string]interface{}{
		"breakdown":    breakdown,
		"period_count": len(buckets),
	}), nil
}

type revenueGrowth struct{ base }

func newRevenueGrowth(ds *dataset.Dataset) Metric {
	return &revenueGrowth{base{def: revenueGrowthDef, ds: ds}}
}

func (m *revenueGrowth) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	p, err := timeseries.ParsePeriod(opts.Period)
	if err != nil {
		return metric.Result{}, err
	}
	buckets, err := paidSeries(m.ds, p, true)
	if err != nil {
		return metric.Result{}, err
	}
	value, meta, warnings := periodGrowth(buckets, "revenue")
	return m.result(value, string(p), meta, warnings...), nil
}

// periodGrowth compares the last two adjacent buckets of a dense series.
// Metadata keys are prefixed with what, e.g. current_revenue.
func periodGrowth(buckets []timeseries.Bucket, what string) (core.Value, map[string]interface{}, []core.Warning) {
	cmp := timeseries.ComparePeriods(buckets)
	meta := map[string]interface{}{"periods_available": cmp.Periods}
	if cmp.Periods < 2 {
		return core.Undefined(), meta, []core.Warning{core.NewWarning(core.WarningInsufficientPeriods,
			fmt.Sprintf("need at least 2 periods for growth, have %d", cmp.Periods))}
	}
	meta["current_period"] = cmp.CurrentPeriod
	meta["previous_period"] = cmp.PreviousPeriod
	meta["current_"+what] = cmp.Current
	meta["previous_"+what] = cmp.Previous
	return cmp.ChangePct, meta, cmp.Warnings
}

type mrr struct{ base }

func newMRR(ds *dataset.Dataset) Metric {
	return &mrr{base{def: mrrDef, ds: ds}}
}

func (m *mrr) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	active, err := filterStatus(m.ds, activeStatuses)
	if err != nil {
		return metric.Result{}, err
	}
	amounts, err := active.Numbers("amount")
	if err != nil {
		return metric.Result{}, err
	}
	var periods []string
	if active.Has("billing_period") {
		if periods, err = active.Labels("billing_period"); err != nil {
			return metric.Result{}, err
		}
	}

	monthly := 0.0
	subscribers := 0
	for i, a := range amounts {
		if math.IsNaN(a) {
			continue
		}
		multiplier := 1.0
		if periods != nil {
			if mult, ok := billingMultipliers[strings.ToLower(strings.TrimSpace(periods[i]))]; ok {
				multiplier = mult
			}
		}
		monthly += a * multiplier
		subscribers++
	}

	return m.result(core.Some(monthly), "", map[string]interface{}{
		"subscriber_count":       subscribers,
		"average_per_subscriber": core.Ratio(monthly, float64(subscribers)).Round(resultDecimals),
	}), nil
}

type arr struct{ base }

func newARR(ds *dataset.Dataset) Metric {
	return &arr{base{def: arrDef, ds: ds}}
}

func (m *arr) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	monthly, err := newMRR(m.ds).Calculate(opts)
	if err != nil {
		return metric.Result{}, err
	}
	mrrValue, _ := monthly.Value.Float()
	annual := core.Some(mrrValue * 12)

	res := m.result(annual, "", map[string]interface{}{
		"mrr":              monthly.Value,
		"subscriber_count": monthly.Metadata["subscriber_count"],
	})
	// exactly twelve times the reported MRR, not re-rounded
	res.Value = annual
	return res, nil
}

type averageOrderValue struct{ base }

func newAverageOrderValue(ds *dataset.Dataset) Metric {
	return &averageOrderValue{base{def: averageOrderValueDef, ds: ds}}
}

func (m *averageOrderValue) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	paid, err := filterStatus(m.ds, paidStatuses)
	if err != nil {
		return metric.Result{}, err
	}
	amounts, err := paid.Numbers("amount")
	if err != nil {
		return metric.Result{}, err
	}
	amounts = defined(amounts)
	meta := map[string]interface{}{"transaction_count": len(amounts)}
	if len(amounts) == 0 {
		return m.result(core.Undefined(), "", meta, zeroDenominator("transaction count")), nil
	}

	total := sum(amounts)
	lo, hi := amounts[0], amounts[0]
	for _, a := range amounts[1:] {
		if a < lo {
			lo = a
		}
		if a > hi {
			hi = a
		}
	}
	meta["total_revenue"] = round(total)
	meta["min_order"] = round(lo)
	meta["max_order"] = round(hi)
	return m.result(core.Some(total/float64(len(amounts))), "", meta), nil
}

// ProductRevenue is one row of the revenue_by_product breakdown
type ProductRevenue struct {
	Product      string     `json:"product"`
	Revenue      float64    `json:"revenue"`
	Transactions int        `json:"transactions"`
	AvgOrder     core.Value `json:"avg_order"`
}

type revenueByProduct struct{ base }

func newRevenueByProduct(ds *dataset.Dataset) Metric {
	return &revenueByProduct{base{def: revenueByProductDef, ds: ds}}
}

func (m *revenueByProduct) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	paid, err := filterStatus(m.ds, paidStatuses)
	if err != nil {
		return metric.Result{}, err
	}
	amounts, err := paid.Numbers("amount")
	if err != nil {
		return metric.Result{}, err
	}
	products, err := paid.Labels("product")
	if err != nil {
		return metric.Result{}, err
	}

	byProduct := make(map[string]*ProductRevenue)
	total := 0.0
	for i, a := range amounts {
		if math.IsNaN(a) || products[i] == "" {
			continue
		}
		pr, ok := byProduct[products[i]]
		if !ok {
			pr = &ProductRevenue{Product: products[i]}
			byProduct[products[i]] = pr
		}
		pr.Revenue += a
		pr.Transactions++
		total += a
	}

	breakdown := make([]ProductRevenue, 0, len(byProduct))
	for _, pr := range byProduct {
		pr.AvgOrder = core.Ratio(pr.Revenue, float64(pr.Transactions)).Round(resultDecimals)
		pr.Revenue = round(pr.Revenue)
		breakdown = append(breakdown, *pr)
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Revenue != breakdown[j].Revenue {
			return breakdown[i].Revenue > breakdown[j].Revenue
		}
		return breakdown[i].Product < breakdown[j].Product
	})

	meta := map[string]interface{}{
		"breakdown":     breakdown,
		"product_count": len(breakdown),
		"top_product":   nil,
	}
	if len(breakdown) > 0 {
		meta["top_product"] = breakdown[0].Product
	}
	return m.result(core.Some(total), "", meta), nil
}
