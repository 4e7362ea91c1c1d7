package metrics

import (
	"math"

	"bizmetrics/domain/core"
	"bizmetrics/domain/dataset"
	"bizmetrics/domain/metric"
	"bizmetrics/internal/timeseries"
)

// DefaultLifespanMonths is the customer lifetime LTV assumes when none is given
const DefaultLifespanMonths = 24

// daysPerMonth approximates data coverage in months for LTV
const daysPerMonth = 30

var (
	cacDef = metric.Definition{
		Name:            "cac",
		DisplayName:     "Customer Acquisition Cost",
		Description:     "Average cost to acquire a new customer",
		Category:        metric.CategoryFinancial,
		Unit:            "$",
		Formula:         "SUM(spend) / SUM(conversions)",
		RequiredColumns: []string{"spend", "conversions"},
	}
	ltvDef = metric.Definition{
		Name:            "ltv",
		DisplayName:     "Customer Lifetime Value",
		Description:     "Projected revenue from a customer over the assumed lifespan",
		Category:        metric.CategoryFinancial,
		Unit:            "$",
		Formula:         "(average revenue per customer / data months) * lifespan months",
		RequiredColumns: []string{"amount", "customer_id"},
	}
	ltvCACRatioDef = metric.Definition{
		Name:            "ltv_cac_ratio",
		DisplayName:     "LTV:CAC Ratio",
		Description:     "Customer lifetime value relative to acquisition cost",
		Category:        metric.CategoryFinancial,
		Unit:            "ratio",
		Formula:         "LTV / CAC",
		RequiredColumns: []string{"amount", "customer_id", "spend", "conversions"},
	}
	grossMarginDef = metric.Definition{
		Name:            "gross_margin",
		DisplayName:     "Gross Margin",
		Description:     "Revenue minus cost of goods sold as a percentage of revenue",
		Category:        metric.CategoryFinancial,
		Unit:            "%",
		Formula:         "((SUM(amount) - SUM(cost)) / SUM(amount)) * 100",
		RequiredColumns: []string{"amount", "cost"},
	}
	burnRateDef = metric.Definition{
		Name:            "burn_rate",
		DisplayName:     "Burn Rate",
		Description:     "Average monthly cash outflow",
		Category:        metric.CategoryFinancial,
		Unit:            "$/month",
		Formula:         "SUM(expense) / months with expenses",
		RequiredColumns: []string{"expense", "date"},
	}
	runwayDef = metric.Definition{
		Name:            "runway",
		DisplayName:     "Runway",
		Description:     "Months of operation remaining at the current burn rate",
		Category:        metric.CategoryFinancial,
		Unit:            "months",
		Formula:         "cash_balance / burn_rate",
		RequiredColumns: []string{"expense", "date"},
	}
)

type cac struct{ base }

func newCAC(ds *dataset.Dataset) Metric {
	return &cac{base{def: cacDef, ds: ds}}
}

func (m *cac) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	spend, err := columnSum(m.ds, "spend")
	if err != nil {
		return metric.Result{}, err
	}
	conversions, err := columnSum(m.ds, "conversions")
	if err != nil {
		return metric.Result{}, err
	}

	meta := map[string]interface{}{
		"total_spend":       round(spend),
		"total_conversions": int64(conversions),
	}
	value := core.Ratio(spend, conversions)
	if !value.IsDefined() {
		return m.result(value, "", meta, zeroDenominator("conversions")), nil
	}
	return m.result(value, "", meta), nil
}

type ltv struct{ base }

func newLTV(ds *dataset.Dataset) Metric {
	return &ltv{base{def: ltvDef, ds: ds}}
}

func (m *ltv) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	lifespan := opts.LifespanMonths
	if lifespan == 0 {
		lifespan = DefaultLifespanMonths
	}
	if lifespan < 0 {
		return metric.Result{}, core.NewInvalidInputError("lifespan_months", "must be positive, got %d", lifespan)
	}

	paid, err := filterStatus(m.ds, paidStatuses)
	if err != nil {
		return metric.Result{}, err
	}
	amounts, err := paid.Numbers("amount")
	if err != nil {
		return metric.Result{}, err
	}
	customers, err := paid.Labels("customer_id")
	if err != nil {
		return metric.Result{}, err
	}

	perCustomer := make(map[string]float64)
	for i, a := range amounts {
		if math.IsNaN(a) || customers[i] == "" {
			continue
		}
		perCustomer[customers[i]] += a
	}
	months, err := dataMonths(paid)
	if err != nil {
		return metric.Result{}, err
	}

	meta := map[string]interface{}{
		"customer_count":          len(perCustomer),
		"assumed_lifespan_months": lifespan,
		"data_months":             months,
	}
	if len(perCustomer) == 0 {
		return m.result(core.Undefined(), "", meta, zeroDenominator("customer count")), nil
	}

	total := 0.0
	for _, v := range perCustomer {
		total += v
	}
	avgRevenue := total / float64(len(perCustomer))
	meta["avg_customer_revenue"] = round(avgRevenue)

	return m.result(core.Some(avgRevenue/float64(months)*float64(lifespan)), "", meta), nil
}

// dataMonths estimates how many months the date column spans, at least one.
// Datasets without a date column count as one month.
func dataMonths(ds *dataset.Dataset) (int, error) {
	if t, ok := ds.Type("date"); !ok || t != dataset.TypeDate {
		return 1, nil
	}
	a, err := timeseries.NewAnalyzer(ds, "date")
	if err != nil {
		return 0, err
	}
	r := a.DateRange()
	if months := r.Days / daysPerMonth; months > 1 {
		return months, nil
	}
	return 1, nil
}

type ltvCACRatio struct{ base }

func newLTVCACRatio(ds *dataset.Dataset) Metric {
	return &ltvCACRatio{base{def: ltvCACRatioDef, ds: ds}}
}

func (m *ltvCACRatio) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	l, err := newLTV(m.ds).Calculate(opts)
	if err != nil {
		return metric.Result{}, err
	}
	c, err := newCAC(m.ds).Calculate(opts)
	if err != nil {
		return metric.Result{}, err
	}

	meta := map[string]interface{}{
		"ltv":    l.Value,
		"cac":    c.Value,
		"status": "unknown",
	}
	lv, okL := l.Value.Float()
	cv, okC := c.Value.Float()
	if !okL || !okC {
		warnings := append(append([]core.Warning{}, l.Warnings...), c.Warnings...)
		return m.result(core.Undefined(), "", meta, warnings...), nil
	}
	ratio := core.Ratio(lv, cv)
	r, ok := ratio.Float()
	if !ok {
		return m.result(ratio, "", meta, zeroDenominator("CAC")), nil
	}
	switch {
	case r >= 3:
		meta["status"] = "healthy"
	case r >= 1:
		meta["status"] = "acceptable"
	default:
		meta["status"] = "concerning"
	}
	return m.result(ratio, "", meta), nil
}

type grossMargin struct{ base }

func newGrossMargin(ds *dataset.Dataset) Metric {
	return &grossMargin{base{def: grossMarginDef, ds: ds}}
}

func (m *grossMargin) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	paid, err := filterStatus(m.ds, paidStatuses)
	if err != nil {
		return metric.Result{}, err
	}
	revenue, err := columnSum(paid, "amount")
	if err != nil {
		return metric.Result{}, err
	}
	cost, err := columnSum(paid, "cost")
	if err != nil {
		return metric.Result{}, err
	}

	meta := map[string]interface{}{
		"revenue":      round(revenue),
		"cost":         round(cost),
		"gross_profit": round(revenue - cost),
	}
	value := percent(revenue-cost, revenue)
	if !value.IsDefined() {
		return m.result(value, "", meta, zeroDenominator("revenue")), nil
	}
	return m.result(value, "", meta), nil
}

type burnRate struct{ base }

func newBurnRate(ds *dataset.Dataset) Metric {
	return &burnRate{base{def: burnRateDef, ds: ds}}
}

func (m *burnRate) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	a, err := timeseries.NewAnalyzer(m.ds, "date")
	if err != nil {
		return metric.Result{}, err
	}
	// months without expense rows are unknown, not zero
	monthly, err := a.GroupByPeriod("expense", timeseries.Month, timeseries.AggSum, false)
	if err != nil {
		return metric.Result{}, err
	}

	breakdown := make(map[string]float64, len(monthly))
	total := 0.0
	for _, b := range monthly {
		v := b.Value.OrElse(0)
		breakdown[b.Label] = round(v)
		total += v
	}
	meta := map[string]interface{}{
		"total_expenses":    round(total),
		"months":            len(monthly),
		"monthly_breakdown": breakdown,
	}
	value := core.Ratio(total, float64(len(monthly)))
	if !value.IsDefined() {
		return m.result(value, "", meta, zeroDenominator("month count")), nil
	}
	return m.result(value, "", meta), nil
}

type runway struct{ base }

func newRunway(ds *dataset.Dataset) Metric {
	return &runway{base{def: runwayDef, ds: ds}}
}

func (m *runway) Calculate(opts metric.Options) (metric.Result, error) {
	if err := m.validate(); err != nil {
		return metric.Result{}, err
	}
	burn, err := newBurnRate(m.ds).Calculate(opts)
	if err != nil {
		return metric.Result{}, err
	}

	meta := map[string]interface{}{"burn_rate": burn.Value}
	if opts.CashBalance == nil {
		return m.result(core.Undefined(), "", meta, core.NewWarning(core.WarningMissingParameter,
			"runway needs a cash_balance parameter")), nil
	}
	cash := *opts.CashBalance
	if math.IsNaN(cash) || math.IsInf(cash, 0) {
		return metric.Result{}, core.NewInvalidInputError("cash_balance", "must be finite, got %v", cash)
	}
	meta["cash_balance"] = cash

	b, ok := burn.Value.Float()
	if !ok || b == 0 {
		return m.result(core.Undefined(), "", meta, zeroDenominator("burn rate")), nil
	}
	months := cash / b
	switch {
	case months >= 18:
		meta["status"] = "healthy"
	case months >= 6:
		meta["status"] = "monitor"
	default:
		meta["status"] = "critical"
	}
	return m.result(core.Some(months), "", meta), nil
}
