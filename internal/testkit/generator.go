package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"bizmetrics/domain/dataset"
)

// GeneratorConfig configures the synthetic business data generator
type GeneratorConfig struct {
	CustomerCount        int       `json:"customer_count"`
	ProductCount         int       `json:"product_count"`
	AvgOrdersPerCustomer float64   `json:"avg_orders_per_customer"`
	RefundRate           float64   `json:"refund_rate"`
	SubscriptionShare    float64   `json:"subscription_share"`
	MonthlyGrowth        float64   `json:"monthly_growth"`
	CampaignCount        int       `json:"campaign_count"`
	StartDate            time.Time `json:"start_date"`
	EndDate              time.Time `json:"end_date"`
	Seed                 int64     `json:"seed"`
}

// DefaultConfig returns sensible defaults for data generation
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		CustomerCount:        200,
		ProductCount:         12,
		AvgOrdersPerCustomer: 2.5,
		RefundRate:           0.06,
		SubscriptionShare:    0.3,
		MonthlyGrowth:        0.05,
		CampaignCount:        6,
		StartDate:            time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:              time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		Seed:                 42,
	}
}

// Validate rejects configs that cannot produce data
func (c GeneratorConfig) Validate() error {
	switch {
	case c.CustomerCount < 1:
		return fmt.Errorf("customer_count must be at least 1")
	case c.ProductCount < 1:
		return fmt.Errorf("product_count must be at least 1")
	case c.CampaignCount < 1:
		return fmt.Errorf("campaign_count must be at least 1")
	case c.AvgOrdersPerCustomer <= 0:
		return fmt.Errorf("avg_orders_per_customer must be positive")
	case c.RefundRate < 0 || c.RefundRate > 1:
		return fmt.Errorf("refund_rate must be in [0, 1]")
	case c.SubscriptionShare < 0 || c.SubscriptionShare > 1:
		return fmt.Errorf("subscription_share must be in [0, 1]")
	case !c.EndDate.After(c.StartDate):
		return fmt.Errorf("end_date must be after start_date")
	}
	return nil
}

var (
	channels       = []string{"google", "facebook", "linkedin", "email", "organic"}
	billingPeriods = []string{"monthly", "quarterly", "annual"}
	funnel         = []string{"lead", "qualified", "opportunity", "proposal", "customer"}
	// probability of advancing from one funnel stage to the next
	advance = []float64{0.6, 0.5, 0.6, 0.7}
)

// Generator produces deterministic order and marketing datasets. The same
// seed always yields the same rows.
type Generator struct {
	config GeneratorConfig
	rng    *rand.Rand
}

// NewGenerator creates a new generator
func NewGenerator(config GeneratorConfig) (*Generator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}, nil
}

type orderRow struct {
	date     time.Time
	customer string
	product  string
	amount   float64
	cost     float64
	expense  float64
	status   string
	billing  string
}

// Orders generates one row per order with the columns the revenue and
// financial metrics read: date, customer_id, product, amount, cost,
// expense, status and billing_period
func (g *Generator) Orders() *dataset.Dataset {
	var rows []orderRow
	for i := 0; i < g.config.CustomerCount; i++ {
		rows = append(rows, g.customerOrders(fmt.Sprintf("customer_%04d", i+1))...)
	}

	n := len(rows)
	dates := make([]time.Time, n)
	customers := make([]string, n)
	products := make([]string, n)
	amounts := make([]float64, n)
	costs := make([]float64, n)
	expenses := make([]float64, n)
	statuses := make([]string, n)
	billing := make([]string, n)
	for i, r := range rows {
		dates[i] = r.date
		customers[i] = r.customer
		products[i] = r.product
		amounts[i] = r.amount
		costs[i] = r.cost
		expenses[i] = r.expense
		statuses[i] = r.status
		billing[i] = r.billing
	}

	return dataset.MustNew(
		dataset.DateColumn("date", dates),
		dataset.CategoryColumn("customer_id", customers),
		dataset.CategoryColumn("product", products),
		dataset.CurrencyColumn("amount", amounts),
		dataset.CurrencyColumn("cost", costs),
		dataset.CurrencyColumn("expense", expenses),
		dataset.CategoryColumn("status", statuses),
		dataset.CategoryColumn("billing_period", billing),
	)
}

// customerOrders generates the order history of one customer
func (g *Generator) customerOrders(customerID string) []orderRow {
	orderCount := int(math.Round(g.config.AvgOrdersPerCustomer + g.rng.NormFloat64()*0.5))
	// At least one order so small fixtures never come out empty
	if orderCount < 1 {
		orderCount = 1
	}
	if orderCount > 10 {
		orderCount = 10
	}

	subscriber := g.rng.Float64() < g.config.SubscriptionShare
	plan := ""
	if subscriber {
		plan = billingPeriods[g.rng.Intn(len(billingPeriods))]
	}

	var rows []orderRow
	current := g.randomTimeInRange(g.config.StartDate, g.config.EndDate)
	for i := 0; i < orderCount; i++ {
		if i > 0 {
			// subsequent orders are spaced out
			current = current.AddDate(0, 0, 7+g.rng.Intn(31))
		}
		if current.After(g.config.EndDate) {
			break
		}
		rows = append(rows, g.order(customerID, plan, current))
	}
	return rows
}

func (g *Generator) order(customerID, plan string, at time.Time) orderRow {
	productIdx := g.rng.Intn(g.config.ProductCount)
	// Later months sell more, so growth metrics have a signal
	months := at.Sub(g.config.StartDate).Hours() / 24 / 30
	base := 20 + float64(productIdx)*15
	amount := round2(base * math.Pow(1+g.config.MonthlyGrowth, months) * (0.8 + 0.4*g.rng.Float64()))

	status := "paid"
	switch r := g.rng.Float64(); {
	case r < g.config.RefundRate:
		status = "refunded"
	case r < g.config.RefundRate+0.03:
		status = "pending"
	case plan != "":
		status = "active"
	}

	return orderRow{
		date:     time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC),
		customer: customerID,
		product:  fmt.Sprintf("product_%02d", productIdx+1),
		amount:   amount,
		cost:     round2(amount * (0.35 + 0.2*g.rng.Float64())),
		expense:  round2(amount * (0.5 + 0.3*g.rng.Float64())),
		status:   status,
		billing:  plan,
	}
}

// Marketing generates one row per campaign and day bucket with the columns
// the marketing metrics read: date, source, campaign, spend, leads,
// conversions, revenue and stage
func (g *Generator) Marketing() *dataset.Dataset {
	var (
		dates       []time.Time
		sources     []string
		campaigns   []string
		spend       []float64
		leads       []float64
		conversions []float64
		revenue     []float64
		stages      []string
	)

	for day := g.config.StartDate; !day.After(g.config.EndDate); day = day.AddDate(0, 0, 7) {
		months := day.Sub(g.config.StartDate).Hours() / 24 / 30
		growth := math.Pow(1+g.config.MonthlyGrowth, months)
		for c := 0; c < g.config.CampaignCount; c++ {
			channel := channels[c%len(channels)]
			s := round2((200 + 50*float64(c)) * (0.8 + 0.4*g.rng.Float64()))
			l := math.Round(float64(20+5*c) * growth * (0.7 + 0.6*g.rng.Float64()))
			conv := math.Round(l * (0.05 + 0.15*g.rng.Float64()))
			if channel == "organic" {
				s = 0
			}

			dates = append(dates, day)
			sources = append(sources, channel)
			campaigns = append(campaigns, fmt.Sprintf("%s_campaign_%d", channel, c+1))
			spend = append(spend, s)
			leads = append(leads, l)
			conversions = append(conversions, conv)
			revenue = append(revenue, round2(conv*(60+40*g.rng.Float64())))
			stages = append(stages, g.funnelStage())
		}
	}

	return dataset.MustNew(
		dataset.DateColumn("date", dates),
		dataset.CategoryColumn("source", sources),
		dataset.CategoryColumn("campaign", campaigns),
		dataset.CurrencyColumn("spend", spend),
		dataset.NumericColumn("leads", leads),
		dataset.NumericColumn("conversions", conversions),
		dataset.CurrencyColumn("revenue", revenue),
		dataset.CategoryColumn("stage", stages),
	)
}

// funnelStage walks the funnel until the lead drops out
func (g *Generator) funnelStage() string {
	stage := 0
	for stage < len(advance) && g.rng.Float64() < advance[stage] {
		stage++
	}
	return funnel[stage]
}

// randomTimeInRange returns a random day between start and end
func (g *Generator) randomTimeInRange(start, end time.Time) time.Time {
	days := int(end.Sub(start).Hours() / 24)
	if days <= 0 {
		return start
	}
	return start.AddDate(0, 0, g.rng.Intn(days+1))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
