package experiment

import (
	"time"

	"bizmetrics/domain/core"
)

// Status tracks the experiment lifecycle
type Status string

const (
	StatusDraft    Status = "draft"
	StatusAnalyzed Status = "analyzed"
)

// Decision is the terminal verdict of the decision engine
type Decision string

const (
	DecisionShipVariant  Decision = "ship_variant"
	DecisionHold         Decision = "hold"
	DecisionInconclusive Decision = "inconclusive"
)

const (
	DefaultSignificanceLevel = 0.05
	DefaultConfidenceLevel   = 0.95
	// DefaultPowerTarget is the conventional 80% power used to call a test underpowered
	DefaultPowerTarget = 0.8
)

// Experiment is an A/B test definition plus its latest analysis.
// Re-submitting results overwrites Summaries; history is the caller's concern.
type Experiment struct {
	ID                      core.ExperimentID `json:"id" db:"id"`
	Name                    string            `json:"name" db:"name"`
	Hypothesis              string            `json:"hypothesis" db:"hypothesis"`
	PrimaryMetric           string            `json:"primary_metric" db:"primary_metric"`
	SignificanceLevel       float64           `json:"significance_level" db:"significance_level"`
	ConfidenceLevel         float64           `json:"confidence_level" db:"confidence_level"`
	MinimumDetectableEffect *float64          `json:"minimum_detectable_effect,omitempty" db:"minimum_detectable_effect"`
	Status                  Status            `json:"status" db:"status"`
	Variants                []VariantResult   `json:"variants,omitempty" db:"-"`
	Summaries               []Summary         `json:"summaries,omitempty" db:"-"`
	CreatedAt               time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt               time.Time         `json:"updated_at" db:"updated_at"`
}

// VariantResult holds the observed counts for one arm.
// INVARIANTS: Users >= 0, 0 <= Conversions <= Users
type VariantResult struct {
	Name        string `json:"variant_name"`
	IsControl   bool   `json:"is_control"`
	Users       int64  `json:"users"`
	Conversions int64  `json:"conversions"`
}

// Rate returns conversions/users; callers validate Users > 0 first.
func (v VariantResult) Rate() float64 {
	return float64(v.Conversions) / float64(v.Users)
}

// TestResult is the raw output of the two-proportion test for one
// control/treatment pair. Rates and lifts are fractions (0.06 = 6 points).
type TestResult struct {
	Control            VariantResult  `json:"control"`
	Treatment          VariantResult  `json:"treatment"`
	ControlRate        float64        `json:"control_rate"`
	TreatmentRate      float64        `json:"treatment_rate"`
	PooledRate         float64        `json:"pooled_rate"`
	AbsoluteLift       float64        `json:"absolute_lift"`
	RelativeLift       core.Value     `json:"relative_lift"`
	PooledSE           float64        `json:"pooled_standard_error"`
	UnpooledSE         float64        `json:"unpooled_standard_error"`
	ZScore             float64        `json:"z"`
	PValue             float64        `json:"p_value"`
	ConfidenceInterval [2]float64     `json:"confidence_interval"`
	ConfidenceLevel    float64        `json:"confidence_level"`
	SignificanceLevel  float64        `json:"significance_level"`
	Power              float64        `json:"power"`
	Warnings           []core.Warning `json:"warnings,omitempty"`
}

// Summary is the analysis handed to reporting and narrative layers
type Summary struct {
	ControlVariant     string         `json:"control_variant"`
	TreatmentVariant   string         `json:"treatment_variant"`
	ControlRate        float64        `json:"control_rate"`
	TreatmentRate      float64        `json:"treatment_rate"`
	AbsoluteLift       float64        `json:"absolute_lift"`
	RelativeLift       core.Value     `json:"relative_lift"`
	ZScore             float64        `json:"z"`
	PValue             float64        `json:"p_value"`
	ConfidenceInterval [2]float64     `json:"confidence_interval"`
	ConfidenceLevel    float64        `json:"confidence_level"`
	Power              float64        `json:"power"`
	Decision           Decision       `json:"decision"`
	Rationale          string         `json:"rationale"`
	Warnings           []core.Warning `json:"warnings,omitempty"`
}

// Policy is the caller's decision threshold
type Policy struct {
	SignificanceLevel float64 `json:"significance_level"`
	// MinimumDetectableEffect is a relative lift fraction (0.05 = +5% over control)
	MinimumDetectableEffect *float64 `json:"minimum_detectable_effect,omitempty"`
}

// Policy extracts the decision policy of e
func (e *Experiment) Policy() Policy {
	return Policy{
		SignificanceLevel:       e.SignificanceLevel,
		MinimumDetectableEffect: e.MinimumDetectableEffect,
	}
}

// Control returns the single control variant, if exactly one exists
func (e *Experiment) Control() (VariantResult, bool) {
	var found VariantResult
	n := 0
	for _, v := range e.Variants {
		if v.IsControl {
			found = v
			n++
		}
	}
	return found, n == 1
}
