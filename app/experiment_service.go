package app

import (
	"context"
	"fmt"
	"math"
	"strings"

	"bizmetrics/domain/core"
	"bizmetrics/domain/experiment"
	"bizmetrics/internal"
	abtest "bizmetrics/internal/experiment"
	"bizmetrics/internal/report"
	"bizmetrics/ports"
)

// ExperimentService manages the experiment lifecycle: a draft is created,
// results are submitted and analyzed, and a re-submission replaces the
// previous analysis.
type ExperimentService struct {
	repo     ports.ExperimentRepository
	clock    ports.Clock
	logger   *internal.Logger
	defaults abtest.Options
}

// CreateExperimentRequest defines a new experiment. Zero levels select the
// service defaults.
type CreateExperimentRequest struct {
	Name                    string   `json:"name"`
	Hypothesis              string   `json:"hypothesis"`
	PrimaryMetric           string   `json:"primary_metric"`
	SignificanceLevel       float64  `json:"significance_level"`
	ConfidenceLevel         float64  `json:"confidence_level"`
	MinimumDetectableEffect *float64 `json:"minimum_detectable_effect,omitempty"`
}

// NewExperimentService creates an experiment service. defaults supplies the
// levels for requests that leave them zero.
func NewExperimentService(repo ports.ExperimentRepository, clock ports.Clock, logger *internal.Logger, defaults abtest.Options) *ExperimentService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ExperimentService{
		repo:     repo,
		clock:    clock,
		logger:   logger.With("experiments"),
		defaults: defaults,
	}
}

// Create stores a new draft experiment
func (s *ExperimentService) Create(ctx context.Context, req CreateExperimentRequest) (*experiment.Experiment, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, core.NewInvalidInputError("name", "must not be empty")
	}
	opts, err := s.options(req.SignificanceLevel, req.ConfidenceLevel)
	if err != nil {
		return nil, err
	}
	if err := validateMDE(req.MinimumDetectableEffect); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	exp := &experiment.Experiment{
		ID:                      core.NewExperimentID(),
		Name:                    name,
		Hypothesis:              strings.TrimSpace(req.Hypothesis),
		PrimaryMetric:           strings.TrimSpace(req.PrimaryMetric),
		SignificanceLevel:       opts.SignificanceLevel,
		ConfidenceLevel:         opts.ConfidenceLevel,
		MinimumDetectableEffect: req.MinimumDetectableEffect,
		Status:                  experiment.StatusDraft,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	if err := s.repo.Save(ctx, exp); err != nil {
		return nil, fmt.Errorf("failed to save experiment: %w", err)
	}
	s.logger.Info("created experiment %s (%s)", exp.ID, exp.Name)
	return exp, nil
}

// Get loads an experiment
func (s *ExperimentService) Get(ctx context.Context, id core.ExperimentID) (*experiment.Experiment, error) {
	return s.repo.Get(ctx, id)
}

// List returns experiments newest first
func (s *ExperimentService) List(ctx context.Context, limit int) ([]*experiment.Experiment, error) {
	return s.repo.List(ctx, limit)
}

// Delete removes an experiment
func (s *ExperimentService) Delete(ctx context.Context, id core.ExperimentID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("deleted experiment %s", id)
	return nil
}

// SubmitResults analyzes observed counts and stores them with the decision.
// Invalid counts leave the stored experiment untouched.
func (s *ExperimentService) SubmitResults(ctx context.Context, id core.ExperimentID, variants []experiment.VariantResult) (*experiment.Experiment, error) {
	exp, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	opts := abtest.Options{SignificanceLevel: exp.SignificanceLevel, ConfidenceLevel: exp.ConfidenceLevel}
	summaries, err := abtest.Analyze(variants, opts, exp.Policy())
	if err != nil {
		return nil, err
	}

	resubmission := exp.Status == experiment.StatusAnalyzed
	exp.Variants = append([]experiment.VariantResult(nil), variants...)
	exp.Summaries = summaries
	exp.Status = experiment.StatusAnalyzed
	exp.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Save(ctx, exp); err != nil {
		return nil, fmt.Errorf("failed to save experiment results: %w", err)
	}

	if resubmission {
		s.logger.Info("experiment %s re-analyzed; previous results replaced", exp.ID)
	}
	for _, sum := range summaries {
		s.logger.Info("experiment %s: %s vs %s -> %s (p=%.4g)", exp.ID, sum.TreatmentVariant, sum.ControlVariant, sum.Decision, sum.PValue)
	}
	return exp, nil
}

// AnalyzeRequest is a stateless analysis: counts plus the decision policy
type AnalyzeRequest struct {
	Variants                []experiment.VariantResult `json:"variants"`
	SignificanceLevel       float64                    `json:"significance_level"`
	ConfidenceLevel         float64                    `json:"confidence_level"`
	MinimumDetectableEffect *float64                   `json:"minimum_detectable_effect,omitempty"`
}

// Analyze runs the statistics and decision engines without persisting anything
func (s *ExperimentService) Analyze(req AnalyzeRequest) ([]experiment.Summary, error) {
	opts, err := s.options(req.SignificanceLevel, req.ConfidenceLevel)
	if err != nil {
		return nil, err
	}
	policy := experiment.Policy{
		SignificanceLevel:       opts.SignificanceLevel,
		MinimumDetectableEffect: req.MinimumDetectableEffect,
	}
	return abtest.Analyze(req.Variants, opts, policy)
}

// Report renders an experiment as markdown
func (s *ExperimentService) Report(ctx context.Context, id core.ExperimentID) (string, error) {
	exp, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return report.ExperimentMarkdown(exp), nil
}

// ReportHTML renders an experiment as a standalone HTML page
func (s *ExperimentService) ReportHTML(ctx context.Context, id core.ExperimentID) ([]byte, error) {
	exp, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return report.Page("Experiment: "+exp.Name, report.ExperimentMarkdown(exp))
}

func (s *ExperimentService) options(alpha, confidence float64) (abtest.Options, error) {
	opts := abtest.Options{SignificanceLevel: alpha, ConfidenceLevel: confidence}
	if opts.SignificanceLevel == 0 {
		opts.SignificanceLevel = s.defaults.SignificanceLevel
	}
	if opts.ConfidenceLevel == 0 {
		opts.ConfidenceLevel = s.defaults.ConfidenceLevel
	}
	return opts.Resolve()
}

func validateMDE(mde *float64) error {
	if mde == nil {
		return nil
	}
	if *mde < 0 || math.IsNaN(*mde) || math.IsInf(*mde, 0) {
		return core.NewInvalidInputError("minimum_detectable_effect", "must be a non-negative fraction, got %g", *mde)
	}
	return nil
}
