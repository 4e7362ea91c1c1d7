package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"bizmetrics/domain/core"
	"bizmetrics/domain/experiment"
	"bizmetrics/ports"
)

// ExperimentRepositoryImpl keeps experiments in a map guarded by a RWMutex.
// Values are copied on the way in and out so callers never share state.
type ExperimentRepositoryImpl struct {
	mu          sync.RWMutex
	experiments map[core.ExperimentID]*experiment.Experiment
}

// NewExperimentRepository creates an empty in-memory experiment repository
func NewExperimentRepository() ports.ExperimentRepository {
	return &ExperimentRepositoryImpl{experiments: make(map[core.ExperimentID]*experiment.Experiment)}
}

// Save inserts or replaces an experiment
func (r *ExperimentRepositoryImpl) Save(ctx context.Context, exp *experiment.Experiment) error {
	if exp == nil || exp.ID.String() == "" {
		return core.NewInvalidInputError("experiment", "id is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.experiments[exp.ID] = cloneExperiment(exp)
	return nil
}

// Get retrieves an experiment by ID
func (r *ExperimentRepositoryImpl) Get(ctx context.Context, id core.ExperimentID) (*experiment.Experiment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	exp, ok := r.experiments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrExperimentNotFound, id)
	}
	return cloneExperiment(exp), nil
}

// List returns experiments newest first
func (r *ExperimentRepositoryImpl) List(ctx context.Context, limit int) ([]*experiment.Experiment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]*experiment.Experiment, 0, len(r.experiments))
	for _, exp := range r.experiments {
		out = append(out, cloneExperiment(exp))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Delete removes an experiment; unknown IDs are reported as not found
func (r *ExperimentRepositoryImpl) Delete(ctx context.Context, id core.ExperimentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.experiments[id]; !ok {
		return fmt.Errorf("%w: %s", core.ErrExperimentNotFound, id)
	}
	delete(r.experiments, id)
	return nil
}

func cloneExperiment(exp *experiment.Experiment) *experiment.Experiment {
	c := *exp
	if exp.MinimumDetectableEffect != nil {
		mde := *exp.MinimumDetectableEffect
		c.MinimumDetectableEffect = &mde
	}
	c.Variants = append([]experiment.VariantResult(nil), exp.Variants...)
	if exp.Summaries != nil {
		c.Summaries = make([]experiment.Summary, len(exp.Summaries))
		for i, s := range exp.Summaries {
			s.Warnings = append([]core.Warning(nil), s.Warnings...)
			c.Summaries[i] = s
		}
	}
	return &c
}
