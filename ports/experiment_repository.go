package ports

import (
	"context"

	"bizmetrics/domain/core"
	"bizmetrics/domain/experiment"
)

// ExperimentRepository persists experiments with their variants and latest summaries
type ExperimentRepository interface {
	// Save inserts or replaces the experiment, including variants and summaries
	Save(ctx context.Context, exp *experiment.Experiment) error

	// Get returns core.ErrExperimentNotFound (wrapped) for unknown IDs
	Get(ctx context.Context, id core.ExperimentID) (*experiment.Experiment, error)

	// List returns experiments newest first; limit <= 0 means no limit
	List(ctx context.Context, limit int) ([]*experiment.Experiment, error)

	Delete(ctx context.Context, id core.ExperimentID) error
}
