package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"bizmetrics/domain/core"
	"bizmetrics/domain/experiment"
	"bizmetrics/internal/errors"
	"bizmetrics/ports"

	"github.com/jmoiron/sqlx"
)

// ExperimentRepositoryImpl implements ExperimentRepository for PostgreSQL.
// Variants and summaries live in JSONB columns next to the definition.
type ExperimentRepositoryImpl struct {
	db *sqlx.DB
}

// NewExperimentRepository creates a new PostgreSQL experiment repository
func NewExperimentRepository(db *sqlx.DB) ports.ExperimentRepository {
	return &ExperimentRepositoryImpl{db: db}
}

// experimentRow mirrors the experiments table
type experimentRow struct {
	ID                      string          `db:"id"`
	Name                    string          `db:"name"`
	Hypothesis              string          `db:"hypothesis"`
	PrimaryMetric           string          `db:"primary_metric"`
	SignificanceLevel       float64         `db:"significance_level"`
	ConfidenceLevel         float64         `db:"confidence_level"`
	MinimumDetectableEffect sql.NullFloat64 `db:"minimum_detectable_effect"`
	Status                  string          `db:"status"`
	Variants                []byte          `db:"variants"`
	Summaries               []byte          `db:"summaries"`
	CreatedAt               time.Time       `db:"created_at"`
	UpdatedAt               time.Time       `db:"updated_at"`
}

const experimentColumns = `id, name, hypothesis, primary_metric, significance_level, confidence_level,
	minimum_detectable_effect, status, variants, summaries, created_at, updated_at`

func toExperimentRow(exp *experiment.Experiment) (*experimentRow, error) {
	variants := exp.Variants
	if variants == nil {
		variants = []experiment.VariantResult{}
	}
	variantsJSON, err := json.Marshal(variants)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal variants: %w", err)
	}
	summaries := exp.Summaries
	if summaries == nil {
		summaries = []experiment.Summary{}
	}
	summariesJSON, err := json.Marshal(summaries)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summaries: %w", err)
	}

	row := &experimentRow{
		ID:                exp.ID.String(),
		Name:              exp.Name,
		Hypothesis:        exp.Hypothesis,
		PrimaryMetric:     exp.PrimaryMetric,
		SignificanceLevel: exp.SignificanceLevel,
		ConfidenceLevel:   exp.ConfidenceLevel,
		Status:            string(exp.Status),
		Variants:          variantsJSON,
		Summaries:         summariesJSON,
		CreatedAt:         exp.CreatedAt,
		UpdatedAt:         exp.UpdatedAt,
	}
	if exp.MinimumDetectableEffect != nil {
		row.MinimumDetectableEffect = sql.NullFloat64{Float64: *exp.MinimumDetectableEffect, Valid: true}
	}
	return row, nil
}

func (row *experimentRow) toExperiment() (*experiment.Experiment, error) {
	exp := &experiment.Experiment{
		ID:                core.ExperimentID(row.ID),
		Name:              row.Name,
		Hypothesis:        row.Hypothesis,
		PrimaryMetric:     row.PrimaryMetric,
		SignificanceLevel: row.SignificanceLevel,
		ConfidenceLevel:   row.ConfidenceLevel,
		Status:            experiment.Status(row.Status),
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if row.MinimumDetectableEffect.Valid {
		mde := row.MinimumDetectableEffect.Float64
		exp.MinimumDetectableEffect = &mde
	}
	if len(row.Variants) > 0 {
		if err := json.Unmarshal(row.Variants, &exp.Variants); err != nil {
			return nil, fmt.Errorf("failed to unmarshal variants: %w", err)
		}
	}
	if len(row.Summaries) > 0 {
		if err := json.Unmarshal(row.Summaries, &exp.Summaries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal summaries: %w", err)
		}
	}
	if len(exp.Summaries) == 0 {
		exp.Summaries = nil
	}
	return exp, nil
}

// Save inserts or replaces an experiment
func (r *ExperimentRepositoryImpl) Save(ctx context.Context, exp *experiment.Experiment) error {
	row, err := toExperimentRow(exp)
	if err != nil {
		return err
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO experiments (`+experimentColumns+`)
		VALUES (:id, :name, :hypothesis, :primary_metric, :significance_level, :confidence_level,
			:minimum_detectable_effect, :status, :variants, :summaries, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			hypothesis = EXCLUDED.hypothesis,
			primary_metric = EXCLUDED.primary_metric,
			significance_level = EXCLUDED.significance_level,
			confidence_level = EXCLUDED.confidence_level,
			minimum_detectable_effect = EXCLUDED.minimum_detectable_effect,
			status = EXCLUDED.status,
			variants = EXCLUDED.variants,
			summaries = EXCLUDED.summaries,
			updated_at = EXCLUDED.updated_at`, row)
	if err != nil {
		return errors.DatabaseError(err, "failed to save experiment %s", exp.ID)
	}
	return nil
}

// Get retrieves an experiment by ID
func (r *ExperimentRepositoryImpl) Get(ctx context.Context, id core.ExperimentID) (*experiment.Experiment, error) {
	var row experimentRow
	err := r.db.GetContext(ctx, &row, `SELECT `+experimentColumns+` FROM experiments WHERE id = $1`, id.String())
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", core.ErrExperimentNotFound, id)
	}
	if err != nil {
		return nil, errors.DatabaseError(err, "failed to get experiment %s", id)
	}
	return row.toExperiment()
}

// List returns experiments newest first
func (r *ExperimentRepositoryImpl) List(ctx context.Context, limit int) ([]*experiment.Experiment, error) {
	query := `SELECT ` + experimentColumns + ` FROM experiments ORDER BY created_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	var rows []experimentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.DatabaseError(err, "failed to list experiments")
	}

	out := make([]*experiment.Experiment, 0, len(rows))
	for i := range rows {
		exp, err := rows[i].toExperiment()
		if err != nil {
			return nil, err
		}
		out = append(out, exp)
	}
	return out, nil
}

// Delete removes an experiment by ID
func (r *ExperimentRepositoryImpl) Delete(ctx context.Context, id core.ExperimentID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM experiments WHERE id = $1`, id.String())
	if err != nil {
		return errors.DatabaseError(err, "failed to delete experiment %s", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", core.ErrExperimentNotFound, id)
	}
	return nil
}
