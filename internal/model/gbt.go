// Package model implements the gradient-boosted regression trees the
// pipeline trains, along with regression metrics and model persistence.
//
// The regressor exposes the fit/predict contract the rest of the repository
// programs against: Fit(features, labels) and Predict(features) on dense
// matrices, configured once by an immutable Hyperparams value.
package model

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Hyperparams configures a Regressor. The value is fixed at construction and
// never mutated for the lifetime of a run.
//
// NumLeaves, LearningRate and Seed are the externally supplied settings;
// the remaining fields carry fixed defaults applied by withDefaults.
type Hyperparams struct {
	// NumLeaves is the maximum leaf count per tree.
	NumLeaves int `json:"num_leaves"`

	// LearningRate shrinks each tree's contribution.
	LearningRate float64 `json:"learning_rate"`

	// Seed fixes the row/feature sampling source. Two fits with the same
	// seed and data produce identical models.
	Seed int64 `json:"seed"`

	// NumRounds is the boosting round count.
	NumRounds int `json:"num_rounds"`

	// MaxDepth bounds tree depth. Zero means the default, not unlimited.
	MaxDepth int `json:"max_depth"`

	// FeatureFraction is the fraction of features sampled per tree.
	FeatureFraction float64 `json:"feature_fraction"`

	// MinLeafRows is the minimum row count per leaf.
	MinLeafRows int `json:"min_leaf_rows"`
}

const (
	defaultNumRounds       = 100
	defaultMaxDepth        = 6
	defaultFeatureFraction = 1.0
	defaultMinLeafRows     = 1
)

func (p Hyperparams) withDefaults() Hyperparams {
	if p.NumRounds == 0 {
		p.NumRounds = defaultNumRounds
	}
	if p.MaxDepth == 0 {
		p.MaxDepth = defaultMaxDepth
	}
	if p.FeatureFraction == 0 {
		p.FeatureFraction = defaultFeatureFraction
	}
	if p.MinLeafRows == 0 {
		p.MinLeafRows = defaultMinLeafRows
	}
	return p
}

// Validate checks the hyperparameter ranges after defaults are applied.
func (p Hyperparams) Validate() error {
	if p.NumLeaves < 2 {
		return fmt.Errorf("num_leaves must be >= 2 (got %d)", p.NumLeaves)
	}
	if p.LearningRate <= 0 || p.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be in (0, 1] (got %v)", p.LearningRate)
	}
	if p.NumRounds < 1 {
		return fmt.Errorf("num_rounds must be >= 1 (got %d)", p.NumRounds)
	}
	if p.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be >= 1 (got %d)", p.MaxDepth)
	}
	if p.FeatureFraction <= 0 || p.FeatureFraction > 1 {
		return fmt.Errorf("feature_fraction must be in (0, 1] (got %v)", p.FeatureFraction)
	}
	if p.MinLeafRows < 1 {
		return fmt.Errorf("min_leaf_rows must be >= 1 (got %d)", p.MinLeafRows)
	}
	return nil
}

// Map renders the hyperparameters as a flat key/value set for run logging.
// Keys are stable; values use canonical decimal formatting.
func (p Hyperparams) Map() map[string]string {
	p = p.withDefaults()
	return map[string]string{
		"num_leaves":       strconv.Itoa(p.NumLeaves),
		"learning_rate":    strconv.FormatFloat(p.LearningRate, 'g', -1, 64),
		"seed":             strconv.FormatInt(p.Seed, 10),
		"num_rounds":       strconv.Itoa(p.NumRounds),
		"max_depth":        strconv.Itoa(p.MaxDepth),
		"feature_fraction": strconv.FormatFloat(p.FeatureFraction, 'g', -1, 64),
		"min_leaf_rows":    strconv.Itoa(p.MinLeafRows),
	}
}

// Regressor is a gradient-boosted ensemble of regression trees fit on
// squared error. The zero value is not usable; construct with NewRegressor.
type Regressor struct {
	Params      Hyperparams `json:"params"`
	Base        float64     `json:"base"`
	NumFeatures int         `json:"num_features"`
	Trees       []Tree      `json:"trees"`
}

// NewRegressor validates the hyperparameters and returns an unfitted model.
func NewRegressor(p Hyperparams) (*Regressor, error) {
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid hyperparameters: %w", err)
	}
	return &Regressor{Params: p}, nil
}

// Fit trains the ensemble on X (rows x features) against y. Fitting an
// already-fitted model is an error: hyperparameters and trees are immutable
// for the run's lifetime.
func (r *Regressor) Fit(X *mat.Dense, y []float64) error {
	if r == nil {
		return errors.New("nil regressor")
	}
	if len(r.Trees) > 0 {
		return errors.New("model is already fitted")
	}
	if X == nil {
		return errors.New("nil feature matrix")
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return fmt.Errorf("empty feature matrix (%d x %d)", rows, cols)
	}
	if len(y) != rows {
		return fmt.Errorf("label length %d does not match %d rows", len(y), rows)
	}

	data := rowsOf(X)
	r.NumFeatures = cols
	r.Base = mean(y)

	pred := make([]float64, rows)
	for i := range pred {
		pred[i] = r.Base
	}
	residual := make([]float64, rows)
	rng := rand.New(rand.NewSource(r.Params.Seed))

	for round := 0; round < r.Params.NumRounds; round++ {
		for i := range residual {
			residual[i] = y[i] - pred[i]
		}
		tree, ok := growTree(data, residual, r.Params, rng)
		if !ok {
			// No splittable structure left; further rounds would add
			// constant-zero trees.
			break
		}
		for i := range data {
			pred[i] += r.Params.LearningRate * tree.predictRow(data[i])
		}
		r.Trees = append(r.Trees, tree)
	}
	return nil
}

// Predict returns one prediction per row of X.
func (r *Regressor) Predict(X *mat.Dense) ([]float64, error) {
	if r == nil || r.NumFeatures == 0 {
		return nil, errors.New("model is not fitted")
	}
	if X == nil {
		return nil, errors.New("nil feature matrix")
	}
	rows, cols := X.Dims()
	if cols != r.NumFeatures {
		return nil, fmt.Errorf("feature count %d does not match fitted %d", cols, r.NumFeatures)
	}

	out := make([]float64, rows)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		v := r.Base
		for t := range r.Trees {
			v += r.Params.LearningRate * r.Trees[t].predictRow(row)
		}
		out[i] = v
	}
	return out, nil
}

func rowsOf(X *mat.Dense) [][]float64 {
	rows, cols := X.Dims()
	out := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		out[i] = make([]float64, cols)
		mat.Row(out[i], i, X)
	}
	return out
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
