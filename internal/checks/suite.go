// Package checks implements the model validation suite: a named, ordered
// collection of checks run against a fitted model and a train/test dataset
// pair, rendered to an HTML report artifact.
package checks

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"demandcast/internal/frame"
)

// Predictor is the model contract the suite runs against. Any model exposing
// Predict can be evaluated.
type Predictor interface {
	Predict(X *mat.Dense) ([]float64, error)
}

// Verdict is the outcome of one check.
type Verdict string

const (
	Pass Verdict = "PASS"
	Fail Verdict = "FAIL"
)

// Result is the recorded outcome of one check.
type Result struct {
	Check     string  `json:"check"`
	Verdict   Verdict `json:"verdict"`
	Observed  float64 `json:"observed"`
	Threshold float64 `json:"threshold"`
	Detail    string  `json:"detail"`
}

// Context carries the evaluation inputs shared by all checks in a suite run.
// Predictions are computed once and shared between checks.
type Context struct {
	Model Predictor
	Train *frame.Dataset
	Test  *frame.Dataset

	trainPred []float64
	testPred  []float64
	trainY    []float64
	testY     []float64
}

// TrainPredictions returns (and lazily computes) predictions on the train slice.
func (c *Context) TrainPredictions() ([]float64, []float64, error) {
	if c.trainPred == nil {
		X, err := c.Train.Features()
		if err != nil {
			return nil, nil, fmt.Errorf("train features: %w", err)
		}
		c.trainPred, err = c.Model.Predict(X)
		if err != nil {
			return nil, nil, fmt.Errorf("predict train: %w", err)
		}
		c.trainY, err = c.Train.Labels()
		if err != nil {
			return nil, nil, fmt.Errorf("train labels: %w", err)
		}
	}
	return c.trainY, c.trainPred, nil
}

// TestPredictions returns (and lazily computes) predictions on the test slice.
func (c *Context) TestPredictions() ([]float64, []float64, error) {
	if c.testPred == nil {
		X, err := c.Test.Features()
		if err != nil {
			return nil, nil, fmt.Errorf("test features: %w", err)
		}
		c.testPred, err = c.Model.Predict(X)
		if err != nil {
			return nil, nil, fmt.Errorf("predict test: %w", err)
		}
		c.testY, err = c.Test.Labels()
		if err != nil {
			return nil, nil, fmt.Errorf("test labels: %w", err)
		}
	}
	return c.testY, c.testPred, nil
}

// Check is a single validation with a pass/fail condition.
type Check interface {
	Name() string
	Run(c *Context) (Result, error)
}

// Suite is a named, ordered collection of checks. Checks run in declaration
// order; the suite fails if any check fails.
type Suite struct {
	Name   string
	Checks []Check
}

// NewSuite validates that check names are non-empty and unique.
func NewSuite(name string, checks ...Check) (*Suite, error) {
	if name == "" {
		return nil, errors.New("suite name is required")
	}
	if len(checks) == 0 {
		return nil, errors.New("suite has no checks")
	}
	seen := make(map[string]bool, len(checks))
	for _, c := range checks {
		n := c.Name()
		if n == "" {
			return nil, errors.New("check with empty name")
		}
		if seen[n] {
			return nil, fmt.Errorf("duplicate check %q", n)
		}
		seen[n] = true
	}
	return &Suite{Name: name, Checks: checks}, nil
}

// Run evaluates every check in order. A check error aborts the run; a failed
// verdict does not.
func (s *Suite) Run(model Predictor, train, test *frame.Dataset) (*Report, error) {
	if model == nil {
		return nil, errors.New("nil model")
	}
	if train == nil || test == nil {
		return nil, errors.New("nil dataset")
	}
	c := &Context{Model: model, Train: train, Test: test}

	rep := &Report{Suite: s.Name, GeneratedAt: time.Now().UTC(), Passed: true}
	for _, check := range s.Checks {
		res, err := check.Run(c)
		if err != nil {
			return nil, fmt.Errorf("check %q: %w", check.Name(), err)
		}
		if res.Verdict != Pass {
			rep.Passed = false
		}
		rep.Results = append(rep.Results, res)
	}
	return rep, nil
}

// Default thresholds of the regression suite.
const (
	DefaultDegradationThreshold = 0.2
	DefaultLatencyThreshold     = 100 * time.Millisecond
)

// DefaultSuite is the fixed two-check suite the pipeline runs: a
// performance-degradation check and an inference-time check.
func DefaultSuite() *Suite {
	s, err := NewSuite("regression-suite",
		&DegradationCheck{Threshold: DefaultDegradationThreshold},
		&LatencyCheck{Threshold: DefaultLatencyThreshold},
	)
	if err != nil {
		// The default suite is statically well-formed.
		panic(err)
	}
	return s
}

// Evaluate runs the default suite and writes the rendered HTML report to
// path. The report file is always produced when the checks run to
// completion, whatever the verdicts.
func Evaluate(model Predictor, train, test *frame.Dataset, path string) (*Report, error) {
	rep, err := DefaultSuite().Run(model, train, test)
	if err != nil {
		return nil, err
	}
	if err := rep.WriteHTML(path); err != nil {
		return nil, err
	}
	return rep, nil
}
