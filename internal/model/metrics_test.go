package model

import (
	"math"
	"testing"
)

func TestMetrics_KnownValues(t *testing.T) {
	yTrue := []float64{1, 2, 3, 4}
	yPred := []float64{1, 2, 5, 2}

	if got := MAE(yTrue, yPred); got != 1 {
		t.Errorf("MAE = %v, want 1", got)
	}
	if got := MSE(yTrue, yPred); got != 2 {
		t.Errorf("MSE = %v, want 2", got)
	}
	if got := RMSE(yTrue, yPred); math.Abs(got-math.Sqrt2) > 1e-12 {
		t.Errorf("RMSE = %v, want sqrt(2)", got)
	}
}

func TestMetrics_PerfectPrediction(t *testing.T) {
	y := []float64{3, 1, 4, 1, 5}

	if got := MAE(y, y); got != 0 {
		t.Errorf("MAE = %v, want 0", got)
	}
	if got := R2(y, y); got != 1 {
		t.Errorf("R2 = %v, want 1", got)
	}
}

func TestR2_ConstantTargetIsZero(t *testing.T) {
	y := []float64{2, 2, 2}
	pred := []float64{1, 2, 3}

	if got := R2(y, pred); got != 0 {
		t.Errorf("R2 = %v, want 0", got)
	}
}
