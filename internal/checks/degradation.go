package checks

import (
	"fmt"
	"math"

	"demandcast/internal/model"
)

// DegradationCheck compares test-slice error against train-slice error. The
// check fails when the relative degradation of MAE or RMSE exceeds the
// threshold: (test - train) / train > Threshold.
type DegradationCheck struct {
	Threshold float64
}

func (d *DegradationCheck) Name() string { return "performance-degradation" }

func (d *DegradationCheck) Run(c *Context) (Result, error) {
	trainY, trainPred, err := c.TrainPredictions()
	if err != nil {
		return Result{}, err
	}
	testY, testPred, err := c.TestPredictions()
	if err != nil {
		return Result{}, err
	}
	if len(trainY) == 0 || len(testY) == 0 {
		return Result{}, fmt.Errorf("degradation check needs non-empty train and test slices")
	}

	maeDeg := relativeDegradation(model.MAE(trainY, trainPred), model.MAE(testY, testPred))
	rmseDeg := relativeDegradation(model.RMSE(trainY, trainPred), model.RMSE(testY, testPred))
	observed := math.Max(maeDeg, rmseDeg)

	res := Result{
		Check:     d.Name(),
		Observed:  observed,
		Threshold: d.Threshold,
		Detail:    fmt.Sprintf("MAE degradation %.4f, RMSE degradation %.4f", maeDeg, rmseDeg),
		Verdict:   Pass,
	}
	if observed > d.Threshold {
		res.Verdict = Fail
	}
	return res, nil
}

// relativeDegradation treats a zero train error specially: a zero-error model
// that stays at zero has not degraded; one that picks up any test error has
// degraded unboundedly.
func relativeDegradation(train, test float64) float64 {
	if train == 0 {
		if test == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return (test - train) / train
}
