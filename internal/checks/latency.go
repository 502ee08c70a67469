package checks

import (
	"fmt"
	"time"
)

// LatencyCheck measures mean per-row inference time on the test slice. The
// check fails when the mean exceeds the threshold.
//
// The measurement is a single timed Predict over the whole slice divided by
// the row count; it deliberately includes no warm-up or repetition, matching
// the one-shot timing the report is expected to show.
type LatencyCheck struct {
	Threshold time.Duration
}

func (l *LatencyCheck) Name() string { return "inference-time" }

func (l *LatencyCheck) Run(c *Context) (Result, error) {
	X, err := c.Test.Features()
	if err != nil {
		return Result{}, fmt.Errorf("test features: %w", err)
	}
	rows, _ := X.Dims()
	if rows == 0 {
		return Result{}, fmt.Errorf("latency check needs a non-empty test slice")
	}

	start := time.Now()
	if _, err := c.Model.Predict(X); err != nil {
		return Result{}, fmt.Errorf("predict test: %w", err)
	}
	perRow := time.Since(start) / time.Duration(rows)

	res := Result{
		Check:     l.Name(),
		Observed:  perRow.Seconds(),
		Threshold: l.Threshold.Seconds(),
		Detail:    fmt.Sprintf("mean %v per row over %d rows", perRow, rows),
		Verdict:   Pass,
	}
	if perRow > l.Threshold {
		res.Verdict = Fail
	}
	return res, nil
}
