package checks

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"time"

	"demandcast/internal/frame"
	"demandcast/internal/model"
)

// ModelScore is one model's test-slice metrics in a comparison.
type ModelScore struct {
	Name string  `json:"name"`
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

// Comparison is a side-by-side evaluation of two models on the same test
// slice. Better names the model with the lower test MAE.
type Comparison struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Scores      []ModelScore `json:"scores"`
	Better      string       `json:"better"`
}

// Compare scores two models on the test dataset. Names must be distinct and
// non-empty so the resulting artifact is self-describing.
func Compare(nameA string, a Predictor, nameB string, b Predictor, test *frame.Dataset) (*Comparison, error) {
	if a == nil || b == nil {
		return nil, errors.New("nil model")
	}
	if test == nil {
		return nil, errors.New("nil dataset")
	}
	if nameA == "" || nameB == "" || nameA == nameB {
		return nil, fmt.Errorf("model names must be distinct and non-empty (got %q, %q)", nameA, nameB)
	}

	X, err := test.Features()
	if err != nil {
		return nil, fmt.Errorf("test features: %w", err)
	}
	y, err := test.Labels()
	if err != nil {
		return nil, fmt.Errorf("test labels: %w", err)
	}

	score := func(name string, m Predictor) (ModelScore, error) {
		pred, err := m.Predict(X)
		if err != nil {
			return ModelScore{}, fmt.Errorf("predict (%s): %w", name, err)
		}
		return ModelScore{
			Name: name,
			MAE:  model.MAE(y, pred),
			RMSE: model.RMSE(y, pred),
			R2:   model.R2(y, pred),
		}, nil
	}

	sa, err := score(nameA, a)
	if err != nil {
		return nil, err
	}
	sb, err := score(nameB, b)
	if err != nil {
		return nil, err
	}

	c := &Comparison{GeneratedAt: time.Now().UTC(), Scores: []ModelScore{sa, sb}, Better: sa.Name}
	if sb.MAE < sa.MAE {
		c.Better = sb.Name
	}
	return c, nil
}

var comparisonTemplate = template.Must(template.New("comparison").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Model comparison</title></head>
<body>
<h1>Model comparison</h1>
<p>Generated at {{.GeneratedAt.Format "2006-01-02T15:04:05Z07:00"}}.
Better on test MAE: <b>{{.Better}}</b>.</p>
<table border="1" cellpadding="4">
<tr><th>Model</th><th>MAE</th><th>RMSE</th><th>R&sup2;</th></tr>
{{range .Scores}}<tr>
<td>{{.Name}}</td>
<td>{{printf "%.6g" .MAE}}</td><td>{{printf "%.6g" .RMSE}}</td><td>{{printf "%.6g" .R2}}</td>
</tr>
{{end}}</table>
</body>
</html>
`))

// WriteHTML renders the comparison and writes it atomically to path.
func (c *Comparison) WriteHTML(path string) error {
	if c == nil {
		return errors.New("nil comparison")
	}
	var buf bytes.Buffer
	if err := comparisonTemplate.Execute(&buf, c); err != nil {
		return fmt.Errorf("render comparison: %w", err)
	}
	if err := writeFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write comparison: %w", err)
	}
	return nil
}
