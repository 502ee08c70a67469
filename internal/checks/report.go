package checks

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"
)

// Report is the rendered outcome of a suite run. Downstream consumers treat
// the HTML file as an opaque artifact; this struct exists for callers that
// want the verdicts programmatically.
type Report struct {
	Suite       string    `json:"suite"`
	GeneratedAt time.Time `json:"generated_at"`
	Passed      bool      `json:"passed"`
	Results     []Result  `json:"results"`
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Suite}}</title></head>
<body>
<h1>{{.Suite}}</h1>
<p>Generated at {{.GeneratedAt.Format "2006-01-02T15:04:05Z07:00"}} &mdash;
{{if .Passed}}all checks passed{{else}}one or more checks failed{{end}}.</p>
<table border="1" cellpadding="4">
<tr><th>Check</th><th>Verdict</th><th>Observed</th><th>Threshold</th><th>Detail</th></tr>
{{range .Results}}<tr>
<td>{{.Check}}</td><td>{{.Verdict}}</td>
<td>{{printf "%.6g" .Observed}}</td><td>{{printf "%.6g" .Threshold}}</td>
<td>{{.Detail}}</td>
</tr>
{{end}}</table>
</body>
</html>
`))

// WriteHTML renders the report and writes it atomically to path. The output
// is always non-empty.
func (r *Report) WriteHTML(path string) error {
	if r == nil {
		return errors.New("nil report")
	}
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, r); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if err := writeFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
