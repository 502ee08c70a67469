// Package tracking records experiment runs: parameters, metrics, artifact
// files, and registered model versions.
//
// Two backends implement the same Tracker contract: a file-backed Store used
// offline and in tests, and an HTTP Client for a remote tracking server. The
// pipeline only ever talks to the Tracker interface.
package tracking

import "context"

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning  Status = "RUNNING"
	StatusFinished Status = "FINISHED"
	StatusFailed   Status = "FAILED"
)

func validStatus(s Status) bool {
	switch s {
	case StatusRunning, StatusFinished, StatusFailed:
		return true
	default:
		return false
	}
}

// MaxParams bounds the key/value parameter set attached to one run.
const MaxParams = 100

// Tracker is the set of obligations this codebase has toward a tracking
// backend: open or resume a run, attach parameters/metrics/artifacts, and
// register model versions. Parameters are write-once; artifacts may be
// appended to a finished run (that is what resuming is for).
type Tracker interface {
	// CreateRun opens a new run under the experiment and returns its opaque id.
	CreateRun(ctx context.Context, experiment string) (string, error)

	// ResumeRun verifies that a prior run exists so artifacts can be appended
	// to it. It never alters the run's parameters or status.
	ResumeRun(ctx context.Context, runID string) error

	// LogParams attaches key/value parameters. Re-logging a key with a
	// different value is an error; the bounded set never exceeds MaxParams.
	LogParams(ctx context.Context, runID string, params map[string]string) error

	// LogMetrics attaches named metric values.
	LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error

	// UploadArtifact attaches an opaque file by name.
	UploadArtifact(ctx context.Context, runID, name string, content []byte) error

	// GetArtifact retrieves a previously uploaded artifact.
	GetArtifact(ctx context.Context, runID, name string) ([]byte, error)

	// RegisterModel stores a model blob under name and returns its new
	// version. Versions increase monotonically per name.
	RegisterModel(ctx context.Context, name, runID string, content []byte) (int, error)

	// SetStatus transitions the run's lifecycle state.
	SetStatus(ctx context.Context, runID string, status Status) error
}
