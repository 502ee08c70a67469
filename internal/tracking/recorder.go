package tracking

import (
	"context"
	"errors"
)

// Recorder binds a Tracker to one run so callers stop threading the run id
// through every call. Open starts a fresh run; Attach targets an existing
// one for late artifacts.
type Recorder struct {
	tracker Tracker
	runID   string
}

// Open creates a new run under the experiment and returns its Recorder.
func Open(ctx context.Context, tracker Tracker, experiment string) (*Recorder, error) {
	if tracker == nil {
		return nil, errors.New("nil tracker")
	}
	runID, err := tracker.CreateRun(ctx, experiment)
	if err != nil {
		return nil, err
	}
	return &Recorder{tracker: tracker, runID: runID}, nil
}

// Attach resumes an existing run for appending artifacts.
func Attach(ctx context.Context, tracker Tracker, runID string) (*Recorder, error) {
	if tracker == nil {
		return nil, errors.New("nil tracker")
	}
	if err := tracker.ResumeRun(ctx, runID); err != nil {
		return nil, err
	}
	return &Recorder{tracker: tracker, runID: runID}, nil
}

// RunID returns the bound run's id.
func (r *Recorder) RunID() string { return r.runID }

// Params attaches write-once parameters to the run.
func (r *Recorder) Params(ctx context.Context, params map[string]string) error {
	return r.tracker.LogParams(ctx, r.runID, params)
}

// Metrics attaches metric values to the run.
func (r *Recorder) Metrics(ctx context.Context, metrics map[string]float64) error {
	return r.tracker.LogMetrics(ctx, r.runID, metrics)
}

// Artifact attaches an opaque file to the run.
func (r *Recorder) Artifact(ctx context.Context, name string, content []byte) error {
	return r.tracker.UploadArtifact(ctx, r.runID, name, content)
}

// Fetch retrieves one of the run's artifacts.
func (r *Recorder) Fetch(ctx context.Context, name string) ([]byte, error) {
	return r.tracker.GetArtifact(ctx, r.runID, name)
}

// RegisterModel stores a model blob produced by this run.
func (r *Recorder) RegisterModel(ctx context.Context, name string, content []byte) (int, error) {
	return r.tracker.RegisterModel(ctx, name, r.runID, content)
}

// Finish closes the run: FINISHED when runErr is nil, FAILED otherwise.
func (r *Recorder) Finish(ctx context.Context, runErr error) error {
	status := StatusFinished
	if runErr != nil {
		status = StatusFailed
	}
	return r.tracker.SetStatus(ctx, r.runID, status)
}
