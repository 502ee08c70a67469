package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the file-backed tracking backend, rooted at:
//
//	<baseDir>/.demandcast/runs/<run-id>/
//	<baseDir>/.demandcast/registry/<model-name>/v<N>/
//
// All writes are atomic and durable (file sync + atomic rename + dir sync),
// and all listings are sorted, so two inspections of the same store agree.
type Store struct {
	baseDir string
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) (*Store, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("baseDir is required")
	}
	return &Store{baseDir: baseDir}, nil
}

func (s *Store) runsRootDir() string          { return filepath.Join(s.baseDir, ".demandcast", "runs") }
func (s *Store) runDir(runID string) string   { return filepath.Join(s.runsRootDir(), runID) }
func (s *Store) runPath(runID string) string  { return filepath.Join(s.runDir(runID), "run.json") }
func (s *Store) paramsPath(id string) string  { return filepath.Join(s.runDir(id), "params.json") }
func (s *Store) metricsPath(id string) string { return filepath.Join(s.runDir(id), "metrics.json") }
func (s *Store) artifactsDir(id string) string {
	return filepath.Join(s.runDir(id), "artifacts")
}

// CreateRun opens a new run with a fresh UUID and a RUNNING status.
func (s *Store) CreateRun(_ context.Context, experiment string) (string, error) {
	if strings.TrimSpace(experiment) == "" {
		return "", errors.New("experiment is required")
	}
	run := Run{
		RunID:      uuid.NewString(),
		Experiment: experiment,
		StartTime:  time.Now().UTC(),
		Status:     StatusRunning,
	}
	if err := s.saveRun(run); err != nil {
		return "", err
	}
	return run.RunID, nil
}

// ResumeRun verifies the run exists on disk. The record itself is untouched.
func (s *Store) ResumeRun(_ context.Context, runID string) error {
	_, err := s.LoadRun(runID)
	return err
}

// LoadRun reads and validates a run record.
func (s *Store) LoadRun(runID string) (Run, error) {
	var run Run
	if strings.TrimSpace(runID) == "" {
		return Run{}, errors.New("runID is required")
	}
	if err := readJSONStrict(s.runPath(runID), &run); err != nil {
		return Run{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	if err := run.Validate(); err != nil {
		return Run{}, fmt.Errorf("invalid run on disk: %w", err)
	}
	return run, nil
}

// ListRunIDs returns all run ids present on disk, sorted lexicographically.
func (s *Store) ListRunIDs() ([]string, error) {
	entries, err := os.ReadDir(s.runsRootDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return ids, nil
}

// LogParams merges params into the run's parameter set. Parameters are
// write-once: re-logging a key with a different value is an error, and the
// total set is bounded by MaxParams.
func (s *Store) LogParams(_ context.Context, runID string, params map[string]string) error {
	if _, err := s.LoadRun(runID); err != nil {
		return err
	}
	existing, err := s.LoadParams(runID)
	if err != nil {
		return err
	}
	for k, v := range params {
		if strings.TrimSpace(k) == "" {
			return errors.New("parameter key is empty")
		}
		if prev, ok := existing[k]; ok && prev != v {
			return fmt.Errorf("parameter %q already logged with value %q", k, prev)
		}
		existing[k] = v
	}
	if len(existing) > MaxParams {
		return fmt.Errorf("parameter set exceeds %d entries", MaxParams)
	}
	data, err := jsonMarshalStable(existing)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	return writeFileAtomicDurable(s.paramsPath(runID), data, 0o644)
}

// LoadParams returns the run's parameter set; absent means empty.
func (s *Store) LoadParams(runID string) (map[string]string, error) {
	out := map[string]string{}
	err := readJSONStrict(s.paramsPath(runID), &out)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return out, nil
}

// LogMetrics merges metric values into the run's metric set. Metrics may be
// overwritten; the latest value wins.
func (s *Store) LogMetrics(_ context.Context, runID string, metrics map[string]float64) error {
	if _, err := s.LoadRun(runID); err != nil {
		return err
	}
	existing := map[string]float64{}
	if err := readJSONStrict(s.metricsPath(runID), &existing); err != nil && !os.IsNotExist(err) {
		return err
	}
	for k, v := range metrics {
		if strings.TrimSpace(k) == "" {
			return errors.New("metric key is empty")
		}
		existing[k] = v
	}
	data, err := jsonMarshalStable(existing)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	return writeFileAtomicDurable(s.metricsPath(runID), data, 0o644)
}

// LoadMetrics returns the run's metric set; absent means empty.
func (s *Store) LoadMetrics(runID string) (map[string]float64, error) {
	out := map[string]float64{}
	err := readJSONStrict(s.metricsPath(runID), &out)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]float64{}, nil
		}
		return nil, err
	}
	return out, nil
}

// UploadArtifact attaches an opaque file by name. Artifacts append to the
// run whatever its status; resumed runs use this to add late artifacts.
func (s *Store) UploadArtifact(_ context.Context, runID, name string, content []byte) error {
	if _, err := s.LoadRun(runID); err != nil {
		return err
	}
	if err := validateArtifactName(name); err != nil {
		return err
	}
	if len(content) == 0 {
		return fmt.Errorf("artifact %q is empty", name)
	}
	if err := ensureDirDurable(s.artifactsDir(runID), 0o755); err != nil {
		return fmt.Errorf("ensure artifacts dir: %w", err)
	}
	return writeFileAtomicDurable(filepath.Join(s.artifactsDir(runID), name), content, 0o644)
}

// GetArtifact retrieves a previously uploaded artifact.
func (s *Store) GetArtifact(_ context.Context, runID, name string) ([]byte, error) {
	if err := validateArtifactName(name); err != nil {
		return nil, err
	}
	content, err := os.ReadFile(filepath.Join(s.artifactsDir(runID), name))
	if err != nil {
		return nil, fmt.Errorf("artifact %q of run %s: %w", name, runID, err)
	}
	return content, nil
}

// ListArtifacts returns the run's artifact names, sorted.
func (s *Store) ListArtifacts(runID string) ([]string, error) {
	entries, err := os.ReadDir(s.artifactsDir(runID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// SetStatus transitions the run's lifecycle state and stamps EndTime on
// terminal states.
func (s *Store) SetStatus(_ context.Context, runID string, status Status) error {
	if !validStatus(status) {
		return fmt.Errorf("unknown status %q", status)
	}
	run, err := s.LoadRun(runID)
	if err != nil {
		return err
	}
	run.Status = status
	if status != StatusRunning {
		now := time.Now().UTC()
		run.EndTime = &now
	}
	return s.saveRun(run)
}

func (s *Store) saveRun(run Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("invalid run: %w", err)
	}
	if err := ensureDirDurable(s.runDir(run.RunID), 0o755); err != nil {
		return fmt.Errorf("ensure run dir: %w", err)
	}
	data, err := jsonMarshalStable(run)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}
	if err := writeFileAtomicDurable(s.runPath(run.RunID), data, 0o644); err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// validateArtifactName keeps artifact names flat and filesystem-safe.
func validateArtifactName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("artifact name is required")
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("artifact name %q must be a bare file name", name)
	}
	return nil
}

func jsonMarshalStable(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func readJSONStrict(path string, dst any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("invalid JSON: trailing content")
	}
	return nil
}

func ensureDirDurable(dir string, perm os.FileMode) error {
	if err := os.MkdirAll(dir, perm); err != nil {
		return err
	}
	if err := fsyncDir(dir); err != nil {
		return err
	}
	parent := filepath.Dir(dir)
	if parent != dir {
		if err := fsyncDir(parent); err != nil {
			return err
		}
	}
	return nil
}

func writeFileAtomicDurable(path string, data []byte, perm os.FileMode) error {
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

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
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
	return fsyncDir(dir)
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
