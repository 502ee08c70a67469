package tracking

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ModelVersion is the on-disk record of one registered model version.
type ModelVersion struct {
	Name      string    `json:"name"`
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the record's internal consistency.
func (m ModelVersion) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("name is required")
	}
	if m.Version < 1 {
		return fmt.Errorf("version %d is not positive", m.Version)
	}
	if strings.TrimSpace(m.RunID) == "" {
		return errors.New("run_id is required")
	}
	if m.CreatedAt.IsZero() {
		return errors.New("created_at is required")
	}
	return nil
}

func (s *Store) registryRootDir() string {
	return filepath.Join(s.baseDir, ".demandcast", "registry")
}

func (s *Store) modelDir(name string) string {
	return filepath.Join(s.registryRootDir(), name)
}

func (s *Store) versionDir(name string, version int) string {
	return filepath.Join(s.modelDir(name), fmt.Sprintf("v%d", version))
}

// RegisterModel stores the model blob under name at the next monotonic
// version and records which run produced it.
func (s *Store) RegisterModel(_ context.Context, name, runID string, content []byte) (int, error) {
	if err := validateModelName(name); err != nil {
		return 0, err
	}
	if len(content) == 0 {
		return 0, fmt.Errorf("model %q is empty", name)
	}
	if _, err := s.LoadRun(runID); err != nil {
		return 0, err
	}

	versions, err := s.ListModelVersions(name)
	if err != nil {
		return 0, err
	}
	next := 1
	if len(versions) > 0 {
		next = versions[len(versions)-1] + 1
	}

	mv := ModelVersion{
		Name:      name,
		Version:   next,
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
	}
	dir := s.versionDir(name, next)
	if err := ensureDirDurable(dir, 0o755); err != nil {
		return 0, fmt.Errorf("ensure version dir: %w", err)
	}
	meta, err := jsonMarshalStable(mv)
	if err != nil {
		return 0, fmt.Errorf("marshal version: %w", err)
	}
	if err := writeFileAtomicDurable(filepath.Join(dir, "meta.json"), meta, 0o644); err != nil {
		return 0, fmt.Errorf("write version meta: %w", err)
	}
	if err := writeFileAtomicDurable(filepath.Join(dir, "model.json"), content, 0o644); err != nil {
		return 0, fmt.Errorf("write model: %w", err)
	}
	return next, nil
}

// ListModelVersions returns all registered versions of name in ascending
// order. Non-version entries in the model directory are ignored.
func (s *Store) ListModelVersions(name string) ([]int, error) {
	if err := validateModelName(name); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.modelDir(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	versions := make([]int, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, ok := parseVersionDir(e.Name())
		if !ok {
			continue
		}
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions, nil
}

// LatestModel returns the highest-version blob and its metadata for name.
func (s *Store) LatestModel(name string) ([]byte, ModelVersion, error) {
	versions, err := s.ListModelVersions(name)
	if err != nil {
		return nil, ModelVersion{}, err
	}
	if len(versions) == 0 {
		return nil, ModelVersion{}, fmt.Errorf("model %q has no registered versions", name)
	}
	return s.ModelVersion(name, versions[len(versions)-1])
}

// ModelVersion returns one registered blob and its metadata.
func (s *Store) ModelVersion(name string, version int) ([]byte, ModelVersion, error) {
	dir := s.versionDir(name, version)
	var mv ModelVersion
	if err := readJSONStrict(filepath.Join(dir, "meta.json"), &mv); err != nil {
		return nil, ModelVersion{}, fmt.Errorf("load %s v%d: %w", name, version, err)
	}
	if err := mv.Validate(); err != nil {
		return nil, ModelVersion{}, fmt.Errorf("invalid version on disk: %w", err)
	}
	content, err := os.ReadFile(filepath.Join(dir, "model.json"))
	if err != nil {
		return nil, ModelVersion{}, fmt.Errorf("load %s v%d blob: %w", name, version, err)
	}
	return content, mv, nil
}

func validateModelName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("model name is required")
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("model name %q must be a bare name", name)
	}
	return nil
}

func parseVersionDir(dir string) (int, bool) {
	rest, ok := strings.CutPrefix(dir, "v")
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(rest)
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}
