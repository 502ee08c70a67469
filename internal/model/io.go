package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Save writes the fitted model as indented JSON. The write is atomic: the
// destination either holds the previous content or the complete new model.
func (r *Regressor) Save(path string) error {
	if r == nil {
		return errors.New("nil regressor")
	}
	if len(r.Trees) == 0 {
		return errors.New("refusing to save an unfitted model")
	}
	data, err := r.MarshalStable()
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

// MarshalStable returns the canonical indented JSON encoding of the model.
func (r *Regressor) MarshalStable() ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Load reads a model written by Save. Unknown fields and trailing content
// are rejected.
func Load(path string) (*Regressor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a serialized model from r.
func Decode(r io.Reader) (*Regressor, error) {
	var m Regressor
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, errors.New("decode model: trailing content")
	}
	if m.NumFeatures <= 0 || len(m.Trees) == 0 {
		return nil, errors.New("decode model: not a fitted model")
	}
	if err := m.Params.Validate(); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &m, nil
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
