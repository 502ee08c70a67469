package cli

import (
	"errors"
	"path/filepath"
	"testing"
)

func validArgs() []string {
	return []string{
		"--workdir", "/work",
		"--data", "data/train.csv",
		"--output-dir", "out",
	}
}

func TestParseInvocation_ResolvesRelativePaths(t *testing.T) {
	inv, err := ParseInvocation(validArgs())
	if err != nil {
		t.Fatalf("ParseInvocation: %v", err)
	}
	if inv.DataPath != filepath.Join("/work", "data", "train.csv") {
		t.Errorf("data path = %q", inv.DataPath)
	}
	if inv.OutputDir != filepath.Join("/work", "out") {
		t.Errorf("output dir = %q", inv.OutputDir)
	}
	if inv.OriginalData != "data/train.csv" {
		t.Errorf("original data = %q", inv.OriginalData)
	}
}

func TestParseInvocation_Defaults(t *testing.T) {
	inv, err := ParseInvocation(validArgs())
	if err != nil {
		t.Fatalf("ParseInvocation: %v", err)
	}
	if inv.TestRows != DefaultTestRows {
		t.Errorf("test rows = %d, want %d", inv.TestRows, DefaultTestRows)
	}
	if inv.NumLeaves != 31 {
		t.Errorf("num leaves = %d, want 31", inv.NumLeaves)
	}
	if inv.LearningRate != 0.1 {
		t.Errorf("learning rate = %g, want 0.1", inv.LearningRate)
	}
	if inv.Seed != 42 {
		t.Errorf("seed = %d, want 42", inv.Seed)
	}
	if inv.ModelName != "demand-gbt" {
		t.Errorf("model name = %q, want demand-gbt", inv.ModelName)
	}
}

func TestParseInvocation_AbsolutePathsAcceptedAsIs(t *testing.T) {
	inv, err := ParseInvocation([]string{
		"--workdir", "/work",
		"--data", "/elsewhere/train.csv",
		"--output-dir", "out",
	})
	if err != nil {
		t.Fatalf("ParseInvocation: %v", err)
	}
	if inv.DataPath != "/elsewhere/train.csv" {
		t.Errorf("data path = %q", inv.DataPath)
	}
}

func TestParseInvocation_RejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"missing workdir", []string{"--data", "d.csv", "--output-dir", "out"}},
		{"relative workdir", []string{"--workdir", "rel", "--data", "d.csv", "--output-dir", "out"}},
		{"missing data", []string{"--workdir", "/work", "--output-dir", "out"}},
		{"missing output dir", []string{"--workdir", "/work", "--data", "d.csv"}},
		{"unknown flag", append(validArgs(), "--bogus")},
		{"positional args", append(validArgs(), "extra")},
		{"non-positive test rows", append(validArgs(), "--test-rows", "0")},
		{"one leaf", append(validArgs(), "--num-leaves", "1")},
		{"zero learning rate", append(validArgs(), "--learning-rate", "0")},
		{"learning rate above one", append(validArgs(), "--learning-rate", "1.5")},
		{"blank model name", append(validArgs(), "--model-name", " ")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseInvocation(tc.args)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var invErr *InvocationError
			if !errors.As(err, &invErr) {
				t.Fatalf("error type = %T, want *InvocationError", err)
			}
			if invErr.ExitCode != ExitInvalidInvocation {
				t.Errorf("exit code = %d, want %d", invErr.ExitCode, ExitInvalidInvocation)
			}
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	if got := ExitCodeFor(nil); got != ExitSuccess {
		t.Errorf("nil error -> %d, want %d", got, ExitSuccess)
	}
	if got := ExitCodeFor(&InvocationError{ExitCode: ExitInvalidInvocation, Message: "x"}); got != ExitInvalidInvocation {
		t.Errorf("invocation error -> %d, want %d", got, ExitInvalidInvocation)
	}
	if got := ExitCodeFor(errors.New("boom")); got != ExitInternalError {
		t.Errorf("opaque error -> %d, want %d", got, ExitInternalError)
	}
}
