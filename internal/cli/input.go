package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const (
	ExitSuccess           = 0
	ExitPipelineFailure   = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// DefaultTestRows is the size of the chronological holdout: the final week
// of hourly observations.
const DefaultTestRows = 168

// Invocation is the fully canonicalized, deterministic description of a run.
//
// All paths are normalized (Clean) and all relative paths are resolved
// relative to WorkDir.
//
// NOTE: WorkDir is required and must be absolute; this prevents any
// dependency on the process current working directory.
type Invocation struct {
	WorkDir    string
	DataPath   string
	OutputDir  string
	Experiment string
	ModelName  string
	TestRows   int

	NumLeaves    int
	LearningRate float64
	Seed         int64

	// CompareRun, when set, asks for a comparison against the model trained
	// in that prior run; the comparison artifact is attached to it.
	CompareRun string

	OriginalData   string
	OriginalOutput string
}

type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// ParseInvocation parses CLI flags into a canonical Invocation.
//
// Determinism goals:
//   - Does not read env vars (that is Config's job).
//   - Does not read/assume the process CWD.
//   - Requires WorkDir to be explicit and absolute.
func ParseInvocation(args []string) (Invocation, error) {
	fs := flag.NewFlagSet("demandcast", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // parsing errors are returned, not printed

	var workDir string
	var dataPath string
	var outputDir string
	var experiment string
	var modelName string
	var testRows int
	var compareRun string
	var numLeaves int
	var learningRate float64
	var seed int64

	fs.StringVar(&workDir, "workdir", "", "Absolute working directory. Required.")
	fs.StringVar(&dataPath, "data", "", "Demand CSV path. Required.")
	fs.StringVar(&outputDir, "output-dir", "", "Directory for reports and rendered trees. Required.")
	fs.StringVar(&experiment, "experiment", "", "Experiment name (optional; overrides env config).")
	fs.StringVar(&modelName, "model-name", "demand-gbt", "Registered model name.")
	fs.IntVar(&testRows, "test-rows", DefaultTestRows, "Rows held out from the tail as the test slice.")
	fs.StringVar(&compareRun, "compare-run", "", "Prior run id to compare against (optional).")
	fs.IntVar(&numLeaves, "num-leaves", 31, "Leaf count per boosted tree.")
	fs.Float64Var(&learningRate, "learning-rate", 0.1, "Shrinkage applied to each tree's contribution.")
	fs.Int64Var(&seed, "seed", 42, "Random seed for feature subsampling.")

	if err := fs.Parse(args); err != nil {
		// flag package returns errors like: "flag provided but not defined: -x"
		return Invocation{}, invalidInvocationf("%v", err)
	}
	if fs.NArg() != 0 {
		return Invocation{}, invalidInvocationf("unexpected positional arguments: %q", strings.Join(fs.Args(), " "))
	}

	workDir = filepath.Clean(workDir)
	if workDir == "" || workDir == "." {
		return Invocation{}, invalidInvocationf("--workdir is required")
	}
	if !filepath.IsAbs(workDir) {
		return Invocation{}, invalidInvocationf("--workdir must be an absolute path (got %q)", workDir)
	}

	if dataPath == "" {
		return Invocation{}, invalidInvocationf("--data is required")
	}
	if outputDir == "" {
		return Invocation{}, invalidInvocationf("--output-dir is required")
	}
	if testRows <= 0 {
		return Invocation{}, invalidInvocationf("--test-rows must be positive (got %d)", testRows)
	}
	if strings.TrimSpace(modelName) == "" {
		return Invocation{}, invalidInvocationf("--model-name must not be empty")
	}
	if numLeaves < 2 {
		return Invocation{}, invalidInvocationf("--num-leaves must be at least 2 (got %d)", numLeaves)
	}
	if learningRate <= 0 || learningRate > 1 {
		return Invocation{}, invalidInvocationf("--learning-rate must be in (0, 1] (got %g)", learningRate)
	}

	resolvedData, err := resolveUnderWorkDir(workDir, dataPath)
	if err != nil {
		return Invocation{}, err
	}
	resolvedOutput, err := resolveUnderWorkDir(workDir, outputDir)
	if err != nil {
		return Invocation{}, err
	}

	return Invocation{
		WorkDir:        workDir,
		DataPath:       resolvedData,
		OutputDir:      resolvedOutput,
		Experiment:     strings.TrimSpace(experiment),
		ModelName:      modelName,
		TestRows:       testRows,
		NumLeaves:      numLeaves,
		LearningRate:   learningRate,
		Seed:           seed,
		CompareRun:     strings.TrimSpace(compareRun),
		OriginalData:   dataPath,
		OriginalOutput: outputDir,
	}, nil
}

func resolveUnderWorkDir(workDir, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", invalidInvocationf("path must not be empty")
	}
	clean := filepath.Clean(p)
	if clean == "." {
		return "", invalidInvocationf("path must not be '.'")
	}

	// If absolute, accept as-is; it is still deterministic.
	// If relative, resolve under WorkDir.
	if filepath.IsAbs(clean) {
		return clean, nil
	}

	// WorkDir is required to be absolute, so Join does not consult process CWD.
	return filepath.Clean(filepath.Join(workDir, clean)), nil
}

// ExitCodeFor extracts a semantic exit code from an error. If the error is
// not a known invocation error, it returns ExitInternalError.
func ExitCodeFor(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	if err == nil {
		return ExitSuccess
	}
	return ExitInternalError
}
