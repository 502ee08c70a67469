package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"demandcast/internal/pipeline"
	"demandcast/internal/tracking"
)

// demandCSV writes a learnable fixture: count is a pure function of hour, so
// a boosted tree model fits both slices equally well and the validation
// suite passes.
func demandCSV(rows int) string {
	var sb strings.Builder
	sb.WriteString("season,holiday,workingday,weather,hour,temp,atemp,humidity,windspeed,casual,registered,count\n")
	for i := 0; i < rows; i++ {
		hour := i % 24
		count := 10 + hour*10
		fmt.Fprintf(&sb, "1,0,1,1,%d,10.5,12.5,50,0.5,0,%d,%d\n", hour, count, count)
	}
	return sb.String()
}

func writeWorkspace(t *testing.T, rows int) (workDir, dataPath string) {
	t.Helper()
	workDir = t.TempDir()
	dataPath = filepath.Join(workDir, "train.csv")
	if err := os.WriteFile(dataPath, []byte(demandCSV(rows)), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return workDir, dataPath
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestExecute_EndToEnd(t *testing.T) {
	workDir, _ := writeWorkspace(t, 360)

	res, err := Run(context.Background(), []string{
		"--workdir", workDir,
		"--data", "train.csv",
		"--output-dir", "out",
	}, discardLogger())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.ExitCode != ExitSuccess {
		t.Fatalf("exit code = %d, want %d", res.ExitCode, ExitSuccess)
	}
	if res.RunID == "" {
		t.Fatal("no tracking run opened")
	}
	if res.ModelVersion != 1 {
		t.Errorf("model version = %d, want 1", res.ModelVersion)
	}
	if res.Report == nil || !res.Report.Passed {
		t.Error("validation suite did not pass")
	}

	for _, name := range []string{"ingest", "split", "train", "evaluate", "register"} {
		if got := res.Pipeline.FinalState[name]; got != pipeline.StageCompleted {
			t.Errorf("stage %s = %s, want COMPLETED", name, got)
		}
	}

	if _, err := os.Stat(filepath.Join(workDir, "out", "report.html")); err != nil {
		t.Errorf("report file: %v", err)
	}

	// The file-backed store must carry the run's params, metrics, and
	// artifacts.
	store, err := tracking.NewStore(workDir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	params, err := store.LoadParams(res.RunID)
	if err != nil {
		t.Fatalf("LoadParams: %v", err)
	}
	if params["num_leaves"] != "31" || params["seed"] != "42" {
		t.Errorf("params = %v", params)
	}
	metrics, err := store.LoadMetrics(res.RunID)
	if err != nil {
		t.Fatalf("LoadMetrics: %v", err)
	}
	if _, ok := metrics["test_mae"]; !ok {
		t.Errorf("metrics = %v, missing test_mae", metrics)
	}
	if _, err := store.GetArtifact(context.Background(), res.RunID, "model.json"); err != nil {
		t.Errorf("model artifact: %v", err)
	}
	run, err := store.LoadRun(res.RunID)
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if run.Status != tracking.StatusFinished {
		t.Errorf("status = %s, want FINISHED", run.Status)
	}
}

func TestExecute_CompareAttachesArtifactToPriorRun(t *testing.T) {
	workDir, _ := writeWorkspace(t, 360)
	args := []string{
		"--workdir", workDir,
		"--data", "train.csv",
		"--output-dir", "out",
	}

	first, err := Run(context.Background(), args, discardLogger())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.ExitCode != ExitSuccess {
		t.Fatalf("first run exit code = %d", first.ExitCode)
	}

	second, err := Run(context.Background(), append(args,
		"--num-leaves", "8",
		"--compare-run", first.RunID,
	), discardLogger())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.ExitCode != ExitSuccess {
		t.Fatalf("second run exit code = %d", second.ExitCode)
	}
	if got := second.Pipeline.FinalState["compare"]; got != pipeline.StageCompleted {
		t.Errorf("compare stage = %s, want COMPLETED", got)
	}

	store, err := tracking.NewStore(workDir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	content, err := store.GetArtifact(context.Background(), first.RunID, "comparison.html")
	if err != nil {
		t.Fatalf("comparison artifact on prior run: %v", err)
	}
	if !strings.Contains(string(content), "current") {
		t.Error("comparison should name the current model")
	}

	// The second run registers the next model version.
	if second.ModelVersion != 2 {
		t.Errorf("second model version = %d, want 2", second.ModelVersion)
	}
}

func TestExecute_MissingDataFailsIngestAndSkipsRest(t *testing.T) {
	workDir := t.TempDir()

	res, err := Run(context.Background(), []string{
		"--workdir", workDir,
		"--data", "absent.csv",
		"--output-dir", "out",
	}, discardLogger())
	if err == nil {
		t.Fatal("expected error for a missing data file, got nil")
	}
	if res.ExitCode != ExitPipelineFailure {
		t.Errorf("exit code = %d, want %d", res.ExitCode, ExitPipelineFailure)
	}
	if got := res.Pipeline.FinalState["ingest"]; got != pipeline.StageFailed {
		t.Errorf("ingest = %s, want FAILED", got)
	}
	for _, name := range []string{"split", "train", "evaluate", "register"} {
		if got := res.Pipeline.FinalState[name]; got != pipeline.StageSkipped {
			t.Errorf("stage %s = %s, want SKIPPED", name, got)
		}
	}

	// The run is closed as failed.
	store, err := tracking.NewStore(workDir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	run, err := store.LoadRun(res.RunID)
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if run.Status != tracking.StatusFailed {
		t.Errorf("status = %s, want FAILED", run.Status)
	}
}

func TestExecute_UndersizedDataFailsSplit(t *testing.T) {
	workDir, _ := writeWorkspace(t, 100)

	res, err := Run(context.Background(), []string{
		"--workdir", workDir,
		"--data", "train.csv",
		"--output-dir", "out",
	}, discardLogger())
	if err == nil {
		t.Fatal("expected error for undersized data, got nil")
	}
	if res.ExitCode != ExitPipelineFailure {
		t.Errorf("exit code = %d, want %d", res.ExitCode, ExitPipelineFailure)
	}
	if got := res.Pipeline.FinalState["split"]; got != pipeline.StageFailed {
		t.Errorf("split = %s, want FAILED", got)
	}
}

func TestExecute_InvalidInvocationExitCode(t *testing.T) {
	res, err := Run(context.Background(), []string{"--bogus"}, discardLogger())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if res.ExitCode != ExitInvalidInvocation {
		t.Errorf("exit code = %d, want %d", res.ExitCode, ExitInvalidInvocation)
	}
}
