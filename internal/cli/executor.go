package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"demandcast/internal/checks"
	"demandcast/internal/frame"
	"demandcast/internal/model"
	"demandcast/internal/pipeline"
	"demandcast/internal/tracking"
)

// Result is the outcome of one CLI execution.
type Result struct {
	ExitCode int

	// RunID is the tracking run created for this execution, when one was
	// opened.
	RunID string

	// ModelVersion is the registry version assigned to the trained model.
	ModelVersion int

	// Pipeline is the stage-level summary, nil if execution never started.
	Pipeline *pipeline.Result

	// Report is the validation report, nil if the evaluate stage never ran.
	Report *checks.Report
}

// Execute runs a canonical invocation end to end: load the demand CSV,
// split off the chronological holdout, train the boosted regressor, run the
// validation suite, and record everything on a tracking run.
//
// Exit-code mapping:
//   - 0: all stages completed and the validation suite passed.
//   - 1: a stage failed or the suite reported a failing check.
//   - 3: configuration problems (env, output dir, tracking backend).
//   - 4: internal errors and panics.
func Execute(ctx context.Context, inv Invocation, logger *slog.Logger) (res Result, execErr error) {
	res.ExitCode = ExitInternalError
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	defer func() {
		if r := recover(); r != nil {
			res.ExitCode = ExitInternalError
			execErr = fmt.Errorf("panic: %v", r)
			logger.Error("panic during execution", "panic", r)
		}
	}()

	cfg, err := LoadConfig(inv.WorkDir)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, err
	}
	experiment := inv.Experiment
	if experiment == "" {
		experiment = cfg.Experiment
	}
	if experiment == "" {
		experiment = "bike-demand"
	}

	tracker, err := newTracker(inv, cfg)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, err
	}

	if err := os.MkdirAll(inv.OutputDir, 0o755); err != nil {
		res.ExitCode = ExitConfigError
		return res, &ConfigError{Message: fmt.Sprintf("create output dir: %v", err), Cause: err}
	}

	rec, err := tracking.Open(ctx, tracker, experiment)
	if err != nil {
		res.ExitCode = ExitConfigError
		return res, fmt.Errorf("create tracking run: %w", err)
	}
	res.RunID = rec.RunID()
	logger.Info("opened tracking run", "run_id", rec.RunID(), "experiment", experiment)

	params := model.Hyperparams{
		NumLeaves:    inv.NumLeaves,
		LearningRate: inv.LearningRate,
		Seed:         inv.Seed,
	}

	// Shared state threaded through the stage closures.
	var (
		raw        *frame.Frame
		train      *frame.Dataset
		test       *frame.Dataset
		reg        *model.Regressor
		report     *checks.Report
		reportPath = filepath.Join(inv.OutputDir, "report.html")
	)

	stages := []pipeline.Stage{
		{Name: "ingest", Run: func(context.Context) error {
			f, err := frame.ReadCSV(inv.DataPath)
			if err != nil {
				return err
			}
			if err := frame.DemandSchema().Validate(f); err != nil {
				return err
			}
			raw = f
			logger.Info("loaded demand data", "rows", f.NumRows(), "cols", f.NumCols())
			return nil
		}},
		{Name: "split", Run: func(context.Context) error {
			trainF, testF, err := frame.TailSplit(raw, inv.TestRows)
			if err != nil {
				return err
			}
			train, err = frame.NewDataset(trainF, frame.LabelColumn, frame.CategoricalColumns())
			if err != nil {
				return err
			}
			test, err = frame.NewDataset(testF, frame.LabelColumn, frame.CategoricalColumns())
			if err != nil {
				return err
			}
			logger.Info("split holdout", "train_rows", train.NumRows(), "test_rows", test.NumRows())
			return nil
		}},
		{Name: "train", Run: func(ctx context.Context) error {
			r, err := model.NewRegressor(params)
			if err != nil {
				return err
			}
			X, err := train.Features()
			if err != nil {
				return err
			}
			y, err := train.Labels()
			if err != nil {
				return err
			}
			if err := r.Fit(X, y); err != nil {
				return err
			}
			reg = r
			if err := rec.Params(ctx, params.Map()); err != nil {
				return err
			}
			logger.Info("trained model", "trees", len(reg.Trees))
			return nil
		}},
		{Name: "evaluate", Run: func(ctx context.Context) error {
			rep, err := checks.Evaluate(reg, train, test, reportPath)
			if err != nil {
				return err
			}
			report = rep
			if err := logScoreMetrics(ctx, rec, reg, train, test); err != nil {
				return err
			}
			content, err := os.ReadFile(reportPath)
			if err != nil {
				return fmt.Errorf("read report: %w", err)
			}
			if err := rec.Artifact(ctx, "report.html", content); err != nil {
				return err
			}
			logger.Info("validation suite finished", "passed", rep.Passed)
			return nil
		}},
		{Name: "register", Run: func(ctx context.Context) error {
			blob, err := reg.MarshalStable()
			if err != nil {
				return err
			}
			if err := rec.Artifact(ctx, "model.json", blob); err != nil {
				return err
			}
			version, err := rec.RegisterModel(ctx, inv.ModelName, blob)
			if err != nil {
				return err
			}
			res.ModelVersion = version

			// Tree rendering needs a graphviz runtime; treat failure as a
			// degraded run, not a failed one.
			treePath := filepath.Join(inv.OutputDir, "tree.svg")
			if err := reg.RenderTree(0, treePath); err != nil {
				logger.Warn("tree rendering skipped", "error", err)
			} else if svg, err := os.ReadFile(treePath); err == nil {
				if err := rec.Artifact(ctx, "tree.svg", svg); err != nil {
					logger.Warn("tree upload failed", "error", err)
				}
			}
			logger.Info("registered model", "name", inv.ModelName, "version", version)
			return nil
		}},
	}

	if inv.CompareRun != "" {
		stages = append(stages, pipeline.Stage{Name: "compare", Run: func(ctx context.Context) error {
			return compareAgainstRun(ctx, tracker, inv, reg, test)
		}})
	}

	p, err := pipeline.New(stages...)
	if err != nil {
		return res, err
	}
	pr := p.Execute(ctx, func(e pipeline.Event) {
		if e.Err != nil {
			logger.Error("stage transition", "stage", e.Stage, "state", string(e.State), "error", e.Err)
		} else {
			logger.Info("stage transition", "stage", e.Stage, "state", string(e.State))
		}
		// Checkpoint terminal stage states onto the run. Best effort: a
		// tracking hiccup must not fail an otherwise healthy stage.
		if pipeline.IsTerminal(e.State) {
			if err := rec.Params(ctx, map[string]string{"stage_" + e.Stage: string(e.State)}); err != nil {
				logger.Warn("stage checkpoint failed", "stage", e.Stage, "error", err)
			}
		}
	})
	res.Pipeline = pr
	res.Report = report

	if err := rec.Finish(ctx, pr.Err); err != nil {
		logger.Warn("status update failed", "error", err)
	}

	if pr.Err != nil {
		res.ExitCode = ExitPipelineFailure
		return res, pr.Err
	}
	if report != nil && !report.Passed {
		// The run itself completed; the model just is not fit to promote.
		res.ExitCode = ExitPipelineFailure
		return res, nil
	}
	res.ExitCode = ExitSuccess
	return res, nil
}

// newTracker picks the backend: an HTTP client when a tracking URI is
// configured, otherwise the file-backed store under WorkDir.
func newTracker(inv Invocation, cfg Config) (tracking.Tracker, error) {
	if cfg.TrackingURI != "" {
		return tracking.NewClient(cfg.TrackingURI, tracking.Credentials{
			S3Endpoint:      cfg.S3Endpoint,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
	}
	return tracking.NewStore(inv.WorkDir)
}

// logScoreMetrics records train and test slice metrics on the run.
func logScoreMetrics(ctx context.Context, rec *tracking.Recorder, reg *model.Regressor, train, test *frame.Dataset) error {
	slice := func(prefix string, ds *frame.Dataset) (map[string]float64, error) {
		X, err := ds.Features()
		if err != nil {
			return nil, err
		}
		y, err := ds.Labels()
		if err != nil {
			return nil, err
		}
		pred, err := reg.Predict(X)
		if err != nil {
			return nil, err
		}
		return map[string]float64{
			prefix + "_mae":  model.MAE(y, pred),
			prefix + "_rmse": model.RMSE(y, pred),
			prefix + "_r2":   model.R2(y, pred),
		}, nil
	}

	metrics := map[string]float64{}
	for prefix, ds := range map[string]*frame.Dataset{"train": train, "test": test} {
		m, err := slice(prefix, ds)
		if err != nil {
			return err
		}
		for k, v := range m {
			metrics[k] = v
		}
	}
	return rec.Metrics(ctx, metrics)
}

// compareAgainstRun loads the model trained by a prior run, scores both
// models on the current test slice, and attaches the comparison artifact to
// the prior run.
func compareAgainstRun(ctx context.Context, tracker tracking.Tracker, inv Invocation, current *model.Regressor, test *frame.Dataset) error {
	prior, err := tracking.Attach(ctx, tracker, inv.CompareRun)
	if err != nil {
		return fmt.Errorf("resume run %s: %w", inv.CompareRun, err)
	}
	blob, err := prior.Fetch(ctx, "model.json")
	if err != nil {
		return fmt.Errorf("fetch prior model: %w", err)
	}
	priorModel, err := model.Decode(bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("decode prior model: %w", err)
	}

	cmp, err := checks.Compare("current", current, "run-"+inv.CompareRun, priorModel, test)
	if err != nil {
		return err
	}
	cmpPath := filepath.Join(inv.OutputDir, "comparison.html")
	if err := cmp.WriteHTML(cmpPath); err != nil {
		return err
	}
	content, err := os.ReadFile(cmpPath)
	if err != nil {
		return fmt.Errorf("read comparison: %w", err)
	}
	return prior.Artifact(ctx, "comparison.html", content)
}
