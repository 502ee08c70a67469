// Package pipeline runs an ordered sequence of named stages with validated
// state transitions. Stages run serially; the first failure marks every
// remaining stage SKIPPED, so a run's final state always accounts for each
// stage exactly once.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Stage is one unit of work in a Pipeline.
type Stage struct {
	// Name identifies the stage in state maps, events, and logs.
	Name string

	// Run performs the stage's work. A nil Run is an invariant violation
	// caught at construction.
	Run func(ctx context.Context) error
}

// Event is one observed stage transition.
type Event struct {
	Stage string
	State StageState
	Err   error
}

// Observer receives stage transitions as they happen, in execution order.
// Used for logging at the process boundary; a nil observer is fine.
type Observer func(Event)

// Result is the deterministic summary of one pipeline execution.
type Result struct {
	// FinalState is the terminal state of each stage by name.
	FinalState ExecutionState

	// ExecutionOrder lists the stages that were started, in order.
	ExecutionOrder []string

	// FailedStage names the stage whose error stopped the run, if any.
	FailedStage string

	// Err is the error returned by the failed stage, nil on success.
	Err error
}

// Pipeline is an ordered, validated sequence of stages.
type Pipeline struct {
	stages []Stage
}

// New builds a Pipeline. Stage names must be unique and non-empty, and every
// stage must carry a Run function.
func New(stages ...Stage) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, errors.New("pipeline has no stages")
	}
	seen := make(map[string]bool, len(stages))
	for i, st := range stages {
		if strings.TrimSpace(st.Name) == "" {
			return nil, fmt.Errorf("stage %d has no name", i)
		}
		if seen[st.Name] {
			return nil, fmt.Errorf("duplicate stage name %q", st.Name)
		}
		seen[st.Name] = true
		if st.Run == nil {
			return nil, fmt.Errorf("stage %q has no Run function", st.Name)
		}
	}
	return &Pipeline{stages: stages}, nil
}

// StageNames returns the stage names in execution order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, st := range p.stages {
		names[i] = st.Name
	}
	return names
}

// Execute runs the stages in order. Context cancellation between stages
// fails the next stage without starting it. The returned Result is complete
// even on failure; Result.Err carries the stage error.
func (p *Pipeline) Execute(ctx context.Context, observe Observer) *Result {
	if observe == nil {
		observe = func(Event) {}
	}

	state := make(ExecutionState, len(p.stages))
	for _, st := range p.stages {
		state[st.Name] = StagePending
	}

	res := &Result{FinalState: state}
	for _, st := range p.stages {
		if res.Err == nil {
			if err := ctx.Err(); err != nil {
				res.FailedStage = st.Name
				res.Err = fmt.Errorf("stage %q: %w", st.Name, err)
			}
		}
		if res.Err != nil {
			// A prior failure (or cancellation) skips everything downstream.
			if state[st.Name] == StagePending {
				if err := Transition(state, st.Name, StagePending, StageSkipped); err != nil {
					res.Err = errors.Join(res.Err, err)
					continue
				}
				observe(Event{Stage: st.Name, State: StageSkipped})
			}
			continue
		}

		if err := Transition(state, st.Name, StagePending, StageRunning); err != nil {
			res.FailedStage = st.Name
			res.Err = err
			continue
		}
		res.ExecutionOrder = append(res.ExecutionOrder, st.Name)
		observe(Event{Stage: st.Name, State: StageRunning})

		if err := st.Run(ctx); err != nil {
			if terr := Transition(state, st.Name, StageRunning, StageFailed); terr != nil {
				err = errors.Join(err, terr)
			}
			res.FailedStage = st.Name
			res.Err = fmt.Errorf("stage %q: %w", st.Name, err)
			observe(Event{Stage: st.Name, State: StageFailed, Err: err})
			continue
		}

		if err := Transition(state, st.Name, StageRunning, StageCompleted); err != nil {
			res.FailedStage = st.Name
			res.Err = err
			continue
		}
		observe(Event{Stage: st.Name, State: StageCompleted})
	}
	return res
}
