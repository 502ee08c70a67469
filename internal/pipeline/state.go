package pipeline

import "fmt"

// StageState is the lifecycle state of one pipeline stage.
type StageState string

const (
	StagePending   StageState = "PENDING"
	StageRunning   StageState = "RUNNING"
	StageCompleted StageState = "COMPLETED"
	StageFailed    StageState = "FAILED"
	StageSkipped   StageState = "SKIPPED"
)

// IsTerminal reports whether the state is terminal (finished).
func IsTerminal(s StageState) bool {
	switch s {
	case StageCompleted, StageFailed, StageSkipped:
		return true
	default:
		return false
	}
}

// ExecutionState maps stage name to its current state.
type ExecutionState map[string]StageState

// Transition performs a validated transition for a single stage.
//
// The caller supplies the expected prior state (from) so stale transitions
// are observable. The state map is mutated if and only if the transition is
// valid.
func Transition(state ExecutionState, stageName string, from, to StageState) error {
	cur, ok := state[stageName]
	if !ok {
		return fmt.Errorf("unknown stage in state: %q", stageName)
	}
	if cur != from {
		return fmt.Errorf("invalid transition for %q: expected %s, got %s", stageName, from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", stageName, from, to)
	}
	state[stageName] = to
	return nil
}

func isAllowedTransition(from, to StageState) bool {
	switch from {
	case StagePending:
		return to == StageRunning || to == StageSkipped
	case StageRunning:
		return to == StageCompleted || to == StageFailed
	default:
		return false
	}
}
