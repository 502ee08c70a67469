package tracking

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Run is the on-disk record of one tracked run.
type Run struct {
	RunID      string     `json:"run_id"`
	Experiment string     `json:"experiment"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Status     Status     `json:"status"`
}

// Validate checks the record's internal consistency.
func (r Run) Validate() error {
	if strings.TrimSpace(r.RunID) == "" {
		return errors.New("run_id is required")
	}
	if strings.TrimSpace(r.Experiment) == "" {
		return errors.New("experiment is required")
	}
	if r.StartTime.IsZero() {
		return errors.New("start_time is required")
	}
	if !validStatus(r.Status) {
		return fmt.Errorf("unknown status %q", r.Status)
	}
	if r.EndTime != nil && r.EndTime.Before(r.StartTime) {
		return errors.New("end_time precedes start_time")
	}
	return nil
}
