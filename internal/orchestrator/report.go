package orchestrator

import "time"

// Outcome is the result of one attempted job.
type Outcome string

// Supported outcomes.
const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// JobResult describes one attempted job.
type JobResult struct {
	ID         string        `json:"id"`
	Outcome    Outcome       `json:"outcome"`
	OutputPath string        `json:"output_path"`
	StartedAt  time.Time     `json:"started_at"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Error      string        `json:"error,omitempty"`
}

// Report enumerates every job attempted by one Run, in execution order.
// Jobs skipped after a failure do not appear.
type Report struct {
	RunID      string      `json:"run_id"`
	OutputDir  string      `json:"output_dir"`
	RefGenome  string      `json:"ref_genome"`
	Selected   []string    `json:"selected"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Jobs       []JobResult `json:"jobs"`
}

// Failed returns the failed job, if any. Runs stop at the first failure, so there is at most one.
func (r Report) Failed() (JobResult, bool) {
	for _, j := range r.Jobs {
		if j.Outcome == OutcomeFailed {
			return j, true
		}
	}
	return JobResult{}, false
}

// Succeeded returns the ids of jobs whose artifacts were committed.
func (r Report) Succeeded() []string {
	var out []string
	for _, j := range r.Jobs {
		if j.Outcome == OutcomeSucceeded {
			out = append(out, j.ID)
		}
	}
	return out
}

// Outcome summarises the run.
func (r Report) Outcome() Outcome {
	if _, failed := r.Failed(); failed {
		return OutcomeFailed
	}
	return OutcomeSucceeded
}
