// Package executor runs prioritized batches of independent tasks with
// per-task and total wall-clock budgets, returning partial results instead of
// failing the whole run when individual tasks misbehave.
package executor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// TimeoutError is the exact error string recorded for a task that exceeded
// its time budget. Callers match on it to distinguish timeouts from failures.
const TimeoutError = "Task timeout"

const (
	// totalBudgetMargin is checked before each batch: if less than this much
	// of the total budget remains, no further batches are scheduled.
	totalBudgetMargin = 2 * time.Second
	// perTaskMargin is subtracted from the remaining total budget when
	// clamping an individual task's timeout.
	perTaskMargin = time.Second

	defaultMaxConcurrency = 3
	defaultTaskTimeout    = 30 * time.Second
	defaultTotalTimeout   = 5 * time.Minute
)

// Task is one unit of work. Higher Priority runs earlier; ties keep their
// original order. A zero Timeout falls back to Options.DefaultTimeout.
type Task[T any] struct {
	Name     string
	Priority int
	Timeout  time.Duration
	Run      func(ctx context.Context) ([]T, error)
}

// Options bounds an execution run.
//
// Timeouts are best-effort, not true cancellation: when a task's budget
// expires its child context is cancelled and the executor moves on, but the
// Run function is left to finish in the background and whatever it eventually
// returns is discarded.
type Options struct {
	MaxConcurrency int
	DefaultTimeout time.Duration
	TotalTimeout   time.Duration
}

// TaskResult records one task's outcome.
type TaskResult[T any] struct {
	Name     string        `json:"name"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Results  []T           `json:"results"`
	Duration time.Duration `json:"duration"`
}

// TimedOut reports whether this result represents an expired time budget
// rather than a task failure.
func (r TaskResult[T]) TimedOut() bool {
	return !r.Success && r.Error == TimeoutError
}

// Summary aggregates a run. Results concatenates the successful tasks' output
// in batch order. TaskResults always satisfies
// CompletedTasks+FailedTasks+TimedOutTasks == len(TaskResults) <= TotalTasks;
// the shortfall is tasks never scheduled because the total budget ran out.
type Summary[T any] struct {
	TotalTasks     int             `json:"total_tasks"`
	CompletedTasks int             `json:"completed_tasks"`
	FailedTasks    int             `json:"failed_tasks"`
	TimedOutTasks  int             `json:"timed_out_tasks"`
	TotalDuration  time.Duration   `json:"total_duration"`
	Results        []T             `json:"results"`
	TaskResults    []TaskResult[T] `json:"task_results"`
}

// Degraded reports whether any scheduled task failed or timed out, or any
// task was never scheduled at all.
func (s Summary[T]) Degraded() bool {
	return s.FailedTasks > 0 || s.TimedOutTasks > 0 || len(s.TaskResults) < s.TotalTasks
}

// Run executes tasks in sequential batches of MaxConcurrency, highest
// priority first. Stopping early because the total budget ran out is a
// successful outcome with partial results, not an error. There are no
// retries at this layer; retry policy belongs inside each task's Run.
func Run[T any](ctx context.Context, tasks []Task[T], opts Options) Summary[T] {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaultMaxConcurrency
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = defaultTaskTimeout
	}
	if opts.TotalTimeout <= 0 {
		opts.TotalTimeout = defaultTotalTimeout
	}

	sorted := make([]Task[T], len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	start := time.Now()
	summary := Summary[T]{TotalTasks: len(tasks)}

	for offset := 0; offset < len(sorted); offset += opts.MaxConcurrency {
		remaining := opts.TotalTimeout - time.Since(start)
		if remaining < totalBudgetMargin {
			break
		}

		end := offset + opts.MaxConcurrency
		if end > len(sorted) {
			end = len(sorted)
		}
		batch := sorted[offset:end]

		results := make([]TaskResult[T], len(batch))
		var wg sync.WaitGroup
		for i, task := range batch {
			timeout := task.Timeout
			if timeout <= 0 {
				timeout = opts.DefaultTimeout
			}
			if budget := remaining - perTaskMargin; timeout > budget {
				timeout = budget
			}

			wg.Add(1)
			go func(i int, task Task[T], timeout time.Duration) {
				defer wg.Done()
				results[i] = runTask(ctx, task, timeout)
			}(i, task, timeout)
		}
		wg.Wait()

		for _, r := range results {
			summary.TaskResults = append(summary.TaskResults, r)
			switch {
			case r.Success:
				summary.CompletedTasks++
				summary.Results = append(summary.Results, r.Results...)
			case r.TimedOut():
				summary.TimedOutTasks++
			default:
				summary.FailedTasks++
			}
		}
	}

	summary.TotalDuration = time.Since(start)
	return summary
}

func runTask[T any](ctx context.Context, task Task[T], timeout time.Duration) TaskResult[T] {
	start := time.Now()
	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		results []T
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("task panic: %v", r)}
			}
		}()
		results, err := task.Run(taskCtx)
		done <- outcome{results: results, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			return TaskResult[T]{Name: task.Name, Error: out.err.Error(), Results: []T{}, Duration: time.Since(start)}
		}
		return TaskResult[T]{Name: task.Name, Success: true, Results: out.results, Duration: time.Since(start)}
	case <-timer.C:
		// Best effort: the child context is cancelled but the Run call is
		// abandoned, not awaited. A late result is discarded.
		return TaskResult[T]{Name: task.Name, Error: TimeoutError, Results: []T{}, Duration: time.Since(start)}
	}
}
