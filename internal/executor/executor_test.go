package executor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func instantTask(name string, priority int, results ...string) Task[string] {
	return Task[string]{
		Name:     name,
		Priority: priority,
		Run: func(ctx context.Context) ([]string, error) {
			return results, nil
		},
	}
}

func TestRun_AllComplete(t *testing.T) {
	tasks := []Task[string]{
		instantTask("a", 1, "a1", "a2"),
		instantTask("b", 1, "b1"),
		instantTask("c", 1),
	}

	s := Run(context.Background(), tasks, Options{MaxConcurrency: 2})

	assert.Equal(t, 3, s.TotalTasks)
	assert.Equal(t, 3, s.CompletedTasks)
	assert.Equal(t, 0, s.FailedTasks)
	assert.Equal(t, 0, s.TimedOutTasks)
	assert.ElementsMatch(t, []string{"a1", "a2", "b1"}, s.Results)
	assert.Len(t, s.TaskResults, 3)
	assert.False(t, s.Degraded())
}

func TestRun_PriorityOrderStable(t *testing.T) {
	var order []string
	var mu sync.Mutex
	mk := func(name string, priority int) Task[string] {
		return Task[string]{
			Name:     name,
			Priority: priority,
			Run: func(ctx context.Context) ([]string, error) {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				return nil, nil
			},
		}
	}

	// Batches of one so scheduling order is observable: high first, ties in
	// declaration order.
	tasks := []Task[string]{mk("low", 1), mk("tie-a", 5), mk("tie-b", 5), mk("high", 9)}
	s := Run(context.Background(), tasks, Options{MaxConcurrency: 1})

	assert.Equal(t, 4, s.CompletedTasks)
	assert.Equal(t, []string{"high", "tie-a", "tie-b", "low"}, order)
	assert.Equal(t, "high", s.TaskResults[0].Name)
	assert.Equal(t, "low", s.TaskResults[3].Name)
}

func TestRun_TaskTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	tasks := []Task[string]{
		{
			Name:     "hangs",
			Priority: 1,
			Run: func(ctx context.Context) ([]string, error) {
				<-release
				return []string{"late"}, nil
			},
		},
		instantTask("quick", 1, "ok"),
	}

	s := Run(context.Background(), tasks, Options{
		MaxConcurrency: 2,
		DefaultTimeout: 100 * time.Millisecond,
		TotalTimeout:   5 * time.Second,
	})

	assert.Equal(t, 1, s.CompletedTasks)
	assert.Equal(t, 1, s.TimedOutTasks)
	assert.Equal(t, 0, s.FailedTasks)
	assert.Equal(t, []string{"ok"}, s.Results)

	var hung *TaskResult[string]
	for i := range s.TaskResults {
		if s.TaskResults[i].Name == "hangs" {
			hung = &s.TaskResults[i]
		}
	}
	if assert.NotNil(t, hung) {
		assert.False(t, hung.Success)
		assert.Equal(t, TimeoutError, hung.Error)
		assert.Empty(t, hung.Results)
		assert.True(t, hung.TimedOut())
	}
}

func TestRun_TimedOutTaskContextCancelled(t *testing.T) {
	cancelled := make(chan struct{})
	tasks := []Task[string]{{
		Name: "cancellable",
		Run: func(ctx context.Context) ([]string, error) {
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		},
	}}

	s := Run(context.Background(), tasks, Options{DefaultTimeout: 50 * time.Millisecond, TotalTimeout: 5 * time.Second})

	assert.Equal(t, 1, s.TimedOutTasks)
	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("task context was never cancelled")
	}
}

func TestRun_TaskError(t *testing.T) {
	tasks := []Task[int]{
		{Name: "boom", Run: func(ctx context.Context) ([]int, error) {
			return nil, errors.New("upstream unavailable")
		}},
		{Name: "ok", Run: func(ctx context.Context) ([]int, error) {
			return []int{7}, nil
		}},
	}

	s := Run(context.Background(), tasks, Options{MaxConcurrency: 2})

	assert.Equal(t, 1, s.CompletedTasks)
	assert.Equal(t, 1, s.FailedTasks)
	assert.Equal(t, 0, s.TimedOutTasks)
	assert.Equal(t, []int{7}, s.Results)

	for _, r := range s.TaskResults {
		if r.Name == "boom" {
			assert.Equal(t, "upstream unavailable", r.Error)
			assert.False(t, r.TimedOut())
		}
	}
}

func TestRun_TaskPanicContained(t *testing.T) {
	tasks := []Task[int]{{Name: "panics", Run: func(ctx context.Context) ([]int, error) {
		panic("bad index")
	}}}

	s := Run(context.Background(), tasks, Options{})

	assert.Equal(t, 1, s.FailedTasks)
	assert.Contains(t, s.TaskResults[0].Error, "bad index")
}

func TestRun_TotalBudgetStopsScheduling(t *testing.T) {
	var started atomic.Int32
	slow := func(ctx context.Context) ([]string, error) {
		started.Add(1)
		select {
		case <-time.After(400 * time.Millisecond):
		case <-ctx.Done():
		}
		return []string{"x"}, nil
	}

	// Total budget barely above the margin: the first batch runs, and by the
	// next batch boundary the remaining budget is under the 2s margin.
	tasks := []Task[string]{
		{Name: "b1-a", Priority: 2, Run: slow},
		{Name: "b1-b", Priority: 2, Run: slow},
		{Name: "b2-a", Priority: 1, Run: slow},
		{Name: "b2-b", Priority: 1, Run: slow},
	}

	s := Run(context.Background(), tasks, Options{
		MaxConcurrency: 2,
		DefaultTimeout: time.Second,
		TotalTimeout:   2200 * time.Millisecond,
	})

	assert.Equal(t, int32(2), started.Load())
	assert.Equal(t, 4, s.TotalTasks)
	assert.Len(t, s.TaskResults, 2)
	assert.Equal(t, 2, s.CompletedTasks)
	assert.True(t, s.Degraded())
}

func TestRun_ResultConservation(t *testing.T) {
	tasks := []Task[int]{
		{Name: "two", Priority: 3, Run: func(ctx context.Context) ([]int, error) { return []int{1, 2}, nil }},
		{Name: "fail", Priority: 2, Run: func(ctx context.Context) ([]int, error) { return nil, errors.New("nope") }},
		{Name: "slow", Priority: 1, Run: func(ctx context.Context) ([]int, error) {
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
			return []int{9}, nil
		}, Timeout: 50 * time.Millisecond},
	}

	s := Run(context.Background(), tasks, Options{MaxConcurrency: 3, TotalTimeout: 10 * time.Second})

	assert.Equal(t, len(s.TaskResults), s.CompletedTasks+s.FailedTasks+s.TimedOutTasks)
	assert.LessOrEqual(t, len(s.TaskResults), s.TotalTasks)

	total := 0
	for _, r := range s.TaskResults {
		if r.Success {
			total += len(r.Results)
		}
	}
	assert.Equal(t, total, len(s.Results))
}

func TestRun_NoTasks(t *testing.T) {
	s := Run[string](context.Background(), nil, Options{})
	assert.Equal(t, 0, s.TotalTasks)
	assert.Empty(t, s.TaskResults)
	assert.False(t, s.Degraded())
}
