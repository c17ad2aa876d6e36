package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/sweetpotato0/ewa-agent/rag/agentic"
)

// Asker answers one question and returns its trace. *agentic.Agent satisfies it.
type Asker interface {
	Run(ctx context.Context, question string) (*agentic.Trace, error)
}

// Runner executes agent runs with bounded concurrency
type Runner interface {
	// Run answers question with ag once a slot is free
	Run(ctx context.Context, ag Asker, question string) (*agentic.Trace, error)
}

// runner is the default implementation of Runner
type runner struct {
	maxConcurrency int
	semaphore      chan struct{}
}

// New creates a new runner
func New(maxConcurrency int) Runner {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &runner{
		maxConcurrency: maxConcurrency,
		semaphore:      make(chan struct{}, maxConcurrency),
	}
}

// Run answers question with ag
func (r *runner) Run(ctx context.Context, ag Asker, question string) (*agentic.Trace, error) {
	select {
	case r.semaphore <- struct{}{}:
		defer func() { <-r.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if ag == nil {
		return nil, fmt.Errorf("agent is not configured")
	}
	return ag.Run(ctx, question)
}

// Task is one question of a batch
type Task struct {
	ID       string
	Question string
}

// Result is the outcome of a task. Trace may be set together with Error
// when the run completed but its trace could not be stored.
type Result struct {
	TaskID   string
	Question string
	Trace    *agentic.Trace
	Error    error
}

// Answer returns the final answer or "" when the run failed.
func (r *Result) Answer() string {
	if r == nil || r.Trace == nil {
		return ""
	}
	return r.Trace.FinalAnswer
}

// ParallelRunner answers a batch of questions concurrently
type ParallelRunner struct {
	runner Runner
	agent  Asker
}

// NewParallelRunner creates a parallel runner for ag
func NewParallelRunner(ag Asker, maxConcurrency int) *ParallelRunner {
	return &ParallelRunner{
		runner: New(maxConcurrency),
		agent:  ag,
	}
}

// RunParallel runs every task and returns results in task order. A failing
// or panicking task does not affect the others.
func (pr *ParallelRunner) RunParallel(ctx context.Context, tasks []*Task) []*Result {
	results := make([]*Result, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(index int, t *Task) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[index] = &Result{
						TaskID:   t.ID,
						Question: t.Question,
						Error:    fmt.Errorf("panic in task %s: %v", t.ID, r),
					}
				}
			}()

			tr, err := pr.runner.Run(ctx, pr.agent, t.Question)
			results[index] = &Result{
				TaskID:   t.ID,
				Question: t.Question,
				Trace:    tr,
				Error:    err,
			}
		}(i, task)
	}

	wg.Wait()
	return results
}

// SequentialRunner answers questions one after another
type SequentialRunner struct {
	runner Runner
	agent  Asker
}

// NewSequentialRunner creates a sequential runner for ag
func NewSequentialRunner(ag Asker) *SequentialRunner {
	return &SequentialRunner{
		runner: New(1),
		agent:  ag,
	}
}

// RunSequential runs tasks in order. With stopOnError the batch ends at the
// first failure and the results so far are returned with its error.
func (sr *SequentialRunner) RunSequential(ctx context.Context, tasks []*Task, stopOnError bool) ([]*Result, error) {
	results := make([]*Result, 0, len(tasks))
	for _, task := range tasks {
		tr, err := sr.runner.Run(ctx, sr.agent, task.Question)
		results = append(results, &Result{
			TaskID:   task.ID,
			Question: task.Question,
			Trace:    tr,
			Error:    err,
		})
		if err != nil && stopOnError {
			return results, fmt.Errorf("task %s: %w", task.ID, err)
		}
	}
	return results, nil
}
