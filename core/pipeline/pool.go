package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gaurav-prasanna/mdbatch/core"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the worker cap used when none is configured.
const DefaultConcurrency = 5

// ErrTaskPanic marks a task that panicked. The panic is recovered and the
// run continues.
var ErrTaskPanic = errors.New("task panicked")

// TaskFunc converts one task.
type TaskFunc func(ctx context.Context, task core.Task) core.TaskResult

// Pool runs one task per URL with at most Concurrency of them in flight.
type Pool struct {
	Concurrency int
	Notifier    core.Notifier
	// OutputDir is reported on the summary.
	OutputDir string
}

// NewPool creates a Pool. A concurrency below 1 uses DefaultConcurrency.
func NewPool(concurrency int, notifier core.Notifier, outputDir string) *Pool {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Pool{Concurrency: concurrency, Notifier: notifier, OutputDir: outputDir}
}

// Run dispatches one task per entry of urls and blocks until all of them
// have finished. Every task is started before Run waits; a weighted
// semaphore of min(len(urls), Concurrency) slots bounds how many execute at
// once. Once the last task finishes, the notifier is called exactly once
// with the summary, however many tasks failed.
//
// An empty urls returns immediately without notifying.
func (p *Pool) Run(ctx context.Context, urls []string, work TaskFunc) core.Summary {
	summary := core.Summary{
		OutputDir: p.OutputDir,
		Total:     len(urls),
		StartedAt: time.Now(),
	}
	if len(urls) == 0 {
		summary.EndedAt = summary.StartedAt
		return summary
	}

	size := min(len(urls), max(p.Concurrency, 1))
	sem := semaphore.NewWeighted(int64(size))
	results := make([]core.TaskResult, len(urls))

	barrier := NewBarrier(len(urls), func() {
		summary.Results = results
		summary.EndedAt = time.Now()
		for _, r := range results {
			if r.OK() {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
		}
		p.notify(ctx, summary)
	})

	log.Info().Int("tasks", len(urls)).Int("workers", size).Msg("starting batch")

	for i, rawURL := range urls {
		task := core.Task{ID: uuid.NewString(), Index: i, URL: rawURL}
		go func() {
			defer barrier.Done()
			results[task.Index] = runTask(ctx, sem, task, work)
		}()
	}

	barrier.Wait()
	return summary
}

func runTask(ctx context.Context, sem *semaphore.Weighted, task core.Task, work TaskFunc) (res core.TaskResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("task_id", task.ID).
				Str("url", task.URL).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("task panicked")
			res = core.TaskResult{Task: task, Err: fmt.Errorf("%w: %v", ErrTaskPanic, r)}
		}
		res.Duration = time.Since(start)
	}()

	if err := sem.Acquire(ctx, 1); err != nil {
		log.Warn().Err(err).Str("task_id", task.ID).Str("url", task.URL).Msg("task cancelled before start")
		return core.TaskResult{Task: task, Err: fmt.Errorf("waiting for worker: %w", err)}
	}
	defer sem.Release(1)

	res = work(ctx, task)
	res.Task = task
	return res
}

func (p *Pool) notify(ctx context.Context, summary core.Summary) {
	if p.Notifier == nil {
		return
	}
	// The run may have been cancelled; the completion signal is still owed.
	if err := p.Notifier.Notify(context.WithoutCancel(ctx), summary); err != nil {
		log.Error().Err(err).Msg("completion notification failed")
	}
}
