// Package execution implements the streaming execution loop
// (component G): a dedicated worker per query that polls its sources,
// rewrites and executes the query plan over whatever batch data
// arrived, commits the result to a sink, and advances the progress
// tracker, with condition-variable-based await/termination semantics.
package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ctrager/streamcore/internal/offset"
	"github.com/ctrager/streamcore/internal/progress"
	"github.com/ctrager/streamcore/internal/streamio"
)

// Executor stands in for the query engine, which the core treats as an
// opaque collaborator: given the batches collected this round (keyed
// by source identity), it returns the executed result the Sink will
// receive.
type Executor func(batches map[string]streamio.Batch) (streamio.ResultSet, error)

const awaitPollInterval = 100 * time.Millisecond

// Loop runs one query: poll every source, and on any new data execute
// the plan and commit to the sink. active, err, and progress are
// only ever mutated by the loop goroutine itself, while holding mu, so
// AwaitOffset/AwaitTermination callers can safely read them under the
// same lock.
type Loop struct {
	sources     []streamio.Source
	sink        streamio.Sink
	executor    Executor
	minBatchGap time.Duration

	progress *progress.Tracker

	mu     sync.Mutex
	cond   *sync.Cond
	active bool
	err    *QueryException

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New constructs and starts a Loop. If sink.CurrentOffset() reports a
// prior commit, StreamProgress is seeded from it (resuming after a
// restart); otherwise the loop starts fresh.
func New(sources []streamio.Source, sink streamio.Sink, executor Executor, minBatchGap time.Duration) *Loop {
	l := &Loop{
		sources:     sources,
		sink:        sink,
		executor:    executor,
		minBatchGap: minBatchGap,
		progress:    progress.New(),
		active:      true,
	}
	l.cond = sync.NewCond(&l.mu)

	if committed, ok := sink.CurrentOffset(); ok {
		l.progress.Seed(committed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.wg.Add(1)
	go l.run(ctx)
	return l
}

func (l *Loop) run(ctx context.Context) {
	defer l.wg.Done()

	tickerStop := make(chan struct{})
	defer close(tickerStop)
	go l.wake(tickerStop)

	for {
		select {
		case <-ctx.Done():
			l.finishNormal()
			return
		case <-time.After(l.minBatchGap):
		}

		batches, err := l.pollSources(ctx)
		if err != nil {
			l.fail(err)
			return
		}
		if len(batches) == 0 {
			continue
		}

		result, err := l.executor(batches)
		if err != nil {
			l.fail(fmt.Errorf("execution: plan execution: %w", err))
			return
		}

		if err := l.commit(ctx, batches, result); err != nil {
			l.fail(err)
			return
		}
	}
}

// wake broadcasts on the condition variable periodically so
// AwaitOffset/AwaitTermination(timeout) callers never block longer
// than awaitPollInterval past the condition actually becoming true.
func (l *Loop) wake(stop <-chan struct{}) {
	t := time.NewTicker(awaitPollInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			l.mu.Lock()
			l.cond.Broadcast()
			l.mu.Unlock()
		}
	}
}

// pollSources asks every source for its next batch relative to this
// source's last recorded progress.
func (l *Loop) pollSources(ctx context.Context) (map[string]streamio.Batch, error) {
	batches := make(map[string]streamio.Batch)
	for _, src := range l.sources {
		last, _ := l.progress.Get(src.String())
		batch, ok, err := src.GetNextBatch(ctx, last)
		if err != nil {
			return nil, fmt.Errorf("execution: source %q getNextBatch: %w", src.String(), err)
		}
		if ok {
			batches[src.String()] = batch
		}
	}
	return batches, nil
}

// commit advances StreamProgress and commits to the sink as one
// section under mu, so no AwaitOffset caller observes an update
// without the corresponding sink commit, and notifies waiters once
// both have happened.
func (l *Loop) commit(ctx context.Context, batches map[string]streamio.Batch, result streamio.ResultSet) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for name, batch := range batches {
		if err := l.progress.Update(name, batch.EndOffset); err != nil {
			return fmt.Errorf("execution: advancing progress: %w", err)
		}
	}

	batchOffset := l.progress.ToOffset()
	if err := l.sink.AddBatch(ctx, batchOffset, result); err != nil {
		return fmt.Errorf("execution: sink addBatch: %w", err)
	}

	l.cond.Broadcast()
	return nil
}

// fail records cause as the loop's terminal QueryException, marks the
// loop inactive, and wakes every waiter.
func (l *Loop) fail(cause error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active {
		return
	}
	l.err = &QueryException{
		Message:     cause.Error(),
		Cause:       cause,
		StartOffset: l.progress.ToOffset(),
	}
	l.active = false
	l.cond.Broadcast()
}

// finishNormal marks the loop inactive with no captured exception, the
// outcome of a clean Stop().
func (l *Loop) finishNormal() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.active {
		return
	}
	l.active = false
	l.cond.Broadcast()
}

// AwaitOffset blocks until source has advanced to at least target, or
// the loop terminates (returning its captured exception, if any).
func (l *Loop) AwaitOffset(ctx context.Context, source string, target offset.Offset) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		if cur, ok := l.progress.Get(source); ok {
			ord, err := cur.Compare(target)
			if err == nil && ord != offset.Less {
				return nil
			}
		}
		if l.err != nil {
			return l.err
		}
		if !l.active {
			return fmt.Errorf("execution: query terminated before reaching offset %s on source %q", target, source)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		l.cond.Wait()
	}
}

// AwaitTermination blocks until the execution loop has exited,
// re-raising any captured QueryException.
func (l *Loop) AwaitTermination() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.active {
		l.cond.Wait()
	}
	if l.err != nil {
		return l.err
	}
	return nil
}

// AwaitTerminationTimeout blocks until the loop exits or timeout
// elapses, returning whether it has terminated (!isActive) and
// re-raising any captured exception once terminated. timeout must be
// positive.
func (l *Loop) AwaitTerminationTimeout(timeout time.Duration) (terminated bool, err error) {
	if timeout <= 0 {
		return false, fmt.Errorf("execution: timeout must be positive")
	}

	deadline := time.Now().Add(timeout)
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.active && time.Now().Before(deadline) {
		l.cond.Wait()
	}

	if l.active {
		return false, nil
	}
	if l.err != nil {
		return true, l.err
	}
	return true, nil
}

// IsActive reports whether the loop is still running.
func (l *Loop) IsActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Exception returns the captured QueryException, if the loop
// terminated with one.
func (l *Loop) Exception() *QueryException {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Stop interrupts the worker and joins it. Idempotent.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.cancel()
	})
	l.wg.Wait()
}
