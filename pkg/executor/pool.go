package executor

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"buildqueue/pkg/buildqueue"
	"buildqueue/pkg/jobregistry"
)

// slotExecutor gives one worker slot its own executor ID on the pool
// executor's node, since Queue.Pop allows one concurrent call per ID.
type slotExecutor struct {
	buildqueue.Executor
	id string
}

func (e slotExecutor) ID() string { return e.id }

// Start launches the worker goroutines under an errgroup, each
// independently looping Pop/execute, mirroring the teacher's per-slot
// semaphore-gated puller but as one goroutine per slot instead of a
// single puller fanning out. A worker's own panic-free error return never
// happens in normal operation (runWorker only exits on shutdown), so
// Stop's Wait is really just a join; errgroup is still the natural choice
// here since it is the pack's idiom for supervising a fixed worker fleet.
func (p *Pool) Start(ctx context.Context) {
	group, groupCtx := errgroup.WithContext(ctx)
	p.group = group
	for i := 0; i < p.concurrency; i++ {
		slot := i
		group.Go(func() error {
			p.runWorker(groupCtx, slot)
			return nil
		})
	}
}

func (p *Pool) runWorker(ctx context.Context, slot int) {
	exec := slotExecutor{Executor: p.exec, id: fmt.Sprintf("%s-%d", p.exec.ID(), slot)}
	for {
		select {
		case <-p.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		task, err := p.queue.Pop(ctx, exec)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("executor[%d]: pop error: %v", slot, err)
			continue
		}

		record, ok := task.(*jobregistry.JobRecord)
		if !ok {
			log.Printf("executor[%d]: task %s is not a JobRecord, skipping", slot, task.TaskKey())
			continue
		}

		p.stats.incrementRunning()
		p.executeOne(ctx, record)
		p.stats.decrementRunning()
	}
}

// Stop signals every worker to exit and waits for them to drain.
func (p *Pool) Stop() {
	close(p.stopChan)
	if p.group != nil {
		p.group.Wait()
	}
}

func (p *Pool) retryCount(key string) int {
	p.retriesMu.Lock()
	defer p.retriesMu.Unlock()
	return p.retries[key]
}

func (p *Pool) bumpRetry(key string) int {
	p.retriesMu.Lock()
	defer p.retriesMu.Unlock()
	p.retries[key]++
	return p.retries[key]
}

func (p *Pool) clearRetry(key string) {
	p.retriesMu.Lock()
	defer p.retriesMu.Unlock()
	delete(p.retries, key)
}

// backoffFor implements the teacher's exponential-backoff formula
// (retryCount^2 * 10s): retry 1 -> 10s, retry 2 -> 40s, retry 3 -> 90s.
func backoffFor(retryCount int) time.Duration {
	return time.Duration(retryCount*retryCount*10) * time.Second
}
