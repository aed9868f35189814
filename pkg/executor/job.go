package executor

import (
	"context"
	"log"
	"time"

	"buildqueue/pkg/jobregistry"
)

// executeOne runs a single task's body and, on failure, either re-enqueues
// it after an exponential-backoff quiet period or abandons it once
// MaxRetries is exhausted — the teacher's finalizeJobInDB retry/permanent-
// failure split, translated to the in-process queue.
func (p *Pool) executeOne(ctx context.Context, task *jobregistry.JobRecord) {
	key := task.TaskKey()
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	result, err := p.registry.Execute(runCtx, task)
	finishedAt := time.Now()

	if err == nil {
		p.clearRetry(key)
		p.stats.recordSuccess(finishedAt)
		log.Printf("executor: task %s succeeded in %s (result keys: %d)",
			task.FullDisplayName(), finishedAt.Sub(start).Round(time.Millisecond), len(result))
		return
	}

	p.stats.recordFailure(finishedAt)
	retryCount := p.bumpRetry(key)

	if retryCount > MaxRetries {
		p.clearRetry(key)
		log.Printf("executor: task %s failed permanently after %d retries: %v",
			task.FullDisplayName(), MaxRetries, err)
		return
	}

	delay := backoffFor(retryCount)
	log.Printf("executor: task %s failed (%v), retry %d/%d in %s",
		task.FullDisplayName(), err, retryCount, MaxRetries, delay)

	retryTask := *task
	p.queue.Add(&retryTask, delay)
}
