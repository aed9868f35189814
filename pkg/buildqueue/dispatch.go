package buildqueue

import (
	"context"
	"sort"
	"time"
)

// JobOffer is the parking slot associating an idle executor with its
// wake-up event (spec.md §3). It is created by the executor entering Pop,
// inserted into the queue's parked table, and removed by that same
// executor before Pop returns.
type JobOffer struct {
	executor Executor
	event    *oneShotEvent
	item     *Item // nil until choose assigns this offer a task
}

func newJobOffer(exec Executor) *JobOffer {
	return &JobOffer{executor: exec, event: newOneShotEvent()}
}

// available reports whether this offer has not yet been assigned a task
// and its executor's owning node is reachable.
func (o *JobOffer) available() bool {
	return o.item == nil && !o.executor.Owner().IsOffline()
}

// nonExclusive reports whether the owning node accepts any task, not just
// ones whose label explicitly targets it.
func (o *JobOffer) nonExclusive() bool {
	return o.executor.Owner().Mode() == ModeNormal
}

// Pop blocks the calling executor until a task is assigned to it, then
// returns that task (spec.md §4.4). One executor must not call Pop more
// than once concurrently. ctx cancellation aborts the rendezvous: any
// item the offer had already been assigned is re-queued as buildable
// before returning ctx.Err(), unless a concurrent Add already
// re-introduced the same task (spec.md §9's `contains`-guard resolution).
func (q *Queue) Pop(ctx context.Context, exec Executor) (Task, error) {
	execID := exec.ID()

	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}
		if _, already := q.parked[execID]; already {
			q.mu.Unlock()
			panic("buildqueue: executor " + execID + " is already parked")
		}

		offer := newJobOffer(exec)
		q.parked[execID] = offer

		q.maintainLocked()
		q.matchLocked()

		var timer *time.Timer
		if len(q.waitingList) > 0 {
			d := q.waitingList[0].DueAt.Sub(q.now())
			if d < 100*time.Millisecond {
				d = 100 * time.Millisecond
			}
			timer = time.NewTimer(d)
		}
		q.mu.Unlock()

		var aborted bool
		if timer != nil {
			select {
			case <-offer.event.ch:
			case <-timer.C:
			case <-ctx.Done():
				aborted = true
			}
			timer.Stop()
		} else {
			select {
			case <-offer.event.ch:
			case <-ctx.Done():
				aborted = true
			}
		}

		q.mu.Lock()
		delete(q.parked, execID)

		if aborted {
			if offer.item != nil {
				key := offer.item.Task.TaskKey()
				if !q.containsLocked(key) {
					q.buildable.put(key, *offer.item)
				}
				q.wakeLocked()
			}
			q.mu.Unlock()
			return nil, ctx.Err()
		}

		if offer.item != nil {
			task := offer.item.Task
			q.mu.Unlock()
			return task, nil
		}
		q.mu.Unlock()
		// Spurious wake or timer tick: loop back to step 1, re-park and
		// re-maintain.
	}
}

// matchLocked is step 3 of pop (spec.md §4.4): iterate the buildable FIFO
// in insertion order, demoting anything newly blocked and handing
// anything ready to an eligible parked offer.
func (q *Queue) matchLocked() {
	keys := append([]string(nil), q.buildable.order...)
	for _, key := range keys {
		item, ok := q.buildable.get(key)
		if !ok {
			continue // already matched earlier in this same pass
		}

		if isBuildBlocked(q.rc, item.Task) {
			q.buildable.remove(key)
			q.blocked[key] = transition(item, StageBlocked)
			continue
		}

		offer := q.chooseLocked(item.Task)
		if offer == nil {
			continue
		}

		assigned := item
		offer.item = &assigned
		offer.event.signal()
		q.buildable.remove(key)
	}
}

func (q *Queue) parkedKeysLocked() []string {
	keys := make([]string, 0, len(q.parked))
	for k := range q.parked {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// chooseLocked implements the selection policy from spec.md §4.5,
// short-circuiting on the first eligible parked offer found at each step.
func (q *Queue) chooseLocked(task Task) *JobOffer {
	if q.env != nil && q.env.IsQuietingDown() {
		return nil // S1: global quiesce
	}

	keys := q.parkedKeysLocked()

	if label := task.AssignedLabel(); label != nil {
		// S2: labelled tasks may not fall through to unlabelled policies.
		for _, k := range keys {
			offer := q.parked[k]
			if offer.available() && label.Contains(offer.executor.Owner()) {
				return offer
			}
		}
		return nil
	}

	large := q.env != nil && q.env.AgentCount() > largeDeploymentThreshold

	// S3: affinity to last-built-on.
	if last := task.LastBuiltOn(); last != nil && last.Mode() != ModeExclusive {
		skip := large && last.IsController()
		if !skip {
			for _, k := range keys {
				offer := q.parked[k]
				if offer.available() && offer.executor.Owner().ID() == last.ID() {
					return offer
				}
			}
		}
	}

	// S4: offload heuristic. A large deployment or a long task never falls
	// through to S5, so it is not placed on the controller node.
	longRunning := task.EstimatedDuration() > 15*time.Minute
	if large || longRunning {
		for _, k := range keys {
			offer := q.parked[k]
			if offer.available() && offer.nonExclusive() && !offer.executor.Owner().IsController() {
				return offer
			}
		}
		return nil
	}

	// S5: any fit.
	for _, k := range keys {
		offer := q.parked[k]
		if offer.available() && offer.nonExclusive() {
			return offer
		}
	}
	return nil
}
