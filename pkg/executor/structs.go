// Package executor runs an in-process pool of workers that pop tasks off
// a buildqueue.Queue and execute them through jobregistry.Registry,
// grounded on the teacher's pkg/worker (heartbeat + concurrency-limited
// job puller) but retargeted from HTTP job leasing to a direct in-process
// Queue.Pop call, since the queue here lives in the same process.
package executor

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"buildqueue/pkg/buildqueue"
	"buildqueue/pkg/jobregistry"
)

// Stats mirrors the teacher's WorkerStats counters.
type Stats struct {
	mu                sync.RWMutex
	jobsSucceeded     int
	jobsFailed        int
	lastExecutionTime time.Time
	currentlyRunning  int
}

func (s *Stats) incrementRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentlyRunning++
}

func (s *Stats) decrementRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentlyRunning--
}

func (s *Stats) recordSuccess(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobsSucceeded++
	s.lastExecutionTime = at
}

func (s *Stats) recordFailure(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobsFailed++
	s.lastExecutionTime = at
}

func (s *Stats) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]interface{}{
		"jobs_succeeded":      s.jobsSucceeded,
		"jobs_failed":         s.jobsFailed,
		"last_execution_time": s.lastExecutionTime,
		"currently_running":   s.currentlyRunning,
	}
}

// MaxRetries bounds how many times a failed task is re-enqueued before it
// is abandoned, mirroring the teacher's job.MaxRetries field.
const MaxRetries = 3

// Pool runs concurrency workers, each looping Pop -> Execute -> requeue.
// Every worker pops under its own executor ID (exec's ID plus "-<slot>"),
// all owned by exec's node.
type Pool struct {
	queue       *buildqueue.Queue
	registry    *jobregistry.Registry
	exec        buildqueue.Executor
	concurrency int

	retries   map[string]int
	retriesMu sync.Mutex

	stats    *Stats
	stopChan chan struct{}
	group    *errgroup.Group
}

func NewPool(queue *buildqueue.Queue, registry *jobregistry.Registry, exec buildqueue.Executor, concurrency int) *Pool {
	return &Pool{
		queue:       queue,
		registry:    registry,
		exec:        exec,
		concurrency: concurrency,
		retries:     make(map[string]int),
		stats:       &Stats{},
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Stats() *Stats { return p.stats }
