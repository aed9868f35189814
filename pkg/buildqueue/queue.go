package buildqueue

import (
	"sort"
	"sync"
	"time"
)

// largeDeploymentThreshold is the agent-count above which choose's offload
// heuristic (spec.md §4.5 S4) treats the deployment as "large".
const largeDeploymentThreshold = 10

// Environment is the queue's narrow view of the global controller state,
// per Design Notes §9 ("Global singleton controller... treat as an
// environment handle passed into queue construction, not a global").
type Environment interface {
	// IsQuietingDown reports whether the controller is shutting down and
	// should stop dispatching new work (choose step S1).
	IsQuietingDown() bool
	// AgentCount returns the number of known non-controller nodes, used
	// by choose's "large deployment" heuristic (S3/S4).
	AgentCount() int
	// ResolveTask looks up a task by its persisted full name, used only
	// by the persistence shim on load. Returns nil if the name no longer
	// resolves to a known task.
	ResolveTask(name string) Task
}

// buildableList is an insertion-ordered map from task key to BuildableItem
// (spec.md §3: "insertion-ordered mapping... FIFO to avoid starvation").
type buildableList struct {
	order []string
	byKey map[string]Item
}

func newBuildableList() *buildableList {
	return &buildableList{byKey: make(map[string]Item)}
}

func (b *buildableList) get(key string) (Item, bool) {
	it, ok := b.byKey[key]
	return it, ok
}

// put inserts or updates an entry. A key already present keeps its
// original position; a re-promoted item that was removed first (see
// remove) re-enters at the tail, per spec.md §5's ordering guarantee.
func (b *buildableList) put(key string, it Item) {
	if _, exists := b.byKey[key]; !exists {
		b.order = append(b.order, key)
	}
	b.byKey[key] = it
}

func (b *buildableList) remove(key string) {
	if _, ok := b.byKey[key]; !ok {
		return
	}
	delete(b.byKey, key)
	for i, k := range b.order {
		if k == key {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

func (b *buildableList) len() int { return len(b.byKey) }

func (b *buildableList) all() []Item {
	out := make([]Item, 0, len(b.order))
	for _, k := range b.order {
		out = append(out, b.byKey[k])
	}
	return out
}

// Queue is the monitor object at the heart of the controller: one
// exclusive lock guards the three stage collections, the parked-executor
// table, and the id counter (spec.md §5 "parallel workers, one shared
// monitor"; Design Notes §9 "Monitor-per-object").
type Queue struct {
	mu sync.Mutex

	env Environment
	rc  *ResourceController
	now clock

	waitingList []Item // sorted by (DueAt, ID), front = earliest due
	blocked     map[string]Item
	buildable   *buildableList
	parked      map[string]*JobOffer // executor ID -> offer

	nextID uint64

	ticker *maintenanceTicker
	closed bool
}

// New constructs an empty queue against the given environment and
// resource controller, using the system clock.
func New(env Environment, rc *ResourceController) *Queue {
	return newQueue(env, rc, systemClock)
}

func newQueue(env Environment, rc *ResourceController, now clock) *Queue {
	return &Queue{
		env:       env,
		rc:        rc,
		now:       now,
		blocked:   make(map[string]Item),
		buildable: newBuildableList(),
		parked:    make(map[string]*JobOffer),
	}
}

// StartTicker starts the periodic maintenance ticker (spec.md §4.7),
// following Design Notes §9's explicit-lifecycle replacement for the
// original's weak-reference-based self-cancellation: the queue owns the
// ticker's lifetime outright.
func (q *Queue) StartTicker(interval time.Duration) {
	q.mu.Lock()
	if q.ticker != nil {
		q.mu.Unlock()
		return
	}
	t := newMaintenanceTicker(q, interval)
	q.ticker = t
	q.mu.Unlock()
	t.start()
}

// Close stops the maintenance ticker and marks the queue closed; further
// Add calls are no-ops.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	t := q.ticker
	q.mu.Unlock()
	if t != nil {
		t.stop()
	}
}

func (q *Queue) findWaiting(key string) (int, bool) {
	for i, it := range q.waitingList {
		if it.Task.TaskKey() == key {
			return i, true
		}
	}
	return 0, false
}

func waitingLess(a, b Item) bool {
	if !a.DueAt.Equal(b.DueAt) {
		return a.DueAt.Before(b.DueAt)
	}
	return a.ID < b.ID
}

// insertWaiting inserts it into waitingList maintaining (DueAt, ID) order.
func (q *Queue) insertWaiting(it Item) {
	idx := sort.Search(len(q.waitingList), func(i int) bool {
		return waitingLess(it, q.waitingList[i])
	})
	q.waitingList = append(q.waitingList, Item{})
	copy(q.waitingList[idx+1:], q.waitingList[idx:])
	q.waitingList[idx] = it
}

// Add schedules task to become eligible for dispatch after quietPeriod
// elapses, per spec.md §4.2. It returns true iff the queue state changed.
func (q *Queue) Add(task Task, quietPeriod time.Duration) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	key := task.TaskKey()
	if _, ok := q.blocked[key]; ok {
		return false
	}
	if _, ok := q.buildable.get(key); ok {
		return false
	}

	due := q.now().Add(quietPeriod)

	if idx, ok := q.findWaiting(key); ok {
		existing := q.waitingList[idx]
		if !due.Before(existing.DueAt) {
			return false
		}
		// Open Question resolution (spec.md §9): explicitly remove then
		// reinsert rather than mutating dueAt in place, to preserve the
		// ordered set's invariant.
		q.waitingList = append(q.waitingList[:idx], q.waitingList[idx+1:]...)
		existing.DueAt = due
		q.insertWaiting(existing)
		q.wakeLocked()
		return true
	}

	id := q.nextID
	q.nextID++
	q.insertWaiting(newWaitingItem(task, due, id))
	q.wakeLocked()
	return true
}

// Cancel removes task from whichever stage it currently occupies. Returns
// true iff a removal happened.
func (q *Queue) Cancel(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.cancelLocked(task.TaskKey())
}

func (q *Queue) cancelLocked(key string) bool {
	removed := false
	if idx, ok := q.findWaiting(key); ok {
		q.waitingList = append(q.waitingList[:idx], q.waitingList[idx+1:]...)
		removed = true
	}
	if _, ok := q.blocked[key]; ok {
		delete(q.blocked, key)
		removed = true
	}
	if _, ok := q.buildable.get(key); ok {
		q.buildable.remove(key)
		removed = true
	}
	return removed
}

// Contains reports whether task currently occupies any stage.
func (q *Queue) Contains(task Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.containsLocked(task.TaskKey())
}

func (q *Queue) containsLocked(key string) bool {
	if _, ok := q.findWaiting(key); ok {
		return true
	}
	if _, ok := q.blocked[key]; ok {
		return true
	}
	if _, ok := q.buildable.get(key); ok {
		return true
	}
	return false
}

// GetItem returns a snapshot of task's current item, if queued.
func (q *Queue) GetItem(task Task) (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	key := task.TaskKey()
	if idx, ok := q.findWaiting(key); ok {
		return q.waitingList[idx], true
	}
	if it, ok := q.blocked[key]; ok {
		return it, true
	}
	if it, ok := q.buildable.get(key); ok {
		return it, true
	}
	return Item{}, false
}

// GetItems returns a snapshot of every queued item, across all stages.
func (q *Queue) GetItems() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := make([]Item, 0, len(q.waitingList)+len(q.blocked)+q.buildable.len())
	items = append(items, q.waitingList...)
	for _, it := range q.blocked {
		items = append(items, it)
	}
	items = append(items, q.buildable.all()...)
	return items
}

// IsEmpty reports whether the queue holds no items in any stage.
func (q *Queue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waitingList) == 0 && len(q.blocked) == 0 && q.buildable.len() == 0
}

// GetBuildableItemsFor returns the buildable items eligible to run on the
// node owned by exec: those with no assigned label, or whose label
// contains that node.
func (q *Queue) GetBuildableItemsFor(exec Executor) []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	owner := exec.Owner()
	var out []Item
	for _, it := range q.buildable.all() {
		label := it.Task.AssignedLabel()
		if label == nil || label.Contains(owner) {
			out = append(out, it)
		}
	}
	return out
}

// ScheduleMaintenance wakes exactly one unassigned parked executor, per
// spec.md §4.6. A no-op if none is parked or all are already assigned.
func (q *Queue) ScheduleMaintenance() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.wakeLocked()
}

func (q *Queue) wakeLocked() {
	for _, offer := range q.parked {
		if offer.item == nil {
			offer.event.signal()
			return
		}
	}
}

// Why reports the human-readable status of task's current item, or false
// if the task is not queued.
func (q *Queue) Why(task Task) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	key := task.TaskKey()
	now := q.now()
	if idx, ok := q.findWaiting(key); ok {
		return q.waitingList[idx].Why(q.rc, now), true
	}
	if it, ok := q.blocked[key]; ok {
		return it.Why(q.rc, now), true
	}
	if it, ok := q.buildable.get(key); ok {
		return it.Why(q.rc, now), true
	}
	return "", false
}
