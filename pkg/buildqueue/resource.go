package buildqueue

import "sync"

// Resource is a single named exclusive-use resource a task may need to
// acquire before it can run (a workspace, a lock file, an external
// service slot).
type Resource struct {
	Name string
}

// ResourceController tracks which resources are currently held and by
// which activity. The queue queries it under its own monitor, so
// CanAcquire and GetBlockingActivity must be cheap and non-blocking.
//
// This is the black box named in spec.md §4.1: the queue never mutates
// resource state directly. A task's activity acquires and releases its
// resources through Acquire/Release, typically from the executor that
// runs it, not from the queue itself.
type ResourceController struct {
	mu     sync.Mutex
	holder map[string]ResourceActivity // resource name -> current holder
}

// NewResourceController returns an empty controller.
func NewResourceController() *ResourceController {
	return &ResourceController{holder: make(map[string]ResourceActivity)}
}

// CanAcquire reports whether every resource in the list is currently free
// or already held by the given activity (so a task already holding a
// resource, e.g. across a blocked/buildable cycle, does not block on
// itself).
func (rc *ResourceController) CanAcquire(resources []Resource, by ResourceActivity) bool {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	for _, r := range resources {
		holder, held := rc.holder[r.Name]
		if held && holder != by {
			return false
		}
	}
	return true
}

// GetBlockingActivity returns the activity currently holding one of the
// task's resources, or nil if none is held (or all are held by the task
// itself). Used only for diagnostic "why" messages.
func (rc *ResourceController) GetBlockingActivity(resources []Resource, by ResourceActivity) ResourceActivity {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	for _, r := range resources {
		if holder, held := rc.holder[r.Name]; held && holder != by {
			return holder
		}
	}
	return nil
}

// Acquire marks every resource in the list as held by the given activity.
// It does not check availability; callers must have already confirmed
// CanAcquire.
func (rc *ResourceController) Acquire(resources []Resource, by ResourceActivity) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	for _, r := range resources {
		rc.holder[r.Name] = by
	}
}

// Release frees every resource in the list previously acquired by the
// given activity. Resources held by a different activity are left alone.
func (rc *ResourceController) Release(resources []Resource, by ResourceActivity) {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	for _, r := range resources {
		if rc.holder[r.Name] == by {
			delete(rc.holder, r.Name)
		}
	}
}
