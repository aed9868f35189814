package buildqueue

import (
	"fmt"
	"time"
)

// Stage identifies which of the three collections an Item currently sits
// in.
type Stage int

const (
	StageWaiting Stage = iota
	StageBlocked
	StageBuildable
)

func (s Stage) String() string {
	switch s {
	case StageWaiting:
		return "waiting"
	case StageBlocked:
		return "blocked"
	case StageBuildable:
		return "buildable"
	default:
		return "unknown"
	}
}

// Item is the queue's wrapper around a task while it sits in one of the
// three stages. This is a tagged sum rather than a class hierarchy (see
// DESIGN.md's "Item polymorphism" note): every Item carries a Task and a
// Stage, plus the stage-specific fields below. Fields not relevant to the
// current Stage are zero-valued.
type Item struct {
	Task  Task
	Stage Stage

	// Waiting-stage fields.
	DueAt time.Time
	ID    uint64

	// Blocked/Buildable-stage field: the wall-clock instant this item
	// first transitioned out of Waiting, preserved across blocked<->
	// buildable cycles (invariant I4).
	BuildableStart time.Time
}

// Why returns a human-readable status message for this item, matching
// the per-stage semantics of spec.md §6's "Observable item fields".
//
// rc and now are supplied by the caller (the queue) since Item itself
// holds no reference to the queue's clock or resource controller.
func (it Item) Why(rc *ResourceController, now time.Time) string {
	switch it.Stage {
	case StageWaiting:
		diff := it.DueAt.Sub(now)
		if diff > 0 {
			return fmt.Sprintf("in the quiet period, %s remaining", diff.Round(time.Second))
		}
		return "pending"

	case StageBlocked:
		if blocker := rc.GetBlockingActivity(it.Task.ResourceList(), nil); blocker != nil {
			if blocker == ResourceActivity(it.Task) {
				return "in progress"
			}
			return "blocked by " + blocker.DisplayName()
		}
		return it.Task.WhyBlocked()

	case StageBuildable:
		label := it.Task.AssignedLabel()
		if label == nil {
			return "waiting for next available executor"
		}
		if label.IsOffline() {
			if label.Size() > 1 {
				return fmt.Sprintf("all nodes of label %q are offline", label.Name())
			}
			return label.Name() + " is offline"
		}
		return "waiting for next available executor on " + label.Name()

	default:
		return "unknown"
	}
}

// newWaitingItem constructs a fresh WaitingItem with the given id.
func newWaitingItem(task Task, due time.Time, id uint64) Item {
	return Item{Task: task, Stage: StageWaiting, DueAt: due, ID: id}
}

// promoteFromWaiting derives a Blocked or Buildable item from a waiting
// one, stamping BuildableStart for the first time (invariant I4).
func promoteFromWaiting(wi Item, stage Stage, now time.Time) Item {
	return Item{Task: wi.Task, Stage: stage, BuildableStart: now}
}

// transition moves an item between Blocked and Buildable, carrying
// BuildableStart forward unchanged (invariant I4).
func transition(it Item, stage Stage) Item {
	it.Stage = stage
	return it
}
