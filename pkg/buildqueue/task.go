// Package buildqueue implements the build queue and dispatcher: the
// waiting/blocked/buildable lifecycle and the executor-dispatch
// rendezvous at the heart of the controller.
package buildqueue

import "time"

// NodeMode describes how selective a node is about which tasks it accepts.
type NodeMode int

const (
	// ModeNormal nodes accept any task the dispatcher hands them.
	ModeNormal NodeMode = iota
	// ModeExclusive nodes only accept tasks whose label targets them.
	ModeExclusive
)

// Label is a named set of nodes. A task with an assigned label runs only
// on nodes reporting membership in that label.
type Label interface {
	// Name returns the label's display name, used in "why" messages.
	Name() string
	// Contains reports whether the given node is a member of this label.
	Contains(n Node) bool
	// IsOffline reports whether every node in the label is offline.
	IsOffline() bool
	// Size returns the number of nodes in the label.
	Size() int
}

// Node is the external, opaque host an executor runs on. The queue treats
// nodes as read-only: it never mutates them, only queries them under its
// monitor.
type Node interface {
	// ID uniquely identifies the node.
	ID() string
	// Mode reports whether the node accepts any task (NORMAL) or only
	// tasks whose label targets it (EXCLUSIVE).
	Mode() NodeMode
	// IsOffline reports whether the node is currently unreachable.
	IsOffline() bool
	// IsController reports whether this is the coordination node
	// reserved, in large deployments, for controller bookkeeping rather
	// than build execution.
	IsController() bool
}

// Executor is a worker slot on a Node that can run one task at a time.
type Executor interface {
	// ID uniquely identifies the executor across all nodes; the queue keys
	// its parked-executor table by it.
	ID() string
	// Owner returns the node this executor runs on.
	Owner() Node
}

// Task is the unit of work the queue schedules. Two tasks that compare
// equal, per TaskKey, collapse into a single queue entry; this bounds
// backlog growth under rapid re-triggering.
//
// Every method here may be called while the queue's monitor is held and
// must not block.
type Task interface {
	// TaskKey returns a stable identity used for deduplication and as the
	// map key in the blocked/buildable stages. Two tasks with the same key
	// are treated as the same task.
	TaskKey() string

	// AssignedLabel returns the label this task must run within, or nil if
	// the task can run anywhere.
	AssignedLabel() Label

	// LastBuiltOn returns the node this task last successfully ran on, or
	// nil if it has never run or that affinity should not be used.
	LastBuiltOn() Node

	// IsBuildBlocked reports whether execution should be deferred for
	// reasons beyond resource contention (e.g. an upstream/downstream
	// build dependency, a concurrency policy). WhyBlocked explains why,
	// for status displays, when IsBuildBlocked is true.
	IsBuildBlocked() bool
	WhyBlocked() string

	// ResourceList returns the resources this task needs to acquire
	// before it may run.
	ResourceList() []Resource

	// EstimatedDuration is the expected run time, or -1 if unknown.
	EstimatedDuration() time.Duration

	// Name is this task's short identifier; FullDisplayName is its
	// human-readable counterpart used in status messages.
	Name() string
	FullDisplayName() string

	// DisplayName satisfies ResourceActivity: a task is itself a
	// resource-holding activity while it runs, so the resource
	// controller can report "blocked by itself" (spec.md §6's "in
	// progress" case) by comparing holders for identity.
	DisplayName() string
}

// ResourceActivity is anything that can hold resources: either a Task
// itself (while it runs) or an opaque external activity reported by the
// resource controller as the current holder.
type ResourceActivity interface {
	// DisplayName is a human-readable label for status messages.
	DisplayName() string
}
