package buildqueue

import (
	"testing"
	"time"
)

func newTestQueue(fc *fakeClock) (*Queue, *fakeEnvironment) {
	env := newFakeEnvironment()
	rc := NewResourceController()
	q := newQueue(env, rc, fc.Now)
	return q, env
}

// E1: quiet-period coalescing.
func TestAdd_QuietPeriodCoalescing(t *testing.T) {
	start := time.Unix(0, 0)
	fc := newFakeClock(start)
	q, _ := newTestQueue(fc)

	task := &fakeTask{key: "T"}

	if ok := q.Add(task, 5*time.Second); !ok {
		t.Fatalf("first add: want true, got false")
	}
	item, ok := q.GetItem(task)
	if !ok || !item.DueAt.Equal(start.Add(5*time.Second)) {
		t.Fatalf("dueAt = %v, want %v", item.DueAt, start.Add(5*time.Second))
	}
	firstID := item.ID

	fc.Advance(1 * time.Second) // t=1

	if ok := q.Add(task, 5*time.Second); ok {
		t.Fatalf("re-add with a later due date: want false, got true")
	}

	if ok := q.Add(task, 2*time.Second); !ok {
		t.Fatalf("pull-in add: want true, got false")
	}
	item, ok = q.GetItem(task)
	if !ok {
		t.Fatalf("item missing after pull-in")
	}
	if want := fc.Now().Add(2 * time.Second); !item.DueAt.Equal(want) {
		t.Fatalf("pulled-in dueAt = %v, want %v", item.DueAt, want)
	}
	if item.ID != firstID {
		t.Fatalf("pull-in must keep the same id: got %d, want %d", item.ID, firstID)
	}

	if n := len(q.GetItems()); n != 1 {
		t.Fatalf("expected exactly one queue entry, got %d", n)
	}
}

// P5: value-equal tasks (same key) collapse to one entry.
func TestAdd_DedupByTaskKey(t *testing.T) {
	fc := newFakeClock(time.Unix(0, 0))
	q, _ := newTestQueue(fc)

	a := &fakeTask{key: "shared"}
	b := &fakeTask{key: "shared"}

	q.Add(a, 0)
	q.Add(b, 0)

	if n := len(q.GetItems()); n != 1 {
		t.Fatalf("want exactly one entry for equal keys, got %d", n)
	}
}

// R3: add twice with identical quiet period returns true then false.
func TestAdd_IdempotentOnIdenticalQuietPeriod(t *testing.T) {
	fc := newFakeClock(time.Unix(0, 0))
	q, _ := newTestQueue(fc)
	task := &fakeTask{key: "T"}

	if ok := q.Add(task, 3*time.Second); !ok {
		t.Fatalf("first add: want true")
	}
	if ok := q.Add(task, 3*time.Second); ok {
		t.Fatalf("second identical add: want false")
	}
}

// R2: cancel is idempotent.
func TestCancel_Idempotent(t *testing.T) {
	fc := newFakeClock(time.Unix(0, 0))
	q, _ := newTestQueue(fc)
	task := &fakeTask{key: "T"}
	q.Add(task, 0)

	if ok := q.Cancel(task); !ok {
		t.Fatalf("first cancel: want true")
	}
	if ok := q.Cancel(task); ok {
		t.Fatalf("second cancel: want false")
	}
}

func TestAdd_NoopWhenAlreadyBlockedOrBuildable(t *testing.T) {
	tests := []struct {
		name  string
		setup func(q *Queue, task Task)
	}{
		{
			name: "buildable",
			setup: func(q *Queue, task Task) {
				q.Add(task, 0)
				q.Maintain()
			},
		},
		{
			name: "blocked",
			setup: func(q *Queue, task Task) {
				q.Add(task, 0)
				q.Maintain()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := newFakeClock(time.Unix(0, 0))
			q, _ := newTestQueue(fc)
			task := &fakeTask{key: "T", blocked: tt.name == "blocked"}
			tt.setup(q, task)

			if ok := q.Add(task, 10*time.Second); ok {
				t.Fatalf("add on already-moving task: want false (noop)")
			}
		})
	}
}

// P1: a task never appears in more than one stage at once.
func TestInvariant_SingleStageMembership(t *testing.T) {
	fc := newFakeClock(time.Unix(0, 0))
	q, _ := newTestQueue(fc)

	blocking := &fakeTask{key: "blocking-resource-holder"}
	task := &fakeTask{key: "T", resources: []Resource{{Name: "workspace"}}}

	q.rc.Acquire(task.ResourceList(), blocking)
	q.Add(task, 0)
	q.Maintain()

	stages := 0
	if _, ok := q.blocked[task.TaskKey()]; ok {
		stages++
	}
	if _, ok := q.buildable.get(task.TaskKey()); ok {
		stages++
	}
	if _, ok := q.findWaiting(task.TaskKey()); ok {
		stages++
	}
	if stages != 1 {
		t.Fatalf("task must occupy exactly one stage, occupies %d", stages)
	}
}
