package buildqueue

import "time"

// fakeNode is a minimal Node test double.
type fakeNode struct {
	id           string
	mode         NodeMode
	offline      bool
	isController bool
}

func (n *fakeNode) ID() string          { return n.id }
func (n *fakeNode) Mode() NodeMode      { return n.mode }
func (n *fakeNode) IsOffline() bool     { return n.offline }
func (n *fakeNode) IsController() bool  { return n.isController }

// fakeLabel restricts a task to an explicit set of nodes.
type fakeLabel struct {
	name    string
	members map[string]bool
	offline bool
}

func newFakeLabel(name string, nodes ...*fakeNode) *fakeLabel {
	members := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		members[n.id] = true
	}
	return &fakeLabel{name: name, members: members}
}

func (l *fakeLabel) Name() string { return l.name }
func (l *fakeLabel) Contains(n Node) bool {
	return l.members[n.ID()]
}
func (l *fakeLabel) IsOffline() bool { return l.offline }
func (l *fakeLabel) Size() int       { return len(l.members) }

// fakeExecutor is a minimal Executor test double.
type fakeExecutor struct {
	id    string
	owner Node
}

func (e *fakeExecutor) ID() string   { return e.id }
func (e *fakeExecutor) Owner() Node  { return e.owner }

// fakeTask is a minimal Task test double with mutable fields so tests can
// flip blocking/resource state between maintenance calls.
type fakeTask struct {
	key         string
	label       Label
	lastBuiltOn Node
	blocked     bool
	whyBlocked  string
	resources   []Resource
	duration    time.Duration
	name        string
	displayName string
}

func (t *fakeTask) TaskKey() string                  { return t.key }
func (t *fakeTask) AssignedLabel() Label             { return t.label }
func (t *fakeTask) LastBuiltOn() Node                { return t.lastBuiltOn }
func (t *fakeTask) IsBuildBlocked() bool             { return t.blocked }
func (t *fakeTask) WhyBlocked() string                { return t.whyBlocked }
func (t *fakeTask) ResourceList() []Resource         { return t.resources }
func (t *fakeTask) EstimatedDuration() time.Duration { return t.duration }
func (t *fakeTask) Name() string                     { return t.name }
func (t *fakeTask) FullDisplayName() string {
	if t.displayName != "" {
		return t.displayName
	}
	return t.name
}
func (t *fakeTask) DisplayName() string { return t.FullDisplayName() }

// fakeEnvironment is a minimal Environment test double.
type fakeEnvironment struct {
	quietingDown bool
	agentCount   int
	tasks        map[string]Task
}

func newFakeEnvironment() *fakeEnvironment {
	return &fakeEnvironment{tasks: make(map[string]Task)}
}

func (e *fakeEnvironment) IsQuietingDown() bool { return e.quietingDown }
func (e *fakeEnvironment) AgentCount() int      { return e.agentCount }
func (e *fakeEnvironment) ResolveTask(name string) Task {
	return e.tasks[name]
}

// fakeClock lets tests advance wall-clock time deterministically.
type fakeClock struct {
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
