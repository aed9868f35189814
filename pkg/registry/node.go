package registry

import "buildqueue/pkg/buildqueue"

// Node adapts a NodeRecord snapshot to buildqueue.Node. It is a value
// snapshot, not a live handle: callers re-fetch from the Registry when
// they need fresh state, matching the CORE's expectation that Node
// methods are cheap and non-blocking under its monitor.
type Node struct {
	rec NodeRecord
}

// NewNode wraps a NodeRecord for consumption by the dispatcher.
func NewNode(rec NodeRecord) Node { return Node{rec: rec} }

func (n Node) ID() string { return n.rec.NodeID }

func (n Node) Mode() buildqueue.NodeMode {
	if n.rec.Mode == "exclusive" {
		return buildqueue.ModeExclusive
	}
	return buildqueue.ModeNormal
}

func (n Node) IsOffline() bool    { return n.rec.Offline }
func (n Node) IsController() bool { return n.rec.IsController }

// HasLabel reports whether this node advertises the given label name.
func (n Node) HasLabel(label string) bool {
	for _, l := range n.rec.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Executor adapts an ExecutorRecord plus its owning Node to
// buildqueue.Executor.
type Executor struct {
	rec   ExecutorRecord
	owner Node
}

// NewExecutor pairs an executor record with its resolved owning node.
func NewExecutor(rec ExecutorRecord, owner Node) Executor {
	return Executor{rec: rec, owner: owner}
}

func (e Executor) ID() string             { return e.rec.ExecutorID }
func (e Executor) Owner() buildqueue.Node { return e.owner }

// Label is a named, statically-membered set of nodes. Membership is
// evaluated against each node's advertised label list rather than a live
// registry lookup, so it stays cheap to call under the queue's monitor.
type Label struct {
	name    string
	members map[string]bool
	offline func() bool
}

// NewLabel builds a label from the current registry snapshot: every node
// among nodes that advertises labelName becomes a member.
func NewLabel(labelName string, nodes []NodeRecord) *Label {
	members := make(map[string]bool)
	allOffline := true
	for _, rec := range nodes {
		n := NewNode(rec)
		if !n.HasLabel(labelName) {
			continue
		}
		members[rec.NodeID] = true
		if !rec.Offline {
			allOffline = false
		}
	}
	l := &Label{name: labelName, members: members}
	if len(members) > 0 {
		offline := allOffline
		l.offline = func() bool { return offline }
	}
	return l
}

func (l *Label) Name() string { return l.name }

func (l *Label) Contains(n buildqueue.Node) bool {
	return l.members[n.ID()]
}

func (l *Label) IsOffline() bool {
	if l.offline == nil {
		return len(l.members) == 0
	}
	return l.offline()
}

func (l *Label) Size() int { return len(l.members) }
