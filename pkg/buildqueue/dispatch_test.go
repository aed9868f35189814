package buildqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// E2: promotion straight through to a single idle executor.
func TestPop_PromotionToIdleExecutor(t *testing.T) {
	fc := newFakeClock(time.Unix(0, 0))
	q, _ := newTestQueue(fc)

	controller := &fakeNode{id: "controller", mode: ModeNormal, isController: true}
	exec := &fakeExecutor{id: "e1", owner: controller}
	task := &fakeTask{key: "T"}

	q.Add(task, 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	got, err := q.Pop(ctx, exec)
	require.NoError(t, err)
	require.Equal(t, task, got)
	require.True(t, q.IsEmpty())

	q.mu.Lock()
	_, stillParked := q.parked[exec.ID()]
	q.mu.Unlock()
	require.False(t, stillParked)
}

// E3: label mismatch never dispatches until a matching node parks.
func TestPop_LabelMismatchBlocksUntilMatchingNodeParks(t *testing.T) {
	fc := newFakeClock(time.Unix(0, 0))
	q, _ := newTestQueue(fc)

	genericNode := &fakeNode{id: "n1", mode: ModeNormal}
	linuxNode := &fakeNode{id: "n2", mode: ModeNormal}
	label := newFakeLabel("linux", linuxNode)

	task := &fakeTask{key: "T", label: label}
	q.Add(task, 0)
	q.Maintain()

	genericExec := &fakeExecutor{id: "e1", owner: genericNode}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err := q.Pop(ctx, genericExec)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	item, ok := q.GetItem(task)
	require.True(t, ok)
	require.Equal(t, StageBuildable, item.Stage)

	linuxExec := &fakeExecutor{id: "e2", owner: linuxNode}
	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	got, err := q.Pop(ctx2, linuxExec)
	require.NoError(t, err)
	require.Equal(t, task, got)
}

// E5: affinity/offload — controller node is skipped in a large deployment
// for a long task, even though it has last-built-on affinity.
func TestChoose_LargeDeploymentSkipsControllerAffinity(t *testing.T) {
	fc := newFakeClock(time.Unix(0, 0))
	q, env := newTestQueue(fc)
	env.agentCount = 11 // "large": > largeDeploymentThreshold

	controller := &fakeNode{id: "controller", mode: ModeNormal, isController: true}
	agent := &fakeNode{id: "agent-1", mode: ModeNormal}

	task := &fakeTask{key: "T", lastBuiltOn: controller, duration: 30 * time.Minute}

	q.mu.Lock()
	controllerOffer := newJobOffer(&fakeExecutor{id: "ce", owner: controller})
	q.parked[controllerOffer.executor.ID()] = controllerOffer
	chosen := q.chooseLocked(task)
	q.mu.Unlock()
	require.Nil(t, chosen, "must not pick the controller offer")

	q.mu.Lock()
	agentOffer := newJobOffer(&fakeExecutor{id: "ae", owner: agent})
	q.parked[agentOffer.executor.ID()] = agentOffer
	chosen = q.chooseLocked(task)
	q.mu.Unlock()
	require.Same(t, agentOffer, chosen, "must fall through to the agent offer")
}

// E6: quiesce holds all dispatch until it clears.
func TestChoose_QuiesceBlocksDispatch(t *testing.T) {
	fc := newFakeClock(time.Unix(0, 0))
	q, env := newTestQueue(fc)
	env.quietingDown = true

	node := &fakeNode{id: "n1", mode: ModeNormal}
	offer := newJobOffer(&fakeExecutor{id: "e1", owner: node})

	q.mu.Lock()
	q.parked[offer.executor.ID()] = offer
	chosen := q.chooseLocked(&fakeTask{key: "T"})
	q.mu.Unlock()
	require.Nil(t, chosen)

	env.quietingDown = false
	q.mu.Lock()
	chosen = q.chooseLocked(&fakeTask{key: "T"})
	q.mu.Unlock()
	require.Same(t, offer, chosen)
}

// P6: pop returns exactly one task per call and never a task that was not
// ready.
func TestPop_ReturnsExactlyOneReadyTaskPerCall(t *testing.T) {
	fc := newFakeClock(time.Unix(0, 0))
	q, _ := newTestQueue(fc)

	node := &fakeNode{id: "n1", mode: ModeNormal}
	exec := &fakeExecutor{id: "e1", owner: node}

	a := &fakeTask{key: "A"}
	b := &fakeTask{key: "B"}
	q.Add(a, 0)
	q.Add(b, 0)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got1, err := q.Pop(ctx, exec)
	require.NoError(t, err)

	ctx2, cancel2 := context.WithTimeout(context.Background(), time.Second)
	defer cancel2()
	got2, err := q.Pop(ctx2, exec)
	require.NoError(t, err)

	require.NotEqual(t, got1.TaskKey(), got2.TaskKey())
	require.True(t, q.IsEmpty())
}

// Cleanup path: replays by hand the steps Pop's abort branch runs for an
// offer that already holds an assigned item (Pop itself is not called),
// and checks the item ends up buildable again.
func TestPop_CancellationRequeuesAssignedItem(t *testing.T) {
	fc := newFakeClock(time.Unix(0, 0))
	q, _ := newTestQueue(fc)

	node := &fakeNode{id: "n1", mode: ModeNormal}
	exec := &fakeExecutor{id: "e1", owner: node}
	task := &fakeTask{key: "T"}
	q.Add(task, 0)

	q.mu.Lock()
	offer := newJobOffer(exec)
	q.parked[exec.ID()] = offer
	q.maintainLocked()
	q.matchLocked()
	require.NotNil(t, offer.item, "task should have been matched to this offer")
	q.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // stands for the abort; ctx is not passed to Pop here

	q.mu.Lock()
	delete(q.parked, exec.ID())
	if offer.item != nil {
		key := offer.item.Task.TaskKey()
		if !q.containsLocked(key) {
			q.buildable.put(key, *offer.item)
		}
	}
	q.mu.Unlock()

	item, ok := q.GetItem(task)
	require.True(t, ok)
	require.Equal(t, StageBuildable, item.Stage)
	_ = ctx
}
